// Package admin maps operator commands onto the risk state manager.
// Authorization is a static allow-list of caller ids; there is no
// session state.
package admin

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/riskstate"
)

// ErrUnauthorized is returned when the caller id is not on the allow-list.
var ErrUnauthorized = errors.New("caller not authorized")

// ErrUnknownCommand is returned for commands the dispatcher doesn't know.
var ErrUnknownCommand = errors.New("unknown command")

// Dispatcher executes admin commands against the risk state manager.
type Dispatcher struct {
	risk    *riskstate.Manager
	allowed map[string]struct{}
	logger  *log.Logger
}

// NewDispatcher creates a Dispatcher with a static caller allow-list.
func NewDispatcher(risk *riskstate.Manager, allowedCallers []string, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	allowed := make(map[string]struct{}, len(allowedCallers))
	for _, id := range allowedCallers {
		allowed[id] = struct{}{}
	}
	return &Dispatcher{risk: risk, allowed: allowed, logger: logger}
}

// Execute runs one command on behalf of callerID and returns a
// human-readable result line. Every accepted command is logged with its
// caller.
func (d *Dispatcher) Execute(callerID, command string, args []string) (string, error) {
	if _, ok := d.allowed[callerID]; !ok {
		return "", ErrUnauthorized
	}

	cmd := strings.ToLower(strings.TrimSpace(command))
	d.logger.Printf("[admin] caller=%s command=%s args=%v", callerID, cmd, args)

	switch cmd {
	case "pause":
		d.risk.SetPaused(true)
		return "paused", nil

	case "resume":
		d.risk.SetPaused(false)
		return "resumed", nil

	case "mode":
		if len(args) != 1 {
			return "", fmt.Errorf("mode requires exactly one argument")
		}
		mode := domain.Mode(strings.ToUpper(args[0]))
		if err := d.risk.SetMode(mode); err != nil {
			return "", err
		}
		s := d.risk.Snapshot()
		if s.Mode != mode {
			return fmt.Sprintf("requested %s, effective %s (daily loss cap active)", mode, s.Mode), nil
		}
		return fmt.Sprintf("mode set to %s", mode), nil

	case "sizecap":
		cap, err := parseFraction(args)
		if err != nil {
			return "", err
		}
		if err := d.risk.SetPerTradeCap(cap); err != nil {
			return "", err
		}
		return fmt.Sprintf("per-trade cap set to %.4f", cap), nil

	case "exposure":
		cap, err := parseFraction(args)
		if err != nil {
			return "", err
		}
		if err := d.risk.SetExposureCap(cap); err != nil {
			return "", err
		}
		return fmt.Sprintf("exposure cap set to %.4f", cap), nil

	case "positions":
		positions := d.risk.Positions()
		if len(positions) == 0 {
			return "no open positions", nil
		}
		var b strings.Builder
		for _, p := range positions {
			fmt.Fprintf(&b, "%s size=%.4f notional=%.2f opened=%d\n",
				p.Address, p.SizeFraction, p.NotionalUSD, p.OpenedAt)
		}
		return strings.TrimRight(b.String(), "\n"), nil

	case "risk":
		s := d.risk.Snapshot()
		kill := "inactive"
		if s.KillSwitchUntil != nil {
			kill = s.KillSwitchUntil.Format("15:04:05")
		}
		return fmt.Sprintf(
			"mode=%s exposure=%.4f positions=%d equity=%.2f daily_pnl=%.2f%% paused=%t kill_switch=%s",
			s.Mode, s.Exposure, s.ConcurrentCount, s.Equity, s.DailyPnlPct, s.Paused, kill,
		), nil

	case "kill":
		minutes := 120
		if len(args) == 1 {
			parsed, err := strconv.Atoi(args[0])
			if err != nil || parsed <= 0 {
				return "", fmt.Errorf("kill minutes must be a positive integer")
			}
			minutes = parsed
		}
		d.risk.SetKillSwitch(minutes)
		return fmt.Sprintf("kill-switch armed for %d minutes", minutes), nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

func parseFraction(args []string) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("exactly one fraction argument required")
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, fmt.Errorf("parse fraction %q: %w", args[0], err)
	}
	return v, nil
}
