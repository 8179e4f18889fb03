// Package riskstate owns all mutable trading state: open positions,
// exposure, daily P&L, kill-switch and pause flags. Every other component
// reads and writes through its narrow interface; all operations are
// serialized under one mutex (single-writer discipline).
package riskstate

import (
	"fmt"
	"sync"
	"time"

	"solana-grad-pipeline/internal/config"
	"solana-grad-pipeline/internal/domain"
)

// Refusal reasons returned by CanEnter and Reserve.
const (
	ReasonPaused            = "paused"
	ReasonKillSwitchActive  = "kill_switch_active"
	ReasonGlobalExposureCap = "global_exposure_cap"
	ReasonMaxConcurrent     = "max_concurrent"
	ReasonDailyLossCap      = "daily_loss_cap"
	ReasonPositionOpen      = "position_already_open"
)

// Snapshot is a point-in-time, consistent view of the risk state.
type Snapshot struct {
	Exposure        float64
	ConcurrentCount int
	Equity          float64
	DailyPnlPct     float64
	KillSwitchUntil *time.Time // nil when inactive
	Paused          bool
	DailyLossActive bool
	Mode            domain.Mode // effective mode after daily-loss demotion
	RequestedMode   domain.Mode // mode last set by operator
}

// Manager is the process-wide risk state owner.
type Manager struct {
	mu  sync.Mutex
	cfg config.Risk
	now func() time.Time

	positions       map[string]domain.Position
	exposure        float64
	equity          float64
	dailyPnlPct     float64
	dailyLossActive bool
	killSwitchUntil time.Time // zero when inactive
	paused          bool
	mode            domain.Mode
	loserCloses     []time.Time
	dayAnchor       time.Time // midnight of the current wall-clock day
}

// New creates a Manager initialized from configuration.
func New(cfg config.Risk, mode domain.Mode) *Manager {
	return NewWithClock(cfg, mode, time.Now)
}

// NewWithClock creates a Manager with an injectable clock.
func NewWithClock(cfg config.Risk, mode domain.Mode, now func() time.Time) *Manager {
	m := &Manager{
		cfg:       cfg,
		now:       now,
		positions: make(map[string]domain.Position),
		equity:    cfg.StartingEquityUSD,
		mode:      mode,
	}
	m.dayAnchor = dayStart(now())
	return m
}

// Snapshot returns a consistent view of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDailyIfNeeded()

	s := Snapshot{
		Exposure:        m.exposure,
		ConcurrentCount: len(m.positions),
		Equity:          m.equity,
		DailyPnlPct:     m.dailyPnlPct,
		Paused:          m.paused,
		DailyLossActive: m.dailyLossActive,
		Mode:            m.effectiveModeLocked(),
		RequestedMode:   m.mode,
	}
	if m.killSwitchActiveLocked() {
		until := m.killSwitchUntil
		s.KillSwitchUntil = &until
	}
	return s
}

// CanEnter reports whether a trade of the given size fraction may be
// admitted right now, with a machine-readable refusal reason. It books
// nothing; concurrent entrants must go through Reserve instead.
func (m *Manager) CanEnter(sizeFraction float64) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDailyIfNeeded()

	if reason := m.admissionRefusalLocked(sizeFraction); reason != "" {
		return false, reason
	}
	return true, ""
}

// Reserve admits a trade and books its exposure in one step, so two
// concurrent candidates cannot both pass admission against the same
// headroom. On refusal nothing is booked. A reservation whose execution
// fails must be undone with Release; a filled one is unwound by the
// eventual ClosePosition.
func (m *Manager) Reserve(address string, sizeFraction, notionalUSD float64) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDailyIfNeeded()

	if reason := m.admissionRefusalLocked(sizeFraction); reason != "" {
		return false, reason
	}
	if _, exists := m.positions[address]; exists {
		return false, ReasonPositionOpen
	}

	m.positions[address] = domain.Position{
		Address:      address,
		SizeFraction: sizeFraction,
		NotionalUSD:  notionalUSD,
		OpenedAt:     m.now().UnixMilli(),
	}
	m.exposure += sizeFraction
	return true, ""
}

// Release drops a reserved position without touching P&L or the loser
// window, for the case where the execution attempt behind the
// reservation never filled.
func (m *Manager) Release(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, exists := m.positions[address]
	if !exists {
		return
	}
	delete(m.positions, address)
	m.exposure -= pos.SizeFraction
	if m.exposure < 0 {
		m.exposure = 0
	}
}

// AddPosition records an already-filled trade directly, bypassing the
// admission checks Reserve applies. The exposure invariant is still
// enforced as a hard stop.
func (m *Manager) AddPosition(address string, sizeFraction, notionalUSD float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDailyIfNeeded()

	if _, exists := m.positions[address]; exists {
		return fmt.Errorf("position already open for %s", address)
	}
	if m.exposure+sizeFraction > m.cfg.ExposureCap {
		return fmt.Errorf("exposure %.4f + %.4f exceeds cap %.4f",
			m.exposure, sizeFraction, m.cfg.ExposureCap)
	}

	m.positions[address] = domain.Position{
		Address:      address,
		SizeFraction: sizeFraction,
		NotionalUSD:  notionalUSD,
		OpenedAt:     m.now().UnixMilli(),
	}
	m.exposure += sizeFraction
	return nil
}

// ClosePosition removes a position and applies its realized P&L, expressed
// as a percentage of account equity. A loss appends to the rolling loser
// window; three losers inside the window arm the kill-switch. Daily P&L at
// or below the daily loss cap demotes the effective mode to PAPER until
// the next daily reset.
func (m *Manager) ClosePosition(address string, realizedPnlPct float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDailyIfNeeded()

	pos, exists := m.positions[address]
	if !exists {
		return fmt.Errorf("no open position for %s", address)
	}
	delete(m.positions, address)
	m.exposure -= pos.SizeFraction
	if m.exposure < 0 {
		m.exposure = 0
	}

	m.dailyPnlPct += realizedPnlPct
	m.equity *= 1 + realizedPnlPct/100

	if m.dailyPnlPct <= m.cfg.DailyLossCapPct {
		m.dailyLossActive = true
	}

	if realizedPnlPct < 0 {
		now := m.now()
		m.loserCloses = append(m.loserCloses, now)
		m.pruneLoserWindowLocked(now)
		if len(m.loserCloses) >= m.cfg.LoserThreshold && !m.killSwitchActiveLocked() {
			m.killSwitchUntil = now.Add(time.Duration(m.cfg.KillSwitchMinutes) * time.Minute)
		}
	}
	return nil
}

// SetPaused toggles the pause flag.
func (m *Manager) SetPaused(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDailyIfNeeded()
	m.paused = paused
}

// SetKillSwitch arms the kill-switch for the given number of minutes.
func (m *Manager) SetKillSwitch(minutes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDailyIfNeeded()
	m.killSwitchUntil = m.now().Add(time.Duration(minutes) * time.Minute)
}

// SetMode records the requested mode. While the daily-loss flag is set the
// effective mode stays PAPER regardless; the request takes effect after
// the next daily reset.
func (m *Manager) SetMode(mode domain.Mode) error {
	if !mode.IsValid() {
		return fmt.Errorf("invalid mode %q", mode)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDailyIfNeeded()
	m.mode = mode
	return nil
}

// SetExposureCap adjusts the global exposure cap at runtime.
func (m *Manager) SetExposureCap(cap float64) error {
	if cap <= 0 || cap > 1 {
		return fmt.Errorf("exposure cap must be in (0,1], got %f", cap)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.ExposureCap = cap
	return nil
}

// SetPerTradeCap adjusts the per-trade size cap at runtime.
func (m *Manager) SetPerTradeCap(cap float64) error {
	if cap <= 0 {
		return fmt.Errorf("per-trade cap must be positive, got %f", cap)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.PerTradeCap = cap
	return nil
}

// Limits returns the current sizing limits (exposure cap, per-trade cap,
// kelly multiplier, max concurrent) as-of now.
func (m *Manager) Limits() config.Risk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Positions returns copies of all open positions.
func (m *Manager) Positions() []domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out
}

// Locked helpers. Callers hold m.mu.

// admissionRefusalLocked returns the refusal reason for a prospective
// entry, or "" when the trade may be admitted.
func (m *Manager) admissionRefusalLocked(sizeFraction float64) string {
	switch {
	case m.paused:
		return ReasonPaused
	case m.killSwitchActiveLocked():
		return ReasonKillSwitchActive
	case m.exposure+sizeFraction > m.cfg.ExposureCap:
		return ReasonGlobalExposureCap
	case len(m.positions) >= m.cfg.MaxConcurrent:
		return ReasonMaxConcurrent
	case m.dailyLossActive:
		return ReasonDailyLossCap
	}
	return ""
}

func (m *Manager) effectiveModeLocked() domain.Mode {
	if m.dailyLossActive {
		return domain.ModePaper
	}
	return m.mode
}

func (m *Manager) killSwitchActiveLocked() bool {
	return !m.killSwitchUntil.IsZero() && m.now().Before(m.killSwitchUntil)
}

func (m *Manager) pruneLoserWindowLocked(now time.Time) {
	window := time.Duration(m.cfg.LoserWindowMinutes) * time.Minute
	kept := m.loserCloses[:0]
	for _, t := range m.loserCloses {
		if now.Sub(t) <= window {
			kept = append(kept, t)
		}
	}
	m.loserCloses = kept
}

// resetDailyIfNeeded clears daily P&L, the daily-loss flag and the loser
// window when the wall-clock day has advanced past the stored anchor.
func (m *Manager) resetDailyIfNeeded() {
	today := dayStart(m.now())
	if !today.After(m.dayAnchor) {
		return
	}
	m.dayAnchor = today
	m.dailyPnlPct = 0
	m.dailyLossActive = false
	m.loserCloses = nil
}

func dayStart(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
