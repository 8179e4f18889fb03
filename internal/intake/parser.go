// Package intake accepts candidate events from the external detector and
// validates them before they enter the pipeline. Invalid payloads are
// dropped pre-pipeline, never silently coerced.
package intake

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"solana-grad-pipeline/internal/domain"
)

// Intake errors. All of them mean "drop the payload".
var (
	ErrMissingAddress = errors.New("payload missing token address")
	ErrInvalidAddress = errors.New("token address is not a valid base58 pubkey")
	ErrFakeCandidate  = errors.New("obviously fake or test candidate")
	ErrMalformed      = errors.New("malformed candidate payload")
)

// Symbols the detector occasionally emits for its own test events.
var fakeSymbols = map[string]bool{
	"TEST":  true,
	"FAKE":  true,
	"DUMMY": true,
}

// The system program address shows up in malformed detector events.
const systemProgramAddress = "11111111111111111111111111111111"

// rawEvent is the generic key/value shape of a detector payload. Direct
// seed objects use the same keys.
type rawEvent struct {
	Address      string   `json:"address"`
	Mint         string   `json:"mint"` // alias some detectors use
	Symbol       string   `json:"symbol"`
	Source       string   `json:"source"`
	CurvePercent *float64 `json:"curve_percent"`
	DetectedAt   int64    `json:"detected_at"`
}

// ParseSeed validates a raw detector payload and builds a CandidateSeed.
// The raw payload is retained for audit.
func ParseSeed(payload []byte) (domain.CandidateSeed, error) {
	var ev rawEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return domain.CandidateSeed{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	address := ev.Address
	if address == "" {
		address = ev.Mint
	}
	if address == "" {
		return domain.CandidateSeed{}, ErrMissingAddress
	}
	if err := validateAddress(address); err != nil {
		return domain.CandidateSeed{}, err
	}
	if fakeSymbols[strings.ToUpper(ev.Symbol)] {
		return domain.CandidateSeed{}, ErrFakeCandidate
	}

	detectedAt := ev.DetectedAt
	if detectedAt == 0 {
		detectedAt = time.Now().UnixMilli()
	}
	source := ev.Source
	if source == "" {
		source = "unknown"
	}

	return domain.CandidateSeed{
		Address:      address,
		Symbol:       ev.Symbol,
		Source:       source,
		CurvePercent: ev.CurvePercent,
		DetectedAt:   detectedAt,
		Raw:          json.RawMessage(payload),
	}, nil
}

// DropReason maps an intake error to the label used on the drop counter.
func DropReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingAddress):
		return "missing_address"
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, ErrFakeCandidate):
		return "fake_candidate"
	default:
		return "malformed"
	}
}

// validateAddress checks that the address is a well-formed 32-byte base58
// pubkey and not an obvious placeholder.
func validateAddress(address string) error {
	if address == systemProgramAddress {
		return ErrFakeCandidate
	}
	decoded, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("%w: decoded length %d", ErrInvalidAddress, len(decoded))
	}
	return nil
}
