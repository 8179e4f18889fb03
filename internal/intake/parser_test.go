package intake

import (
	"errors"
	"testing"
)

// A real 32-byte base58 pubkey (wrapped SOL mint).
const validMint = "So11111111111111111111111111111111111111112"

func TestParseSeed_Valid(t *testing.T) {
	payload := []byte(`{"address":"` + validMint + `","symbol":"GRAD","source":"pumpfun","curve_percent":93.5,"detected_at":1700000000000}`)

	seed, err := ParseSeed(payload)
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	if seed.Address != validMint {
		t.Errorf("address: got %q", seed.Address)
	}
	if seed.Symbol != "GRAD" {
		t.Errorf("symbol: got %q", seed.Symbol)
	}
	if seed.Source != "pumpfun" {
		t.Errorf("source: got %q", seed.Source)
	}
	if seed.CurvePercent == nil || *seed.CurvePercent != 93.5 {
		t.Errorf("curve_percent: got %v", seed.CurvePercent)
	}
	if seed.DetectedAt != 1700000000000 {
		t.Errorf("detected_at: got %d", seed.DetectedAt)
	}
	if string(seed.Raw) != string(payload) {
		t.Error("raw payload not retained")
	}
}

func TestParseSeed_MintAlias(t *testing.T) {
	seed, err := ParseSeed([]byte(`{"mint":"` + validMint + `","symbol":"ALT"}`))
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	if seed.Address != validMint {
		t.Errorf("address: got %q", seed.Address)
	}
}

func TestParseSeed_DefaultsWhenOmitted(t *testing.T) {
	seed, err := ParseSeed([]byte(`{"address":"` + validMint + `"}`))
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	if seed.Source != "unknown" {
		t.Errorf("source default: got %q", seed.Source)
	}
	if seed.DetectedAt == 0 {
		t.Error("detected_at not defaulted to now")
	}
	if seed.CurvePercent != nil {
		t.Errorf("curve_percent: got %v, want nil", seed.CurvePercent)
	}
}

func TestParseSeed_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    error
	}{
		{"not_json", `{invalid`, ErrMalformed},
		{"missing_address", `{"symbol":"ABC"}`, ErrMissingAddress},
		{"empty_address", `{"address":"","mint":""}`, ErrMissingAddress},
		{"bad_base58", `{"address":"0OIl-not-base58"}`, ErrInvalidAddress},
		{"short_decoded", `{"address":"abc"}`, ErrInvalidAddress},
		{"system_program", `{"address":"11111111111111111111111111111111"}`, ErrFakeCandidate},
		{"fake_symbol", `{"address":"` + validMint + `","symbol":"TEST"}`, ErrFakeCandidate},
		{"fake_symbol_lowercase", `{"address":"` + validMint + `","symbol":"dummy"}`, ErrFakeCandidate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeed([]byte(tt.payload))
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDropReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrMissingAddress, "missing_address"},
		{ErrInvalidAddress, "invalid_address"},
		{ErrFakeCandidate, "fake_candidate"},
		{ErrMalformed, "malformed"},
		{errors.New("something else"), "malformed"},
	}

	for _, tt := range tests {
		if got := DropReason(tt.err); got != tt.want {
			t.Errorf("DropReason(%v): got %q, want %q", tt.err, got, tt.want)
		}
	}
}
