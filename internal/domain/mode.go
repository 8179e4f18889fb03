package domain

// Mode represents the execution mode for admitted trades.
type Mode string

const (
	ModePaper Mode = "PAPER"
	ModeLive  Mode = "LIVE"
)

// String returns the string representation of Mode.
func (m Mode) String() string {
	return string(m)
}

// IsValid checks if the mode is a valid value.
func (m Mode) IsValid() bool {
	return m == ModePaper || m == ModeLive
}
