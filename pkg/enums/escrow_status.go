package enums

import "fmt"

// EscrowStatus only moves forward: not_started -> held -> released_to_sellers | refunded_to_buyer.
type EscrowStatus string

const (
	EscrowNotStarted        EscrowStatus = "not_started"
	EscrowHeld              EscrowStatus = "held"
	EscrowReleasedToSellers EscrowStatus = "released_to_sellers"
	EscrowRefundedToBuyer   EscrowStatus = "refunded_to_buyer"
)

var validEscrowStatuses = []EscrowStatus{
	EscrowNotStarted,
	EscrowHeld,
	EscrowReleasedToSellers,
	EscrowRefundedToBuyer,
}

func (e EscrowStatus) String() string {
	return string(e)
}

func (e EscrowStatus) IsValid() bool {
	for _, candidate := range validEscrowStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

func (e EscrowStatus) IsTerminal() bool {
	return e == EscrowReleasedToSellers || e == EscrowRefundedToBuyer
}

// CanAdvanceTo reports whether next is a legal forward step from e.
func (e EscrowStatus) CanAdvanceTo(next EscrowStatus) bool {
	switch e {
	case EscrowNotStarted:
		return next == EscrowHeld
	case EscrowHeld:
		return next == EscrowReleasedToSellers || next == EscrowRefundedToBuyer
	default:
		return false
	}
}

func ParseEscrowStatus(value string) (EscrowStatus, error) {
	for _, candidate := range validEscrowStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid escrow status %q", value)
}
