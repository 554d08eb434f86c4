package enums

import "fmt"

// RecipientType identifies who receives a settlement distribution line.
type RecipientType string

const (
	RecipientSeller   RecipientType = "seller"
	RecipientRider    RecipientType = "rider"
	RecipientPlatform RecipientType = "platform"
)

var validRecipientTypes = []RecipientType{
	RecipientSeller,
	RecipientRider,
	RecipientPlatform,
}

func (r RecipientType) String() string {
	return string(r)
}

func (r RecipientType) IsValid() bool {
	for _, candidate := range validRecipientTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseRecipientType(value string) (RecipientType, error) {
	for _, candidate := range validRecipientTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid recipient type %q", value)
}

// DistributionStatus tracks payout of a single distribution line.
type DistributionStatus string

const (
	DistributionPending   DistributionStatus = "pending"
	DistributionCompleted DistributionStatus = "completed"
)

func (d DistributionStatus) String() string {
	return string(d)
}
