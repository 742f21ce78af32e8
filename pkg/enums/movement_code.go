package enums

import (
	"fmt"
	"strings"
)

// MovementCode identifies a kardex movement type. The sign decides whether
// the movement adds to or removes from a product's stock.
type MovementCode string

const (
	MovementPurchase           MovementCode = "PURCHASE"
	MovementSale               MovementCode = "SALE"
	MovementPositiveAdjustment MovementCode = "POSITIVE_ADJUSTMENT"
	MovementNegativeAdjustment MovementCode = "NEGATIVE_ADJUSTMENT"
	MovementPurchaseReturn     MovementCode = "PURCHASE_RETURN"
	MovementSaleReturn         MovementCode = "SALE_RETURN"
)

// MovementDefinition is one row of the seeded movement vocabulary.
type MovementDefinition struct {
	Code MovementCode
	Name string
	Sign int
}

var movementDefinitions = []MovementDefinition{
	{Code: MovementPurchase, Name: "Purchase", Sign: 1},
	{Code: MovementSale, Name: "Sale", Sign: -1},
	{Code: MovementPositiveAdjustment, Name: "Positive adjustment", Sign: 1},
	{Code: MovementNegativeAdjustment, Name: "Negative adjustment", Sign: -1},
	{Code: MovementPurchaseReturn, Name: "Purchase return", Sign: -1},
	{Code: MovementSaleReturn, Name: "Sale return", Sign: 1},
}

// MovementDefinitions returns a copy of the canonical vocabulary.
func MovementDefinitions() []MovementDefinition {
	out := make([]MovementDefinition, len(movementDefinitions))
	copy(out, movementDefinitions)
	return out
}

// IsValid reports whether the value is part of the vocabulary.
func (m MovementCode) IsValid() bool {
	return m.Sign() != 0
}

// Sign returns +1 or -1, or 0 for unknown codes.
func (m MovementCode) Sign() int {
	for _, def := range movementDefinitions {
		if def.Code == m {
			return def.Sign
		}
	}
	return 0
}

func (m MovementCode) String() string {
	return string(m)
}

// ParseMovementCode converts raw input into a MovementCode.
func ParseMovementCode(value string) (MovementCode, error) {
	candidate := MovementCode(strings.ToUpper(strings.TrimSpace(value)))
	if candidate.IsValid() {
		return candidate, nil
	}
	return "", fmt.Errorf("invalid movement code %q", value)
}
