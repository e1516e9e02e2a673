package limits

// PlanType is a subscription tier. Tiers are ordered from cheapest to most expensive.
type PlanType string

// Known plan tiers.
const (
	PlanFree       PlanType = "free"
	PlanBasic      PlanType = "basic"
	PlanPro        PlanType = "pro"
	PlanEnterprise PlanType = "enterprise"
)

// planOrder lists tiers in ascending price order.
var planOrder = []PlanType{PlanFree, PlanBasic, PlanPro, PlanEnterprise}

// Plans returns all known plan tiers in ascending order.
func Plans() []PlanType {
	out := make([]PlanType, len(planOrder))
	copy(out, planOrder)
	return out
}

// Rank returns the position of the plan in the tier order, or -1 if unknown.
func (p PlanType) Rank() int {
	for i, known := range planOrder {
		if p == known {
			return i
		}
	}
	return -1
}

// Valid reports whether p is a known plan tier.
func (p PlanType) Valid() bool {
	return p.Rank() >= 0
}

// ParsePlanType converts s into a PlanType or returns ErrInvalidPlanType.
func ParsePlanType(s string) (PlanType, error) {
	p := PlanType(s)
	if !p.Valid() {
		return "", ErrInvalidPlanType
	}
	return p, nil
}

// PlansAbove returns the tiers strictly above p, cheapest first.
// Unknown plans have nothing above them.
func PlansAbove(p PlanType) []PlanType {
	rank := p.Rank()
	if rank < 0 {
		return nil
	}
	return Plans()[rank+1:]
}
