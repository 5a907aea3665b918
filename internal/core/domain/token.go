package domain

import "github.com/shopspring/decimal"

// TokenDefinition is static reference data describing a collectible token.
type TokenDefinition struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Price       decimal.Decimal `json:"price"`
}

// PurchasePoints is the reward for buying one unit: floor(price × multiplier).
func (t TokenDefinition) PurchasePoints(multiplier decimal.Decimal) int64 {
	return t.Price.Mul(multiplier).Floor().IntPart()
}

// CompensationPoints is what a lottery winner receives for losing one unit.
func (t TokenDefinition) CompensationPoints() int64 {
	return t.Price.Floor().IntPart()
}

// Catalog is the fixed, read-only list of token definitions.
type Catalog struct {
	defs []TokenDefinition
	byID map[string]TokenDefinition
}

// NewCatalog builds a catalog from definitions, preserving their order.
func NewCatalog(defs ...TokenDefinition) *Catalog {
	c := &Catalog{
		defs: make([]TokenDefinition, 0, len(defs)),
		byID: make(map[string]TokenDefinition, len(defs)),
	}
	for _, d := range defs {
		c.defs = append(c.defs, d)
		c.byID[d.ID] = d
	}
	return c
}

// DefaultCatalog returns the production token list.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		TokenDefinition{ID: "gold", DisplayName: "Gold Token", Price: decimal.NewFromInt(100)},
		TokenDefinition{ID: "silver", DisplayName: "Silver Token", Price: decimal.NewFromInt(50)},
		TokenDefinition{ID: "bronze", DisplayName: "Bronze Token", Price: decimal.NewFromInt(25)},
		TokenDefinition{ID: "diamond", DisplayName: "Diamond Token", Price: decimal.NewFromInt(200)},
		TokenDefinition{ID: "emerald", DisplayName: "Emerald Token", Price: decimal.NewFromInt(150)},
		TokenDefinition{ID: "ruby", DisplayName: "Ruby Token", Price: decimal.NewFromInt(175)},
	)
}

// Get looks up a definition by id.
func (c *Catalog) Get(id string) (TokenDefinition, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// List returns all definitions in catalog order.
func (c *Catalog) List() []TokenDefinition {
	out := make([]TokenDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}
