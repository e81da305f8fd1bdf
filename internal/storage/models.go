package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// StakingRecord is the persisted snapshot for one token.
type StakingRecord struct {
	TokenAddress   string
	StakingAddress string
	DisplayName    string
	ProjectName    string
	ChainName      string
	Stablecoin     bool
	Categories     []string
	LogoURL        string
	APY            decimal.Decimal
	TVL            decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// merge applies an incoming reconciliation result to an existing record.
// Descriptive fields are fixed at creation; only apy, tvl and updatedAt move.
func merge(existing *StakingRecord, incoming StakingRecord) StakingRecord {
	if existing == nil {
		rec := incoming
		rec.Categories = append([]string(nil), incoming.Categories...)
		rec.CreatedAt = incoming.UpdatedAt
		return rec
	}
	rec := *existing
	rec.Categories = append([]string(nil), existing.Categories...)
	rec.APY = incoming.APY
	rec.TVL = incoming.TVL
	rec.UpdatedAt = incoming.UpdatedAt
	return rec
}
