package core

import "github.com/shopspring/decimal"

// CachedValue is a balance or ticker price together with the generation that wrote it
type CachedValue struct {
	Value                 decimal.Decimal `json:"value"`
	Asset                 string          `json:"asset"`
	LastWrittenGeneration Generation      `json:"last_written_generation"`
}
