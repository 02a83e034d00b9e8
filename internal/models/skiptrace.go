package models

import "time"

// Skip-trace cache tiers, cheapest first. A quote whose CacheStatus is not
// CacheMiss never costs anything and never needs confirmation.
const (
	CacheDevice = "device_cached"
	CacheTenant = "tenant_cached"
	CacheGlobal = "global_cached"
	CacheMiss   = "miss"
)

// SkipTraceResult is the durable outcome of an executed trace, keyed by
// normalized address so later quotes for the same address resolve from the
// device cache at zero cost. Latest trace wins per lead; history is
// append-only on the server and not modeled here.
type SkipTraceResult struct {
	SkipTraceID       string  `gorm:"primaryKey;size:36"`
	LeadID            string  `gorm:"size:36;index"`
	NormalizedAddress string  `gorm:"size:256;index"`
	Provider          string  `gorm:"size:64"`
	Phones            string  `gorm:"type:json"`
	Emails            string  `gorm:"type:json"`
	IsLitigator       bool
	LitigatorScore    float64
	Cost              float64
	CacheStatus       string  `gorm:"size:16"`
	TracedAt          time.Time
	CreatedAt         time.Time
}
