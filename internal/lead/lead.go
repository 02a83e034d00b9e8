// Package lead covers lead intake and lookup. Outreach semantics live in
// internal/reach; this package only gets leads into and out of the store.
package lead

import (
	"fmt"
	"strings"

	"github.com/dealscout/dealscout/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateOpts holds parameters for capturing a new lead.
type CreateOpts struct {
	Address   string
	OwnerName string
}

// Create captures a lead. The address is normalized for skip-trace cache
// lookups; a second capture of the same normalized address is refused so
// one property cannot fork into parallel reach pipelines.
func Create(db *gorm.DB, opts CreateOpts) (*models.Lead, error) {
	if strings.TrimSpace(opts.Address) == "" {
		return nil, fmt.Errorf("lead: address is required")
	}
	normalized := NormalizeAddress(opts.Address)

	var count int64
	if err := db.Model(&models.Lead{}).
		Where("normalized_address = ? AND archived = ?", normalized, false).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("lead: check duplicate: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("lead: an active lead for %q already exists", opts.Address)
	}

	l := models.Lead{
		LeadID:            uuid.NewString(),
		Address:           strings.TrimSpace(opts.Address),
		NormalizedAddress: normalized,
		OwnerName:         strings.TrimSpace(opts.OwnerName),
		ReachStatus:       models.ReachNotStarted,
	}
	if err := db.Create(&l).Error; err != nil {
		return nil, fmt.Errorf("lead: create: %w", err)
	}
	return &l, nil
}

// ListFilters narrows a lead listing.
type ListFilters struct {
	Status   string
	Archived bool
}

// List returns leads matching the filters, newest first.
func List(db *gorm.DB, filters ListFilters) ([]models.Lead, error) {
	query := db.Where("archived = ?", filters.Archived)
	if filters.Status != "" {
		query = query.Where("reach_status = ?", filters.Status)
	}
	var leads []models.Lead
	if err := query.Order("created_at DESC").Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("lead: list: %w", err)
	}
	return leads, nil
}

// Get returns one lead with its interaction history, oldest interaction
// first.
func Get(db *gorm.DB, leadID string) (*models.Lead, error) {
	var l models.Lead
	err := db.Preload("Interactions", func(db *gorm.DB) *gorm.DB {
		return db.Order("started_at ASC")
	}).Where("lead_id = ?", leadID).First(&l).Error
	if err != nil {
		return nil, fmt.Errorf("lead: load %s: %w", leadID, err)
	}
	return &l, nil
}

// NormalizeAddress canonicalizes a street address for cache matching:
// lowercase, punctuation stripped, whitespace collapsed, common suffixes
// abbreviated.
func NormalizeAddress(addr string) string {
	s := strings.ToLower(strings.TrimSpace(addr))
	s = strings.Map(func(r rune) rune {
		switch r {
		case ',', '.', '#':
			return -1
		}
		return r
	}, s)

	words := strings.Fields(s)
	for i, w := range words {
		if abbr, ok := suffixAbbreviations[w]; ok {
			words[i] = abbr
		}
	}
	return strings.Join(words, " ")
}

var suffixAbbreviations = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"boulevard": "blvd",
	"drive":     "dr",
	"lane":      "ln",
	"road":      "rd",
	"court":     "ct",
	"circle":    "cir",
	"place":     "pl",
	"terrace":   "ter",
	"parkway":   "pkwy",
	"highway":   "hwy",
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
	"apartment": "apt",
	"suite":     "ste",
	"unit":      "unit",
}
