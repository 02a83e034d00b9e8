package dashboard

import (
	"time"

	"github.com/dealscout/dealscout/internal/models"
	"github.com/dealscout/dealscout/internal/queue"
	"gorm.io/gorm"
)

// Summary is the top-line device state the index page polls.
type Summary struct {
	Online     bool             `json:"online"`
	QueueDepth int64            `json:"queue_depth"`
	Attention  int              `json:"attention"`
	Pipeline   map[string]int64 `json:"pipeline"`
	Litigators int64            `json:"litigators"`
}

// StatusSummary aggregates lead pipeline counts and queue health. The
// Online field is filled in by the handler; the queries here never touch
// the network.
func StatusSummary(db *gorm.DB, q *queue.Store) (*Summary, error) {
	type row struct {
		ReachStatus string
		Count       int64
	}
	var rows []row
	if err := db.Model(&models.Lead{}).
		Select("reach_status, count(*) as count").
		Where("archived = ?", false).
		Group("reach_status").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	pipeline := make(map[string]int64, len(rows))
	for _, r := range rows {
		pipeline[r.ReachStatus] = r.Count
	}

	depth, err := q.Depth()
	if err != nil {
		return nil, err
	}
	attention, err := q.Attention()
	if err != nil {
		return nil, err
	}

	var litigators int64
	if err := db.Model(&models.Lead{}).
		Where("is_litigator = ? AND archived = ?", true, false).
		Count(&litigators).Error; err != nil {
		return nil, err
	}

	return &Summary{
		QueueDepth: depth,
		Attention:  len(attention),
		Pipeline:   pipeline,
		Litigators: litigators,
	}, nil
}

// LeadFilter narrows the lead list view.
type LeadFilter struct {
	Status   string
	Archived bool
}

// LeadRow holds lead data for the list view.
type LeadRow struct {
	LeadID         string     `json:"lead_id"`
	Address        string     `json:"address"`
	ReachStatus    string     `json:"reach_status"`
	IsLitigator    bool       `json:"is_litigator"`
	AckRequired    bool       `json:"litigator_ack_required"`
	SkipTracedAt   *time.Time `json:"skip_traced_at,omitempty"`
	LitigatorScore float64    `json:"litigator_score,omitempty"`
}

// LeadList returns leads for display, newest first.
func LeadList(db *gorm.DB, filter LeadFilter) ([]LeadRow, error) {
	query := db.Model(&models.Lead{}).Where("archived = ?", filter.Archived)
	if filter.Status != "" {
		query = query.Where("reach_status = ?", filter.Status)
	}
	var leads []models.Lead
	if err := query.Order("created_at DESC").Find(&leads).Error; err != nil {
		return nil, err
	}

	rows := make([]LeadRow, len(leads))
	for i, l := range leads {
		rows[i] = LeadRow{
			LeadID:         l.LeadID,
			Address:        l.Address,
			ReachStatus:    l.ReachStatus,
			IsLitigator:    l.IsLitigator,
			AckRequired:    l.LitigatorAckRequired,
			SkipTracedAt:   l.SkipTracedAt,
			LitigatorScore: l.LitigatorScore,
		}
	}
	return rows, nil
}

// AttentionRow holds a mutation awaiting manual review.
type AttentionRow struct {
	MutationID string `json:"mutation_id"`
	LeadID     string `json:"lead_id"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	LastError  string `json:"last_error"`
}

// AttentionList returns failed and stuck mutations for the review view.
func AttentionList(q *queue.Store) ([]AttentionRow, error) {
	muts, err := q.Attention()
	if err != nil {
		return nil, err
	}
	rows := make([]AttentionRow, len(muts))
	for i, m := range muts {
		rows[i] = AttentionRow{
			MutationID: m.MutationID,
			LeadID:     m.LeadID,
			Kind:       m.Kind,
			Status:     m.Status,
			Attempts:   m.AttemptCount,
			LastError:  m.LastError,
		}
	}
	return rows, nil
}
