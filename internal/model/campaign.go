// internal/model/campaign.go
package model

import "time"

// Campaign statuses
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusScheduled = "scheduled"
	CampaignStatusSending   = "sending"
	CampaignStatusCompleted = "completed"
	CampaignStatusCancelled = "cancelled"
)

// Targeting filter values
const (
	CourseFilterAll        = "all"
	CourseFilterComplete   = "complete"
	CourseFilterExperience = "experience"

	PurchaseFilterAll          = "all"
	PurchaseFilterPurchased    = "purchased"
	PurchaseFilterNotPurchased = "not_purchased"
)

type Campaign struct {
	ID                   int        `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	Subject              string     `db:"subject" json:"subject"`
	Content              string     `db:"content" json:"content"`
	CourseTypeFilter     string     `db:"course_type_filter" json:"course_type_filter"`
	PurchaseStatusFilter string     `db:"purchase_status_filter" json:"purchase_status_filter"`
	Status               string     `db:"status" json:"status"`
	TotalRecipients      int        `db:"total_recipients" json:"total_recipients"`
	SentCount            int        `db:"sent_count" json:"sent_count"`
	FailedCount          int        `db:"failed_count" json:"failed_count"`
	ScheduledAt          *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	SentAt               *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
