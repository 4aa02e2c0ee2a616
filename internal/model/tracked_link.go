// internal/model/tracked_link.go
package model

import "time"

// TrackedLink is a per-recipient rewritten hyperlink. One row is created per
// rewritten anchor per recipient send, so identical destination URLs still get
// distinct tracking codes.
type TrackedLink struct {
	ID           int       `db:"id" json:"id"`
	CampaignID   int       `db:"campaign_id" json:"campaign_id"`
	TrackingCode string    `db:"tracking_code" json:"tracking_code"`
	OriginalURL  string    `db:"original_url" json:"original_url"`
	ClickCount   int       `db:"click_count" json:"click_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
