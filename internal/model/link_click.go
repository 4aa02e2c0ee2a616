// internal/model/link_click.go
package model

import "time"

// LinkClick is an append-only click event. Rows are never updated or deleted.
type LinkClick struct {
	ID            int       `db:"id" json:"id"`
	TrackedLinkID int       `db:"tracked_link_id" json:"tracked_link_id"`
	RecipientID   *int      `db:"recipient_id" json:"recipient_id,omitempty"`
	ClickedAt     time.Time `db:"clicked_at" json:"clicked_at"`
	IPAddress     string    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent     string    `db:"user_agent" json:"user_agent,omitempty"`
}
