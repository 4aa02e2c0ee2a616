// internal/model/recipient.go
package model

import "time"

// Recipient is one addressee of a campaign. It is bound either to a customer
// (CustomerID set) or to a bare email+name pair, never both.
type Recipient struct {
	ID           int        `db:"id" json:"id"`
	CampaignID   int        `db:"campaign_id" json:"campaign_id"`
	CustomerID   *int       `db:"customer_id" json:"customer_id,omitempty"`
	Email        string     `db:"email" json:"email,omitempty"`
	Name         string     `db:"name" json:"name,omitempty"`
	Sent         bool       `db:"sent" json:"sent"`
	SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	ErrorMessage string     `db:"error_message" json:"error_message,omitempty"`
	Clicked      bool       `db:"clicked" json:"clicked"`
	ClickedAt    *time.Time `db:"clicked_at" json:"clicked_at,omitempty"`
}
