package repository

import (
	"database/sql"
	"time"

	"github.com/craftcrm/campaign-engine/internal/model"
)

type RecipientRepositoryInterface interface {
	CreateCustomerRecipient(campaignID, customerID int) error
	CreateEmailRecipient(campaignID int, email, name string) error
	GetByID(id int) (*model.Recipient, error)
	ListByCampaign(campaignID int) ([]model.Recipient, error)
	MarkSent(id int, sentAt time.Time) error
	MarkFailed(id int, errorMessage string) error
	MarkClicked(id int, clickedAt time.Time) (bool, error)
	DeleteByCampaign(campaignID int) error
	ClickedCount(campaignID int) (int, error)
}

type RecipientRepository struct {
	DB *sql.DB
}

func (r *RecipientRepository) CreateCustomerRecipient(campaignID, customerID int) error {
	query := `
        INSERT INTO campaign_recipients (campaign_id, customer_id)
        VALUES ($1, $2)
    `
	_, err := r.DB.Exec(query, campaignID, customerID)
	return err
}

func (r *RecipientRepository) CreateEmailRecipient(campaignID int, email, name string) error {
	query := `
        INSERT INTO campaign_recipients (campaign_id, email, name)
        VALUES ($1, $2, $3)
    `
	_, err := r.DB.Exec(query, campaignID, email, name)
	return err
}

func (r *RecipientRepository) GetByID(id int) (*model.Recipient, error) {
	query := `
        SELECT id, campaign_id, customer_id, email, name, sent, sent_at, error_message, clicked, clicked_at
        FROM campaign_recipients
        WHERE id=$1
    `
	var rec model.Recipient
	var email, name sql.NullString
	err := r.DB.QueryRow(query, id).Scan(
		&rec.ID, &rec.CampaignID, &rec.CustomerID, &email, &name,
		&rec.Sent, &rec.SentAt, &rec.ErrorMessage, &rec.Clicked, &rec.ClickedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rec.Email = email.String
	rec.Name = name.String
	return &rec, nil
}

func (r *RecipientRepository) ListByCampaign(campaignID int) ([]model.Recipient, error) {
	query := `
        SELECT id, campaign_id, customer_id, email, name, sent, sent_at, error_message, clicked, clicked_at
        FROM campaign_recipients
        WHERE campaign_id=$1
        ORDER BY id
    `
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		var rec model.Recipient
		var email, name sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.CampaignID, &rec.CustomerID, &email, &name,
			&rec.Sent, &rec.SentAt, &rec.ErrorMessage, &rec.Clicked, &rec.ClickedAt,
		); err != nil {
			return nil, err
		}
		rec.Email = email.String
		rec.Name = name.String
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

func (r *RecipientRepository) MarkSent(id int, sentAt time.Time) error {
	query := `UPDATE campaign_recipients SET sent=TRUE, sent_at=$1, error_message='' WHERE id=$2`
	_, err := r.DB.Exec(query, sentAt, id)
	return err
}

func (r *RecipientRepository) MarkFailed(id int, errorMessage string) error {
	query := `UPDATE campaign_recipients SET error_message=$1 WHERE id=$2`
	_, err := r.DB.Exec(query, errorMessage, id)
	return err
}

// MarkClicked sets clicked/clicked_at only if the recipient has not clicked
// before (first-click-wins). Returns whether this call won.
func (r *RecipientRepository) MarkClicked(id int, clickedAt time.Time) (bool, error) {
	query := `UPDATE campaign_recipients SET clicked=TRUE, clicked_at=$1 WHERE id=$2 AND clicked=FALSE`
	res, err := r.DB.Exec(query, clickedAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RecipientRepository) DeleteByCampaign(campaignID int) error {
	_, err := r.DB.Exec(`DELETE FROM campaign_recipients WHERE campaign_id=$1`, campaignID)
	return err
}

func (r *RecipientRepository) ClickedCount(campaignID int) (int, error) {
	var count int
	err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM campaign_recipients WHERE campaign_id=$1 AND clicked=TRUE`,
		campaignID,
	).Scan(&count)
	return count, err
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
