package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/craftcrm/campaign-engine/internal/errors"
	"github.com/craftcrm/campaign-engine/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	List(status string) ([]*model.Campaign, error)
	Update(c *model.Campaign) error
	UpdateStatus(campaignID int, status string) error
	MarkScheduled(campaignID int, scheduledAt time.Time) error
	MarkSending(campaignID int, sentAt time.Time) error
	Complete(campaignID, sentCount, failedCount int) error
	SetTotalRecipients(campaignID, total int) error
	Delete(campaignID int) error
}

type CampaignRepository struct {
	DB *sql.DB
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignStatusDraft
	}
	if c.CourseTypeFilter == "" {
		c.CourseTypeFilter = model.CourseFilterAll
	}
	if c.PurchaseStatusFilter == "" {
		c.PurchaseStatusFilter = model.PurchaseFilterAll
	}
	query := `
        INSERT INTO campaigns (name, subject, content, course_type_filter, purchase_status_filter, status, scheduled_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		c.Name, c.Subject, c.Content,
		c.CourseTypeFilter, c.PurchaseStatusFilter,
		c.Status, c.ScheduledAt, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `
        SELECT id, name, subject, content, course_type_filter, purchase_status_filter,
               status, total_recipients, sent_count, failed_count,
               scheduled_at, sent_at, created_at, updated_at
        FROM campaigns WHERE id=$1
    `
	var c model.Campaign
	err := r.DB.QueryRow(query, id).Scan(
		&c.ID, &c.Name, &c.Subject, &c.Content,
		&c.CourseTypeFilter, &c.PurchaseStatusFilter,
		&c.Status, &c.TotalRecipients, &c.SentCount, &c.FailedCount,
		&c.ScheduledAt, &c.SentAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) List(status string) ([]*model.Campaign, error) {
	query := `
        SELECT id, name, subject, content, course_type_filter, purchase_status_filter,
               status, total_recipients, sent_count, failed_count,
               scheduled_at, sent_at, created_at, updated_at
        FROM campaigns
    `
	args := []interface{}{}
	if status != "" {
		query += " WHERE status=$1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c := &model.Campaign{}
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Subject, &c.Content,
			&c.CourseTypeFilter, &c.PurchaseStatusFilter,
			&c.Status, &c.TotalRecipients, &c.SentCount, &c.FailedCount,
			&c.ScheduledAt, &c.SentAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) Update(c *model.Campaign) error {
	query := `
        UPDATE campaigns
        SET name=$1, subject=$2, content=$3, course_type_filter=$4, purchase_status_filter=$5, updated_at=NOW()
        WHERE id=$6
    `
	_, err := r.DB.Exec(query, c.Name, c.Subject, c.Content, c.CourseTypeFilter, c.PurchaseStatusFilter, c.ID)
	return err
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status string) error {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, status, campaignID)
	return err
}

func (r *CampaignRepository) MarkScheduled(campaignID int, scheduledAt time.Time) error {
	query := `UPDATE campaigns SET status=$1, scheduled_at=$2, updated_at=NOW() WHERE id=$3`
	_, err := r.DB.Exec(query, model.CampaignStatusScheduled, scheduledAt, campaignID)
	return err
}

// MarkSending stamps sent_at together with the status change so a crashed send
// is visible as such.
func (r *CampaignRepository) MarkSending(campaignID int, sentAt time.Time) error {
	query := `UPDATE campaigns SET status=$1, sent_at=$2, updated_at=NOW() WHERE id=$3`
	_, err := r.DB.Exec(query, model.CampaignStatusSending, sentAt, campaignID)
	return err
}

func (r *CampaignRepository) Complete(campaignID, sentCount, failedCount int) error {
	query := `UPDATE campaigns SET status=$1, sent_count=$2, failed_count=$3, updated_at=NOW() WHERE id=$4`
	_, err := r.DB.Exec(query, model.CampaignStatusCompleted, sentCount, failedCount, campaignID)
	return err
}

func (r *CampaignRepository) SetTotalRecipients(campaignID, total int) error {
	query := `UPDATE campaigns SET total_recipients=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, total, campaignID)
	return err
}

func (r *CampaignRepository) Delete(campaignID int) error {
	res, err := r.DB.Exec(`DELETE FROM campaigns WHERE id=$1`, campaignID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	return nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
