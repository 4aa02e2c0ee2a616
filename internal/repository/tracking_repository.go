package repository

import (
	"database/sql"
	"time"

	"github.com/craftcrm/campaign-engine/internal/model"
)

type TrackingRepositoryInterface interface {
	CreateTrackedLink(link *model.TrackedLink) error
	GetByCode(trackingCode string) (*model.TrackedLink, error)
	IncrementClickCount(trackedLinkID int) error
	InsertClick(click *model.LinkClick) error
	ListByCampaign(campaignID int) ([]model.TrackedLink, error)
	TotalClicks(campaignID int) (int, error)
}

type TrackingRepository struct {
	DB *sql.DB
}

func (r *TrackingRepository) CreateTrackedLink(link *model.TrackedLink) error {
	link.CreatedAt = time.Now()
	query := `
        INSERT INTO tracked_links (campaign_id, tracking_code, original_url, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	return r.DB.QueryRow(query, link.CampaignID, link.TrackingCode, link.OriginalURL, link.CreatedAt).Scan(&link.ID)
}

// GetByCode returns nil when the code is unknown; the click collector treats
// that as a safe-redirect case, not an error.
func (r *TrackingRepository) GetByCode(trackingCode string) (*model.TrackedLink, error) {
	query := `
        SELECT id, campaign_id, tracking_code, original_url, click_count, created_at
        FROM tracked_links
        WHERE tracking_code=$1
    `
	var link model.TrackedLink
	err := r.DB.QueryRow(query, trackingCode).Scan(
		&link.ID, &link.CampaignID, &link.TrackingCode, &link.OriginalURL, &link.ClickCount, &link.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (r *TrackingRepository) IncrementClickCount(trackedLinkID int) error {
	query := `UPDATE tracked_links SET click_count=click_count+1 WHERE id=$1`
	_, err := r.DB.Exec(query, trackedLinkID)
	return err
}

func (r *TrackingRepository) InsertClick(click *model.LinkClick) error {
	query := `
        INSERT INTO link_clicks (tracked_link_id, recipient_id, clicked_at, ip_address, user_agent)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		click.TrackedLinkID, click.RecipientID, click.ClickedAt, click.IPAddress, click.UserAgent,
	).Scan(&click.ID)
}

func (r *TrackingRepository) ListByCampaign(campaignID int) ([]model.TrackedLink, error) {
	query := `
        SELECT id, campaign_id, tracking_code, original_url, click_count, created_at
        FROM tracked_links
        WHERE campaign_id=$1
        ORDER BY id
    `
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []model.TrackedLink{}
	for rows.Next() {
		var link model.TrackedLink
		if err := rows.Scan(
			&link.ID, &link.CampaignID, &link.TrackingCode, &link.OriginalURL, &link.ClickCount, &link.CreatedAt,
		); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (r *TrackingRepository) TotalClicks(campaignID int) (int, error) {
	var total int
	err := r.DB.QueryRow(
		`SELECT COALESCE(SUM(click_count), 0) FROM tracked_links WHERE campaign_id=$1`,
		campaignID,
	).Scan(&total)
	return total, err
}

var _ TrackingRepositoryInterface = (*TrackingRepository)(nil)
