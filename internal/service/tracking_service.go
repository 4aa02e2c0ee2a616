// internal/service/tracking_service.go
package service

import (
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/craftcrm/campaign-engine/internal/model"
	"github.com/craftcrm/campaign-engine/internal/repository"
)

var hrefPattern = regexp.MustCompile(`href=["']([^"']+)["']`)

// TrackingService rewrites outbound content into trackable links and resolves
// inbound clicks back to their destinations.
type TrackingService struct {
	TrackingRepo  repository.TrackingRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	BaseURL       string
}

// GenerateTrackingCode returns a short random code. Eight hex characters of a
// v4 UUID keep the collision probability negligible at this scale.
func GenerateTrackingCode() string {
	return uuid.NewString()[:8]
}

// RewriteContent replaces every navigable anchor href with a per-recipient
// tracking redirect and returns the TrackedLink rows to create. mailto:,
// tel:, javascript: and same-page fragment links pass through unmodified.
// Runs once per recipient per send, so identical URLs get distinct codes.
func (s *TrackingService) RewriteContent(content string, campaignID, recipientID int) (string, []model.TrackedLink) {
	links := []model.TrackedLink{}

	processed := hrefPattern.ReplaceAllStringFunc(content, func(match string) string {
		sub := hrefPattern.FindStringSubmatch(match)
		originalURL := sub[1]

		for _, prefix := range []string{"mailto:", "tel:", "javascript:", "#"} {
			if strings.HasPrefix(originalURL, prefix) {
				return match
			}
		}

		code := GenerateTrackingCode()
		links = append(links, model.TrackedLink{
			CampaignID:   campaignID,
			TrackingCode: code,
			OriginalURL:  originalURL,
		})
		return `href="` + trackingURL(s.BaseURL, code, recipientID) + `"`
	})

	return processed, links
}

func trackingURL(baseURL, code string, recipientID int) string {
	return strings.TrimRight(baseURL, "/") + "/t/" + code + "?r=" + strconv.Itoa(recipientID)
}

// HandleClick resolves a tracking code, records the click event, bumps the
// aggregate counter and attributes the first click to the recipient. Unknown
// codes degrade to a redirect home; the end user never sees an error.
func (s *TrackingService) HandleClick(trackingCode string, recipientID int, sourceAddr, userAgent string) (string, error) {
	link, err := s.TrackingRepo.GetByCode(trackingCode)
	if err != nil {
		return "/", err
	}
	if link == nil {
		return "/", nil
	}

	now := time.Now()
	if len(userAgent) > 500 {
		userAgent = userAgent[:500]
	}

	click := &model.LinkClick{
		TrackedLinkID: link.ID,
		ClickedAt:     now,
		IPAddress:     sourceAddr,
		UserAgent:     userAgent,
	}
	if recipientID > 0 {
		id := recipientID
		click.RecipientID = &id
	}
	if err := s.TrackingRepo.InsertClick(click); err != nil {
		log.Println("⚠️ failed to record click:", err)
	}
	if err := s.TrackingRepo.IncrementClickCount(link.ID); err != nil {
		log.Println("⚠️ failed to increment click count:", err)
	}

	if recipientID > 0 {
		if _, err := s.RecipientRepo.MarkClicked(recipientID, now); err != nil {
			log.Println("⚠️ failed to mark recipient clicked:", err)
		}
	}

	return link.OriginalURL, nil
}
