// internal/service/campaign_service.go
package service

import (
	"log"
	"math"
	"strings"
	"time"

	appErrors "github.com/craftcrm/campaign-engine/internal/errors"
	"github.com/craftcrm/campaign-engine/internal/model"
	"github.com/craftcrm/campaign-engine/internal/repository"
)

type CampaignService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	CustomerRepo  repository.CustomerRepositoryInterface
	TrackingRepo  repository.TrackingRepositoryInterface
	Tracking      *TrackingService
	Mailer        Mailer
}

type CreateCampaignInput struct {
	Name                 string
	Subject              string
	Content              string
	CourseTypeFilter     string
	PurchaseStatusFilter string
	CustomerIDs          []int
	AdditionalEmails     []string
	UseFilter            bool
}

type UpdateCampaignInput struct {
	Name                 *string
	Subject              *string
	Content              *string
	CourseTypeFilter     *string
	PurchaseStatusFilter *string
	CustomerIDs          []int
	AdditionalEmails     []string
	UseFilter            bool
}

// SendResult reports a finished delivery batch.
type SendResult struct {
	CampaignID  int `json:"campaign_id"`
	SentCount   int `json:"sent_count"`
	FailedCount int `json:"failed_count"`
	Total       int `json:"total"`
}

type LinkStats struct {
	TrackingCode string `json:"tracking_code"`
	OriginalURL  string `json:"original_url"`
	ClickCount   int    `json:"click_count"`
}

type CampaignStats struct {
	CampaignID      int         `json:"campaign_id"`
	Name            string      `json:"name"`
	Status          string      `json:"status"`
	TotalRecipients int         `json:"total_recipients"`
	SentCount       int         `json:"sent_count"`
	FailedCount     int         `json:"failed_count"`
	TotalClicks     int         `json:"total_clicks"`
	UniqueClickers  int         `json:"unique_clickers"`
	ClickRate       float64     `json:"click_rate"`
	Links           []LinkStats `json:"links"`
}

func validFilters(courseType, purchaseStatus string) bool {
	okCourse := courseType == model.CourseFilterAll ||
		courseType == model.CourseFilterComplete ||
		courseType == model.CourseFilterExperience
	okPurchase := purchaseStatus == model.PurchaseFilterAll ||
		purchaseStatus == model.PurchaseFilterPurchased ||
		purchaseStatus == model.PurchaseFilterNotPurchased
	return okCourse && okPurchase
}

// CreateCampaign creates the campaign row and materializes its deduplicated
// recipient set. total_recipients is fixed here and only changes through an
// explicit rebuild.
func (s *CampaignService) CreateCampaign(in CreateCampaignInput) (*model.Campaign, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, appErrors.NewValidation("campaign name is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, appErrors.NewValidation("campaign content is required")
	}
	if in.CourseTypeFilter == "" {
		in.CourseTypeFilter = model.CourseFilterAll
	}
	if in.PurchaseStatusFilter == "" {
		in.PurchaseStatusFilter = model.PurchaseFilterAll
	}
	if !validFilters(in.CourseTypeFilter, in.PurchaseStatusFilter) {
		return nil, appErrors.NewValidation("invalid targeting filters")
	}

	campaign := &model.Campaign{
		Name:                 in.Name,
		Subject:              in.Subject,
		Content:              in.Content,
		CourseTypeFilter:     in.CourseTypeFilter,
		PurchaseStatusFilter: in.PurchaseStatusFilter,
		Status:               model.CampaignStatusDraft,
	}
	if err := s.CampaignRepo.Create(campaign); err != nil {
		return nil, err
	}

	total, err := s.resolveRecipients(campaign, in.CustomerIDs, in.AdditionalEmails, in.UseFilter)
	if err != nil {
		return nil, err
	}
	if err := s.CampaignRepo.SetTotalRecipients(campaign.ID, total); err != nil {
		return nil, err
	}
	campaign.TotalRecipients = total

	log.Printf("Created campaign %d with %d recipients", campaign.ID, total)
	return campaign, nil
}

// resolveRecipients runs the three resolution passes (filter, explicit ids,
// ad-hoc emails) and dedups across all of them: no customer id and no
// normalized email is registered twice in one campaign.
func (s *CampaignService) resolveRecipients(campaign *model.Campaign, customerIDs []int, additionalEmails []string, useFilter bool) (int, error) {
	addedCustomers := map[int]bool{}
	addedEmails := map[string]bool{}
	total := 0

	if useFilter {
		customers, err := s.CustomerRepo.ListFiltered(campaign.CourseTypeFilter, campaign.PurchaseStatusFilter)
		if err != nil {
			return 0, err
		}
		for _, c := range customers {
			if addedCustomers[c.ID] {
				continue
			}
			if err := s.RecipientRepo.CreateCustomerRecipient(campaign.ID, c.ID); err != nil {
				return total, err
			}
			addedCustomers[c.ID] = true
			addedEmails[strings.ToLower(c.Email)] = true
			total++
		}
	}

	for _, id := range customerIDs {
		if addedCustomers[id] {
			continue
		}
		customer, err := s.CustomerRepo.GetByID(id)
		if err != nil {
			return total, err
		}
		if customer == nil {
			continue
		}
		if err := s.RecipientRepo.CreateCustomerRecipient(campaign.ID, customer.ID); err != nil {
			return total, err
		}
		addedCustomers[customer.ID] = true
		if customer.Email != "" {
			addedEmails[strings.ToLower(customer.Email)] = true
		}
		total++
	}

	for _, raw := range additionalEmails {
		email := strings.ToLower(strings.TrimSpace(raw))
		if email == "" || addedEmails[email] {
			continue
		}

		customer, err := s.CustomerRepo.GetByEmail(email)
		if err != nil {
			return total, err
		}
		if customer != nil {
			if addedCustomers[customer.ID] {
				continue
			}
			if err := s.RecipientRepo.CreateCustomerRecipient(campaign.ID, customer.ID); err != nil {
				return total, err
			}
			addedCustomers[customer.ID] = true
		} else {
			// bare-email recipient, display name derived from the local part
			name := email
			if at := strings.Index(email, "@"); at > 0 {
				name = email[:at]
			}
			if err := s.RecipientRepo.CreateEmailRecipient(campaign.ID, email, name); err != nil {
				return total, err
			}
		}
		addedEmails[email] = true
		total++
	}

	return total, nil
}

// UpdateCampaign mutates a draft. When targeting changes, the recipient set is
// rebuilt from scratch: old recipients are deleted and resolution runs again
// with the explicit ids/emails supplied in this update.
func (s *CampaignService) UpdateCampaign(campaignID int, in UpdateCampaignInput) (*model.Campaign, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignStatusDraft {
		return nil, appErrors.NewInvalidCampaignState(campaignID, campaign.Status)
	}

	filtersChanged := false
	if in.Name != nil {
		campaign.Name = *in.Name
	}
	if in.Subject != nil {
		campaign.Subject = *in.Subject
	}
	if in.Content != nil {
		campaign.Content = *in.Content
	}
	if in.CourseTypeFilter != nil && *in.CourseTypeFilter != campaign.CourseTypeFilter {
		campaign.CourseTypeFilter = *in.CourseTypeFilter
		filtersChanged = true
	}
	if in.PurchaseStatusFilter != nil && *in.PurchaseStatusFilter != campaign.PurchaseStatusFilter {
		campaign.PurchaseStatusFilter = *in.PurchaseStatusFilter
		filtersChanged = true
	}
	if !validFilters(campaign.CourseTypeFilter, campaign.PurchaseStatusFilter) {
		return nil, appErrors.NewValidation("invalid targeting filters")
	}
	if strings.TrimSpace(campaign.Content) == "" {
		return nil, appErrors.NewValidation("campaign content is required")
	}

	if err := s.CampaignRepo.Update(campaign); err != nil {
		return nil, err
	}

	if filtersChanged {
		if err := s.RecipientRepo.DeleteByCampaign(campaignID); err != nil {
			return nil, err
		}
		total, err := s.resolveRecipients(campaign, in.CustomerIDs, in.AdditionalEmails, in.UseFilter)
		if err != nil {
			return nil, err
		}
		if err := s.CampaignRepo.SetTotalRecipients(campaignID, total); err != nil {
			return nil, err
		}
		campaign.TotalRecipients = total
		log.Printf("Rebuilt recipients for campaign %d: %d", campaignID, total)
	}

	return campaign, nil
}

// DeleteCampaign removes a draft campaign and, via cascade, its recipients and
// tracked links.
func (s *CampaignService) DeleteCampaign(campaignID int) error {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}
	if campaign.Status != model.CampaignStatusDraft {
		return appErrors.NewInvalidCampaignState(campaignID, campaign.Status)
	}
	return s.CampaignRepo.Delete(campaignID)
}

func (s *CampaignService) GetCampaign(campaignID int) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(campaignID)
}

func (s *CampaignService) ListCampaigns(status string) ([]*model.Campaign, error) {
	return s.CampaignRepo.List(status)
}

// PreviewRecipients returns the customers the current filters would match,
// with masked emails, capped at limit.
func (s *CampaignService) PreviewRecipients(campaignID, limit int) (int, []map[string]interface{}, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return 0, nil, err
	}
	customers, err := s.CustomerRepo.ListFiltered(campaign.CourseTypeFilter, campaign.PurchaseStatusFilter)
	if err != nil {
		return 0, nil, err
	}

	preview := []map[string]interface{}{}
	for i, c := range customers {
		if i >= limit {
			break
		}
		preview = append(preview, map[string]interface{}{
			"id":    c.ID,
			"name":  c.Name,
			"email": maskEmail(c.Email),
		})
	}
	return len(customers), preview, nil
}

func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return email
	}
	local := email[:at]
	if len(local) <= 1 {
		return email
	}
	return local[:1] + "***" + email[at:]
}

// Send is the delivery executor. It walks every recipient not already sent,
// personalizes and rewrites the content, invokes the mailer and records the
// outcome per recipient before moving on. One recipient's failure never
// aborts the batch; the campaign always ends completed.
func (s *CampaignService) Send(campaignID int) (*SendResult, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignStatusDraft && campaign.Status != model.CampaignStatusScheduled {
		return nil, appErrors.NewInvalidCampaignState(campaignID, campaign.Status)
	}

	if err := s.CampaignRepo.MarkSending(campaignID, time.Now()); err != nil {
		return nil, err
	}

	recipients, err := s.RecipientRepo.ListByCampaign(campaignID)
	if err != nil {
		return nil, err
	}

	sentCount := 0
	failedCount := 0

	for _, recipient := range recipients {
		if recipient.Sent {
			continue
		}

		email, name := s.effectiveAddress(&recipient)
		if email == "" {
			s.recordFailure(recipient.ID, "invalid email")
			failedCount++
			continue
		}

		personalized := strings.ReplaceAll(campaign.Content, "{{name}}", name)
		processed, links := s.Tracking.RewriteContent(personalized, campaign.ID, recipient.ID)

		linkErr := false
		for i := range links {
			if err := s.TrackingRepo.CreateTrackedLink(&links[i]); err != nil {
				log.Println("⚠️ failed to create tracked link:", err)
				s.recordFailure(recipient.ID, err.Error())
				failedCount++
				linkErr = true
				break
			}
		}
		if linkErr {
			continue
		}

		if err := s.Mailer.Send(email, name, campaign.Subject, processed); err != nil {
			s.recordFailure(recipient.ID, err.Error())
			failedCount++
			continue
		}

		if err := s.RecipientRepo.MarkSent(recipient.ID, time.Now()); err != nil {
			log.Println("⚠️ failed to mark recipient sent:", err)
		}
		sentCount++
	}

	if err := s.CampaignRepo.Complete(campaignID, sentCount, failedCount); err != nil {
		return nil, err
	}

	log.Printf("Campaign %d completed: %d sent, %d failed", campaignID, sentCount, failedCount)
	return &SendResult{
		CampaignID:  campaignID,
		SentCount:   sentCount,
		FailedCount: failedCount,
		Total:       campaign.TotalRecipients,
	}, nil
}

// effectiveAddress resolves the recipient's email and display name from the
// customer record when bound to one, otherwise from the recipient itself.
func (s *CampaignService) effectiveAddress(recipient *model.Recipient) (string, string) {
	if recipient.CustomerID != nil {
		customer, err := s.CustomerRepo.GetByID(*recipient.CustomerID)
		if err != nil {
			log.Println("⚠️ failed to load customer:", err)
			return "", ""
		}
		if customer == nil {
			return "", ""
		}
		name := customer.Name
		if name == "" {
			name = "there"
		}
		return customer.Email, name
	}
	name := recipient.Name
	if name == "" {
		name = "there"
	}
	return recipient.Email, name
}

func (s *CampaignService) recordFailure(recipientID int, msg string) {
	if err := s.RecipientRepo.MarkFailed(recipientID, msg); err != nil {
		log.Println("⚠️ failed to record recipient failure:", err)
	}
}

// Stats aggregates delivery and click numbers for reporting.
func (s *CampaignService) Stats(campaignID int) (*CampaignStats, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	links, err := s.TrackingRepo.ListByCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	totalClicks, err := s.TrackingRepo.TotalClicks(campaignID)
	if err != nil {
		return nil, err
	}
	linkStats := make([]LinkStats, 0, len(links))
	for _, link := range links {
		linkStats = append(linkStats, LinkStats{
			TrackingCode: link.TrackingCode,
			OriginalURL:  link.OriginalURL,
			ClickCount:   link.ClickCount,
		})
	}

	uniqueClickers, err := s.RecipientRepo.ClickedCount(campaignID)
	if err != nil {
		return nil, err
	}

	clickRate := 0.0
	if campaign.SentCount > 0 {
		clickRate = math.Round(float64(uniqueClickers)/float64(campaign.SentCount)*100*100) / 100
	}

	return &CampaignStats{
		CampaignID:      campaign.ID,
		Name:            campaign.Name,
		Status:          campaign.Status,
		TotalRecipients: campaign.TotalRecipients,
		SentCount:       campaign.SentCount,
		FailedCount:     campaign.FailedCount,
		TotalClicks:     totalClicks,
		UniqueClickers:  uniqueClickers,
		ClickRate:       clickRate,
		Links:           linkStats,
	}, nil
}
