package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/craftcrm/campaign-engine/internal/errors"
	"github.com/craftcrm/campaign-engine/internal/model"
	"github.com/craftcrm/campaign-engine/internal/service"
)

type campaignFixture struct {
	svc           *service.CampaignService
	campaignRepo  *fakeCampaignRepo
	recipientRepo *fakeRecipientRepo
	customerRepo  *fakeCustomerRepo
	trackingRepo  *fakeTrackingRepo
	mailer        *fakeMailer
}

func newCampaignFixture() *campaignFixture {
	campaignRepo := newFakeCampaignRepo()
	recipientRepo := newFakeRecipientRepo()
	trackingRepo := newFakeTrackingRepo()
	customerRepo := &fakeCustomerRepo{
		customers: map[int]model.Customer{
			1: {ID: 1, Name: "Alice Chen", Email: "alice@example.com"},
			2: {ID: 2, Name: "Bob Lin", Email: "bob@example.com"},
			3: {ID: 3, Name: "Carol Wu", Email: "carol@example.com"},
			4: {ID: 4, Name: "Dave Huang", Email: ""},
		},
	}
	mailer := newFakeMailer()
	tracking := &service.TrackingService{
		TrackingRepo:  trackingRepo,
		RecipientRepo: recipientRepo,
		BaseURL:       "http://localhost:8080",
	}
	svc := &service.CampaignService{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		CustomerRepo:  customerRepo,
		TrackingRepo:  trackingRepo,
		Tracking:      tracking,
		Mailer:        mailer,
	}
	return &campaignFixture{
		svc:           svc,
		campaignRepo:  campaignRepo,
		recipientRepo: recipientRepo,
		customerRepo:  customerRepo,
		trackingRepo:  trackingRepo,
		mailer:        mailer,
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	f := newCampaignFixture()

	_, err := f.svc.CreateCampaign(service.CreateCampaignInput{Content: "<p>Hi</p>"})
	var verr *appErrors.ErrValidation
	assert.ErrorAs(t, err, &verr)

	_, err = f.svc.CreateCampaign(service.CreateCampaignInput{Name: "Promo"})
	assert.ErrorAs(t, err, &verr)

	_, err = f.svc.CreateCampaign(service.CreateCampaignInput{
		Name:             "Promo",
		Content:          "<p>Hi</p>",
		CourseTypeFilter: "bogus",
	})
	assert.ErrorAs(t, err, &verr)
}

func TestCreateCampaignDedupsAcrossSources(t *testing.T) {
	f := newCampaignFixture()
	f.customerRepo.filtered = []model.Customer{
		{ID: 1, Name: "Alice Chen", Email: "alice@example.com"},
		{ID: 2, Name: "Bob Lin", Email: "bob@example.com"},
	}

	campaign, err := f.svc.CreateCampaign(service.CreateCampaignInput{
		Name:      "Promo",
		Subject:   "Hello",
		Content:   "<p>Hi {{name}}</p>",
		UseFilter: true,
		// 2 already matched by the filter, 3 is new
		CustomerIDs: []int{2, 3},
		// alice is already in via the filter, dave@ is listed twice
		AdditionalEmails: []string{" Alice@Example.com ", "dave@x.com", "dave@x.com", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, model.CampaignStatusDraft, campaign.Status)
	assert.Equal(t, 4, campaign.TotalRecipients)

	recipients, err := f.recipientRepo.ListByCampaign(campaign.ID)
	require.NoError(t, err)
	require.Len(t, recipients, 4)

	customerIDs := map[int]bool{}
	emails := map[string]bool{}
	for _, r := range recipients {
		if r.CustomerID != nil {
			customerIDs[*r.CustomerID] = true
		} else {
			emails[r.Email] = true
		}
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, customerIDs)
	assert.Equal(t, map[string]bool{"dave@x.com": true}, emails)
}

func TestCreateCampaignAdHocEmailMatchingCustomerBindsCustomer(t *testing.T) {
	f := newCampaignFixture()

	campaign, err := f.svc.CreateCampaign(service.CreateCampaignInput{
		Name:             "Promo",
		Content:          "<p>Hi</p>",
		AdditionalEmails: []string{"carol@example.com"},
	})
	require.NoError(t, err)

	recipients, err := f.recipientRepo.ListByCampaign(campaign.ID)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	require.NotNil(t, recipients[0].CustomerID)
	assert.Equal(t, 3, *recipients[0].CustomerID)
}

func TestUpdateCampaignDraftOnly(t *testing.T) {
	f := newCampaignFixture()
	campaign, err := f.svc.CreateCampaign(service.CreateCampaignInput{Name: "Promo", Content: "<p>Hi</p>"})
	require.NoError(t, err)

	require.NoError(t, f.campaignRepo.UpdateStatus(campaign.ID, model.CampaignStatusCompleted))

	name := "New name"
	_, err = f.svc.UpdateCampaign(campaign.ID, service.UpdateCampaignInput{Name: &name})
	var serr *appErrors.ErrInvalidCampaignState
	assert.ErrorAs(t, err, &serr)
}

func TestUpdateCampaignFilterChangeRebuildsRecipients(t *testing.T) {
	f := newCampaignFixture()
	f.customerRepo.filtered = []model.Customer{
		{ID: 1, Name: "Alice Chen", Email: "alice@example.com"},
	}

	campaign, err := f.svc.CreateCampaign(service.CreateCampaignInput{
		Name:      "Promo",
		Content:   "<p>Hi</p>",
		UseFilter: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, campaign.TotalRecipients)

	f.customerRepo.filtered = []model.Customer{
		{ID: 2, Name: "Bob Lin", Email: "bob@example.com"},
		{ID: 3, Name: "Carol Wu", Email: "carol@example.com"},
	}

	courseType := model.CourseFilterExperience
	updated, err := f.svc.UpdateCampaign(campaign.ID, service.UpdateCampaignInput{
		CourseTypeFilter: &courseType,
		UseFilter:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.TotalRecipients)

	recipients, err := f.recipientRepo.ListByCampaign(campaign.ID)
	require.NoError(t, err)
	require.Len(t, recipients, 2)
	for _, r := range recipients {
		require.NotNil(t, r.CustomerID)
		assert.NotEqual(t, 1, *r.CustomerID)
	}
}

func TestDeleteCampaignDraftOnly(t *testing.T) {
	f := newCampaignFixture()
	campaign, err := f.svc.CreateCampaign(service.CreateCampaignInput{Name: "Promo", Content: "<p>Hi</p>"})
	require.NoError(t, err)

	require.NoError(t, f.campaignRepo.UpdateStatus(campaign.ID, model.CampaignStatusSending))
	var serr *appErrors.ErrInvalidCampaignState
	assert.ErrorAs(t, f.svc.DeleteCampaign(campaign.ID), &serr)

	require.NoError(t, f.campaignRepo.UpdateStatus(campaign.ID, model.CampaignStatusDraft))
	require.NoError(t, f.svc.DeleteCampaign(campaign.ID))

	_, err = f.svc.GetCampaign(campaign.ID)
	var nerr *appErrors.ErrCampaignNotFound
	assert.ErrorAs(t, err, &nerr)
}

func TestSendInvalidState(t *testing.T) {
	f := newCampaignFixture()
	campaign, err := f.svc.CreateCampaign(service.CreateCampaignInput{Name: "Promo", Content: "<p>Hi</p>"})
	require.NoError(t, err)
	require.NoError(t, f.campaignRepo.UpdateStatus(campaign.ID, model.CampaignStatusCompleted))

	_, err = f.svc.Send(campaign.ID)
	var serr *appErrors.ErrInvalidCampaignState
	assert.ErrorAs(t, err, &serr)
}

func TestSendRecordsPerRecipientOutcomes(t *testing.T) {
	f := newCampaignFixture()

	campaign, err := f.svc.CreateCampaign(service.CreateCampaignInput{
		Name:    "Promo",
		Subject: "Hello",
		Content: `<p>Hi {{name}}, see <a href="https://example.com/sale">the sale</a></p>`,
		// 4 has no email on file, bob's mailbox will bounce
		CustomerIDs: []int{1, 2, 4},
	})
	require.NoError(t, err)
	f.mailer.failFor["bob@example.com"] = true

	result, err := f.svc.Send(campaign.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, 2, result.FailedCount)
	assert.Equal(t, 3, result.Total)

	stored, err := f.svc.GetCampaign(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusCompleted, stored.Status)
	assert.Equal(t, 1, stored.SentCount)
	assert.Equal(t, 2, stored.FailedCount)

	recipients, err := f.recipientRepo.ListByCampaign(campaign.ID)
	require.NoError(t, err)
	byCustomer := map[int]model.Recipient{}
	for _, r := range recipients {
		byCustomer[*r.CustomerID] = r
	}

	assert.True(t, byCustomer[1].Sent)
	assert.NotNil(t, byCustomer[1].SentAt)

	assert.False(t, byCustomer[2].Sent)
	assert.Contains(t, byCustomer[2].ErrorMessage, "smtp rejected")

	assert.False(t, byCustomer[4].Sent)
	assert.Equal(t, "invalid email", byCustomer[4].ErrorMessage)

	// delivered body was personalized and its link rewritten
	body := f.mailer.bodies["alice@example.com"]
	assert.Contains(t, body, "Hi Alice Chen")
	assert.Contains(t, body, "http://localhost:8080/t/")
	assert.NotContains(t, body, `href="https://example.com/sale"`)

	// links are rewritten per recipient before delivery is attempted, so both
	// addressable recipients have one
	links, err := f.trackingRepo.ListByCampaign(campaign.ID)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "https://example.com/sale", links[0].OriginalURL)
}

func TestSendSkipsAlreadySentRecipients(t *testing.T) {
	f := newCampaignFixture()

	campaign, err := f.svc.CreateCampaign(service.CreateCampaignInput{
		Name:        "Promo",
		Content:     "<p>Hi</p>",
		CustomerIDs: []int{1, 2},
	})
	require.NoError(t, err)

	recipients, err := f.recipientRepo.ListByCampaign(campaign.ID)
	require.NoError(t, err)
	require.NoError(t, f.recipientRepo.MarkSent(recipients[0].ID, time.Now()))

	result, err := f.svc.Send(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SentCount)
	assert.Len(t, f.mailer.sent, 1)
}

func TestPreviewRecipientsMasksEmails(t *testing.T) {
	f := newCampaignFixture()
	f.customerRepo.filtered = []model.Customer{
		{ID: 1, Name: "Alice Chen", Email: "alice@example.com"},
		{ID: 2, Name: "Bob Lin", Email: "bob@example.com"},
		{ID: 3, Name: "Carol Wu", Email: "carol@example.com"},
	}

	campaign, err := f.svc.CreateCampaign(service.CreateCampaignInput{Name: "Promo", Content: "<p>Hi</p>"})
	require.NoError(t, err)

	total, preview, err := f.svc.PreviewRecipients(campaign.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, preview, 2)
	assert.Equal(t, "a***@example.com", preview[0]["email"])
}

func TestStatsComputesClickRate(t *testing.T) {
	f := newCampaignFixture()

	campaign, err := f.svc.CreateCampaign(service.CreateCampaignInput{
		Name:        "Promo",
		Content:     `<p><a href="https://example.com">Go</a></p>`,
		CustomerIDs: []int{1, 2, 3},
	})
	require.NoError(t, err)

	_, err = f.svc.Send(campaign.ID)
	require.NoError(t, err)

	links, err := f.trackingRepo.ListByCampaign(campaign.ID)
	require.NoError(t, err)
	require.Len(t, links, 3)

	recipients, err := f.recipientRepo.ListByCampaign(campaign.ID)
	require.NoError(t, err)

	// one recipient clicks twice, a second clicks once
	_, err = f.svc.Tracking.HandleClick(links[0].TrackingCode, recipients[0].ID, "1.2.3.4", "ua")
	require.NoError(t, err)
	_, err = f.svc.Tracking.HandleClick(links[0].TrackingCode, recipients[0].ID, "1.2.3.4", "ua")
	require.NoError(t, err)
	_, err = f.svc.Tracking.HandleClick(links[1].TrackingCode, recipients[1].ID, "1.2.3.4", "ua")
	require.NoError(t, err)

	stats, err := f.svc.Stats(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.SentCount)
	assert.Equal(t, 3, stats.TotalClicks)
	assert.Equal(t, 2, stats.UniqueClickers)
	assert.InDelta(t, 66.67, stats.ClickRate, 0.001)
	assert.Len(t, stats.Links, 3)
}

func TestGetCampaignNotFound(t *testing.T) {
	f := newCampaignFixture()

	_, err := f.svc.GetCampaign(999)
	var nerr *appErrors.ErrCampaignNotFound
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, 999, nerr.CampaignID)
}
