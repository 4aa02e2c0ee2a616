package service_test

import (
	"fmt"
	"strings"
	"sync"
	"time"

	appErrors "github.com/craftcrm/campaign-engine/internal/errors"
	"github.com/craftcrm/campaign-engine/internal/model"
)

// In-memory fakes for the repository interfaces.

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int]*model.Campaign
	nextID    int
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{campaigns: map[int]*model.Campaign{}, nextID: 1}
}

func (f *fakeCampaignRepo) Create(c *model.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.nextID
	f.nextID++
	if c.Status == "" {
		c.Status = model.CampaignStatusDraft
	}
	c.CreatedAt = time.Now()
	clone := *c
	f.campaigns[c.ID] = &clone
	return nil
}

func (f *fakeCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	clone := *c
	return &clone, nil
}

func (f *fakeCampaignRepo) List(status string) ([]*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range f.campaigns {
		if status == "" || c.Status == status {
			clone := *c
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeCampaignRepo) Update(c *model.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.campaigns[c.ID]
	if !ok {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	stored.Name = c.Name
	stored.Subject = c.Subject
	stored.Content = c.Content
	stored.CourseTypeFilter = c.CourseTypeFilter
	stored.PurchaseStatusFilter = c.PurchaseStatusFilter
	return nil
}

func (f *fakeCampaignRepo) UpdateStatus(id int, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = status
	return nil
}

func (f *fakeCampaignRepo) MarkScheduled(id int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = model.CampaignStatusScheduled
	c.ScheduledAt = &at
	return nil
}

func (f *fakeCampaignRepo) MarkSending(id int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = model.CampaignStatusSending
	c.SentAt = &at
	return nil
}

func (f *fakeCampaignRepo) Complete(id, sent, failed int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = model.CampaignStatusCompleted
	c.SentCount = sent
	c.FailedCount = failed
	return nil
}

func (f *fakeCampaignRepo) SetTotalRecipients(id, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.TotalRecipients = total
	return nil
}

func (f *fakeCampaignRepo) Delete(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.campaigns[id]; !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	delete(f.campaigns, id)
	return nil
}

type fakeRecipientRepo struct {
	mu         sync.Mutex
	recipients map[int]*model.Recipient
	nextID     int
}

func newFakeRecipientRepo() *fakeRecipientRepo {
	return &fakeRecipientRepo{recipients: map[int]*model.Recipient{}, nextID: 1}
}

func (f *fakeRecipientRepo) CreateCustomerRecipient(campaignID, customerID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recipients {
		if r.CampaignID == campaignID && r.CustomerID != nil && *r.CustomerID == customerID {
			return fmt.Errorf("duplicate recipient for customer %d", customerID)
		}
	}
	id := customerID
	f.recipients[f.nextID] = &model.Recipient{ID: f.nextID, CampaignID: campaignID, CustomerID: &id}
	f.nextID++
	return nil
}

func (f *fakeRecipientRepo) CreateEmailRecipient(campaignID int, email, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recipients {
		if r.CampaignID == campaignID && r.Email == email {
			return fmt.Errorf("duplicate recipient for email %s", email)
		}
	}
	f.recipients[f.nextID] = &model.Recipient{ID: f.nextID, CampaignID: campaignID, Email: email, Name: name}
	f.nextID++
	return nil
}

func (f *fakeRecipientRepo) GetByID(id int) (*model.Recipient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recipients[id]
	if !ok {
		return nil, nil
	}
	clone := *r
	return &clone, nil
}

func (f *fakeRecipientRepo) ListByCampaign(campaignID int) ([]model.Recipient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Recipient{}
	for id := 1; id < f.nextID; id++ {
		if r, ok := f.recipients[id]; ok && r.CampaignID == campaignID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRecipientRepo) MarkSent(id int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.recipients[id]; ok {
		r.Sent = true
		r.SentAt = &at
		r.ErrorMessage = ""
	}
	return nil
}

func (f *fakeRecipientRepo) MarkFailed(id int, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.recipients[id]; ok {
		r.ErrorMessage = msg
	}
	return nil
}

func (f *fakeRecipientRepo) MarkClicked(id int, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recipients[id]
	if !ok || r.Clicked {
		return false, nil
	}
	r.Clicked = true
	r.ClickedAt = &at
	return true, nil
}

func (f *fakeRecipientRepo) DeleteByCampaign(campaignID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.recipients {
		if r.CampaignID == campaignID {
			delete(f.recipients, id)
		}
	}
	return nil
}

func (f *fakeRecipientRepo) ClickedCount(campaignID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.recipients {
		if r.CampaignID == campaignID && r.Clicked {
			count++
		}
	}
	return count, nil
}

type fakeCustomerRepo struct {
	customers map[int]model.Customer
	filtered  []model.Customer
}

func (f *fakeCustomerRepo) GetByID(id int) (*model.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeCustomerRepo) GetByEmail(email string) (*model.Customer, error) {
	for _, c := range f.customers {
		if strings.EqualFold(c.Email, email) {
			clone := c
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeCustomerRepo) ListFiltered(courseType, purchaseStatus string) ([]model.Customer, error) {
	return f.filtered, nil
}

type fakeTrackingRepo struct {
	mu     sync.Mutex
	links  map[string]*model.TrackedLink
	clicks []model.LinkClick
	nextID int
}

func newFakeTrackingRepo() *fakeTrackingRepo {
	return &fakeTrackingRepo{links: map[string]*model.TrackedLink{}, nextID: 1}
}

func (f *fakeTrackingRepo) CreateTrackedLink(link *model.TrackedLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	link.ID = f.nextID
	f.nextID++
	clone := *link
	f.links[link.TrackingCode] = &clone
	return nil
}

func (f *fakeTrackingRepo) GetByCode(code string) (*model.TrackedLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[code]
	if !ok {
		return nil, nil
	}
	clone := *link
	return &clone, nil
}

func (f *fakeTrackingRepo) IncrementClickCount(linkID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range f.links {
		if link.ID == linkID {
			link.ClickCount++
		}
	}
	return nil
}

func (f *fakeTrackingRepo) InsertClick(click *model.LinkClick) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	click.ID = len(f.clicks) + 1
	f.clicks = append(f.clicks, *click)
	return nil
}

func (f *fakeTrackingRepo) ListByCampaign(campaignID int) ([]model.TrackedLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.TrackedLink{}
	for _, link := range f.links {
		if link.CampaignID == campaignID {
			out = append(out, *link)
		}
	}
	return out, nil
}

func (f *fakeTrackingRepo) TotalClicks(campaignID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, link := range f.links {
		if link.CampaignID == campaignID {
			total += link.ClickCount
		}
	}
	return total, nil
}

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*model.ScheduledTask
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[string]*model.ScheduledTask{}}
}

func (f *fakeTaskRepo) Create(t *model.ScheduledTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = len(f.tasks) + 1
	if t.Status == "" {
		t.Status = model.TaskStatusPending
	}
	t.CreatedAt = time.Now()
	clone := *t
	f.tasks[t.JobID] = &clone
	return nil
}

func (f *fakeTaskRepo) GetByJobID(jobID string) (*model.ScheduledTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[jobID]
	if !ok {
		return nil, nil
	}
	clone := *t
	return &clone, nil
}

func (f *fakeTaskRepo) ListAll() ([]model.ScheduledTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ScheduledTask{}
	for _, t := range f.tasks {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTaskRepo) ListPending() ([]model.ScheduledTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ScheduledTask{}
	for _, t := range f.tasks {
		if t.Status == model.TaskStatusPending {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTaskRepo) UpdateStatus(jobID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[jobID]; ok {
		t.Status = status
	}
	return nil
}

func (f *fakeTaskRepo) MarkRunning(jobID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[jobID]; ok {
		t.Status = model.TaskStatusRunning
		t.LastRunAt = &at
	}
	return nil
}

func (f *fakeTaskRepo) MarkFinished(jobID, status, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[jobID]; ok {
		t.Status = status
		t.ErrorMessage = msg
	}
	return nil
}

func (f *fakeTaskRepo) SetNextRun(jobID string, at *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[jobID]; ok {
		t.NextRunAt = at
	}
	return nil
}

// fakeMailer records sends and fails addresses listed in failFor.
type fakeMailer struct {
	mu      sync.Mutex
	sent    []string
	bodies  map[string]string
	failFor map[string]bool
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{bodies: map[string]string{}, failFor: map[string]bool{}}
}

func (f *fakeMailer) Send(to, toName, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[to] {
		return fmt.Errorf("smtp rejected %s", to)
	}
	f.sent = append(f.sent, to)
	f.bodies[to] = htmlBody
	return nil
}
