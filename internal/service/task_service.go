// internal/service/task_service.go
package service

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/craftcrm/campaign-engine/internal/errors"
	"github.com/craftcrm/campaign-engine/internal/model"
	"github.com/craftcrm/campaign-engine/internal/repository"
	"github.com/craftcrm/campaign-engine/internal/scheduler"
)

// TaskService owns the durable task ledger and the dispatch registry. Every
// scheduler callback it registers is reconstructed purely from the persisted
// ledger row, never from captured in-memory state, so restart recovery can
// rebuild identical behavior.
type TaskService struct {
	TaskRepo     repository.TaskRepositoryInterface
	CustomerRepo repository.CustomerRepositoryInterface
	Campaigns    *CampaignService
	Sched        *scheduler.Scheduler
	Mailer       Mailer

	handlers map[string]func(model.TaskParams) error
}

func NewTaskService(
	taskRepo repository.TaskRepositoryInterface,
	customerRepo repository.CustomerRepositoryInterface,
	campaigns *CampaignService,
	sched *scheduler.Scheduler,
	mailer Mailer,
) *TaskService {
	s := &TaskService{
		TaskRepo:     taskRepo,
		CustomerRepo: customerRepo,
		Campaigns:    campaigns,
		Sched:        sched,
		Mailer:       mailer,
	}
	s.handlers = map[string]func(model.TaskParams) error{
		model.TaskTypeCampaign: s.runCampaignTask,
		model.TaskTypeSendMail: s.runSendMailTask,
	}
	return s
}

// CampaignJobID is the fixed job id scheme for campaign sends, so cancel and
// re-schedule hit the same slot.
func CampaignJobID(campaignID int) string {
	return fmt.Sprintf("campaign_%d", campaignID)
}

// ScheduleCampaign validates, records the ledger row, flips the campaign to
// scheduled and arms the scheduler. Validation failures leave nothing behind.
func (s *TaskService) ScheduleCampaign(campaignID int, runAt time.Time) (string, error) {
	campaign, err := s.Campaigns.GetCampaign(campaignID)
	if err != nil {
		return "", err
	}
	if campaign.Status != model.CampaignStatusDraft {
		return "", appErrors.NewInvalidCampaignState(campaignID, campaign.Status)
	}
	if !runAt.After(time.Now()) {
		return "", appErrors.NewValidation("scheduled time must be in the future")
	}

	jobID := CampaignJobID(campaignID)
	params, _ := json.Marshal(model.TaskParams{CampaignID: campaignID})
	refID := campaignID
	task := &model.ScheduledTask{
		JobID:       jobID,
		TaskType:    model.TaskTypeCampaign,
		ReferenceID: &refID,
		Description: "send campaign: " + campaign.Name,
		ScheduledAt: &runAt,
		TaskParams:  string(params),
		Status:      model.TaskStatusPending,
		NextRunAt:   &runAt,
	}
	if err := s.TaskRepo.Create(task); err != nil {
		return "", err
	}

	// arm before flipping the campaign, and undo the ledger row if arming
	// fails (the run time can slip into the past between validation and here)
	if err := s.Sched.ScheduleOnce(jobID, runAt, s.runner(jobID)); err != nil {
		_ = s.TaskRepo.UpdateStatus(jobID, model.TaskStatusCancelled)
		return "", err
	}

	if err := s.Campaigns.CampaignRepo.MarkScheduled(campaignID, runAt); err != nil {
		s.Sched.Cancel(jobID)
		_ = s.TaskRepo.UpdateStatus(jobID, model.TaskStatusCancelled)
		return "", err
	}

	log.Printf("Scheduled campaign %d as job %s at %s", campaignID, jobID, runAt.Format(time.RFC3339))
	return jobID, nil
}

// CancelCampaign cancels a scheduled campaign. It only prevents a future
// firing; a send already in progress is unaffected.
func (s *TaskService) CancelCampaign(campaignID int) error {
	campaign, err := s.Campaigns.GetCampaign(campaignID)
	if err != nil {
		return err
	}
	if campaign.Status != model.CampaignStatusScheduled {
		return appErrors.NewInvalidCampaignState(campaignID, campaign.Status)
	}

	jobID := CampaignJobID(campaignID)
	s.Sched.Cancel(jobID)
	if err := s.TaskRepo.UpdateStatus(jobID, model.TaskStatusCancelled); err != nil {
		return err
	}
	return s.Campaigns.CampaignRepo.UpdateStatus(campaignID, model.CampaignStatusCancelled)
}

type CreateTaskInput struct {
	TaskType         string
	Description      string
	ScheduledAt      *time.Time
	IsRecurring      bool
	CronExpression   string
	CustomerIDs      []int
	AdditionalEmails []string
	Subject          string
	Content          string
}

// CreateTask registers a generic one-shot or recurring task. The parameters
// are persisted as plain data and dispatched through the handler registry.
func (s *TaskService) CreateTask(in CreateTaskInput) (*model.ScheduledTask, error) {
	if _, ok := s.handlers[in.TaskType]; !ok {
		return nil, appErrors.NewValidation("unknown task type %q", in.TaskType)
	}
	if in.IsRecurring {
		if err := s.Sched.ValidateCron(in.CronExpression); err != nil {
			return nil, err
		}
	} else {
		if in.ScheduledAt == nil {
			return nil, appErrors.NewValidation("scheduled_at is required for one-shot tasks")
		}
		if !in.ScheduledAt.After(time.Now()) {
			return nil, appErrors.NewValidation("scheduled time must be in the future")
		}
	}

	params, err := json.Marshal(model.TaskParams{
		CustomerIDs:      in.CustomerIDs,
		AdditionalEmails: in.AdditionalEmails,
		Subject:          in.Subject,
		Content:          in.Content,
	})
	if err != nil {
		return nil, err
	}

	jobID := in.TaskType + "_" + uuid.NewString()[:8]
	task := &model.ScheduledTask{
		JobID:          jobID,
		TaskType:       in.TaskType,
		Description:    in.Description,
		ScheduledAt:    in.ScheduledAt,
		IsRecurring:    in.IsRecurring,
		CronExpression: in.CronExpression,
		TaskParams:     string(params),
		Status:         model.TaskStatusPending,
		NextRunAt:      in.ScheduledAt,
	}
	if err := s.TaskRepo.Create(task); err != nil {
		return nil, err
	}

	if in.IsRecurring {
		err = s.Sched.ScheduleRecurring(jobID, in.CronExpression, s.runner(jobID))
	} else {
		err = s.Sched.ScheduleOnce(jobID, *in.ScheduledAt, s.runner(jobID))
	}
	if err != nil {
		return nil, err
	}

	log.Printf("Created %s task %s", in.TaskType, jobID)
	return task, nil
}

// runner builds the scheduler callback for a job id. The callback re-reads
// the ledger row when it fires and dispatches on task_type, so it survives
// being reconstructed after a restart.
func (s *TaskService) runner(jobID string) func() {
	return func() { s.executeTask(jobID) }
}

func (s *TaskService) executeTask(jobID string) {
	task, err := s.TaskRepo.GetByJobID(jobID)
	if err != nil {
		log.Printf("⚠️ failed to load task %s: %v", jobID, err)
		return
	}
	if task == nil {
		log.Printf("⚠️ task %s fired but has no ledger row", jobID)
		return
	}
	if task.Status == model.TaskStatusCancelled {
		return
	}

	handler, ok := s.handlers[task.TaskType]
	if !ok {
		log.Printf("⚠️ no handler for task type %q (job %s)", task.TaskType, jobID)
		_ = s.TaskRepo.MarkFinished(jobID, model.TaskStatusFailed, "unknown task type")
		return
	}

	if err := s.TaskRepo.MarkRunning(jobID, time.Now()); err != nil {
		log.Printf("⚠️ failed to mark task %s running: %v", jobID, err)
	}

	var params model.TaskParams
	if err := json.Unmarshal([]byte(task.TaskParams), &params); err != nil {
		log.Printf("⚠️ bad task params for %s: %v", jobID, err)
		_ = s.TaskRepo.MarkFinished(jobID, model.TaskStatusFailed, "invalid task params")
		return
	}

	runErr := handler(params)

	if task.IsRecurring {
		// recurring tasks go back to pending so a restart re-arms them
		status := model.TaskStatusPending
		msg := ""
		if runErr != nil {
			msg = runErr.Error()
		}
		_ = s.TaskRepo.MarkFinished(jobID, status, msg)
		_ = s.TaskRepo.SetNextRun(jobID, s.Sched.NextRun(jobID))
		if runErr != nil {
			log.Printf("⚠️ recurring task %s failed: %v", jobID, runErr)
		}
		return
	}

	if runErr != nil {
		log.Printf("⚠️ task %s failed: %v", jobID, runErr)
		_ = s.TaskRepo.MarkFinished(jobID, model.TaskStatusFailed, runErr.Error())
		return
	}
	_ = s.TaskRepo.MarkFinished(jobID, model.TaskStatusCompleted, "")
}

func (s *TaskService) runCampaignTask(params model.TaskParams) error {
	if params.CampaignID == 0 {
		return fmt.Errorf("campaign task without campaign_id")
	}
	_, err := s.Campaigns.Send(params.CampaignID)
	return err
}

// runSendMailTask delivers a plain mail blast to stored customers and ad-hoc
// addresses. Failures are isolated per address, mirroring the campaign
// executor's contract.
func (s *TaskService) runSendMailTask(params model.TaskParams) error {
	var firstErr error

	for _, id := range params.CustomerIDs {
		customer, err := s.CustomerRepo.GetByID(id)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if customer == nil || customer.Email == "" {
			continue
		}
		body := strings.ReplaceAll(params.Content, "{{name}}", customer.Name)
		if err := s.Mailer.Send(customer.Email, customer.Name, params.Subject, body); err != nil {
			log.Printf("⚠️ failed to send to customer %d: %v", id, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	for _, raw := range params.AdditionalEmails {
		email := strings.ToLower(strings.TrimSpace(raw))
		if email == "" {
			continue
		}
		name := email
		if at := strings.Index(email, "@"); at > 0 {
			name = email[:at]
		}
		body := strings.ReplaceAll(params.Content, "{{name}}", name)
		if err := s.Mailer.Send(email, name, params.Subject, body); err != nil {
			log.Printf("⚠️ failed to send to %s: %v", email, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// RestorePending rebuilds the scheduler from the ledger at startup. Recurring
// rows re-arm on their cron expression; one-shot rows still in the future
// re-arm; elapsed one-shots flip to missed and never run retroactively.
// Must complete before the HTTP surface starts accepting traffic.
func (s *TaskService) RestorePending() error {
	tasks, err := s.TaskRepo.ListPending()
	if err != nil {
		return err
	}

	restored := 0
	missed := 0
	for _, task := range tasks {
		if task.IsRecurring {
			if err := s.Sched.ScheduleRecurring(task.JobID, task.CronExpression, s.runner(task.JobID)); err != nil {
				log.Printf("⚠️ failed to restore recurring task %s: %v", task.JobID, err)
				continue
			}
			_ = s.TaskRepo.SetNextRun(task.JobID, s.Sched.NextRun(task.JobID))
			restored++
			continue
		}

		if task.ScheduledAt != nil && task.ScheduledAt.After(time.Now()) {
			if err := s.Sched.ScheduleOnce(task.JobID, *task.ScheduledAt, s.runner(task.JobID)); err != nil {
				log.Printf("⚠️ failed to restore task %s: %v", task.JobID, err)
				continue
			}
			restored++
			continue
		}

		// at-most-once, never-late: elapsed one-shots are not executed
		if err := s.TaskRepo.UpdateStatus(task.JobID, model.TaskStatusMissed); err != nil {
			log.Printf("⚠️ failed to mark task %s missed: %v", task.JobID, err)
		}
		missed++
	}

	log.Printf("✅ Restored %d scheduled tasks (%d missed)", restored, missed)
	return nil
}

// ScheduleView merges a ledger row with the live scheduler's next-run time.
type ScheduleView struct {
	model.ScheduledTask
	NextRunTime *time.Time `json:"next_run_time,omitempty"`
}

func (s *TaskService) ListSchedules() ([]ScheduleView, error) {
	tasks, err := s.TaskRepo.ListAll()
	if err != nil {
		return nil, err
	}
	views := make([]ScheduleView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, ScheduleView{
			ScheduledTask: task,
			NextRunTime:   s.Sched.NextRun(task.JobID),
		})
	}
	return views, nil
}

func (s *TaskService) ListActiveJobs() []scheduler.JobInfo {
	return s.Sched.ListAll()
}

// CancelByJobID cancels a job in both the scheduler and the ledger. Missing
// from both is a not-found; missing from only one is tolerated.
func (s *TaskService) CancelByJobID(jobID string) error {
	cancelled := s.Sched.Cancel(jobID)

	task, err := s.TaskRepo.GetByJobID(jobID)
	if err != nil {
		return err
	}
	if task != nil {
		if err := s.TaskRepo.UpdateStatus(jobID, model.TaskStatusCancelled); err != nil {
			return err
		}
	}

	if !cancelled && task == nil {
		return appErrors.NewTaskNotFound(jobID)
	}
	return nil
}

func (s *TaskService) Status(jobID string) (*ScheduleView, error) {
	task, err := s.TaskRepo.GetByJobID(jobID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		if _, ok := s.Sched.Get(jobID); !ok {
			return nil, appErrors.NewTaskNotFound(jobID)
		}
		task = &model.ScheduledTask{JobID: jobID}
	}
	return &ScheduleView{
		ScheduledTask: *task,
		NextRunTime:   s.Sched.NextRun(jobID),
	}, nil
}
