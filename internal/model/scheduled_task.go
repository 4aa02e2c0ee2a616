// internal/model/scheduled_task.go
package model

import "time"

// Task statuses
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
	TaskStatusCancelled = "cancelled"
	TaskStatusMissed    = "missed"
)

// Task types dispatched through the task registry
const (
	TaskTypeCampaign = "campaign"
	TaskTypeSendMail = "send_mail"
)

// ScheduledTask is the durable description of a job. It is the source of
// truth used to rebuild the in-memory scheduler after a restart, so
// TaskParams must be plain data, never live references.
type ScheduledTask struct {
	ID             int        `db:"id" json:"id"`
	JobID          string     `db:"job_id" json:"job_id"`
	TaskType       string     `db:"task_type" json:"task_type"`
	ReferenceID    *int       `db:"reference_id" json:"reference_id,omitempty"`
	Description    string     `db:"description" json:"description"`
	ScheduledAt    *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	IsRecurring    bool       `db:"is_recurring" json:"is_recurring"`
	CronExpression string     `db:"cron_expression" json:"cron_expression,omitempty"`
	TaskParams     string     `db:"task_params" json:"task_params"`
	Status         string     `db:"status" json:"status"`
	LastRunAt      *time.Time `db:"last_run_at" json:"last_run_at,omitempty"`
	NextRunAt      *time.Time `db:"next_run_at" json:"next_run_at,omitempty"`
	ErrorMessage   string     `db:"error_message" json:"error_message,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// TaskParams is the serialized parameter bundle stored in task_params.
type TaskParams struct {
	CampaignID       int      `json:"campaign_id,omitempty"`
	CustomerIDs      []int    `json:"customer_ids,omitempty"`
	AdditionalEmails []string `json:"additional_emails,omitempty"`
	Subject          string   `json:"subject,omitempty"`
	Content          string   `json:"content,omitempty"`
}
