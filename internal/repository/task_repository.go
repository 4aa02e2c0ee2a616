package repository

import (
	"database/sql"
	"time"

	"github.com/craftcrm/campaign-engine/internal/model"
)

type TaskRepositoryInterface interface {
	Create(t *model.ScheduledTask) error
	GetByJobID(jobID string) (*model.ScheduledTask, error)
	ListAll() ([]model.ScheduledTask, error)
	ListPending() ([]model.ScheduledTask, error)
	UpdateStatus(jobID, status string) error
	MarkRunning(jobID string, lastRunAt time.Time) error
	MarkFinished(jobID, status, errorMessage string) error
	SetNextRun(jobID string, nextRunAt *time.Time) error
}

type TaskRepository struct {
	DB *sql.DB
}

const taskColumns = `id, job_id, task_type, reference_id, description, scheduled_at,
       is_recurring, cron_expression, task_params, status, last_run_at, next_run_at,
       error_message, created_at`

func (r *TaskRepository) Create(t *model.ScheduledTask) error {
	t.CreatedAt = time.Now()
	if t.Status == "" {
		t.Status = model.TaskStatusPending
	}
	if t.TaskParams == "" {
		t.TaskParams = "{}"
	}
	query := `
        INSERT INTO scheduled_tasks
        (job_id, task_type, reference_id, description, scheduled_at, is_recurring, cron_expression, task_params, status, next_run_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		t.JobID, t.TaskType, t.ReferenceID, t.Description, t.ScheduledAt,
		t.IsRecurring, t.CronExpression, t.TaskParams, t.Status, t.NextRunAt, t.CreatedAt,
	).Scan(&t.ID)
}

func (r *TaskRepository) scanTask(row interface{ Scan(...interface{}) error }) (*model.ScheduledTask, error) {
	var t model.ScheduledTask
	err := row.Scan(
		&t.ID, &t.JobID, &t.TaskType, &t.ReferenceID, &t.Description, &t.ScheduledAt,
		&t.IsRecurring, &t.CronExpression, &t.TaskParams, &t.Status, &t.LastRunAt, &t.NextRunAt,
		&t.ErrorMessage, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) GetByJobID(jobID string) (*model.ScheduledTask, error) {
	row := r.DB.QueryRow(`SELECT `+taskColumns+` FROM scheduled_tasks WHERE job_id=$1`, jobID)
	t, err := r.scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *TaskRepository) list(query string, args ...interface{}) ([]model.ScheduledTask, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []model.ScheduledTask{}
	for rows.Next() {
		t, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) ListAll() ([]model.ScheduledTask, error) {
	return r.list(`SELECT ` + taskColumns + ` FROM scheduled_tasks ORDER BY created_at DESC`)
}

func (r *TaskRepository) ListPending() ([]model.ScheduledTask, error) {
	return r.list(`SELECT `+taskColumns+` FROM scheduled_tasks WHERE status=$1 ORDER BY id`, model.TaskStatusPending)
}

func (r *TaskRepository) UpdateStatus(jobID, status string) error {
	_, err := r.DB.Exec(`UPDATE scheduled_tasks SET status=$1 WHERE job_id=$2`, status, jobID)
	return err
}

func (r *TaskRepository) MarkRunning(jobID string, lastRunAt time.Time) error {
	query := `UPDATE scheduled_tasks SET status=$1, last_run_at=$2 WHERE job_id=$3`
	_, err := r.DB.Exec(query, model.TaskStatusRunning, lastRunAt, jobID)
	return err
}

func (r *TaskRepository) MarkFinished(jobID, status, errorMessage string) error {
	query := `UPDATE scheduled_tasks SET status=$1, error_message=$2 WHERE job_id=$3`
	_, err := r.DB.Exec(query, status, errorMessage, jobID)
	return err
}

func (r *TaskRepository) SetNextRun(jobID string, nextRunAt *time.Time) error {
	_, err := r.DB.Exec(`UPDATE scheduled_tasks SET next_run_at=$1 WHERE job_id=$2`, nextRunAt, jobID)
	return err
}

var _ TaskRepositoryInterface = (*TaskRepository)(nil)
