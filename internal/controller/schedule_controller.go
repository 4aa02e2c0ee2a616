// internal/controller/schedule_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/craftcrm/campaign-engine/internal/service"
)

type ScheduleController struct {
	TaskService *service.TaskService
}

func (c *ScheduleController) ListSchedules(w http.ResponseWriter, r *http.Request) {
	views, err := c.TaskService.ListSchedules()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (c *ScheduleController) ListActiveJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.TaskService.ListActiveJobs())
}

func (c *ScheduleController) CreateTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TaskType         string     `json:"task_type"`
		Description      string     `json:"description"`
		ScheduledAt      *time.Time `json:"scheduled_at"`
		IsRecurring      bool       `json:"is_recurring"`
		CronExpression   string     `json:"cron_expression"`
		CustomerIDs      []int      `json:"customer_ids"`
		AdditionalEmails []string   `json:"additional_emails"`
		Subject          string     `json:"subject"`
		Content          string     `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	task, err := c.TaskService.CreateTask(service.CreateTaskInput{
		TaskType:         body.TaskType,
		Description:      body.Description,
		ScheduledAt:      body.ScheduledAt,
		IsRecurring:      body.IsRecurring,
		CronExpression:   body.CronExpression,
		CustomerIDs:      body.CustomerIDs,
		AdditionalEmails: body.AdditionalEmails,
		Subject:          body.Subject,
		Content:          body.Content,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"job_id":  task.JobID,
	})
}

func (c *ScheduleController) CancelSchedule(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if err := c.TaskService.CancelByJobID(jobID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "schedule cancelled"})
}

func (c *ScheduleController) GetScheduleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	view, err := c.TaskService.Status(jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
