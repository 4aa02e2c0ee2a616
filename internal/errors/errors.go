// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrTaskNotFound signals an unknown job id in both the ledger and the scheduler.
type ErrTaskNotFound struct {
	JobID string
}

func (e *ErrTaskNotFound) Error() string {
	return fmt.Sprintf("task with job ID %q not found", e.JobID)
}

func NewTaskNotFound(jobID string) error {
	return &ErrTaskNotFound{JobID: jobID}
}

// ErrInvalidCampaignState signals a state-conflict: the requested operation is
// not allowed for the campaign's current status. Nothing is mutated.
type ErrInvalidCampaignState struct {
	CampaignID int
	Status     string
}

func (e *ErrInvalidCampaignState) Error() string {
	return fmt.Sprintf("campaign %d is in status %q", e.CampaignID, e.Status)
}

func NewInvalidCampaignState(id int, status string) error {
	return &ErrInvalidCampaignState{CampaignID: id, Status: status}
}

// ErrValidation signals malformed input (bad cron expression, past-dated
// schedule time, missing content). Rejected before anything is persisted.
type ErrValidation struct {
	Msg string
}

func (e *ErrValidation) Error() string {
	return e.Msg
}

func NewValidation(format string, args ...any) error {
	return &ErrValidation{Msg: fmt.Sprintf(format, args...)}
}
