// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/craftcrm/campaign-engine/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	TaskService     *service.TaskService
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name                 string   `json:"name"`
		Subject              string   `json:"subject"`
		Content              string   `json:"content"`
		CourseTypeFilter     string   `json:"course_type_filter"`
		PurchaseStatusFilter string   `json:"purchase_status_filter"`
		CustomerIDs          []int    `json:"customer_ids"`
		AdditionalEmails     []string `json:"additional_emails"`
		UseFilter            *bool    `json:"use_filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	useFilter := true
	if body.UseFilter != nil {
		useFilter = *body.UseFilter
	}

	campaign, err := c.CampaignService.CreateCampaign(service.CreateCampaignInput{
		Name:                 body.Name,
		Subject:              body.Subject,
		Content:              body.Content,
		CourseTypeFilter:     body.CourseTypeFilter,
		PurchaseStatusFilter: body.PurchaseStatusFilter,
		CustomerIDs:          body.CustomerIDs,
		AdditionalEmails:     body.AdditionalEmails,
		UseFilter:            useFilter,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"campaign_id":      campaign.ID,
		"total_recipients": campaign.TotalRecipients,
		"message":          fmt.Sprintf("campaign created with %d recipients", campaign.TotalRecipients),
	})
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	campaigns, err := c.CampaignService.ListCampaigns(status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.GetCampaign(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		Name                 *string  `json:"name"`
		Subject              *string  `json:"subject"`
		Content              *string  `json:"content"`
		CourseTypeFilter     *string  `json:"course_type_filter"`
		PurchaseStatusFilter *string  `json:"purchase_status_filter"`
		CustomerIDs          []int    `json:"customer_ids"`
		AdditionalEmails     []string `json:"additional_emails"`
		UseFilter            *bool    `json:"use_filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	useFilter := true
	if body.UseFilter != nil {
		useFilter = *body.UseFilter
	}

	campaign, err := c.CampaignService.UpdateCampaign(id, service.UpdateCampaignInput{
		Name:                 body.Name,
		Subject:              body.Subject,
		Content:              body.Content,
		CourseTypeFilter:     body.CourseTypeFilter,
		PurchaseStatusFilter: body.PurchaseStatusFilter,
		CustomerIDs:          body.CustomerIDs,
		AdditionalEmails:     body.AdditionalEmails,
		UseFilter:            useFilter,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	if err := c.CampaignService.DeleteCampaign(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (c *CampaignController) PreviewRecipients(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	total, customers, err := c.CampaignService.PreviewRecipients(id, 50)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":     total,
		"customers": customers,
	})
}

func (c *CampaignController) ScheduleCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		ScheduledAt time.Time `json:"scheduled_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	jobID, err := c.TaskService.ScheduleCampaign(id, body.ScheduledAt)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"job_id":  jobID,
		"message": fmt.Sprintf("campaign scheduled for %s", body.ScheduledAt.Format(time.RFC3339)),
	})
}

func (c *CampaignController) SendCampaignNow(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	result, err := c.CampaignService.Send(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"campaign_id":  result.CampaignID,
		"sent_count":   result.SentCount,
		"failed_count": result.FailedCount,
		"total":        result.Total,
		"message":      fmt.Sprintf("send finished: %d sent, %d failed", result.SentCount, result.FailedCount),
	})
}

func (c *CampaignController) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	if err := c.TaskService.CancelCampaign(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "campaign cancelled"})
}

func (c *CampaignController) GetCampaignStats(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	stats, err := c.CampaignService.Stats(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func campaignID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}
