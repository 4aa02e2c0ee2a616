// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/craftcrm/campaign-engine/internal/controller"
	"github.com/craftcrm/campaign-engine/internal/db"
	"github.com/craftcrm/campaign-engine/internal/repository"
	"github.com/craftcrm/campaign-engine/internal/scheduler"
	"github.com/craftcrm/campaign-engine/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	conn, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}
	defer conn.Close()
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("failed to migrate DB: %v", err)
	}
	log.Println("✅ Connected to database")

	campaignRepo := &repository.CampaignRepository{DB: conn}
	recipientRepo := &repository.RecipientRepository{DB: conn}
	customerRepo := &repository.CustomerRepository{DB: conn}
	trackingRepo := &repository.TrackingRepository{DB: conn}
	taskRepo := &repository.TaskRepository{DB: conn}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	mailer := service.NewMailerFromEnv()

	trackingService := &service.TrackingService{
		TrackingRepo:  trackingRepo,
		RecipientRepo: recipientRepo,
		BaseURL:       baseURL,
	}

	campaignService := &service.CampaignService{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		CustomerRepo:  customerRepo,
		TrackingRepo:  trackingRepo,
		Tracking:      trackingService,
		Mailer:        mailer,
	}

	sched := scheduler.New()
	sched.Start()
	defer sched.Stop()

	taskService := service.NewTaskService(taskRepo, customerRepo, campaignService, sched, mailer)

	// Recovery must finish before the HTTP surface accepts traffic, so fresh
	// scheduling requests cannot race restored jobs for the same job id.
	if err := taskService.RestorePending(); err != nil {
		log.Fatalf("failed to restore scheduled tasks: %v", err)
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		TaskService:     taskService,
	}
	scheduleController := &controller.ScheduleController{TaskService: taskService}
	trackingController := &controller.TrackingController{TrackingService: trackingService}

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Put("/campaigns/{id}", campaignController.UpdateCampaign)
	r.Delete("/campaigns/{id}", campaignController.DeleteCampaign)
	r.Get("/campaigns/{id}/preview-recipients", campaignController.PreviewRecipients)
	r.Post("/campaigns/{id}/schedule", campaignController.ScheduleCampaign)
	r.Post("/campaigns/{id}/send-now", campaignController.SendCampaignNow)
	r.Post("/campaigns/{id}/cancel", campaignController.CancelCampaign)
	r.Get("/campaigns/{id}/stats", campaignController.GetCampaignStats)

	// Schedule routes
	r.Get("/schedules", scheduleController.ListSchedules)
	r.Get("/schedules/active", scheduleController.ListActiveJobs)
	r.Post("/schedules", scheduleController.CreateTask)
	r.Delete("/schedules/{jobID}", scheduleController.CancelSchedule)
	r.Get("/schedules/status/{jobID}", scheduleController.GetScheduleStatus)

	// Tracking redirect
	r.Get("/t/{trackingCode}", trackingController.TrackClick)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"service":"campaign-engine","status":"ok"}`))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("🚀 Server running on :" + port)
	log.Fatal(http.ListenAndServe(":"+port, r))
}
