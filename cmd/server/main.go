// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/lostandunfounds/newsletter-backend/internal/config"
	"github.com/lostandunfounds/newsletter-backend/internal/controller"
	"github.com/lostandunfounds/newsletter-backend/internal/db"
	"github.com/lostandunfounds/newsletter-backend/internal/handler"
	"github.com/lostandunfounds/newsletter-backend/internal/mailer"
	"github.com/lostandunfounds/newsletter-backend/internal/metrics"
	"github.com/lostandunfounds/newsletter-backend/internal/repository"
	"github.com/lostandunfounds/newsletter-backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatal("migrations failed: ", err)
	}

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	subscriberRepo := &repository.SubscriberRepository{DB: conn}
	logRepo := &repository.SendLogRepository{DB: conn}

	var transport mailer.Transport
	if cfg.Zoho.Configured() {
		transport = mailer.NewZohoClient(cfg.Zoho)
	} else {
		log.Println("zoho credentials not configured, using mock transport")
		transport = mailer.NewMockTransport()
	}

	campaignService := service.NewCampaignService(campaignRepo, logRepo)
	dispatcher := service.NewDispatcher(campaignRepo, subscriberRepo, logRepo, transport, cfg.Sending)
	logService := &service.LogService{CampaignRepo: campaignRepo, LogRepo: logRepo}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		Dispatcher:      dispatcher,
		LogService:      logService,
	}
	subscriberHandler := handler.NewSubscriberHandler(subscriberRepo)

	r := chi.NewRouter()

	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Delete("/campaigns/{id}", campaignController.DeleteCampaign)
	r.Post("/campaigns/{id}/send", campaignController.SendCampaign)
	r.Post("/campaigns/{id}/test-send", campaignController.TestSend)
	r.Post("/campaigns/{id}/retry", campaignController.RetryCampaign)
	r.Post("/campaigns/{id}/recount", campaignController.RecountCampaign)
	r.Get("/campaigns/{id}/logs", campaignController.GetLogs)

	r.Post("/subscribers", subscriberHandler.Subscribe)
	r.Post("/subscribers/unsubscribe", subscriberHandler.Unsubscribe)
	r.Get("/api/newsletter/unsubscribe", subscriberHandler.Unsubscribe)

	r.Handle("/metrics", metrics.Handler())

	log.Println("server running on", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
