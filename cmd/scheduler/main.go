package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/danaru/lending-engine/internal/config"
	"github.com/danaru/lending-engine/internal/notify"
	"github.com/danaru/lending-engine/internal/repository"
	"github.com/danaru/lending-engine/internal/service"
)

func main() {
	log.Println("Starting billing scheduler...")

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	billingService := service.NewBillingService(loanRepo, paymentRepo, nil, notify.LogSink{}, cfg)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))
	setupCronJobs(c, cfg, billingService)

	c.Start()
	log.Println("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Println("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, billingService *service.BillingService) {
	// Hourly sweep: expire payments left pending past the TTL. The sweep
	// only touches pending rows, so overlapping runs are safe.
	_, err := c.AddFunc(cfg.Scheduler.ExpirySpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		count, err := billingService.ExpirePendingPayments(ctx)
		if err != nil {
			log.Printf("Expiry sweep failed: %v", err)
			return
		}
		if count > 0 {
			log.Printf("Expiry sweep moved %d payments to expired", count)
		}
	})
	if err != nil {
		log.Printf("Error scheduling expiry sweep: %v", err)
	}

	// Daily reminder scan for upcoming installments.
	_, err = c.AddFunc(cfg.Scheduler.ReminderSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := billingService.SendDueReminders(ctx); err != nil {
			log.Printf("Reminder scan failed: %v", err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling reminder scan: %v", err)
	}

	log.Println("Cron jobs scheduled successfully")
}
