package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-engine/internal/config"
	"github.com/segyhp/loan-engine/internal/logging"
	"github.com/segyhp/loan-engine/internal/repository"
	"github.com/segyhp/loan-engine/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg)
	logger.Info("Starting loan entry scheduler...")

	db, err := repository.Open(repository.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.GetConnMaxLifetime(),
	})
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	loanEntryService := service.NewLoanEntryService(
		repository.NewLoanEntryRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewReferenceRepository(db),
		nil,
		cfg,
		logger,
	)

	c := cron.New(cron.WithLocation(cfg.GetSchedulerLocation()))

	if err := setupCronJobs(c, cfg, loanEntryService, logger); err != nil {
		logger.Fatalf("Error scheduling jobs: %v", err)
	}

	c.Start()
	logger.WithField("reconcile_cron", cfg.Scheduler.ReconcileCron).Info("Scheduler started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down scheduler...")
	// wait for a running reconciliation to finish
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, svc *service.LoanEntryService, logger *logrus.Logger) error {
	_, err := c.AddFunc(cfg.Scheduler.ReconcileCron, func() {
		reconcile(svc, logger)
	})
	return err
}

// reconcile compares loan entry totals with their installments and logs every disagreement
func reconcile(svc *service.LoanEntryService, logger *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	start := time.Now()
	drifts, err := svc.Reconcile(ctx)
	if err != nil {
		logger.WithError(err).Error("Reconciliation failed")
		return
	}

	for _, d := range drifts {
		logger.WithFields(logrus.Fields{
			"loan_entry_id":      d.LoanEntryID,
			"total_amount_paid":  d.TotalAmountPaid.String(),
			"installments_paid":  d.InstallmentsPaid.String(),
			"remaining_balance":  d.RemainingBalance.String(),
			"expected_remaining": d.ExpectedRemaining.String(),
		}).Warn("Loan entry totals disagree with installments")
	}

	logger.WithFields(logrus.Fields{
		"drift":    len(drifts),
		"duration": time.Since(start).String(),
	}).Info("Reconciliation finished")
}
