package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/config"
	appHTTP "github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/attendance"
	complianceService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/compliance"
	notificationService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/notification"
	policyService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/policy"
	shiftService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/shift"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db); err != nil {
			slog.Error("Error running migrations", "error", err)
			os.Exit(1)
		}
	}

	sessionRepo := postgresql.NewSessionRepository(db)
	earlyLeaveRepo := postgresql.NewEarlyLeaveRepository(db)
	punchRepo := postgresql.NewPunchRepository(db)
	shiftRepo := postgresql.NewShiftRepository(db)
	employeeDirectory := postgresql.NewEmployeeDirectory(db)
	leaveGuard := postgresql.NewLeaveGuard(db)
	notificationRepo := postgresql.NewNotificationRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	hub := sse.NewHub()
	notifService := notificationService.NewNotificationService(notificationRepo, hub, notificationService.Config{})
	defer notifService.Stop()

	resolver := shiftService.NewResolver(shiftRepo, employeeDirectory)
	roleProvider := policyService.NewRoleProvider(employeeDirectory, cfg.Policy)
	gate := complianceService.NewGate(cfg.Policy.Compliance)

	attendanceSvc := attendanceService.NewAttendanceService(
		db,
		sessionRepo,
		earlyLeaveRepo,
		punchRepo,
		resolver,
		employeeDirectory,
		leaveGuard,
		roleProvider,
		gate,
		notifService,
		cfg.Engine,
	)

	if cfg.App.CronEnabled {
		scheduler := cron.NewScheduler(ctx)
		cron.NewAttendanceJobs(attendanceSvc, employeeDirectory, cfg.Engine.Location).RegisterJobs(scheduler)
		scheduler.Start()
		defer scheduler.Stop()
	}

	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc)
	notificationHandler := appHTTP.NewNotificationHandler(notifService, JWTService)

	router := appHTTP.NewRouter(cfg.App.Env, JWTService, attendanceHandler, notificationHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
