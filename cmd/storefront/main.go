package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"storefront/internal/backend"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/mw"
	"storefront/internal/notify"
	"storefront/internal/payment"
	"storefront/internal/poller"
	"storefront/internal/service"
	"storefront/internal/tracking"
)

func main() {
	cfg := config.New()

	db, err := database.NewDB(cfg.DatabaseURI)
	if err != nil {
		slog.Error("failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer database.CloseDB(context.Background(), db)

	if err := database.InitSchema(db); err != nil {
		slog.Error("failed to init DB schema", "error", err)
		os.Exit(1)
	}

	// Collaborators
	gateway := backend.New(cfg.BackendAddress)
	pushClient := notify.NewPushClient(cfg.PushAddress)
	dispatcher := notify.NewDispatcher(notify.NewPostgresStore(db), pushClient)
	authSvc := service.NewAuthService(db)

	// Payment confirmation core
	reconcilePoller := poller.Poller{MaxAttempts: cfg.PollAttempts, Delay: cfg.PollDelay}
	sessions := payment.NewManager(gateway, dispatcher, reconcilePoller, cfg.GatewayCheckoutURL)
	refresher := tracking.NewRefresher(gateway, dispatcher, cfg.TrackingDelay)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Post("/api/user/register", handler.RegisterHandler(authSvc, cfg.JWTSecret))
	r.Post("/api/user/login", handler.LoginHandler(authSvc, cfg.JWTSecret))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.JWTSecret))

		r.Post("/api/payment/{orderID}/session", handler.StartPaymentHandler(sessions))
		r.Get("/api/payment/{orderID}/session", handler.PaymentStateHandler(sessions))
		r.Delete("/api/payment/{orderID}/session", handler.ClosePaymentHandler(sessions))
		r.Post("/api/payment/{orderID}/events", handler.PaymentEventHandler(sessions))
		r.Post("/api/payment/{orderID}/retry", handler.RetryPaymentHandler(sessions))

		r.Get("/api/notifications", handler.ListNotificationsHandler(dispatcher))
		r.Post("/api/notifications/{notificationID}/read", handler.MarkNotificationReadHandler(dispatcher))
		r.Post("/api/notifications/read-all", handler.MarkAllNotificationsReadHandler(dispatcher))
		r.Delete("/api/notifications", handler.ClearNotificationsHandler(dispatcher))
		r.Post("/api/notifications/route", handler.RouteNotificationHandler())

		r.Get("/api/orders/{orderID}/tracking", handler.GetTrackingHandler(gateway))
		r.Post("/api/orders/{orderID}/tracking/refresh", handler.RefreshTrackingHandler(gateway, refresher))
		r.Delete("/api/orders/{orderID}/tracking/refresh", handler.CancelTrackingRefreshHandler(refresher))
	})

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}
