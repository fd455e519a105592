package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/meetings-dashboard/internal/application"
	"github.com/example/meetings-dashboard/internal/config"
	"github.com/example/meetings-dashboard/internal/dashboard"
	httptransport "github.com/example/meetings-dashboard/internal/http"
	"github.com/example/meetings-dashboard/internal/persistence/sqlite"
)

const (
	eventBufferSize = 16
	shutdownTimeout = 10 * time.Second
)

type serveOptions struct {
	addr              string
	insecureWebSocket bool
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (defaults to :<http_port>)")
	cmd.Flags().BoolVar(&opts.insecureWebSocket, "insecure-websocket", false, "skip the origin check on /events (development only)")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, opts *serveOptions) error {
	logger := root.logger
	storage, err := openStorage(ctx, root)
	if err != nil {
		return err
	}
	defer closeStorage(storage, logger)

	app, err := newApp(root.cfg, storage, opts.insecureWebSocket, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	addr := opts.addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", root.cfg.HTTPPort)
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("dashboard listening", "addr", server.Addr, "route_guard", root.cfg.RouteGuard, "timezone", root.cfg.Timezone.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// app is the wired server: services sharing one event broker, the
// per-session workspace registry, and the routed handler.
type app struct {
	handler  http.Handler
	auth     *application.AuthService
	meetings *application.MeetingService
	events   *application.EventBroker
	registry *dashboard.Registry
}

func newApp(cfg config.Config, storage *sqlite.Storage, insecureWebSocket bool, logger *slog.Logger) (*app, error) {
	location := cfg.Timezone
	if location == nil {
		location = time.Local
	}

	events := application.NewEventBroker(eventBufferSize, logger)
	auth := application.NewAuthServiceWithLogger(
		newCredentialStoreAdapter(storage),
		newSessionRepositoryAdapter(storage),
		events,
		uuid.NewString,
		rand.Text,
		time.Now,
		cfg.SessionTTL,
		logger,
	).WithSignInLimit(cfg.SignInRatePerMinute)
	meetings := application.NewMeetingServiceWithLogger(newMeetingRepositoryAdapter(storage), events, uuid.NewString, time.Now, logger)

	registry, err := dashboard.NewRegistry(dashboard.RegistryConfig{
		Sessions: auth,
		Meetings: meetings,
		PageSize: cfg.PageSize,
		Location: location,
		Size:     cfg.WorkspaceCacheSize,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build workspace registry: %w", err)
	}

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:      httptransport.NewAuthHandler(auth, registry, httptransport.AuthOptions{CookieSecure: cfg.CookieSecure, Location: location}, logger),
		Dashboard: httptransport.NewDashboardHandler(location, logger),
		Meetings:  httptransport.NewMeetingAPIHandler(meetings, logger),
		Events:    httptransport.NewEventsHandler(events, insecureWebSocket, logger),
		Health:    httptransport.HealthHandler(storage),
		Static:    httptransport.StaticHandler(),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.SessionGuard(registry, httptransport.GuardPolicy{Enforce: cfg.RouteGuard}, logger),
		},
	})

	return &app{handler: handler, auth: auth, meetings: meetings, events: events, registry: registry}, nil
}

func (a *app) Close() {
	a.registry.Close()
}
