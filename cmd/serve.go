package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/call-service/config"
	"github.com/cwrk-planet/call-service/internal/logger"
	"github.com/cwrk-planet/call-service/internal/ratelimit"
	"github.com/cwrk-planet/call-service/internal/registry"
	"github.com/cwrk-planet/call-service/internal/scheduler"
	"github.com/cwrk-planet/call-service/internal/service"
	"github.com/cwrk-planet/call-service/internal/signaling"
	grpcx "github.com/cwrk-planet/call-service/internal/transport/grpc"
	httpx "github.com/cwrk-planet/call-service/internal/transport/http"
	"github.com/cwrk-planet/call-service/internal/transport/ws"
	"github.com/cwrk-planet/call-service/internal/turn"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP/WebSocket and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	backend, err := logger.ParseBackend(cfg.Logging.Backend)
	if err != nil {
		return err
	}
	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   backend,
		Level:     level,
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting call-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "build", Version)

	// --- core ---
	rooms := registry.New()
	limiter := ratelimit.New(ratelimit.RealClock{})
	destroyer := scheduler.New(rooms,
		cfg.Rooms.GracePeriodOr(scheduler.DefaultGracePeriod),
		cfg.Rooms.SweepIntervalOr(scheduler.DefaultSweepInterval),
	)
	handler := signaling.NewHandler(rooms, limiter, destroyer, signaling.Config{
		Rules:      cfg.Signaling.RateRules(),
		MaxChatLen: cfg.Signaling.MaxChatLength,
	})

	// --- services ---
	roomSvc := service.NewRoomService(rooms, destroyer)
	ice, err := turn.NewProvider(turn.Config{
		Secret:         cfg.TURN.Secret,
		TTL:            cfg.TURN.TTLOr(turn.DefaultTTL),
		UsernamePrefix: cfg.TURN.UsernamePrefix,
		URLs:           cfg.TURN.URLs,
		STUNURLs:       cfg.TURN.STUNURLs,
	})
	if err != nil {
		return err
	}
	if !ice.Enabled() {
		slog.Warn("no stun/turn servers configured, /turn-credentials will answer 503")
	}

	// --- WS + HTTP ---
	wsServer := ws.NewServer(handler, ws.Options{
		PingInterval:   cfg.Signaling.PingIntervalOr(ws.DefaultPingInterval),
		SendBuffer:     cfg.Signaling.SendBuffer,
		MaxMessageSize: cfg.Signaling.MaxMessageBytes,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	router := httpx.NewRouter(httpx.NewHandler(roomSvc, ice), wsServer.HandleWS, httpx.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeoutOr(10 * time.Second),
		IdleTimeout:       cfg.HTTP.IdleTimeoutOr(60 * time.Second),
	}

	// --- gRPC ---
	grpcServer, health := grpcx.New(grpcx.NewServer(roomSvc), cfg.GRPC.CallTimeoutOr(grpcx.DefaultCallTimeout))

	// --- run ---
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return limiter.Run(gctx, cfg.Signaling.RateSweepIntervalOr(ratelimit.DefaultSweepInterval))
	})
	g.Go(func() error { return destroyer.Run(gctx) })

	g.Go(func() error {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc: %w", err)
		}
		return nil
	})

	// --- graceful shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down", "cause", context.Cause(gctx))

		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeoutOr(10*time.Second))
		defer cancel()

		health.Shutdown()
		grpcServer.GracefulStop()
		return httpSrv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("stopped with error", "err", err)
		return err
	}
	slog.Info("stopped", "rooms", rooms.Len(), "pending_destructions", destroyer.Len())
	return nil
}
