package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/newsdeskhq/content-scheduler/internal/core"
	"github.com/newsdeskhq/content-scheduler/internal/engine"
	"github.com/newsdeskhq/content-scheduler/internal/metrics"
	natsbackend "github.com/newsdeskhq/content-scheduler/internal/nats"
	"github.com/newsdeskhq/content-scheduler/internal/scheduler"
	"github.com/newsdeskhq/content-scheduler/internal/server"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := server.LoadConfig()
	if cfg.APIKey == "" && !cfg.AllowInsecureNoAuth {
		slog.Error("refusing to start without API authentication", "hint", "set SCHED_API_KEY or SCHED_ALLOW_INSECURE_NO_AUTH=true for local development")
		os.Exit(1)
	}
	if cfg.AllowInsecureNoAuth {
		slog.Warn("⚠️  RUNNING WITHOUT AUTHENTICATION — this is intended for local development only. Set SCHED_API_KEY for any shared or production environment.")
	}

	// Connect to NATS
	backend, err := natsbackend.New(cfg.NatsURL)
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	slog.Info("connected to NATS", "url", cfg.NatsURL)

	// Initialize Prometheus server info metric
	metrics.Init(core.EngineVersion, "nats")

	// Wire the engine
	broker := natsbackend.NewEventBroker(backend.Conn())
	defer broker.Close()

	contentBackend := natsbackend.NewContentBackend(backend)
	clock := core.SystemClock{}
	svc := engine.NewService(backend, clock, broker)
	exec := engine.NewExecutor(backend, contentBackend, clock, broker, cfg.ExecTimeout)
	proc := engine.NewProcessor(backend, exec, clock)

	// Start the internal trigger when enabled; deployments driving sweeps
	// purely through POST /process disable it.
	if cfg.TriggerEnabled {
		trigger, err := scheduler.New(proc, backend, clock, cfg.TriggerSpec, cfg.StalledAfter)
		if err != nil {
			slog.Error("invalid trigger spec", "spec", cfg.TriggerSpec, "error", err)
			os.Exit(1)
		}
		trigger.Start()
		defer trigger.Stop()
	}

	// Create HTTP server
	router := server.NewRouter(server.Deps{
		Service:   svc,
		Executor:  exec,
		Processor: proc,
		Content:   contentBackend,
		Health:    backend,
		APIKey:    cfg.APIKey,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start server
	go func() {
		slog.Info("scheduler server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Start gRPC health/reflection side port for orchestrators probing over gRPC
	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("scheduler.v1.SchedulerService", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	go func() {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			slog.Error("failed to listen for gRPC", "port", cfg.GRPCPort, "error", err)
			os.Exit(1)
		}
		slog.Info("scheduler gRPC health server listening", "port", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	grpcServer.GracefulStop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
