// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator provides the core orchestrator service for AleutianTutor.
//
// This package contains the main service type that coordinates all
// components: HTTP routing, the tool catalogue, parameter extraction,
// tool invocation, session persistence, and observability infrastructure.
//
// # Usage
//
//	cfg := orchestrator.Config{Port: 12210, LLMBackend: "ollama"}
//	svc, err := orchestrator.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/AleutianTutor/services/llm"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/extraction"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/invoker"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/observability"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/registry"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/routes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/session"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/workflow"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the orchestrator service.
//
// # Description
//
// Service abstracts the orchestrator lifecycle, enabling testing and
// alternative implementations. Only essential lifecycle methods are exposed.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	//
	// # Limitations
	//
	//   - Should not be used to modify routes after construction
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds orchestrator configuration options.
//
// # Description
//
// Config centralizes all configuration for the orchestrator service.
// Values can be populated from environment variables or programmatically
// for testing. All fields are optional with defaults applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 12210
	Port int

	// LLMBackend selects the model extraction provider.
	// Valid values: "none", "openai", "ollama", "langchain"
	// Default: "none" (rule-based extraction only)
	LLMBackend string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "tutor-otel-collector:4317"
	OTelEndpoint string

	// EnableMetrics enables the Prometheus metrics endpoint.
	// Default: true
	EnableMetrics bool

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: uses GIN_MODE env var or "debug"
	GinMode string

	// SessionDBPath is the BadgerDB directory for session history.
	// Empty opens an in-memory store (history lost on restart).
	SessionDBPath string

	// SessionTTL is how long session records are retained.
	// Default: 24 hours.
	SessionTTL time.Duration

	// ToolExecution selects how tools run.
	// Valid values: "local" (in-process simulation), "http" (remote services)
	// Default: "local"
	ToolExecution string

	// ModelRateLimit caps model extraction calls per second.
	// Default: 5.
	ModelRateLimit float64

	// ModelTimeout bounds a single model extraction call.
	// Default: 8 seconds.
	ModelTimeout time.Duration
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Description
//
// service coordinates:
//   - HTTP routing via Gin
//   - The embedded tool catalogue
//   - Hybrid model+rule extraction
//   - Tool invocation with retries
//   - BadgerDB session history
//   - OpenTelemetry tracing and Prometheus metrics
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	router        *gin.Engine
	registry      *registry.ToolRegistry
	llmClient     llm.LLMClient
	extractor     *extraction.Coordinator
	engine        *workflow.Engine
	sessions      session.Store
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new orchestrator Service with the given configuration.
//
// # Description
//
// New initializes all orchestrator components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing
//  3. Initializes Prometheus metrics
//  4. Loads the tool catalogue
//  5. Creates the LLM client for the configured backend (optional)
//  6. Opens the session store
//  7. Wires the extraction/adaptation/invocation pipeline
//  8. Sets up HTTP routes
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//
// # Outputs
//
//   - Service: Ready-to-run orchestrator service
//   - error: Non-nil if initialization fails
//
// # Assumptions
//
//   - Environment variables are set for the chosen LLM provider
//   - The OTel collector is reachable at the configured endpoint
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	// Initialize OpenTelemetry tracer
	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	// Initialize Prometheus metrics
	var metrics *observability.OrchestrationMetrics
	if s.config.EnableMetrics {
		metrics = observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for orchestration")
	}

	// Load the tool catalogue
	s.registry, err = registry.Load(context.Background())
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to load tool catalogue: %w", err)
	}
	slog.Info("Loaded tool catalogue",
		"tools", s.registry.ToolCount(),
		"keywords", s.registry.KeywordCount())

	// Initialize LLM client (optional; rule extraction covers its absence)
	if err := s.initLLMClient(); err != nil {
		slog.Warn("LLM client initialization failed, using rule-based extraction only",
			"backend", s.config.LLMBackend,
			"error", err)
		s.llmClient = nil
	}

	// Open the session store
	if err := s.initSessionStore(); err != nil {
		slog.Warn("Session store initialization failed, history disabled",
			"error", err)
		// Not fatal - continue without session history
	}

	// Wire the pipeline
	if err := s.initPipeline(metrics); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to wire pipeline: %w", err)
	}

	// Setup HTTP router
	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error. Cleanup
// is automatic on return.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting orchestrator server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12210
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "none"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "tutor-otel-collector:4317"
	}
	// EnableMetrics defaults to true (zero value is false, so we need explicit check)
	cfg.EnableMetrics = true

	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = session.DefaultTTL
	}
	if cfg.ToolExecution == "" {
		cfg.ToolExecution = "local"
	}
	if cfg.ModelRateLimit == 0 {
		cfg.ModelRateLimit = 5
	}
	if cfg.ModelTimeout == 0 {
		cfg.ModelTimeout = extraction.DefaultModelTimeout
	}

	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Description
//
// Sets up the OTLP trace exporter to send spans to the configured collector.
//
// # Outputs
//
//   - func(context.Context): Cleanup function to call on shutdown
//   - error: Non-nil if tracer setup fails
//
// # Limitations
//
//   - Uses insecure gRPC connection (appropriate for internal networks)
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("tutor-orchestrator")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initLLMClient initializes the model extraction client.
//
// # Limitations
//
//   - Only supports: none, openai, ollama, langchain
func (s *service) initLLMClient() error {
	var err error

	switch s.config.LLMBackend {
	case "none":
		slog.Info("No LLM backend configured, rule-based extraction only")
	case "openai":
		s.llmClient, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		s.llmClient, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	case "langchain":
		s.llmClient, err = llm.NewLangChainOllamaClient()
		slog.Info("Using langchaingo Ollama LLM backend")
	default:
		slog.Warn("Unknown LLM backend, rule-based extraction only", "backend", s.config.LLMBackend)
	}

	return err
}

// initSessionStore opens the BadgerDB-backed session history store.
func (s *service) initSessionStore() error {
	store, err := session.OpenBadgerStore(s.config.SessionDBPath, s.config.SessionTTL, slog.Default())
	if err != nil {
		return err
	}
	s.sessions = store

	if s.config.SessionDBPath == "" {
		slog.Info("Session store running in memory, history lost on restart")
	} else {
		slog.Info("Session store opened", "path", s.config.SessionDBPath, "ttl", s.config.SessionTTL.String())
	}
	return nil
}

// initPipeline wires extraction, invocation, and the workflow engine.
func (s *service) initPipeline(metrics *observability.OrchestrationMetrics) error {
	var model *extraction.ModelExtractor
	if s.llmClient != nil {
		limiter := rate.NewLimiter(rate.Limit(s.config.ModelRateLimit), int(s.config.ModelRateLimit)+1)
		model = extraction.NewModelExtractor(s.llmClient, s.registry, limiter, s.config.ModelTimeout)
	}
	s.extractor = extraction.NewCoordinator(model, extraction.NewRuleExtractor(s.registry))

	var capability invoker.Capability
	switch s.config.ToolExecution {
	case "http":
		capability = invoker.NewHTTPCapability(s.registry.Priority())
		slog.Info("Tool execution via HTTP services")
	default:
		capability = invoker.NewLocalCapability()
		slog.Info("Tool execution in-process")
	}

	inv, err := invoker.New(capability, invoker.DefaultRetryConfig())
	if err != nil {
		return err
	}

	s.engine, err = workflow.NewEngine(s.registry, s.extractor, inv, s.sessions, metrics)
	return err
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("tutor-orchestrator"))

	routes.SetupRoutes(s.router, s.registry, s.engine, s.extractor, s.sessions, s.config.EnableMetrics)
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.sessions != nil {
		if err := s.sessions.Close(); err != nil {
			slog.Warn("Session store close error", "error", err)
		}
	}

	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
