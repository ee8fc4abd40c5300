package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"claims-service/internal/ai/gemini"
	"claims-service/internal/config"
	"claims-service/internal/database/minio"
	"claims-service/internal/database/postgres"
	"claims-service/internal/database/redis"
	"claims-service/internal/event"
	"claims-service/internal/repository"
	"claims-service/internal/services"

	"github.com/jmoiron/sqlx"
)

// app holds every long-lived dependency of the service.
type app struct {
	cfg          *config.ClaimsServiceConfig
	db           *sqlx.DB
	rabbit       *event.RabbitMQConnection
	cache        *redis.Client
	storage      *minio.MinioClient
	gemini       *gemini.GeminiClientSelector
	audit        *repository.AuditLogRepository
	outages      *repository.OutageRepository
	orchestrator *services.Orchestrator
	claimService *services.ClaimService
}

func setupLoggingFromConfig(cfg *config.ClaimsServiceConfig) (func(), error) {
	file, err := setupLogging(cfg.LogFile)
	if err != nil {
		return nil, err
	}
	return func() {
		if file != nil {
			file.Close()
		}
	}, nil
}

func connectDatabase(cfg config.PostgresConfig) *sqlx.DB {
	db, err := postgres.ConnectAndCreateDB(cfg)
	if err != nil {
		slog.Error("error connect to database", "error", err)
		postgres.RetryConnectOnFailed(30*time.Second, &db, cfg)
	}
	return db
}

// buildApp wires the pipeline. Optional infrastructure that fails to
// connect is logged and left out.
func buildApp(ctx context.Context, cfg *config.ClaimsServiceConfig) (*app, error) {
	a := &app{cfg: cfg, db: connectDatabase(cfg.PostgresCfg)}

	if cfg.RabbitMQCfg.Enabled {
		conn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
		if err != nil {
			slog.Error("RabbitMQ unavailable, messaging disabled", "error", err)
		} else {
			a.rabbit = conn
		}
	}
	if cfg.RedisCfg.Enabled {
		client, err := redis.NewRedisClient(cfg.RedisCfg.Host, cfg.RedisCfg.Port, cfg.RedisCfg.Password, cfg.RedisCfg.DB)
		if err != nil {
			slog.Error("Redis unavailable, weather cache disabled", "error", err)
		} else {
			a.cache = client
		}
	}
	if cfg.MinioCfg.Enabled {
		client, err := minio.NewMinioClient(cfg.MinioCfg)
		if err != nil {
			slog.Error("MinIO unavailable, evidence archive disabled", "error", err)
		} else {
			a.storage = client
		}
	}

	pipelineCfg := cfg.PipelineCfg

	ids, err := services.NewIDGenerator(cfg.NodeID)
	if err != nil {
		return nil, err
	}

	policyRepo := repository.NewPolicyRepository(a.db)
	outageRepo := repository.NewOutageRepository(a.db)
	weatherRepo := repository.NewWeatherRepository(a.db)
	claimRepo := repository.NewClaimRepository(a.db)
	payoutRepo := repository.NewPayoutRepository(a.db)
	a.audit = repository.NewAuditLogRepository(a.db)
	a.outages = outageRepo

	rules := services.NewScoringRules(pipelineCfg)
	scorer, err := a.buildScorer(ctx, rules)
	if err != nil {
		return nil, err
	}

	var archive *services.EvidenceArchive
	var linker services.EvidenceLinker
	if a.storage != nil {
		archive = services.NewEvidenceArchive(a.storage, minio.Storage.ClaimEvidence)
		linker = a.storage
	}

	var weatherCache services.JSONCache
	if a.cache != nil {
		weatherCache = a.cache
	}

	sink, err := a.buildSink()
	if err != nil {
		return nil, err
	}
	publisher := event.NewPublisher(sink, a.audit)

	rail, notifier, err := a.buildPaymentRail(ids)
	if err != nil {
		return nil, err
	}

	a.orchestrator = services.NewOrchestrator(services.PipelineComponents{
		Outages:    outageRepo,
		Policies:   policyRepo,
		Payouts:    payoutRepo,
		Matcher:    services.NewPolicyMatcher(policyRepo, pipelineCfg.MatchRadiusMeters()),
		Evaluator:  services.NewThresholdEvaluator(claimRepo, ids),
		Validator:  services.NewClaimValidator(claimRepo, scorer, rules, archive),
		Calculator: services.NewPayoutCalculator(claimRepo, payoutRepo, rail, notifier, ids, pipelineCfg.PaymentTimeout),
		Weather:    services.NewWeatherLookup(weatherRepo, weatherCache, cfg.RedisCfg.TTL, pipelineCfg.WeatherTimeout),
		Events:     publisher,
	}, pipelineCfg.Workers)

	a.claimService = services.NewClaimService(claimRepo, payoutRepo, a.audit, linker, archive.Bucket())

	return a, nil
}

func (a *app) buildScorer(ctx context.Context, rules services.ScoringRules) (services.ClaimScorer, error) {
	ruleBased := services.NewRuleBasedScorer(rules)
	switch a.cfg.PipelineCfg.Scorer {
	case "", "rules":
		return ruleBased, nil
	case "gemini":
		clients, err := gemini.NewGenAIClients(ctx, a.cfg.GeminiAPICfg.APIKeys, a.cfg.GeminiAPICfg.ModelName)
		if err != nil {
			slog.Error("Gemini unavailable, using rule-based scoring", "error", err)
			return ruleBased, nil
		}
		a.gemini = gemini.NewGeminiClientSelector(clients)
		llm := gemini.NewClaimScorer(a.gemini, a.cfg.PipelineCfg, a.cfg.GeminiAPICfg.RequestsPerSecond)
		slog.Info("Gemini claim scorer enabled", "clients", len(clients), "model", a.cfg.GeminiAPICfg.ModelName)
		return services.NewFallbackScorer(llm, ruleBased, a.cfg.PipelineCfg.ScorerTimeout), nil
	default:
		return nil, fmt.Errorf("unknown scorer %q", a.cfg.PipelineCfg.Scorer)
	}
}

func (a *app) buildSink() (event.Sink, error) {
	sinkCfg := a.cfg.EventSinkCfg
	switch sinkCfg.Type {
	case "", "none":
		return nil, nil
	case "http":
		if sinkCfg.URL == "" {
			slog.Warn("EVENT_SINK_URL not set, events are recorded locally only")
			return nil, nil
		}
		return event.NewHTTPSink(sinkCfg), nil
	case "amqp":
		if a.rabbit == nil {
			slog.Warn("AMQP event sink requested without RabbitMQ, events are recorded locally only")
			return nil, nil
		}
		return event.NewAMQPSink(a.rabbit, sinkCfg.Exchange)
	default:
		return nil, fmt.Errorf("unknown event sink type %q", sinkCfg.Type)
	}
}

func (a *app) buildPaymentRail(ids *services.IDGenerator) (services.PaymentRail, services.Notifier, error) {
	var notifier services.Notifier = event.LogNotifier{}
	if a.rabbit != nil {
		publisher, err := event.NewNotificationPublisher(a.rabbit)
		if err != nil {
			return nil, nil, err
		}
		notifier = publisher
	}

	switch a.cfg.PaymentCfg.Mode {
	case "", "simulated":
		return services.NewSimulatedPaymentRail(ids), notifier, nil
	case "amqp":
		if a.rabbit == nil {
			return nil, nil, fmt.Errorf("PAYMENT_RAIL=amqp requires RABBITMQ_ENABLED=true")
		}
		rail, err := event.NewAMQPPaymentRail(a.rabbit)
		if err != nil {
			return nil, nil, err
		}
		return rail, notifier, nil
	case "none":
		return nil, notifier, nil
	default:
		return nil, nil, fmt.Errorf("unknown payment rail %q", a.cfg.PaymentCfg.Mode)
	}
}

func (a *app) Close() {
	if a.gemini != nil {
		a.gemini.Close()
	}
	if a.rabbit != nil {
		a.rabbit.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
