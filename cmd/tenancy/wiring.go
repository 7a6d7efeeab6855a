package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/platinummonkey/tenancy/pkg/admins"
	"github.com/platinummonkey/tenancy/pkg/api"
	"github.com/platinummonkey/tenancy/pkg/audit"
	"github.com/platinummonkey/tenancy/pkg/auth"
	"github.com/platinummonkey/tenancy/pkg/config"
	"github.com/platinummonkey/tenancy/pkg/events"
	"github.com/platinummonkey/tenancy/pkg/messaging"
	"github.com/platinummonkey/tenancy/pkg/middleware"
	"github.com/platinummonkey/tenancy/pkg/observability"
	"github.com/platinummonkey/tenancy/pkg/orgs"
	"github.com/platinummonkey/tenancy/pkg/rbac"
	"github.com/platinummonkey/tenancy/pkg/relations"
	"github.com/platinummonkey/tenancy/pkg/storage"
	"github.com/platinummonkey/tenancy/pkg/storage/kv"
	"github.com/platinummonkey/tenancy/pkg/storage/objects"
	"github.com/platinummonkey/tenancy/pkg/storage/postgres"
	"github.com/platinummonkey/tenancy/pkg/users"
)

// dependencies are the external resources the services run on. redis and
// images are nil when not configured.
type dependencies struct {
	db        *postgres.ConnectionManager
	repos     storage.Repositories
	redis     *kv.RedisClient
	images    *objects.S3Store
	publisher events.Publisher
	sms       events.SMSNotifier
	limiter   middleware.Limiter
	audit     audit.Logger
	tokens    *auth.TokenManager
	otel      *observability.OTelMetrics
}

func openDependencies(ctx context.Context, cfg *config.Config, logger *observability.Logger,
	metrics *observability.Metrics, shutdown *observability.ShutdownManager) (*dependencies, error) {
	deps := &dependencies{
		tokens: auth.NewTokenManager(cfg.Auth.SecretKey, cfg.Auth.TokenTTL),
	}

	cm, err := postgres.NewConnectionManager(ctx, cfg.Storage.Connection())
	if err != nil {
		return nil, err
	}
	shutdown.Register("database", func(context.Context) error { return cm.Close() })
	if cfg.Storage.AutoMigrate {
		if err := postgres.Migrate(ctx, cm.DB()); err != nil {
			return nil, err
		}
		logger.Info("database schema is up to date")
	}
	deps.db = cm
	deps.repos = postgres.NewRepositories(cm.DB())

	if cfg.Redis.Enabled() {
		client, err := kv.NewRedisClient(ctx, cfg.Redis.Client())
		if err != nil {
			return nil, err
		}
		shutdown.Register("redis", func(context.Context) error { return client.Close() })
		deps.redis = client
	}

	if cfg.RateLimit.Enabled {
		limits := middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			WindowDuration:    cfg.RateLimit.Window,
			BurstSize:         cfg.RateLimit.Burst,
		}
		if deps.redis != nil {
			deps.limiter = middleware.NewDistributedRateLimiter(deps.redis.Client(), limits, "tenancy:ratelimit")
		} else {
			limiter, err := middleware.NewRateLimiter(limits, cfg.RateLimit.MaxBuckets)
			if err != nil {
				return nil, err
			}
			deps.limiter = limiter
		}
	}

	if cfg.S3.Enabled() {
		store, err := objects.NewS3Store(ctx, cfg.S3.Store())
		if err != nil {
			return nil, err
		}
		deps.images = store
	} else {
		logger.Warn("no S3 bucket configured, avatar uploads are disabled")
	}

	if cfg.Kafka.Enabled() {
		eventsPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, cfg.Kafka.ClientID, metrics)
		smsPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.SMSTopic, cfg.Kafka.ClientID, metrics)
		shutdown.Register("kafka", func(context.Context) error {
			return errors.Join(eventsPublisher.Close(), smsPublisher.Close())
		})
		deps.publisher = eventsPublisher
		deps.sms = events.NewPublisherSMSNotifier(smsPublisher)
	} else {
		logger.Warn("no Kafka brokers configured, events and SMS are only logged")
		deps.publisher = events.NewLogPublisher(cfg.Kafka.EventsTopic, logger)
		deps.sms = events.NewPublisherSMSNotifier(events.NewLogPublisher(cfg.Kafka.SMSTopic, logger))
	}

	auditLog, err := openAudit(cfg.Observability.AuditFile)
	if err != nil {
		return nil, err
	}
	shutdown.Register("audit", func(context.Context) error { return auditLog.Close() })
	deps.audit = auditLog

	otelMetrics, err := observability.NewOTelMetrics()
	if err != nil {
		return nil, err
	}
	deps.otel = otelMetrics

	return deps, nil
}

func openAudit(path string) (audit.Logger, error) {
	if path == "" {
		return audit.NewLogrusLogger(os.Stderr), nil
	}
	fileLogger, err := audit.NewFileLogger(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return fileLogger, nil
}

func buildServices(deps *dependencies, metrics *observability.Metrics) api.Services {
	eval := rbac.NewEvaluator(metrics)
	cascade := orgs.NewCascade(metrics, deps.otel)
	hasher := auth.NewArgon2Hasher(auth.DefaultPasswordParams)

	var images objects.ImageStore
	if deps.images != nil {
		images = deps.images
	}

	return api.Services{
		Users: users.NewService(users.Deps{
			Repos:   deps.repos,
			Hasher:  hasher,
			Tokens:  deps.tokens,
			SMS:     deps.sms,
			Images:  images,
			Cascade: cascade,
			Audit:   deps.audit,
		}),
		Admins: admins.NewService(admins.Deps{
			Admins:    deps.repos.Admins,
			Hasher:    hasher,
			Tokens:    deps.tokens,
			SMS:       deps.sms,
			Evaluator: eval,
			Audit:     deps.audit,
		}),
		Organizations:    orgs.NewOrganizationService(deps.repos, eval, cascade, deps.audit),
		Branches:         orgs.NewBranchService(deps.repos, eval, cascade, deps.audit),
		Relations:        relations.NewService(deps.repos, eval, deps.publisher, deps.audit, deps.otel),
		TelegramGroups:   messaging.NewTelegramGroupService(deps.repos, eval, deps.audit),
		FCMSubscriptions: messaging.NewFCMSubscriptionService(deps.repos, eval, deps.audit),
		Subscriptions:    messaging.NewSubscriptionService(deps.repos, eval, deps.audit),
	}
}
