package cmd

import (
	"context"
	"log/slog"
	"time"

	httpin "dispatch/internal/adapters/in/http"
	"dispatch/internal/adapters/out/kafka/notifier"
	"dispatch/internal/adapters/out/postgres"
	"dispatch/internal/adapters/out/redis/partnerlocator"
	"dispatch/internal/adapters/out/redis/redislock"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/jobs"
	"dispatch/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type CompositionRoot struct {
	cfg        Config
	gormDB     *gorm.DB
	redis      *redis.Client
	kafka      *kgo.Client
	uowFactory *postgres.GormUnitOfWorkFactory
	registry   *prometheus.Registry

	broadcastMetrics *metrics.BroadcastMetrics
	cronMetrics      *metrics.CronJobMetrics

	locator  *partnerlocator.Locator
	notifier *notifier.Dispatcher

	expansions   *jobs.ExpansionScheduler
	broadcaster  *jobs.OrderBroadcaster
	promotionJob *jobs.ScheduledOrderPromotionJob
}

// NewCompositionRoot builds every adapter and background component. The
// clients it opens are released by Close.
func NewCompositionRoot(cfg Config, gormDB *gorm.DB, logger *slog.Logger) (*CompositionRoot, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &CompositionRoot{
		cfg:              cfg,
		gormDB:           gormDB,
		uowFactory:       postgres.NewGormUnitOfWorkFactory(gormDB),
		registry:         registry,
		broadcastMetrics: metrics.NewBroadcastMetrics(registry),
		cronMetrics:      metrics.NewCronJobMetrics(registry),
	}

	c.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	kafkaClient, err := notifier.NewClient(cfg.KafkaBrokers, cfg.KafkaClientID)
	if err != nil {
		return nil, multierr.Append(err, c.redis.Close())
	}
	c.kafka = kafkaClient

	c.locator, err = partnerlocator.NewLocator(c.redis, partnerlocator.Config{
		AvailableKey:     cfg.PartnerGeoKey,
		StoreRadiusKey:   cfg.StoreRadiusKey,
		RadiusKm:         cfg.SearchRadiusKm,
		FallbackRadiusKm: cfg.FallbackSearchRadius,
	}, logger)
	if err != nil {
		return nil, multierr.Append(err, c.Close())
	}

	c.notifier, err = notifier.NewDispatcher(c.kafka, notifier.Config{
		OffersTopic:      cfg.KafkaOffersTopic,
		StoreStatusTopic: cfg.KafkaStoreStatusTopic,
	}, time.Now)
	if err != nil {
		return nil, multierr.Append(err, c.Close())
	}

	lock, err := redislock.NewRedisLock(c.redis, cfg.SweepLockKey, cfg.SweepLockTTL)
	if err != nil {
		return nil, multierr.Append(err, c.Close())
	}

	c.expansions = jobs.NewExpansionScheduler(
		c.CreateExpandBroadcastCommandHandler(),
		c.broadcastMetrics,
		cfg.BroadcastTimeout,
		logger,
	)
	c.broadcaster = jobs.NewOrderBroadcaster(
		c.CreateBroadcastOrderCommandHandler(),
		c.broadcastMetrics,
		cfg.BroadcastTimeout,
		logger,
	)
	c.promotionJob = jobs.NewScheduledOrderPromotionJob(
		c.CreatePromoteScheduledOrdersCommandHandler(),
		lock,
		c.cronMetrics,
		cfg.PromotionSchedule,
		time.Now,
		logger,
	)
	return c, nil
}

func (c *CompositionRoot) broadcastPolicy() commands.BroadcastPolicy {
	return commands.BroadcastPolicy{
		PriorityCandidates: c.cfg.PriorityCandidates,
		FallbackPoolSize:   c.cfg.FallbackPoolSize,
		ExpandedPoolSize:   c.cfg.ExpandedPoolSize,
		ExpansionDelay:     c.cfg.ExpansionDelay,
	}
}

func (c *CompositionRoot) uow() commands.UoWFactory {
	return FuncUoWFactory(func() commands.UoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) CreateBroadcastOrderCommandHandler() commands.BroadcastOrderCommandHandler {
	return commands.NewBroadcastOrderCommandHandler(
		c.uow(),
		c.locator,
		c.notifier,
		c.expansions,
		c.broadcastPolicy(),
		time.Now,
	)
}

func (c *CompositionRoot) CreateExpandBroadcastCommandHandler() commands.ExpandBroadcastCommandHandler {
	return commands.NewExpandBroadcastCommandHandler(
		c.uow(),
		c.locator,
		c.notifier,
		c.broadcastPolicy(),
		time.Now,
	)
}

func (c *CompositionRoot) CreatePromoteScheduledOrdersCommandHandler() commands.PromoteScheduledOrdersCommandHandler {
	var f commands.OrderUoWFactory = FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
	return commands.NewPromoteScheduledOrdersCommandHandler(f, c.notifier, c.cfg.ModificationWindow)
}

func (c *CompositionRoot) CreateGetOrderAssignmentQueryHandler() queries.GetOrderAssignmentQueryHandler {
	return queries.NewGetOrderAssignmentQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	return jobs.NewJobManager(c.promotionJob, c.broadcaster, c.expansions)
}

// CreateHTTPServer fails when the embedded API description does not validate.
func (c *CompositionRoot) CreateHTTPServer(ctx context.Context) (*httpin.Server, error) {
	if _, err := httpin.LoadOpenAPI(ctx); err != nil {
		return nil, err
	}
	return httpin.NewServer(
		c.uow(),
		c.broadcaster,
		c.promotionJob,
		c.CreateGetOrderAssignmentQueryHandler(),
		c.registry,
	), nil
}

// Ping checks that redis answers; kafka and postgres are checked on first use.
func (c *CompositionRoot) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close releases the kafka and redis clients and the database pool.
func (c *CompositionRoot) Close() error {
	var err error
	if c.kafka != nil {
		c.kafka.Close()
	}
	if c.redis != nil {
		err = multierr.Append(err, c.redis.Close())
	}
	if c.gormDB != nil {
		if sqlDB, dbErr := c.gormDB.DB(); dbErr != nil {
			err = multierr.Append(err, dbErr)
		} else {
			err = multierr.Append(err, sqlDB.Close())
		}
	}
	return err
}

type FuncOrderUoWFactory func() commands.OrderUoW

func (f FuncOrderUoWFactory) Create() commands.OrderUoW {
	return f()
}

type FuncUoWFactory func() commands.UoW

func (f FuncUoWFactory) Create() commands.UoW {
	return f()
}
