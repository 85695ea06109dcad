package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/rps-wager-platform/internal/game-service/engine"
	"github.com/radieske/rps-wager-platform/internal/game-service/events"
	httpapi "github.com/radieske/rps-wager-platform/internal/game-service/http"
	"github.com/radieske/rps-wager-platform/internal/game-service/ledger"
	"github.com/radieske/rps-wager-platform/internal/game-service/repo"
	"github.com/radieske/rps-wager-platform/internal/game-service/ws"
	"github.com/radieske/rps-wager-platform/internal/shared/cache"
	"github.com/radieske/rps-wager-platform/internal/shared/config"
	"github.com/radieske/rps-wager-platform/internal/shared/db"
	"github.com/radieske/rps-wager-platform/internal/shared/kafka"
	"github.com/radieske/rps-wager-platform/internal/shared/logger"
	"github.com/radieske/rps-wager-platform/internal/shared/messaging"
	"github.com/radieske/rps-wager-platform/internal/shared/metrics"
)

func main() {
	// carrega config
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config: %w", err))
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "game-service"
	}

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	instanceID := uuid.NewString()
	log.Info("starting service",
		zap.String("instance_id", instanceID), zap.String("store", cfg.Store), zap.String("event_relay", cfg.EventRelay))

	gameMetrics := metrics.NewGame(prometheus.DefaultRegisterer)
	var checks []metrics.HealthFunc

	// store: Postgres (padrão) ou memória para rodar local sem dependências
	var store repo.Store
	switch cfg.Store {
	case config.StoreMemory:
		store = repo.NewMemory()
		log.Warn("using in-memory store, state is lost on restart")
	default:
		pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxOpenConns)
		if err != nil {
			log.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		log.Info("postgres connected")

		if cfg.Env == "local" {
			if err := db.Migrate(ctx, pg, "up"); err != nil {
				log.Fatal("migrations failed", zap.Error(err))
			}
		}
		store = repo.NewPostgres(pg)
	}
	checks = append(checks, store.Ping)

	broadcaster := events.NewBroadcaster(log, gameMetrics, cfg.SubscriberBuffer)
	sinks := events.Fanout{broadcaster}

	// stream de ciclo de vida das partidas (arquivado pelo match-archiver-worker)
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		writer := kafka.NewWriter(brokers, cfg.TopicMatchEvents)
		defer writer.Close()
		sinks = append(sinks, events.NewKafkaSink(writer))
		log.Info("kafka writer ready", zap.String("topic", cfg.TopicMatchEvents))
	}

	g, gctx := errgroup.WithContext(ctx)

	// relay entre instâncias
	switch cfg.EventRelay {
	case config.RelayRedis:
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		log.Info("redis connected")
		checks = append(checks, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

		relay := events.NewRedisRelay(rdb, cfg.RedisRoomChannel, instanceID, broadcaster, log)
		sinks = append(sinks, relay)
		g.Go(func() error { return relay.Run(gctx) })
	case config.RelayNATS:
		nc, err := messaging.ConnectNATS(cfg.NatsURL, cfg.ServiceName+"-"+instanceID, log)
		if err != nil {
			log.Fatal("failed to connect nats", zap.Error(err))
		}
		defer nc.Close()
		log.Info("nats connected", zap.String("url", nc.ConnectedUrl()))

		relay := events.NewNATSRelay(nc, cfg.NatsRoomSubject, instanceID, broadcaster, log)
		sinks = append(sinks, relay)
		g.Go(func() error { return relay.Run(gctx) })
	}

	l := ledger.New(store, log, gameMetrics, cfg.InitialBalance)
	eng := engine.New(store, l, sinks, log, gameMetrics)

	wsHandler := ws.NewHandler(broadcaster, log, cfg.SubscriptionTimeout, allowOrigin(cfg.AllowedOrigins))
	api := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           httpapi.NewServer(log, eng, wsHandler, cfg.AllowedOrigins).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.NewServer(cfg.MetricsPort, prometheus.DefaultGatherer, metrics.Checks(checks...))

	g.Go(func() error {
		log.Info("http listening", zap.String("addr", api.Addr))
		return serve(api)
	})
	g.Go(func() error {
		log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))
		return serve(metricsSrv)
	})
	g.Go(func() error {
		<-gctx.Done()
		// fecha as inscrições antes: conexões WebSocket sequestradas não entram no Shutdown
		broadcaster.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Join(api.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatal("service stopped with error", zap.Error(err))
	}
	log.Info("service stopped")
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// allowOrigin aplica ao WebSocket a mesma lista de origens do CORS
func allowOrigin(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
