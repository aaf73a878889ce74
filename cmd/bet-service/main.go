package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/balance"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/catalog"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/fraud"
	bhttp "github.com/radieske/sports-bet-ledger/internal/bet-service/http"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/ledger"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/limits"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/odds"
	kpub "github.com/radieske/sports-bet-ledger/internal/bet-service/producer"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/repo"
	"github.com/radieske/sports-bet-ledger/internal/shared/cache"
	"github.com/radieske/sports-bet-ledger/internal/shared/config"
	"github.com/radieske/sports-bet-ledger/internal/shared/db"
	"github.com/radieske/sports-bet-ledger/internal/shared/kafka"
	"github.com/radieske/sports-bet-ledger/internal/shared/logger"
	"github.com/radieske/sports-bet-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log := logger.Must(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Chave do saldo: sem ela o serviço não sobe
	key, err := balance.ParseKey(cfg.BalanceEncryptionKey)
	if err != nil {
		log.Fatal("BALANCE_ENCRYPTION_KEY", zap.Error(err))
	}
	codec, err := balance.NewCodec(key)
	if err != nil {
		log.Fatal("balance codec", zap.Error(err))
	}

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	// Redis (cache de eventos)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writers (bet_placed, fraud_alerts)
	betPlacedW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer betPlacedW.Close()
	alertsW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicFraudAlerts)
	defer alertsW.Close()
	publ := kpub.NewKafkaPublisher(betPlacedW, alertsW, log)

	// deps
	store := repo.NewPostgres(pg)
	// aposta lê o evento direto do banco: status e odds têm de ser os correntes.
	// O cache Redis serve só a exibição (GET /events/{id}).
	events := repo.NewEventSource(pg)
	displayEvents := catalog.NewCachedSource(rdb, events, cfg.EventCacheTTL, log)

	ledgerMetrics := metrics.NewLedger(prometheus.DefaultRegisterer)
	fraudMetrics := metrics.NewFraud(prometheus.DefaultRegisterer)

	// Monitor de fraude: inline (fila própria) ou via Kafka + fraud-monitor-worker
	var notifier ledger.Notifier
	var dispatcher *fraud.Dispatcher
	switch cfg.FraudMode {
	case "kafka":
		notifier = publ
	default:
		monitor := fraud.NewMonitor(store, publ, fraud.DefaultRules(), log, fraudMetrics)
		dispatcher = fraud.NewDispatcher(monitor, cfg.FraudWorkers, cfg.FraudQueueSize, cfg.FraudTimeout, log, fraudMetrics)
		notifier = dispatcher
	}
	log.Info("fraud monitor", zap.String("mode", cfg.FraudMode))

	l := ledger.New(ledger.Config{
		Store:    store,
		Events:   events,
		Codec:    codec,
		Odds:     odds.NewValidator(parseDecimal(log, "ODDS_TOLERANCE", cfg.OddsTolerance)),
		Limits:   limits.NewEvaluator(),
		MinStake: parseDecimal(log, "MIN_STAKE", cfg.MinStake),
		Notifier: notifier,
		Metrics:  ledgerMetrics,
		Log:      log,
	})

	// metrics/health
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	// HTTP público
	api := bhttp.NewServer(log, l, displayEvents)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("bet-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	// drena inspeções pendentes antes de fechar o banco
	if dispatcher != nil {
		dispatcher.Close()
	}
}

func parseDecimal(log *zap.Logger, name, v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		log.Warn("invalid decimal config, using default", zap.String("key", name), zap.String("value", v))
		return decimal.Zero
	}
	return d
}
