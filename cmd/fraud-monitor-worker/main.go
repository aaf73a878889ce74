package main

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/fraud"
	kpub "github.com/radieske/sports-bet-ledger/internal/bet-service/producer"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/repo"
	"github.com/radieske/sports-bet-ledger/internal/shared/config"
	"github.com/radieske/sports-bet-ledger/internal/shared/db"
	"github.com/radieske/sports-bet-ledger/internal/shared/kafka"
	"github.com/radieske/sports-bet-ledger/internal/shared/logger"
	"github.com/radieske/sports-bet-ledger/internal/shared/metrics"
	ev "github.com/radieske/sports-bet-ledger/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log := logger.Must(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Conexão com Postgres para leitura do histórico e marcação das apostas
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Kafka consumer: consome bet_placed commitados pelo bet-service
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetPlaced, "fraud-monitor")
	defer reader.Close()

	// Kafka producer: alertas para revisão e DLQ para payloads ilegíveis
	alertsW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicFraudAlerts)
	defer alertsW.Close()

	var dlqWriter *kafka.Writer
	if cfg.TopicBetPlacedDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlacedDLQ)
		defer dlqWriter.Close()
	}

	fm := metrics.NewFraud(prometheus.DefaultRegisterer)
	monitor := fraud.NewMonitor(repo.NewPostgres(pg), kpub.NewKafkaPublisher(nil, alertsW, log), fraud.DefaultRules(), log, fm)
	// só Run síncrono: o consumidor dá o ritmo
	runner := fraud.NewDispatcher(monitor, 0, 1, cfg.FraudTimeout, log, fm)

	// Servidor HTTP para métricas Prometheus e healthcheck
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, pg.PingContext)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info("fraud-monitor-worker started",
		zap.String("consume", cfg.TopicBetPlaced),
		zap.String("publish", cfg.TopicFraudAlerts),
	)

	// Loop principal: cada bet_placed é inspecionado uma vez; falha do monitor
	// vira "flag indeterminada" e a mensagem segue
	for {
		key, value, err := kafka.ReadNext(ctx, reader)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info("shutting down")
				return
			}
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var placed ev.BetPlaced
		if jerr := json.Unmarshal(value, &placed); jerr != nil || placed.BetID == "" {
			log.Error("unmarshal bet_placed", zap.ByteString("key", key), zap.Error(jerr))
			if dlqWriter != nil {
				if derr := kafka.WriteJSON(ctx, dlqWriter, string(key), value); derr != nil {
					log.Error("dlq write", zap.Error(derr))
				}
			}
			continue
		}

		runner.Run(placed)
	}
}
