package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/audit"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/balance"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/repo"
	"github.com/radieske/sports-bet-ledger/internal/shared/config"
	"github.com/radieske/sports-bet-ledger/internal/shared/db"
	"github.com/radieske/sports-bet-ledger/internal/shared/logger"
	"github.com/radieske/sports-bet-ledger/internal/shared/metrics"
)

// ledger-reconciler refaz a cadeia de saldos de cada carteira.
// Sem -every roda uma vez e sai com código 1 se algo não fechar.
func main() {
	user := flag.String("user", "", "reconcile a single user")
	every := flag.Duration("every", 0, "repeat interval (0 = run once)")
	flag.Parse()

	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ledger-reconciler"
	}
	log := logger.Must(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	key, err := balance.ParseKey(cfg.BalanceEncryptionKey)
	if err != nil {
		log.Fatal("BALANCE_ENCRYPTION_KEY", zap.Error(err))
	}
	codec, err := balance.NewCodec(key)
	if err != nil {
		log.Fatal("balance codec", zap.Error(err))
	}

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	lm := metrics.NewLedger(prometheus.DefaultRegisterer)
	rec := audit.NewReconciler(repo.NewPostgres(pg), codec, log)

	run := func() error {
		if *user != "" {
			rep, err := rec.Reconcile(ctx, *user)
			if err != nil {
				return err
			}
			log.Info("wallet reconciled", zap.String("walletId", rep.WalletID), zap.Int("entries", rep.Entries))
			return nil
		}
		reports, err := rec.ReconcileAll(ctx)
		log.Info("reconciliation finished", zap.Int("wallets", len(reports)), zap.Bool("ok", err == nil))
		return err
	}

	if *every <= 0 {
		if err := run(); err != nil {
			log.Error("reconciliation failed", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		return
	}

	// modo contínuo expõe /metrics para alertar sobre carteiras quebradas
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, pg.PingContext)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		if err := run(); err != nil {
			if errors.Is(err, audit.ErrBroken) || errors.Is(err, balance.ErrIntegrity) {
				lm.IntegrityFailures.Inc()
			}
			log.Error("reconciliation failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
