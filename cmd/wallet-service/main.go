package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/balance"
	"github.com/radieske/sports-bet-ledger/internal/shared/config"
	"github.com/radieske/sports-bet-ledger/internal/shared/db"
	"github.com/radieske/sports-bet-ledger/internal/shared/logger"
	"github.com/radieske/sports-bet-ledger/internal/shared/metrics"
	whttp "github.com/radieske/sports-bet-ledger/internal/wallet-service/http"
	wrepo "github.com/radieske/sports-bet-ledger/internal/wallet-service/repo"
)

func main() {
	cfg := config.Load()

	// Inicializa logger estruturado
	log := logger.Must("wallet-service", cfg.Env)
	defer log.Sync()
	log.Info("starting service", zap.String("env", cfg.Env))

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

	// Conexão com Postgres para operações de carteira
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	// Instancia repositório e servidor HTTP da wallet
	api := whttp.NewServer(log, wrepo.NewPostgres(pg, codec))

	// Servidor HTTP público (API de wallet)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8082
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Servidor de métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, pg.PingContext)

	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
