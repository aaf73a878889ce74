package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New cria o logger estruturado do serviço.
// "local" usa o formato de desenvolvimento; demais ambientes, JSON de produção.
func New(serviceName string, env string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// stacktrace só em erro de verdade; alertas de fraude são Warn e não precisam
	cfg.DisableStacktrace = env != "local"

	// sempre garantir que serviço e env entrem como campos padrão
	l, err := cfg.Build(
		zap.Fields(
			zap.String("service", serviceName),
			zap.String("env", env),
		),
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Must é usado nos mains: sem logger não há como reportar nada
func Must(serviceName, env string) *zap.Logger {
	l, err := New(serviceName, env)
	if err != nil {
		panic(err)
	}
	return l
}
