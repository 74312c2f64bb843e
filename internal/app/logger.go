package app

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// serviceName поле service во всех записях лога
const serviceName = "guidance-portal"

// NewLogger создаёт логгер: JSON в production, цветной консольный вывод иначе
func NewLogger(env string) *zap.Logger {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "ts"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.OutputPaths = []string{"stdout"}
	config.InitialFields = map[string]any{
		"service": serviceName,
		"env":     env,
	}

	logger, err := config.Build()
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}

	return logger.Named("portal")
}
