package logger_test

import (
	"context"
	"loyscan/pkg/logger"
	"testing"

	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func TestSetup(t *testing.T) {
	for _, environment := range []string{logger.DevelopmentEnvironment, logger.ProductionEnvironment} {
		t.Run(environment, func(t *testing.T) {
			require.NotPanics(t, func() {
				logger.Setup(environment)
			})

			require.NotNil(t, logger.Get(context.Background()))
		})
	}
}

func TestGet(t *testing.T) {
	logger.Setup(logger.DevelopmentEnvironment)

	// empty context falls back to the default logger
	ctx := context.Background()
	require.NotNil(t, logger.Get(ctx), "should return default logger when context has no logger")

	// context carrying a custom logger wins
	customLogger, _ := zap.NewDevelopment()
	ctxWithLogger := logger.WithLogger(ctx, customLogger)
	require.Equal(t, customLogger, logger.Get(ctxWithLogger), "should return logger from context")
}

func TestWithFields(t *testing.T) {
	logger.Setup(logger.DevelopmentEnvironment)

	ctx := logger.WithFields(context.Background(), zap.String("sessionID", "abc"))
	require.NotEqual(t, logger.Get(context.Background()), logger.Get(ctx),
		"WithFields should derive a new logger")

	// logging through the helpers must not panic
	require.NotPanics(t, func() {
		logger.Debug(ctx, "debug")
		logger.Info(ctx, "info")
		logger.Warn(ctx, "warn")
		logger.Error(ctx, "error")
		logger.Sync(ctx)
	})
}
