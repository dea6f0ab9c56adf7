package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"loyscan/internal/api"
	"loyscan/internal/capture"
	"loyscan/internal/capture/scriptsrc"
	"loyscan/internal/config"
	"loyscan/internal/feedback"
	"loyscan/internal/grammar"
	"loyscan/internal/history"
	"loyscan/internal/session"
	"loyscan/internal/throttle"
	"loyscan/pkg/domain"
	"loyscan/pkg/logger"
	"loyscan/pkg/metrics"
)

func setupServer(ctx context.Context, cfg *config.Config, deps api.Deps) func(ctx context.Context) {
	server := api.NewServer(deps, api.NewOptions(cfg))

	go func() {
		logger.Info(ctx, "starting status server...")
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start status server", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping status server...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop status server", zap.Error(err))
		}
	}
}

// buildSource selects the capture backend. Only script replay is wired in
// this binary; real camera providers come from the embedding application.
func buildSource(ctx context.Context, cfg *config.Config) *scriptsrc.Script {
	if cfg.Scanner.ScriptPath == "" {
		logger.Fatal(ctx, "no capture backend configured, set scanner.scriptPath to replay a scan script")
	}

	script, err := scriptsrc.Load(cfg.Scanner.ScriptPath)
	if err != nil {
		logger.Fatal(ctx, "could not load scan script", zap.Error(err))
	}
	logger.Info(ctx, "loaded scan script",
		zap.String("path", cfg.Scanner.ScriptPath),
		zap.Int("payloads", script.Remaining()))

	return script
}

func scanCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Starts a scan session and the status server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

			store, closeStore := getHistory(ctx, cfg)
			defer closeStore()

			engine := metrics.NewEngine(prometheus.DefaultRegisterer)
			mp, err := metrics.NewMeterProvider(prometheus.DefaultRegisterer)
			if err != nil {
				logger.Fatal(ctx, "could not create meter provider", zap.Error(err))
			}

			source := buildSource(ctx, cfg)

			var ctrl *session.Controller
			ctrl = session.New(session.Options{
				Capture: capture.NewSession(capture.Options{
					Provider:      source,
					AllowInsecure: cfg.Scanner.AllowInsecureCapture,
				}),
				Decoder:        source,
				Grammar:        grammar.New(grammar.Options{DefaultBusinessID: cfg.Scanner.DefaultBusinessID}),
				Feedback:       feedback.New(feedback.ConsoleAudio{}, feedback.ConsoleHaptic{}),
				Throttle:       throttle.New(throttle.Options{Window: cfg.Scanner.ThrottleWindow}),
				Metrics:        engine,
				Meter:          mp.Meter("loyscan"),
				SampleInterval: cfg.Scanner.SampleInterval,
				Facing:         capture.Facing(cfg.Scanner.Facing),
				Callbacks: session.Callbacks{
					OnStatusChange: func(state domain.State) {
						logger.Info(ctx, "session status", zap.String("state", string(state)))
					},
					OnSuccess: func(token domain.DecodedToken, raw domain.RawDetection) {
						record := history.Record{
							ID:            uuid.NewString(),
							SessionID:     ctrl.ID().String(),
							At:            time.Now(),
							Format:        token.SourceFormat,
							Symbology:     raw.Symbology,
							CustomerToken: token.CustomerToken,
							OfferHash:     token.OfferHash,
						}
						if err := store.Append(ctx, record); err != nil {
							logger.Warn(ctx, "could not record scan", zap.Error(err))
						}
						logger.Info(ctx, "scan decoded",
							zap.String("format", string(token.SourceFormat)),
							zap.Bool("hasOffer", token.HasOffer()))
						// rearm so the next presented code is decoded too
						ctrl.ResetAfterError(ctx)
					},
					OnError: func(message string) {
						logger.Warn(ctx, "session error", zap.String("message", message))
						ctrl.ResetAfterError(ctx)
					},
				},
			})

			stopWebserver := setupServer(ctx, cfg, api.Deps{
				Session:  ctrl,
				History:  store,
				Gatherer: prometheus.DefaultGatherer,
			})

			// a failed start leaves the session in the error state; the
			// status server keeps reporting it so operators can see why
			if err := ctrl.Start(ctx); err != nil {
				logger.Error(ctx, "could not start scan session", zap.Error(err))
			}

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			ctrl.Stop(shutdownCtx)
			stopWebserver(shutdownCtx)
		},
	}

	return cmd
}
