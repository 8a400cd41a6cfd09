package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"agencydesk/internal/app"
	"agencydesk/internal/config"
	"agencydesk/internal/server"
	"agencydesk/internal/telemetry"
)

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := config.LoadServerEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				env.Addr = addr
			}
			if cmd.Flags().Changed("base-path") {
				env.BasePath = basePath
			}
			logger := slog.Default()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := telemetry.Setup(ctx, "agencydesk", telemetry.Options{
				Endpoint: env.OTelEndpoint,
				Enabled:  env.OTelEnabled,
			})
			if err != nil {
				return fmt.Errorf("telemetry: %w", err)
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(sctx); err != nil {
					logger.Warn("tracer shutdown", "err", err)
				}
			}()

			ws, err := app.Open(ctx, viper.GetString("workspace"), logger)
			if err != nil {
				return err
			}
			defer ws.Close()

			if env.JWTSecret == "" {
				logger.Warn("AGENCYDESK_JWT_SECRET not set; bearer tokens are rejected")
			}
			if ws.Config.Auth.AllowUserHeader {
				logger.Warn("X-User-Id is trusted without credentials; set auth.allow_user_header: false in agencydesk.yml to disable")
			}
			handler, err := server.New(server.Config{
				Engine:   ws.Engine,
				BasePath: env.BasePath,
				Logger:   logger,
				Auth: server.AuthConfig{
					JWTSecret:       env.JWTSecret,
					AllowUserHeader: ws.Config.Auth.AllowUserHeader,
					Logger:          logger,
				},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: env.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(sctx)
			}()
			logger.Info("serving agencydesk API", "addr", "http://"+env.Addr+env.BasePath, "openapi", env.BasePath+"/openapi.json", "docs", "/docs")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address (overrides AGENCYDESK_ADDR)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path (overrides AGENCYDESK_BASE_PATH)")
	return cmd
}
