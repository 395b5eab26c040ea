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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jheehg/webrtc-learning/internal/config"
	"github.com/jheehg/webrtc-learning/internal/logging"
	"github.com/jheehg/webrtc-learning/internal/server"
	"github.com/jheehg/webrtc-learning/internal/signaling"
	"github.com/jheehg/webrtc-learning/internal/version"
)

const shutdownTimeout = 5 * time.Second

func main() {
	logging.InitServer()

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewServerViper()
	var configFile string

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Room-based WebRTC signaling server",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServer(v, configFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (yaml, json or toml)")
	if err := config.BindServerFlags(v, cmd.Flags()); err != nil {
		panic(err)
	}
	return cmd
}

func serve(ctx context.Context, cfg *config.ServerConfig) error {
	router := signaling.NewRouter(signaling.NewRegistry(cfg.Capacity()))
	routerCtx, cancelRouter := context.WithCancel(context.Background())
	go router.Run(routerCtx)

	gin.SetMode(gin.ReleaseMode)
	engine := server.NewEngine(router, server.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Conn: signaling.ConnOptions{
			SendBuffer: cfg.SendBuffer,
			RateLimit:  cfg.RateLimit,
			RateBurst:  cfg.RateBurst,
		},
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting signaling server", "addr", cfg.Addr, "capacity", cfg.Capacity())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		cancelRouter()
		<-router.Done()
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)

	cancelRouter()
	<-router.Done()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
