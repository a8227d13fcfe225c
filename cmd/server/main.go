package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/tictactoe-server/internal/archive"
	"github.com/DoyleJ11/tictactoe-server/internal/config"
	"github.com/DoyleJ11/tictactoe-server/internal/httpapi"
	"github.com/DoyleJ11/tictactoe-server/internal/hub"
	"github.com/DoyleJ11/tictactoe-server/internal/logging"
	"github.com/DoyleJ11/tictactoe-server/internal/rpc"
	"github.com/DoyleJ11/tictactoe-server/internal/service"
	"github.com/DoyleJ11/tictactoe-server/internal/session"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openArchive(cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	// The hub outlives ctx so it can be shut down after the listeners stop
	// accepting work.
	h := hub.NewHub(context.Background(), hub.Options{
		Session: session.Options{
			SubscriberBuffer: cfg.SubscriberBuf,
			Logger:           log,
		},
		Policy: session.Policy{
			FinishedIdle:  cfg.FinishedIdle,
			AbandonedIdle: cfg.AbandonedIdle,
		},
		ReapInterval: cfg.ReapInterval,
		Archive:      store,
		Logger:       log,
	})
	svc := service.New(h, store, log)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			h.Shutdown()
			return fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
		}
		grpcServer := rpc.NewServer(svc, log)
		grpcServer.StopTimeout = cfg.ShutdownTimeout
		g.Go(func() error {
			return grpcServer.Serve(gctx, lis)
		})
	}

	if cfg.HTTPAddr != "" {
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpapi.SetupRoutes(svc, log),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	// Stopping the hub ends every JoinGame stream, which lets both servers
	// drain.
	g.Go(func() error {
		<-gctx.Done()
		h.Shutdown()
		return nil
	})

	err = g.Wait()
	log.Info("server stopped", zap.Error(err))
	return err
}

func openArchive(cfg config.Config, log *zap.Logger) (archive.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("no database configured, finished games are kept in memory")
		return archive.NewMemory(), nil
	}
	store, err := archive.OpenPostgres(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return store, nil
}
