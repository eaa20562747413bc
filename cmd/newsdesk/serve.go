package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	web "newsdesk/internal/server"
	"newsdesk/internal/store"
	"newsdesk/internal/worker"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server and the import worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := openStore(false)
		if err != nil {
			return err
		}
		defer st.Close()

		// Imports need Redis; without it the server runs without them
		var queue *store.Queue
		var enqueuer web.Enqueuer
		if q, err := store.NewQueue(cfg.Redis.Addr); err != nil {
			logger.Warn("Import queue unavailable, imports disabled", zap.Error(err))
		} else {
			queue, enqueuer = q, q
		}

		srv, err := web.NewServer(st, enqueuer, web.Options{
			Origin:   cfg.Origin,
			Location: cfg.Location(),
			Accounts: accounts(),
		}, logger)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := srv.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		if queue != nil {
			w := worker.NewWorker(st, queue, logger)
			g.Go(func() error {
				w.Start(gctx)
				return nil
			})
		}
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("Shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := srv.Stop(shutdownCtx)
			if queue != nil {
				// unblocks the worker's pop
				queue.Close()
			}
			return err
		})

		logger.Info("Server running.", zap.String("addr", cfg.Addr), zap.String("store", cfg.Store.Driver))
		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("Goodbye!")
		return nil
	},
}

func accounts() []web.Account {
	out := make([]web.Account, 0, len(cfg.Admins))
	for _, a := range cfg.Admins {
		out = append(out, web.Account{User: a.User, Password: a.Password, Role: store.Role(a.Role)})
	}
	if len(out) == 0 {
		logger.Warn("No admin accounts configured, the admin screen will reject every login")
	}
	return out
}
