package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-herdform/pkg/fragments"
	"github.com/goliatone/go-herdform/pkg/renderers/html"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the forms and lists as HTML fragments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := newSession(ctx, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if err := s.dash.LoadAll(ctx); err != nil {
			s.log.Warn("initial list load incomplete", zap.Error(err))
		}
		if _, err := s.dash.Herd(ctx); err != nil {
			s.log.Warn("initial herd load failed", zap.Error(err))
		}

		r, err := s.registry.Get(html.Name)
		if err != nil {
			return err
		}
		h, err := fragments.NewHandler(s.dash,
			fragments.WithRenderer(r),
			fragments.WithRenderOptions(s.opts),
			fragments.WithLogger(s.log),
		)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              s.cfg.Listen.Addr,
			Handler:           fragments.NewRouter(h),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errc := make(chan error, 1)
		go func() {
			s.log.Info("serving fragments", zap.String("addr", srv.Addr), zap.String("upstream", s.base.String()))
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	},
}
