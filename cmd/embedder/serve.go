package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"reddit-embeddings/internal/app"
	"reddit-embeddings/internal/event"
	"reddit-embeddings/internal/httputil"
)

const (
	shutdownTimeout = 10 * time.Second
	maxEventBytes   = 1 << 20
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Consume change events and keep plot_embedding up to date",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		deps, err := app.Build(ctx)
		if err != nil {
			slog.Default().Error("failed to build dependencies", "err", err)
			return err
		}
		defer func() {
			if err := deps.Close(); err != nil {
				deps.Log.Warn("failed to close dependencies", "err", err)
			}
		}()
		return serve(ctx, deps)
	},
}

func serve(ctx context.Context, deps *app.Deps) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", deps.Config.Port),
		Handler: newRouter(deps),
	}

	g, ctx := errgroup.WithContext(ctx)

	if deps.Source != nil {
		g.Go(func() error {
			return deps.Source.Run(ctx, func(ctx context.Context, ev event.ChangeEvent) {
				deps.Updater.Handle(ctx, ev)
			})
		})
	}

	g.Go(func() error {
		deps.Log.Info("embedder listening", "addr", srv.Addr, "trigger", deps.Config.TriggerProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("embedder stopped", "err", err)
		return err
	}
	deps.Log.Info("embedder stopped")
	return nil
}

func newRouter(deps *app.Deps) *chi.Mux {
	r := httputil.NewRouter(deps.Log, deps.Config.HTTPTimeout)
	r.Get("/healthz", httputil.HealthHandler(deps.Log, deps.Store))
	if deps.Config.TriggerProvider == "http" {
		r.Post("/events", eventsHandler(deps))
	}
	return r
}

// eventsHandler is the webhook form of the trigger. Processing failures are not
// reported as HTTP errors; only an undecodable event is rejected.
func eventsHandler(deps *app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(w, r)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read event", err, http.StatusBadRequest)
			return
		}
		ev, err := event.Decode(body)
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid change event", err, http.StatusBadRequest)
			return
		}

		outcome := deps.Updater.Handle(r.Context(), ev)
		httputil.AddLogAttrs(r, "document_id", ev.FullDocument.IDString(), "outcome", outcome)

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"document_id": ev.FullDocument.IDString(),
			"outcome":     outcome,
		})
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
}
