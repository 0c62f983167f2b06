package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanstay/minbak-cli/internal/batch"
	"github.com/urbanstay/minbak-cli/internal/engine"
	"github.com/urbanstay/minbak-cli/internal/store"
	"github.com/urbanstay/minbak-cli/pkg/bldrgst"
)

var (
	servePort     int
	serveUseStore bool
)

// newRouter builds the HTTP surface: health plus single-address checks.
// A nil saver disables persistence.
func newRouter(eng *engine.Engine, saver batch.VerdictSaver) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/v1/check", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		key := bldrgst.LotKey{
			District:     q.Get("district"),
			Neighborhood: q.Get("neighborhood"),
			LotMain:      q.Get("lot"),
			LotSub:       q.Get("sub"),
		}
		if key.District == "" || key.Neighborhood == "" || key.LotMain == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "district, neighborhood, and lot are required",
			})
			return
		}

		opts := engine.Options{
			RequireRC:            q.Get("require_rc") == "true",
			IncludeUnitsPerFloor: q.Get("skip_units") != "true",
		}

		verdict, evalErr := eng.Evaluate(req.Context(), key, opts)
		if evalErr != nil {
			zap.L().Error("serve: evaluation failed", zap.Error(evalErr))
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error": "registry gateway failure",
			})
			return
		}

		if saver != nil {
			if saveErr := saver.SaveVerdict(req.Context(), key.Normalize(), verdict); saveErr != nil {
				zap.L().Warn("serve: save verdict", zap.Error(saveErr))
			}
		}

		writeJSON(w, http.StatusOK, verdict)
	})

	return r
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve suitability checks over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		eng, err := newEngine()
		if err != nil {
			return eris.Wrap(err, "serve: init engine")
		}

		var saver batch.VerdictSaver
		if serveUseStore {
			st, storeErr := store.NewSQLite(cfg.Store.Path)
			if storeErr != nil {
				return eris.Wrap(storeErr, "serve: open store")
			}
			defer st.Close() //nolint:errcheck
			if migrateErr := st.Migrate(ctx); migrateErr != nil {
				return eris.Wrap(migrateErr, "serve: migrate store")
			}
			saver = st
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(eng, saver),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveUseStore, "store", false, "record verdicts in the SQLite audit log")
	rootCmd.AddCommand(serveCmd)
}
