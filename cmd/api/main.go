// Command api serves the companion backend: datasheet browsing, the
// MathHammer calculator, session logs with a live feed, army rosters
// and usage stats.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mordian/w40k-companion/internal/config"
	"github.com/mordian/w40k-companion/internal/datasheet"
	"github.com/mordian/w40k-companion/internal/logging"
	"github.com/mordian/w40k-companion/internal/models"
	"github.com/mordian/w40k-companion/internal/roster"
	"github.com/mordian/w40k-companion/internal/session"
	"github.com/mordian/w40k-companion/internal/stats"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	store, err := datasheet.New(cfg.DataDir)
	if err != nil {
		logger.Fatal("load datasheets", zap.String("dir", cfg.DataDir), zap.Error(err))
	}
	logger.Info("datasheets loaded",
		zap.Int("factions", len(store.FactionsList)),
		zap.Int("units", len(store.UnitsByID)))

	if cfg.HomebrewFile != "" {
		switch n, err := store.AddHomebrew(cfg.HomebrewFile); {
		case err == nil:
			logger.Info("homebrew loaded", zap.String("file", cfg.HomebrewFile), zap.Int("units", n))
		case os.IsNotExist(err):
			logger.Warn("homebrew file missing", zap.String("file", cfg.HomebrewFile))
		default:
			logger.Fatal("load homebrew", zap.String("file", cfg.HomebrewFile), zap.Error(err))
		}
	}

	sessions, err := session.NewStore(cfg.SessionDir)
	if err != nil {
		logger.Fatal("session store", zap.Error(err))
	}
	rosters, err := roster.NewStore(cfg.RosterDir)
	if err != nil {
		logger.Fatal("roster store", zap.Error(err))
	}

	srv := &server{
		log:      logger,
		store:    store,
		sessions: sessions,
		rosters:  rosters,
		stats:    stats.NewStore(),
		hub:      session.NewHub(logger),
	}

	r := mux.NewRouter()
	srv.routes(r)

	addr := cfg.Addr()
	logger.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, withCORS(srv.logRequests(r))); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeFieldError(w, code, "", msg)
}

func writeFieldError(w http.ResponseWriter, code int, field, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg, Field: field})
}

// simple CORS for the browser UI
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
