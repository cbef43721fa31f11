package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frostline/roadwatch/internal/closure"
	"github.com/frostline/roadwatch/internal/scoring"
	"github.com/frostline/roadwatch/internal/store"
)

type Server struct {
	store     *store.Store
	port      string
	loc       *time.Location
	scorer    *scoring.Scorer
	predictor *closure.Predictor
}

func NewServer(store *store.Store, port string, loc *time.Location, predictor *closure.Predictor) *Server {
	return &Server{
		store:     store,
		port:      port,
		loc:       loc,
		scorer:    scoring.New(loc),
		predictor: predictor,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/conditions", s.handleConditions)
	mux.HandleFunc("/api/conditions/conflicts", s.handleConflicts)
	mux.HandleFunc("/api/districts", s.handleDistricts)
	mux.HandleFunc("/api/closures", s.handleClosures)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
