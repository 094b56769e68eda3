package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alwayscodedfresh/lead-cli/internal/config"
	"github.com/alwayscodedfresh/lead-cli/internal/metrics"
	"github.com/alwayscodedfresh/lead-cli/internal/model"
	"github.com/alwayscodedfresh/lead-cli/internal/store"
)

// maxBodyBytes caps upload request bodies.
const maxBodyBytes = 10 << 20

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead upload and review API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeServe); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		svc := newServices(cfg, st)
		if svc.Classifier == nil {
			zap.L().Warn("no AI provider key configured, viability and pitch endpoints disabled",
				zap.String("provider", cfg.Viability.Provider))
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(svc, cfg.Server.AllowedOrigins),
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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// api serves the lead endpoints.
type api struct {
	svc *services
	now func() time.Time
}

// newRouter builds the HTTP routes for svc.
func newRouter(svc *services, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	a := &api{svc: svc, now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/leads", func(r chi.Router) {
		r.Get("/", a.listLeads)
		r.Post("/", a.uploadLead)
		r.Post("/batch", a.uploadBatch)
		r.Get("/stats", a.stats)
		r.Get("/{id}", a.getLead)
		r.Patch("/{id}/review", a.review)
		r.Patch("/{id}/status", a.setStatus)
		r.Post("/{id}/contacts", a.analyzeContacts)
		r.Post("/{id}/viability", a.analyzeViability)
		r.Post("/{id}/pitch", a.generatePitch)
	})
	return r
}

func (a *api) listLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	f, err := parseLeadFilter(q.Get("filter"), q.Get("status"), q.Get("source"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	leads, err := a.svc.Store.Query(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLeadViews(leads))
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	s, err := a.svc.Store.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (a *api) getLead(w http.ResponseWriter, r *http.Request) {
	lead, err := a.svc.Store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLeadView(lead))
}

func (a *api) uploadLead(w http.ResponseWriter, r *http.Request) {
	var raw model.RawListing
	if !decodeBody(w, r, &raw) {
		return
	}
	res, err := a.svc.Ingester.Ingest(r.Context(), raw)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, newLeadView(res.Lead))
}

func (a *api) uploadBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Listings []model.RawListing `json:"listings"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Listings) == 0 {
		writeError(w, &model.ValidationError{Field: "listings", Reason: "must not be empty"})
		return
	}
	writeJSON(w, http.StatusOK, a.svc.Ingester.IngestBatch(r.Context(), req.Listings))
}

func (a *api) review(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Viable *bool `json:"viable"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Viable == nil {
		writeError(w, &model.ValidationError{Field: "viable", Reason: "is required"})
		return
	}
	lead, err := reviewLead(r.Context(), a.svc.Store, chi.URLParam(r, "id"), *req.Viable, a.now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLeadView(lead))
}

func (a *api) setStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	lead, err := setLeadStatus(r.Context(), a.svc.Store, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLeadView(lead))
}

func (a *api) analyzeContacts(w http.ResponseWriter, r *http.Request) {
	lead, err := a.svc.Store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := a.svc.Contacts.AnalyzeLead(r.Context(), lead)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) analyzeViability(w http.ResponseWriter, r *http.Request) {
	if a.svc.Classifier == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "viability classification is not configured"})
		return
	}
	lead, err := a.svc.Store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := a.svc.Classifier.Analyze(r.Context(), lead)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := struct {
		Viable   bool                    `json:"viable"`
		Analysis model.ViabilityAnalysis `json:"analysis"`
		Error    string                  `json:"error,omitempty"`
	}{Viable: out.Viable, Analysis: out.Analysis}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) generatePitch(w http.ResponseWriter, r *http.Request) {
	if a.svc.Pitcher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "pitch generation is not configured"})
		return
	}
	lead, err := a.svc.Store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := a.svc.Pitcher.Generate(r.Context(), lead)
	if err != nil {
		writePitchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// writePitchError reports AI failures as 502 and defers the rest to
// writeError.
func writePitchError(w http.ResponseWriter, err error) {
	var svcErr *model.ClassificationServiceError
	var parseErr *model.ClassificationParseError
	if errors.As(err, &svcErr) || errors.As(err, &parseErr) {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeError(w, err)
}

// decodeBody decodes a JSON request body into dst, writing a 400 on failure.
// Unknown fields are ignored.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "lead not found"})
	case errors.As(err, &verr):
		status := http.StatusUnprocessableEntity
		if verr.Field == "viable_post_human" {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": verr.Error()})
	default:
		zap.L().Error("api request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
