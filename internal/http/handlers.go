package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"grantcuts/internal/amqp"
	"grantcuts/internal/storage"
)

type summaryResponse struct {
	Labels    []storage.LabelSummary `json:"labels"`
	LatestRun *storage.PipelineRun   `json:"latest_run,omitempty"`
	Degraded  bool                   `json:"degraded"`
}

type refreshResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// handleListAwards serves GET /api/awards. Query parameters: labels
// (comma-separated), agency, era (pre|trump), limit.
func (s *Server) handleListAwards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter, err := parseAwardFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cacheKey := r.URL.RawQuery
	if awards, ok := s.awardsCache.Get(cacheKey); ok {
		writeJSON(w, awards)
		return
	}

	awards, err := s.store.ListAwards(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list awards", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if awards == nil {
		awards = []storage.Award{}
	}

	s.awardsCache.Set(cacheKey, awards)
	writeJSON(w, awards)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	txs, err := s.store.ListDeobTransactions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []storage.DeobTransaction{}
	}
	writeJSON(w, txs)
}

func (s *Server) handleListCounties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	counties, err := s.store.ListCounties(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list counties", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if counties == nil {
		counties = []storage.County{}
	}
	writeJSON(w, counties)
}

// handleSummary serves GET /api/summary: per-label counts and totals plus
// the latest pipeline run, including its degraded flag.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if resp, ok := s.summaryCache.Get("summary"); ok {
		writeJSON(w, resp)
		return
	}

	labels, err := s.store.SummaryByLabel(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to build summary", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if labels == nil {
		labels = []storage.LabelSummary{}
	}

	resp := summaryResponse{Labels: labels}
	run, err := s.store.LatestRun(r.Context())
	switch {
	case err == nil:
		resp.LatestRun = &run
		resp.Degraded = run.Degraded
	case errors.Is(err, sql.ErrNoRows):
		// No run yet; serve the summary without one.
	default:
		slog.ErrorContext(r.Context(), "Failed to load latest run", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.summaryCache.Set("summary", resp)
	writeJSON(w, resp)
}

// handleRefresh serves POST /api/refresh: queues a pipeline re-run and
// drops the response caches so the next read hits fresh data.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.publisher == nil {
		http.Error(w, "refresh queue not configured", http.StatusServiceUnavailable)
		return
	}

	reason := strings.TrimSpace(r.URL.Query().Get("reason"))
	msg := amqp.NewRefreshRequest("api", reason)
	if err := s.publisher.PublishRefreshRequest(r.Context(), msg); err != nil {
		slog.ErrorContext(r.Context(), "Failed to publish refresh request", "error", err)
		http.Error(w, "failed to queue refresh", http.StatusBadGateway)
		return
	}

	s.awardsCache.Purge()
	s.summaryCache.Purge()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(refreshResponse{RequestID: msg.RequestID, Status: "queued"}); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode response", "error", err)
	}
}

func parseAwardFilter(r *http.Request) (storage.AwardFilter, error) {
	var f storage.AwardFilter
	q := r.URL.Query()

	if raw := strings.TrimSpace(q.Get("labels")); raw != "" {
		for _, label := range strings.Split(raw, ",") {
			label = strings.TrimSpace(label)
			if label != "" {
				f.Labels = append(f.Labels, label)
			}
		}
	}
	f.Agency = strings.TrimSpace(q.Get("agency"))

	switch era := strings.TrimSpace(q.Get("era")); era {
	case "", "pre", "trump":
		f.Era = era
	default:
		return f, errors.New(`era must be "pre" or "trump"`)
	}

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 0 {
			return f, errors.New("limit must be a non-negative integer")
		}
		f.Limit = limit
	}

	return f, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
