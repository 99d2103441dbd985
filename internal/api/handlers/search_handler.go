package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/logger"
	"github.com/markdave123-py/bostadsdata/internal/services"
)

// Searcher is the read path the handler serves.
type Searcher interface {
	Search(ctx context.Context, req services.SearchRequest) ([]core.SearchHit, error)
}

type SearchHandler struct {
	searcher Searcher
	log      *logger.Logger
}

func NewSearchHandler(searcher Searcher, log *logger.Logger) *SearchHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SearchHandler{searcher: searcher, log: log}
}

type SearchResponse struct {
	Dataset string           `json:"dataset"`
	Query   string           `json:"query"`
	Results []core.SearchHit `json:"results"`
}

// Search serves GET /api/search?dataset=&q=&limit=&threshold=.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := services.SearchRequest{Dataset: q.Get("dataset"), Query: q.Get("q")}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		req.Limit = n
	}
	if v := q.Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
		req.Threshold = f
	}

	hits, err := h.searcher.Search(r.Context(), req)
	if err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		h.log.Error("search failed", "dataset", req.Dataset, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{Dataset: req.Dataset, Query: req.Query, Results: hits})
}

// Health serves GET /healthz.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
