package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gemlab/certline/internal/certification"
)

// TimesStore is the configuration slice of the core: reading and writing
// duration-table rows. Writes invalidate the lookup cache inside the store.
type TimesStore interface {
	List(ctx context.Context) ([]certification.DurationConfig, error)
	Set(ctx context.Context, row *certification.DurationConfig) error
	Misses() int64
}

type ConfigHandler struct {
	Times TimesStore
}

func (h *ConfigHandler) Register(r *chi.Mux) {
	r.Get("/config/times", h.getTimes)
	r.Put("/config/times", h.putTimes)
}

type timesResp struct {
	Rows           []certification.DurationConfig `json:"rows"`
	DefaultSeconds int64                          `json:"default_seconds"`
	LookupMisses   int64                          `json:"lookup_misses"`
}

func (h *ConfigHandler) getTimes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rows, err := h.Times.List(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timesResp{
		Rows:           rows,
		DefaultSeconds: certification.DefaultStageSeconds,
		LookupMisses:   h.Times.Misses(),
	})
}

// putTimes accepts a batch of rows. Validation happens row by row before
// any write; the first bad row rejects the whole batch.
func (h *ConfigHandler) putTimes(w http.ResponseWriter, r *http.Request) {
	var rows []certification.DurationConfig
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(rows) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no rows"})
		return
	}

	for i := range rows {
		if err := certification.ValidateConfig(&rows[i]); err != nil {
			writeError(w, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for i := range rows {
		if err := h.Times.Set(ctx, &rows[i]); err != nil {
			writeError(w, err)
			return
		}
	}

	updated, err := h.Times.List(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timesResp{
		Rows:           updated,
		DefaultSeconds: certification.DefaultStageSeconds,
		LookupMisses:   h.Times.Misses(),
	})
}
