package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gemlab/certline/internal/certification"
)

// ItemView decorates an item with the derived fields the dashboard shows.
type ItemView struct {
	certification.Item
	Description      string `json:"description"`
	Urgency          string `json:"urgency"`
	RemainingSeconds int64  `json:"remaining_seconds"`
}

// OrderView decorates an order with progress and delay state.
type OrderView struct {
	certification.Order
	Items    []ItemView `json:"items"`
	Progress float64    `json:"progress"`
	Delayed  bool       `json:"delayed"`
}

func newOrderView(o *certification.Order, now time.Time) OrderView {
	view := OrderView{
		Order:    *o,
		Items:    make([]ItemView, 0, len(o.Items)),
		Progress: o.Stage.Progress(),
		Delayed:  o.Delayed(now),
	}
	for i := range o.Items {
		it := o.Items[i]
		view.Items = append(view.Items, ItemView{
			Item:             it,
			Description:      it.Describe(),
			Urgency:          it.Urgency(now),
			RemainingSeconds: it.RemainingSeconds(now),
		})
	}
	view.Order.Items = nil
	return view
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the core taxonomy onto status codes. AlreadyFinished is
// not routed here; it travels as a flagged 200.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, certification.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, certification.ErrValidation), errors.Is(err, certification.ErrEmptyOrder):
		code = http.StatusBadRequest
	case errors.Is(err, certification.ErrDuplicateOrder), errors.Is(err, certification.ErrConflict):
		code = http.StatusConflict
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
