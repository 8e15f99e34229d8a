package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/gemlab/certline/internal/certification"
	kafkax "github.com/gemlab/certline/internal/kafka"
	"github.com/gemlab/certline/internal/redisx"
)

// OrderStore is the slice of the certification core the order handlers use.
type OrderStore interface {
	CreateOrderTx(ctx context.Context, invoiceNumber string, drafts []certification.ItemDraft) (*certification.Order, error)
	AdvanceStage(ctx context.Context, orderID string) (*certification.Order, *certification.AdvanceResult, error)
	GetOrder(ctx context.Context, orderID string) (*certification.Order, error)
	ListActive(ctx context.Context) ([]certification.Order, error)
	ListByStage(ctx context.Context, stage certification.Stage) ([]certification.Order, error)
	AddPhoto(ctx context.Context, itemID, fileName, caption string) (*certification.Photo, error)
}

type CreateOrderReq struct {
	InvoiceNumber string                    `json:"invoice_number"`
	Items         []certification.ItemDraft `json:"items"`
}

type AdvanceResp struct {
	Order  OrderView                   `json:"order"`
	Result certification.AdvanceResult `json:"result"`
}

type OrdersHandler struct {
	Store            OrderStore
	Redis            *redis.Client
	ProducerCreated  *kafkax.Producer
	ProducerAdvanced *kafkax.Producer
	ProducerFinished *kafkax.Producer
	Service          string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listActive)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/advance", h.advance)
	r.Get("/stages/{stage}/orders", h.listByStage)
	r.Post("/items/{id}/photos", h.addPhoto)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Store.CreateOrderTx(ctx, req.InvoiceNumber, req.Items)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheStatus(ctx, order.ID, order.Stage)
	h.publish(h.ProducerCreated, certification.EventOrderCreated, order.ID, r.Header.Get("X-Request-Id"),
		certification.OrderCreatedPayload{
			OrderID:       order.ID,
			InvoiceNumber: order.InvoiceNumber,
			ItemCount:     len(order.Items),
			LastDeadline:  order.LastDeadline(),
		})

	writeJSON(w, http.StatusCreated, newOrderView(order, time.Now().UTC()))
}

func (h *OrdersHandler) advance(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, result, err := h.Store.AdvanceStage(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	if !result.AlreadyFinished {
		h.cacheStatus(ctx, order.ID, order.Stage)
		trace := r.Header.Get("X-Request-Id")
		h.publish(h.ProducerAdvanced, certification.EventStageAdvanced, order.ID, trace,
			certification.StageAdvancedPayload{
				OrderID:           order.ID,
				From:              result.From,
				To:                result.To,
				SubtractedSeconds: result.SubtractedSeconds,
				DelayedItems:      result.DelayedItems,
			})
		if order.Stage.Terminal() && order.ClosedAt != nil {
			h.publish(h.ProducerFinished, certification.EventOrderFinished, order.ID, trace,
				certification.OrderFinishedPayload{OrderID: order.ID, ClosedAt: *order.ClosedAt})
		}
	}

	writeJSON(w, http.StatusOK, AdvanceResp{
		Order:  newOrderView(order, time.Now().UTC()),
		Result: *result,
	})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	order, err := h.Store.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderView(order, time.Now().UTC()))
}

func (h *OrdersHandler) listActive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.Store.ListActive(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeOrderList(w, orders)
}

func (h *OrdersHandler) listByStage(w http.ResponseWriter, r *http.Request) {
	stage, err := certification.ParseStage(chi.URLParam(r, "stage"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.Store.ListByStage(ctx, stage)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeOrderList(w, orders)
}

func (h *OrdersHandler) writeOrderList(w http.ResponseWriter, orders []certification.Order) {
	now := time.Now().UTC()
	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, newOrderView(&orders[i], now))
	}
	writeJSON(w, http.StatusOK, views)
}

type addPhotoReq struct {
	FileName string `json:"file_name"`
	Caption  string `json:"caption,omitempty"`
}

func (h *OrdersHandler) addPhoto(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var req addPhotoReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	photo, err := h.Store.AddPhoto(ctx, itemID, req.FileName, req.Caption)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, photo)
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, orderID string, stage certification.Stage) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	body, _ := json.Marshal(map[string]any{"stage": stage, "updated_at": time.Now().UTC()})
	_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) publish(p *kafkax.Producer, eventType, orderID, trace string, payload any) {
	if p == nil {
		return
	}
	ev := certification.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(certification.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
