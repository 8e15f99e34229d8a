package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemlab/certline/internal/certification"
)

type stubStore struct {
	createFn  func(ctx context.Context, invoice string, drafts []certification.ItemDraft) (*certification.Order, error)
	advanceFn func(ctx context.Context, orderID string) (*certification.Order, *certification.AdvanceResult, error)
	getFn     func(ctx context.Context, orderID string) (*certification.Order, error)
	listFn    func(ctx context.Context) ([]certification.Order, error)
	byStageFn func(ctx context.Context, stage certification.Stage) ([]certification.Order, error)
	photoFn   func(ctx context.Context, itemID, fileName, caption string) (*certification.Photo, error)
}

func (s *stubStore) CreateOrderTx(ctx context.Context, invoice string, drafts []certification.ItemDraft) (*certification.Order, error) {
	return s.createFn(ctx, invoice, drafts)
}
func (s *stubStore) AdvanceStage(ctx context.Context, orderID string) (*certification.Order, *certification.AdvanceResult, error) {
	return s.advanceFn(ctx, orderID)
}
func (s *stubStore) GetOrder(ctx context.Context, orderID string) (*certification.Order, error) {
	return s.getFn(ctx, orderID)
}
func (s *stubStore) ListActive(ctx context.Context) ([]certification.Order, error) {
	return s.listFn(ctx)
}
func (s *stubStore) ListByStage(ctx context.Context, stage certification.Stage) ([]certification.Order, error) {
	return s.byStageFn(ctx, stage)
}
func (s *stubStore) AddPhoto(ctx context.Context, itemID, fileName, caption string) (*certification.Photo, error) {
	return s.photoFn(ctx, itemID, fileName, caption)
}

func newTestRouter(store *stubStore) http.Handler {
	r := NewRouter()
	h := &OrdersHandler{Store: store, Service: "test"}
	h.Register(r)
	return r
}

func sampleOrder() *certification.Order {
	deadline := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	return &certification.Order{
		ID:            "ord-1",
		InvoiceNumber: "INV-100",
		Stage:         certification.StageIntake,
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Items: []certification.Item{{
			ID:              "item-1",
			OrderID:         "ord-1",
			Seq:             1,
			Deadline:        &deadline,
			CertificateType: certification.CertSimpleGC,
			WhatItIs:        certification.KindJewel,
			JewelryType:     certification.JewelRing,
			GemName:         "Sapphire",
			GemCount:        1,
		}},
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&stubStore{})
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateOrder(t *testing.T) {
	store := &stubStore{
		createFn: func(_ context.Context, invoice string, drafts []certification.ItemDraft) (*certification.Order, error) {
			assert.Equal(t, "INV-100", invoice)
			assert.Len(t, drafts, 1)
			return sampleOrder(), nil
		},
	}
	router := newTestRouter(store)

	body, _ := json.Marshal(CreateOrderReq{
		InvoiceNumber: "INV-100",
		Items: []certification.ItemDraft{{
			CertificateType: certification.CertSimpleGC,
			WhatItIs:        certification.KindJewel,
			JewelryType:     certification.JewelRing,
			GemName:         "Sapphire",
		}},
	})
	req := httptest.NewRequest("POST", "/orders", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp OrderView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ord-1", resp.ID)
	require.Len(t, resp.Items, 1)
	assert.NotEmpty(t, resp.Items[0].Description)
}

func TestCreateOrderInvalidJSON(t *testing.T) {
	router := newTestRouter(&stubStore{})
	req := httptest.NewRequest("POST", "/orders", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderValidationError(t *testing.T) {
	store := &stubStore{
		createFn: func(context.Context, string, []certification.ItemDraft) (*certification.Order, error) {
			return nil, certification.Wrapf(certification.ErrValidation, "item 1: gem name is required")
		},
	}
	router := newTestRouter(store)

	req := httptest.NewRequest("POST", "/orders", bytes.NewReader([]byte(`{"invoice_number":"INV-1","items":[{}]}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "gem name")
}

func TestCreateOrderDuplicate(t *testing.T) {
	store := &stubStore{
		createFn: func(context.Context, string, []certification.ItemDraft) (*certification.Order, error) {
			return nil, certification.Wrapf(certification.ErrDuplicateOrder, "invoice INV-100")
		},
	}
	router := newTestRouter(store)

	req := httptest.NewRequest("POST", "/orders", bytes.NewReader([]byte(`{"invoice_number":"INV-100","items":[{}]}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdvanceStage(t *testing.T) {
	order := sampleOrder()
	order.Stage = certification.StagePhoto
	store := &stubStore{
		advanceFn: func(_ context.Context, orderID string) (*certification.Order, *certification.AdvanceResult, error) {
			assert.Equal(t, "ord-1", orderID)
			return order, &certification.AdvanceResult{
				From:              certification.StageIntake,
				To:                certification.StagePhoto,
				SubtractedSeconds: 3600,
			}, nil
		},
	}
	router := newTestRouter(store)

	req := httptest.NewRequest("POST", "/orders/ord-1/advance", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp AdvanceResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, certification.StagePhoto, resp.Order.Stage)
	assert.Equal(t, int64(3600), resp.Result.SubtractedSeconds)
	assert.False(t, resp.Result.AlreadyFinished)
}

func TestAdvanceStageAlreadyFinished(t *testing.T) {
	order := sampleOrder()
	order.Stage = certification.StageFinished
	order.Items[0].Deadline = nil
	store := &stubStore{
		advanceFn: func(context.Context, string) (*certification.Order, *certification.AdvanceResult, error) {
			return order, &certification.AdvanceResult{From: certification.StageFinished, AlreadyFinished: true}, nil
		},
	}
	router := newTestRouter(store)

	// Terminal no-op both times, never an error.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/orders/ord-1/advance", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, "attempt %d", i+1)
		var resp AdvanceResp
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Result.AlreadyFinished)
		assert.Nil(t, resp.Order.Items[0].Deadline)
	}
}

func TestAdvanceStageNotFound(t *testing.T) {
	store := &stubStore{
		advanceFn: func(context.Context, string) (*certification.Order, *certification.AdvanceResult, error) {
			return nil, nil, certification.Wrapf(certification.ErrNotFound, "order nope")
		},
	}
	router := newTestRouter(store)

	req := httptest.NewRequest("POST", "/orders/nope/advance", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdvanceStageConflict(t *testing.T) {
	store := &stubStore{
		advanceFn: func(context.Context, string) (*certification.Order, *certification.AdvanceResult, error) {
			return nil, nil, certification.Wrapf(certification.ErrConflict, "lock timeout")
		},
	}
	router := newTestRouter(store)

	req := httptest.NewRequest("POST", "/orders/ord-1/advance", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code, "retryable, surfaced as conflict")
}

func TestGetOrderNotFound(t *testing.T) {
	store := &stubStore{
		getFn: func(context.Context, string) (*certification.Order, error) {
			return nil, certification.Wrapf(certification.ErrNotFound, "order missing")
		},
	}
	router := newTestRouter(store)

	req := httptest.NewRequest("GET", "/orders/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListByStageRejectsUnknown(t *testing.T) {
	router := newTestRouter(&stubStore{})
	req := httptest.NewRequest("GET", "/stages/SHIPPING/orders", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListActive(t *testing.T) {
	store := &stubStore{
		listFn: func(context.Context) ([]certification.Order, error) {
			return []certification.Order{*sampleOrder()}, nil
		},
	}
	router := newTestRouter(store)

	req := httptest.NewRequest("GET", "/orders", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp []OrderView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "INV-100", resp[0].InvoiceNumber)
}

func TestAddPhoto(t *testing.T) {
	store := &stubStore{
		photoFn: func(_ context.Context, itemID, fileName, caption string) (*certification.Photo, error) {
			assert.Equal(t, "item-1", itemID)
			return &certification.Photo{ID: "photo-1", ItemID: itemID, FileName: fileName, Caption: caption}, nil
		},
	}
	router := newTestRouter(store)

	req := httptest.NewRequest("POST", "/items/item-1/photos", bytes.NewReader([]byte(`{"file_name":"front.jpg","caption":"front view"}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "front.jpg")
}
