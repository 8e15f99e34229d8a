package certification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schedulingLock is the advisory lock key serializing every read-compute-
// write pass over the shared deadline state. Order creation and stage
// advancement both take it for the whole transaction, so two concurrent
// callers can never compute overlapping queue positions or interleave a
// half-read cursor.
const schedulingLock int64 = 0x6365727451 // "certQ"

// Repo owns order, item and photo persistence plus the two scheduling
// transactions. Duration lookups go through Times; its cache sits outside
// the transaction boundary by design.
type Repo struct {
	DB    *pgxpool.Pool
	Times *Durations
}

// AdvanceResult reports what a stage transition did.
type AdvanceResult struct {
	From              Stage `json:"from"`
	To                Stage `json:"to,omitempty"`
	SubtractedSeconds int64 `json:"subtracted_seconds"`
	DelayedItems      int   `json:"delayed_items"`
	AlreadyFinished   bool  `json:"already_finished"`
}

const orderColumns = `id, invoice_number, stage, created_at, closed_at`
const itemColumns = `id, order_id, seq, deadline, certificate_type, what_it_is,
	reference_code, jewelry_type, metal, gem_count, set_components,
	gem_name, gem_shape, gem_weight, comments`

// CreateOrderTx creates an order and its items as one unit, computing each
// item's deadline by chaining onto the back of the global queue. Either the
// order, all items and all deadlines commit together, or nothing does.
func (r *Repo) CreateOrderTx(ctx context.Context, invoiceNumber string, drafts []ItemDraft) (*Order, error) {
	if invoiceNumber == "" {
		return nil, Wrapf(ErrValidation, "invoice number is required")
	}
	if err := ValidateDrafts(drafts); err != nil {
		return nil, err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, schedulingLock); err != nil {
		return nil, classify(err)
	}

	var existing string
	err = tx.QueryRow(ctx, `SELECT id FROM orders WHERE invoice_number=$1`, invoiceNumber).Scan(&existing)
	if err == nil {
		return nil, Wrapf(ErrDuplicateOrder, "invoice %s is already registered as order %s", invoiceNumber, existing)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, classify(err)
	}

	// Back of the line: latest deadline among items of unfinished orders.
	// Read under the lock so a concurrent create or advance cannot move it
	// underneath us.
	var last *time.Time
	if err := tx.QueryRow(ctx, `
		SELECT MAX(i.deadline) FROM items i
		JOIN orders o ON o.id = i.order_id
		WHERE o.stage <> 'FINISHED'`).Scan(&last); err != nil {
		return nil, classify(err)
	}
	now := time.Now().UTC()
	cursor := now
	if last != nil {
		cursor = QueueCursor(*last, now)
	}

	scheduled, _, err := ScheduleItems(ctx, r.Times, cursor, drafts)
	if err != nil {
		return nil, classify(err)
	}

	order := &Order{
		ID:            uuid.NewString(),
		InvoiceNumber: invoiceNumber,
		Stage:         StageIntake,
		CreatedAt:     now,
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, invoice_number, stage, created_at)
		VALUES ($1, $2, $3, $4)`,
		order.ID, order.InvoiceNumber, string(order.Stage), order.CreatedAt,
	); err != nil {
		return nil, classify(err)
	}

	for _, s := range scheduled {
		d := s.Draft
		item := Item{
			ID:              uuid.NewString(),
			OrderID:         order.ID,
			Seq:             s.Seq,
			CertificateType: d.CertificateType,
			WhatItIs:        d.WhatItIs,
			JewelryType:     d.JewelryType,
			Metal:           d.Metal,
			GemCount:        d.GemCount,
			GemShape:        d.GemShape,
			GemWeight:       d.GemWeight,
			Comments:        d.Comments,
		}
		if item.GemCount <= 0 {
			item.GemCount = 1
		}
		deadline := s.Deadline
		item.Deadline = &deadline
		// Discriminant fields mirror the classification: reference-only
		// items carry a code, physical items a gem; sets keep components.
		if d.WhatItIs.ReferenceOnly() {
			item.ReferenceCode = d.ReferenceCode
		} else {
			item.GemName = d.GemName
		}
		if d.WhatItIs == KindJewel && d.JewelryType == JewelSet {
			item.SetComponents = d.SetComponents
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO items (`+itemColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			item.ID, item.OrderID, item.Seq, item.Deadline,
			string(item.CertificateType), string(item.WhatItIs),
			nullIfEmpty(item.ReferenceCode), nullIfEmpty(string(item.JewelryType)), nullIfEmpty(string(item.Metal)),
			item.GemCount, nullIfEmpty(item.SetComponents),
			nullIfEmpty(item.GemName), item.GemShape, item.GemWeight, nullIfEmpty(item.Comments),
		); err != nil {
			return nil, classify(err)
		}
		order.Items = append(order.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify(err)
	}
	return order, nil
}

// AdvanceStage moves an order one stage forward and compresses the whole
// line: the seconds the completed stage consumed for this order's items are
// subtracted from every active item's deadline system-wide. Reaching
// FINISHED closes the order and clears its deadlines instead. Advancing a
// finished order is a no-op reported through AdvanceResult.
func (r *Repo) AdvanceStage(ctx context.Context, orderID string) (*Order, *AdvanceResult, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, schedulingLock); err != nil {
		return nil, nil, classify(err)
	}

	order, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, Wrapf(ErrNotFound, "order %s", orderID)
	}
	if err != nil {
		return nil, nil, classify(err)
	}

	items, err := queryItems(ctx, tx, `SELECT `+itemColumns+` FROM items WHERE order_id=$1 ORDER BY seq`, orderID)
	if err != nil {
		return nil, nil, classify(err)
	}
	order.Items = items

	if order.Stage.Terminal() {
		return order, &AdvanceResult{From: order.Stage, AlreadyFinished: true}, nil
	}

	completed := order.Stage
	next, _ := completed.Next()

	subtract, err := StageSubtraction(ctx, r.Times, items, completed)
	if err != nil {
		return nil, nil, classify(err)
	}

	if subtract > 0 {
		if _, err := tx.Exec(ctx, `
			UPDATE items SET deadline = deadline - ($1 * interval '1 second')
			FROM orders o
			WHERE o.id = items.order_id AND o.stage <> 'FINISHED' AND items.deadline IS NOT NULL`,
			subtract,
		); err != nil {
			return nil, nil, classify(err)
		}
	}

	var closedAt *time.Time
	if next.Terminal() {
		now := time.Now().UTC()
		closedAt = &now
		if _, err := tx.Exec(ctx, `UPDATE items SET deadline = NULL WHERE order_id=$1`, orderID); err != nil {
			return nil, nil, classify(err)
		}
		if _, err := tx.Exec(ctx, `UPDATE orders SET stage=$2, closed_at=$3 WHERE id=$1`,
			orderID, string(next), now); err != nil {
			return nil, nil, classify(err)
		}
	} else {
		if _, err := tx.Exec(ctx, `UPDATE orders SET stage=$2 WHERE id=$1`, orderID, string(next)); err != nil {
			return nil, nil, classify(err)
		}
	}

	var delayed int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM items i
		JOIN orders o ON o.id = i.order_id
		WHERE o.stage <> 'FINISHED' AND i.deadline IS NOT NULL AND i.deadline < now()`).Scan(&delayed); err != nil {
		return nil, nil, classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, classify(err)
	}

	// Mirror the committed mutation on the loaded items.
	if next.Terminal() {
		ClearDeadlines(order.Items)
	} else {
		CompressDeadlines(order.Items, subtract)
	}
	order.Stage = next
	order.ClosedAt = closedAt
	return order, &AdvanceResult{
		From:              completed,
		To:                next,
		SubtractedSeconds: subtract,
		DelayedItems:      delayed,
	}, nil
}

// GetOrder loads one order with its items and photo records.
func (r *Repo) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	order, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, Wrapf(ErrNotFound, "order %s", orderID)
	}
	if err != nil {
		return nil, classify(err)
	}

	order.Items, err = queryItems(ctx, r.DB, `SELECT `+itemColumns+` FROM items WHERE order_id=$1 ORDER BY seq`, orderID)
	if err != nil {
		return nil, classify(err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.item_id, p.file_name, p.caption, p.uploaded_at
		FROM item_photos p
		JOIN items i ON i.id = p.item_id
		WHERE i.order_id=$1
		ORDER BY p.uploaded_at DESC`, orderID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	byItem := make(map[string][]Photo)
	for rows.Next() {
		var p Photo
		var caption *string
		if err := rows.Scan(&p.ID, &p.ItemID, &p.FileName, &caption, &p.UploadedAt); err != nil {
			return nil, err
		}
		if caption != nil {
			p.Caption = *caption
		}
		byItem[p.ItemID] = append(byItem[p.ItemID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range order.Items {
		order.Items[i].Photos = byItem[order.Items[i].ID]
	}
	return order, nil
}

// ListActive returns unfinished orders with their items, soonest first-item
// deadline first. This feeds the dashboard.
func (r *Repo) ListActive(ctx context.Context) ([]Order, error) {
	return r.listOrders(ctx, `
		SELECT `+qualify(orderColumns, "o")+` FROM orders o
		WHERE o.stage <> 'FINISHED'
		ORDER BY (SELECT MIN(i.deadline) FROM items i WHERE i.order_id = o.id) NULLS LAST, o.created_at`)
}

// ListByStage returns the orders sitting in one stage, oldest first.
func (r *Repo) ListByStage(ctx context.Context, stage Stage) ([]Order, error) {
	if !stage.Valid() {
		return nil, Wrapf(ErrValidation, "unknown stage %q", stage)
	}
	return r.listOrders(ctx, `
		SELECT `+qualify(orderColumns, "o")+` FROM orders o
		WHERE o.stage = $1
		ORDER BY o.created_at`, string(stage))
}

func (r *Repo) listOrders(ctx context.Context, sql string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := queryItems(ctx, r.DB, `SELECT `+itemColumns+` FROM items WHERE order_id=$1 ORDER BY seq`, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

// AddPhoto appends a photo record to an item. Photos are never updated or
// removed through this API.
func (r *Repo) AddPhoto(ctx context.Context, itemID, fileName, caption string) (*Photo, error) {
	if fileName == "" {
		return nil, Wrapf(ErrValidation, "file name is required")
	}
	var exists string
	err := r.DB.QueryRow(ctx, `SELECT id FROM items WHERE id=$1`, itemID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, Wrapf(ErrNotFound, "item %s", itemID)
	}
	if err != nil {
		return nil, classify(err)
	}

	photo := &Photo{
		ID:         uuid.NewString(),
		ItemID:     itemID,
		FileName:   fileName,
		Caption:    caption,
		UploadedAt: time.Now().UTC(),
	}
	if _, err := r.DB.Exec(ctx, `
		INSERT INTO item_photos (id, item_id, file_name, caption, uploaded_at)
		VALUES ($1,$2,$3,$4,$5)`,
		photo.ID, photo.ItemID, photo.FileName, nullIfEmpty(photo.Caption), photo.UploadedAt,
	); err != nil {
		return nil, classify(err)
	}
	return photo, nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var stage string
	if err := row.Scan(&o.ID, &o.InvoiceNumber, &stage, &o.CreatedAt, &o.ClosedAt); err != nil {
		return nil, err
	}
	o.Stage = Stage(stage)
	return &o, nil
}

func queryItems(ctx context.Context, q querier, sql string, args ...any) ([]Item, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		var certType, whatItIs string
		var refCode, jewelryType, metal, setComponents, gemName, comments *string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Seq, &it.Deadline,
			&certType, &whatItIs, &refCode, &jewelryType, &metal,
			&it.GemCount, &setComponents, &gemName, &it.GemShape, &it.GemWeight, &comments); err != nil {
			return nil, err
		}
		it.CertificateType = CertificateType(certType)
		it.WhatItIs = WhatItIs(whatItIs)
		it.ReferenceCode = deref(refCode)
		it.JewelryType = JewelryType(deref(jewelryType))
		it.Metal = Metal(deref(metal))
		it.SetComponents = deref(setComponents)
		it.GemName = deref(gemName)
		it.Comments = deref(comments)
		out = append(out, it)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func qualify(cols, alias string) string {
	parts := strings.Split(cols, ",")
	for i, c := range parts {
		parts[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}

// classify maps driver errors onto the core taxonomy. Serialization and
// lock-contention SQLSTATEs become ErrConflict so callers know to retry;
// a unique violation on the invoice key becomes ErrDuplicateOrder for the
// race the pre-check cannot close.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicateOrder, pgErr.Message)
		}
	}
	return err
}
