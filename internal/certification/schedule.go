package certification

import (
	"context"
	"time"
)

// DefaultStageSeconds is used whenever a duration row or stage field is not
// configured: 8 hours.
const DefaultStageSeconds int64 = 28800

// DurationSource supplies per-stage durations for scheduling. Lookups never
// fail on missing configuration; only infrastructure errors propagate.
type DurationSource interface {
	// StageSeconds returns the configured seconds for one stage of one type
	// key, DefaultStageSeconds when unconfigured.
	StageSeconds(ctx context.Context, itemType ItemType, certType CertificateType, stage Stage) (int64, error)
	// PipelineSeconds returns the sum over all four work stages, read from a
	// single row fetch so one item's total never mixes stale and fresh
	// values.
	PipelineSeconds(ctx context.Context, itemType ItemType, certType CertificateType) (int64, error)
}

// ScheduledItem pairs a draft with its queue position.
type ScheduledItem struct {
	Draft        ItemDraft
	Seq          int
	TotalSeconds int64
	Deadline     time.Time
}

// ScheduleItems chains drafts onto the production line. The whole lab is one
// single-file queue: each item's deadline is the previous cursor plus its
// full pipeline duration, and the cursor moves to that deadline before the
// next item. Returns the scheduled items and the final cursor.
func ScheduleItems(ctx context.Context, src DurationSource, cursor time.Time, drafts []ItemDraft) ([]ScheduledItem, time.Time, error) {
	out := make([]ScheduledItem, 0, len(drafts))
	for i := range drafts {
		d := &drafts[i]
		total, err := src.PipelineSeconds(ctx, d.TypeKey(), d.CertificateType)
		if err != nil {
			return nil, cursor, err
		}
		cursor = cursor.Add(time.Duration(total) * time.Second)
		out = append(out, ScheduledItem{
			Draft:        *d,
			Seq:          i + 1,
			TotalSeconds: total,
			Deadline:     cursor,
		})
	}
	return out, cursor, nil
}

// QueueCursor picks the starting point for new work: the back of the
// currently known line, or now when the line is empty or already in the
// past. lastDeadline is the max deadline among active items, zero when none.
func QueueCursor(lastDeadline time.Time, now time.Time) time.Time {
	if lastDeadline.After(now) {
		return lastDeadline
	}
	return now
}

// CompressDeadlines moves every scheduled deadline up by secs. Items with no
// deadline are untouched. Deadlines may land in the past; overdue is a state
// the dashboard shows, not an error.
func CompressDeadlines(items []Item, secs int64) {
	if secs <= 0 {
		return
	}
	for i := range items {
		if d := items[i].Deadline; d != nil {
			nd := d.Add(-time.Duration(secs) * time.Second)
			items[i].Deadline = &nd
		}
	}
}

// ClearDeadlines nulls every deadline. The terminal transition does this;
// finished items are off the line.
func ClearDeadlines(items []Item) {
	for i := range items {
		items[i].Deadline = nil
	}
}

// StageSubtraction sums the seconds the completed stage consumed across the
// advancing order's items. This is the amount the whole line moves up by.
func StageSubtraction(ctx context.Context, src DurationSource, items []Item, completed Stage) (int64, error) {
	var total int64
	for i := range items {
		it := &items[i]
		secs, err := src.StageSeconds(ctx, it.TypeKey(), it.CertificateType, completed)
		if err != nil {
			return 0, err
		}
		total += secs
	}
	return total, nil
}
