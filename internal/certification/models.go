package certification

import (
	"strings"
	"time"
)

// CertificateType is the kind of certificate requested for an item.
type CertificateType string

const (
	CertSimpleGC CertificateType = "SIMPLE_GC"
	CertFullGC   CertificateType = "FULL_GC"
	CertWritten  CertificateType = "WRITTEN"
	CertDiamond  CertificateType = "DIAMOND"
)

var certificateTypes = map[CertificateType]bool{
	CertSimpleGC: true, CertFullGC: true, CertWritten: true, CertDiamond: true,
}

func (c CertificateType) Valid() bool { return certificateTypes[c] }

// WhatItIs is the physical classification of a submitted item.
type WhatItIs string

const (
	KindJewel      WhatItIs = "JEWEL"
	KindLot        WhatItIs = "LOT"
	KindStone      WhatItIs = "STONE"
	KindVerbalToGC WhatItIs = "VERBAL_TO_GC"
	KindReprint    WhatItIs = "REPRINT"
)

var whatItIsKinds = map[WhatItIs]bool{
	KindJewel: true, KindLot: true, KindStone: true, KindVerbalToGC: true, KindReprint: true,
}

func (w WhatItIs) Valid() bool { return whatItIsKinds[w] }

// ReferenceOnly reports whether the kind is certified from an existing
// reference code rather than a physical gem description.
func (w WhatItIs) ReferenceOnly() bool {
	return w == KindVerbalToGC || w == KindReprint
}

// JewelryType is the subtype of a jewel item.
type JewelryType string

const (
	JewelRing           JewelryType = "RING"
	JewelPendant        JewelryType = "PENDANT"
	JewelStuds          JewelryType = "STUDS"
	JewelBracelet       JewelryType = "BRACELET"
	JewelTennisBracelet JewelryType = "TENNIS_BRACELET"
	JewelSet            JewelryType = "SET"
)

var jewelryTypes = map[JewelryType]bool{
	JewelRing: true, JewelPendant: true, JewelStuds: true,
	JewelBracelet: true, JewelTennisBracelet: true, JewelSet: true,
}

func (j JewelryType) Valid() bool { return jewelryTypes[j] }

// Metal is the metal of a jewel item.
type Metal string

const (
	MetalGold       Metal = "GOLD"
	MetalYellowGold Metal = "YELLOW_GOLD"
	MetalRoseGold   Metal = "ROSE_GOLD"
	MetalSilver     Metal = "SILVER"
	MetalWhite      Metal = "WHITE"
	MetalRose       Metal = "ROSE"
	MetalBlack      Metal = "BLACK"
)

// ItemType keys the duration table. It is the scheduling view of an item:
// jewels whose subtype is SET schedule as SET, everything else as its own
// kind. Reference-only kinds are never configured, so they always take the
// default duration.
type ItemType string

const (
	TypeStone ItemType = "STONE"
	TypeJewel ItemType = "JEWEL"
	TypeSet   ItemType = "SET"
	TypeLot   ItemType = "LOT"
)

// ItemTypes lists the duration-table keys in seed order.
var ItemTypes = []ItemType{TypeStone, TypeJewel, TypeSet, TypeLot}

// CertificateTypes lists the certificate keys in seed order.
var CertificateTypes = []CertificateType{CertSimpleGC, CertFullGC, CertWritten, CertDiamond}

var itemTypes = map[ItemType]bool{
	TypeStone: true, TypeJewel: true, TypeSet: true, TypeLot: true,
}

func (t ItemType) Valid() bool { return itemTypes[t] }

// NormalizeItemType maps legacy loose-stone labels onto the canonical STONE
// key before duration lookup. Labels from older intake forms still appear in
// imported data.
func NormalizeItemType(raw string) ItemType {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PIEDRA", "PIEDRA(S) SUELTA(S)", "LOOSE STONE", "LOOSE STONE(S)", string(TypeStone):
		return TypeStone
	}
	return ItemType(strings.ToUpper(strings.TrimSpace(raw)))
}

// Order is a certification order moving through the pipeline. It owns its
// items; deleting an order removes them.
type Order struct {
	ID            string     `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	Stage         Stage      `json:"stage"`
	CreatedAt     time.Time  `json:"created_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	Items         []Item     `json:"items,omitempty"`
}

// Delayed reports whether any item in the order is past its deadline.
func (o *Order) Delayed(now time.Time) bool {
	for i := range o.Items {
		if o.Items[i].Overdue(now) {
			return true
		}
	}
	return false
}

// LastDeadline returns the latest item deadline, or zero when none is set.
func (o *Order) LastDeadline() time.Time {
	var last time.Time
	for i := range o.Items {
		if d := o.Items[i].Deadline; d != nil && d.After(last) {
			last = *d
		}
	}
	return last
}

// Item is one piece within an order. Classification fields are fixed at
// intake; only the deadline mutates afterwards, and only through the
// scheduler and the stage advancer.
type Item struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"order_id"`
	Seq             int             `json:"seq"`
	Deadline        *time.Time      `json:"deadline,omitempty"`
	CertificateType CertificateType `json:"certificate_type"`
	WhatItIs        WhatItIs        `json:"what_it_is"`
	ReferenceCode   string          `json:"reference_code,omitempty"`
	JewelryType     JewelryType     `json:"jewelry_type,omitempty"`
	Metal           Metal           `json:"metal,omitempty"`
	GemCount        int             `json:"gem_count,omitempty"`
	SetComponents   string          `json:"set_components,omitempty"`
	GemName         string          `json:"gem_name,omitempty"`
	GemShape        string          `json:"gem_shape,omitempty"`
	GemWeight       *float64        `json:"gem_weight,omitempty"`
	Comments        string          `json:"comments,omitempty"`
	Photos          []Photo         `json:"photos,omitempty"`
}

// TypeKey resolves the item's duration-table key.
func (it *Item) TypeKey() ItemType {
	return ResolveTypeKey(it.WhatItIs, it.JewelryType)
}

// Overdue reports whether the item's deadline has passed.
func (it *Item) Overdue(now time.Time) bool {
	return it.Deadline != nil && now.After(*it.Deadline)
}

// RemainingSeconds returns seconds until the deadline, floored at zero, or
// -1 when no deadline is set.
func (it *Item) RemainingSeconds(now time.Time) int64 {
	if it.Deadline == nil {
		return -1
	}
	rem := int64(it.Deadline.Sub(now) / time.Second)
	if rem < 0 {
		return 0
	}
	return rem
}

// Urgency classes, coarsest first.
const (
	UrgencyOverdue  = "overdue"
	UrgencyUrgent   = "urgent"   // under an hour left
	UrgencyUpcoming = "upcoming" // under a day left
	UrgencyNormal   = "normal"
)

// Urgency classifies how pressing the item's deadline is at now.
func (it *Item) Urgency(now time.Time) string {
	if it.Deadline == nil {
		return UrgencyNormal
	}
	if it.Overdue(now) {
		return UrgencyOverdue
	}
	switch rem := it.RemainingSeconds(now); {
	case rem < 3600:
		return UrgencyUrgent
	case rem < 86400:
		return UrgencyUpcoming
	}
	return UrgencyNormal
}

// Photo is an append-only attachment record for an item. Binary storage
// lives elsewhere; this is the registry.
type Photo struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"item_id"`
	FileName   string    `json:"file_name"`
	Caption    string    `json:"caption,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// DurationConfig is one row of the duration table: per-stage second counts
// for a (item type, certificate type) pair. Nil fields fall back to
// DefaultStageSeconds at lookup time.
type DurationConfig struct {
	ItemType        ItemType        `json:"item_type"`
	CertificateType CertificateType `json:"certificate_type"`
	IntakeSeconds   *int64          `json:"intake_seconds"`
	PhotoSeconds    *int64          `json:"photo_seconds"`
	ReviewSeconds   *int64          `json:"review_seconds"`
	PrintSeconds    *int64          `json:"print_seconds"`
	UpdatedAt       time.Time       `json:"updated_at,omitempty"`
}

// StageSeconds returns the configured seconds for stage, or nil when unset.
func (c *DurationConfig) StageSeconds(stage Stage) *int64 {
	switch stage {
	case StageIntake:
		return c.IntakeSeconds
	case StagePhoto:
		return c.PhotoSeconds
	case StageReview:
		return c.ReviewSeconds
	case StagePrint:
		return c.PrintSeconds
	}
	return nil
}

// TotalSeconds sums the configured stages, fallback applied to nil fields.
func (c *DurationConfig) TotalSeconds() int64 {
	var total int64
	for _, st := range WorkStages {
		if v := c.StageSeconds(st); v != nil {
			total += *v
		} else {
			total += DefaultStageSeconds
		}
	}
	return total
}
