package certification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDescribeJewel(t *testing.T) {
	it := Item{
		WhatItIs:    KindJewel,
		JewelryType: JewelRing,
		Metal:       MetalYellowGold,
		GemName:     "Sapphire",
		GemShape:    "Oval",
		GemWeight:   ptr(2.5),
		GemCount:    1,
	}
	assert.Equal(t, "Sapphire in yellow gold ring in Oval cut of 2.50 cts", it.Describe())
}

func TestDescribeSetWithComponents(t *testing.T) {
	it := Item{
		WhatItIs:      KindJewel,
		JewelryType:   JewelSet,
		Metal:         MetalSilver,
		GemName:       "Amethyst",
		SetComponents: "ring,pendant,studs",
		GemCount:      1,
	}
	assert.Equal(t, "Amethyst in silver set (ring, pendant, studs)", it.Describe())
}

func TestDescribeLotPluralizes(t *testing.T) {
	it := Item{
		WhatItIs: KindLot,
		GemName:  "Garnet",
		GemCount: 5,
	}
	assert.Equal(t, "5 garnets", it.Describe())

	it.GemCount = 2
	assert.Equal(t, "Pair of garnets", it.Describe())

	it.GemCount = 3
	assert.Equal(t, "Trio of garnets", it.Describe())
}

func TestDescribeReferenceOnly(t *testing.T) {
	it := Item{WhatItIs: KindReprint, ReferenceCode: "GC-1042"}
	assert.Equal(t, "Reprint - Code: GC-1042", it.Describe())

	it = Item{WhatItIs: KindVerbalToGC}
	assert.Equal(t, "Verbal to GC - Code: N/A", it.Describe())
}

func TestDescribeAppendsComments(t *testing.T) {
	it := Item{
		WhatItIs: KindStone,
		GemName:  "Ruby",
		GemCount: 1,
		Comments: "Client requests rush handling",
	}
	assert.Equal(t, "Ruby. Client requests rush handling", it.Describe())
}

func TestDescribeSkipsNoneShape(t *testing.T) {
	it := Item{WhatItIs: KindStone, GemName: "Opal", GemShape: "None", GemCount: 1}
	assert.Equal(t, "Opal", it.Describe())
}

func TestItemUrgency(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	deadline := func(d time.Duration) *time.Time {
		ts := now.Add(d)
		return &ts
	}

	assert.Equal(t, UrgencyNormal, (&Item{}).Urgency(now), "no deadline, nothing to chase")
	assert.Equal(t, UrgencyOverdue, (&Item{Deadline: deadline(-time.Minute)}).Urgency(now))
	assert.Equal(t, UrgencyUrgent, (&Item{Deadline: deadline(30 * time.Minute)}).Urgency(now))
	assert.Equal(t, UrgencyUpcoming, (&Item{Deadline: deadline(5 * time.Hour)}).Urgency(now))
	assert.Equal(t, UrgencyNormal, (&Item{Deadline: deadline(48 * time.Hour)}).Urgency(now))
}

func TestItemRemainingSeconds(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(90 * time.Second)
	earlier := now.Add(-time.Hour)

	assert.Equal(t, int64(-1), (&Item{}).RemainingSeconds(now))
	assert.Equal(t, int64(90), (&Item{Deadline: &later}).RemainingSeconds(now))
	assert.Equal(t, int64(0), (&Item{Deadline: &earlier}).RemainingSeconds(now), "overdue floors at zero")
}

func TestOrderDelayed(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	o := Order{Items: []Item{{Deadline: &future}}}
	assert.False(t, o.Delayed(now))

	o.Items = append(o.Items, Item{Deadline: &past})
	assert.True(t, o.Delayed(now))
}

func TestOrderLastDeadline(t *testing.T) {
	a := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	b := a.Add(time.Hour)

	o := Order{Items: []Item{{Deadline: &a}, {Deadline: &b}, {}}}
	assert.Equal(t, b, o.LastDeadline())

	assert.True(t, (&Order{}).LastDeadline().IsZero())
}
