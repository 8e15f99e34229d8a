package certification

import (
	"fmt"
	"strings"
)

var metalWords = map[Metal]string{
	MetalGold:       "gold",
	MetalYellowGold: "yellow gold",
	MetalRoseGold:   "rose gold",
	MetalSilver:     "silver",
	MetalWhite:      "white gold",
	MetalRose:       "rose gold",
	MetalBlack:      "black gold",
}

var jewelryWords = map[JewelryType]string{
	JewelRing:           "ring",
	JewelPendant:        "pendant",
	JewelStuds:          "studs",
	JewelBracelet:       "bracelet",
	JewelTennisBracelet: "tennis bracelet",
	JewelSet:            "set",
}

var kindWords = map[WhatItIs]string{
	KindVerbalToGC: "Verbal to GC",
	KindReprint:    "Reprint",
}

// Describe builds the human-readable line printed on work sheets and the
// dashboard: count, gem, metal, jewelry subtype, cut and weight in natural
// order.
func (it *Item) Describe() string {
	if it.WhatItIs.ReferenceOnly() {
		code := it.ReferenceCode
		if code == "" {
			code = "N/A"
		}
		return fmt.Sprintf("%s - Code: %s", kindWords[it.WhatItIs], code)
	}

	var parts []string

	if it.GemCount > 1 {
		switch it.GemCount {
		case 2:
			parts = append(parts, "Pair of")
		case 3:
			parts = append(parts, "Trio of")
		default:
			parts = append(parts, fmt.Sprintf("%d", it.GemCount))
		}
	}

	if it.GemName != "" {
		gem := it.GemName
		if it.WhatItIs == KindLot && it.GemCount > 1 {
			gem = pluralize(strings.ToLower(gem))
		}
		parts = append(parts, gem)
	}

	if it.WhatItIs == KindJewel {
		if word, ok := metalWords[it.Metal]; ok {
			parts = append(parts, "in "+word)
		}
		if word, ok := jewelryWords[it.JewelryType]; ok {
			if it.JewelryType == JewelSet && it.SetComponents != "" {
				word = fmt.Sprintf("%s (%s)", word, strings.ReplaceAll(it.SetComponents, ",", ", "))
			}
			parts = append(parts, word)
		}
	}

	if it.GemShape != "" && !strings.EqualFold(it.GemShape, "none") {
		parts = append(parts, "in "+it.GemShape+" cut")
	}
	if it.GemWeight != nil {
		parts = append(parts, fmt.Sprintf("of %.2f cts", *it.GemWeight))
	}

	text := strings.Join(parts, " ")
	if it.Comments != "" {
		text += ". " + it.Comments
	}
	return text
}

func pluralize(word string) string {
	if word == "" {
		return word
	}
	switch word[len(word)-1] {
	case 's', 'x', 'z':
		return word + "es"
	}
	if strings.HasSuffix(word, "ch") || strings.HasSuffix(word, "sh") {
		return word + "es"
	}
	return word + "s"
}
