package certification

import "fmt"

// ItemDraft is the caller-supplied description of one item at intake.
// Validation runs before any database write; a rejected draft rejects the
// whole order.
type ItemDraft struct {
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
}

// TypeKey resolves the draft's duration-table key.
func (d *ItemDraft) TypeKey() ItemType {
	return ResolveTypeKey(d.WhatItIs, d.JewelryType)
}

// ResolveTypeKey maps an item classification onto its duration-table key.
// SET overrides JEWEL when the subtype says so. Reference-only kinds keep
// their own label: no config row carries it, so their lookup always falls to
// the default and is counted as a miss.
func ResolveTypeKey(kind WhatItIs, jewelry JewelryType) ItemType {
	switch kind {
	case KindJewel:
		if jewelry == JewelSet {
			return TypeSet
		}
		return TypeJewel
	case KindLot:
		return TypeLot
	case KindStone:
		return TypeStone
	}
	return NormalizeItemType(string(kind))
}

// Validate checks the draft's discriminant fields. Certificate type is
// always required. Reference-only kinds need a reference code; everything
// else needs a gem name. Jewels need a subtype. Weight, when given, must be
// positive.
func (d *ItemDraft) Validate(seq int) error {
	if !d.CertificateType.Valid() {
		return Wrapf(ErrValidation, "item %d: missing or unknown certificate type %q", seq, d.CertificateType)
	}
	if !d.WhatItIs.Valid() {
		return Wrapf(ErrValidation, "item %d: missing or unknown classification %q", seq, d.WhatItIs)
	}
	if d.WhatItIs.ReferenceOnly() {
		if d.ReferenceCode == "" {
			return Wrapf(ErrValidation, "item %d: %s items require a reference code", seq, d.WhatItIs)
		}
	} else if d.GemName == "" {
		return Wrapf(ErrValidation, "item %d: gem name is required", seq)
	}
	if d.WhatItIs == KindJewel && !d.JewelryType.Valid() {
		return Wrapf(ErrValidation, "item %d: jewels require a jewelry type", seq)
	}
	if d.GemWeight != nil && *d.GemWeight <= 0 {
		return Wrapf(ErrValidation, "item %d: gem weight must be positive", seq)
	}
	return nil
}

// ValidateDrafts checks the whole batch, first failure wins.
func ValidateDrafts(drafts []ItemDraft) error {
	if len(drafts) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrEmptyOrder)
	}
	for i := range drafts {
		if err := drafts[i].Validate(i + 1); err != nil {
			return err
		}
	}
	return nil
}
