package certification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestValidateDrafts(t *testing.T) {
	valid := jewelDraft()

	cases := []struct {
		name    string
		mutate  func(*ItemDraft)
		wantErr error
	}{
		{"valid jewel", func(d *ItemDraft) {}, nil},
		{"missing certificate type", func(d *ItemDraft) { d.CertificateType = "" }, ErrValidation},
		{"unknown certificate type", func(d *ItemDraft) { d.CertificateType = "VERBAL" }, ErrValidation},
		{"missing classification", func(d *ItemDraft) { d.WhatItIs = "" }, ErrValidation},
		{"missing gem name", func(d *ItemDraft) { d.GemName = "" }, ErrValidation},
		{"jewel without subtype", func(d *ItemDraft) { d.JewelryType = "" }, ErrValidation},
		{"zero weight", func(d *ItemDraft) { d.GemWeight = ptr(0) }, ErrValidation},
		{"negative weight", func(d *ItemDraft) { d.GemWeight = ptr(-1.5) }, ErrValidation},
		{"positive weight ok", func(d *ItemDraft) { d.GemWeight = ptr(2.35) }, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := valid
			tc.mutate(&d)
			err := ValidateDrafts([]ItemDraft{d})
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestValidateDraftsReferenceOnly(t *testing.T) {
	// Verbal-to-GC and reprint items certify from a code, not a gem.
	for _, kind := range []WhatItIs{KindVerbalToGC, KindReprint} {
		d := ItemDraft{CertificateType: CertWritten, WhatItIs: kind}
		err := ValidateDrafts([]ItemDraft{d})
		require.ErrorIs(t, err, ErrValidation, "%s without code must fail", kind)

		d.ReferenceCode = "GC-2024-0117"
		assert.NoError(t, ValidateDrafts([]ItemDraft{d}), "%s with code is fine without a gem", kind)
	}
}

func TestValidateDraftsEmptyBatch(t *testing.T) {
	err := ValidateDrafts(nil)
	assert.ErrorIs(t, err, ErrEmptyOrder)

	err = ValidateDrafts([]ItemDraft{})
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestValidateDraftsReportsPosition(t *testing.T) {
	drafts := []ItemDraft{jewelDraft(), {CertificateType: CertSimpleGC, WhatItIs: KindStone}}
	err := ValidateDrafts(drafts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 2")
}
