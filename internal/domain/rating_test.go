package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingID(t *testing.T) {
	assert.Equal(t, "doc1:0", RatingID("doc1", 0))
	assert.Equal(t, "space:doc1:12", RatingID("space:doc1", 12))
}

func TestParseRatingID(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		wantItemID string
		wantSeq    int
		wantErr    bool
	}{
		{
			name:       "simple id",
			id:         "doc1:3",
			wantItemID: "doc1",
			wantSeq:    3,
		},
		{
			name:       "item id containing the separator",
			id:         "space:doc1:12",
			wantItemID: "space:doc1",
			wantSeq:    12,
		},
		{
			name:       "sequence zero",
			id:         "doc1:0",
			wantItemID: "doc1",
			wantSeq:    0,
		},
		{
			name:    "missing separator",
			id:      "doc1",
			wantErr: true,
		},
		{
			name:    "non-numeric sequence",
			id:      "doc1:abc",
			wantErr: true,
		},
		{
			name:    "negative sequence",
			id:      "doc1:-1",
			wantErr: true,
		},
		{
			name:    "empty sequence",
			id:      "doc1:",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			itemID, seq, err := ParseRatingID(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidRatingID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantItemID, itemID)
			assert.Equal(t, tt.wantSeq, seq)
		})
	}
}

func TestParseRatingIDRoundTrip(t *testing.T) {
	itemID, seq, err := ParseRatingID(RatingID("a:b:c", 7))
	require.NoError(t, err)
	assert.Equal(t, "a:b:c", itemID)
	assert.Equal(t, 7, seq)
}

func TestStoreError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStoreError("save", "doc1", cause)

	assert.Contains(t, err.Error(), "save")
	assert.Contains(t, err.Error(), "doc1")
	assert.ErrorIs(t, err, cause)
}
