package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name   string
		raw    *string
		wantOK bool
		want   ledger.Metadata
	}{
		{name: "Missing", raw: nil, wantOK: false, want: ledger.Metadata{}},
		{name: "Empty", raw: new(""), wantOK: false, want: ledger.Metadata{}},
		{name: "ObjectPlaceholder", raw: new("[object Object]"), wantOK: false, want: ledger.Metadata{}},
		{name: "JSONNull", raw: new("null"), wantOK: false, want: ledger.Metadata{}},
		{name: "Undefined", raw: new("undefined"), wantOK: false, want: ledger.Metadata{}},
		{name: "Unparseable", raw: new("{playerId: 1"), wantOK: false, want: ledger.Metadata{}},
		{name: "Array", raw: new(`["a"]`), wantOK: false, want: ledger.Metadata{}},
		{name: "QuotedString", raw: new(`"[object Object]"`), wantOK: false, want: ledger.Metadata{}},
		{name: "EmptyObject", raw: new("{}"), wantOK: true, want: ledger.Metadata{}},
		{name: "Object", raw: new(`{"a":1}`), wantOK: true, want: ledger.Metadata{"a": float64(1)}},
		{name: "PaddedObject", raw: new(` {"playerType":"upfront"} `), wantOK: true, want: ledger.Metadata{"playerType": "upfront"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ledger.ParseMetadata(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetadata_Encode(t *testing.T) {
	var nilMeta ledger.Metadata

	got, err := nilMeta.Encode()
	require.NoError(t, err)
	assert.Equal(t, "{}", got)

	got, err = ledger.FromStrings(map[string]string{"playerId": "p1"}).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"playerId":"p1"}`, got)
}

func TestMetadata_String(t *testing.T) {
	m := ledger.Metadata{"playerType": "upfront", "count": float64(2)}

	assert.Equal(t, "upfront", m.String("playerType"))
	assert.Empty(t, m.String("count"))
	assert.Empty(t, m.String("missing"))
}
