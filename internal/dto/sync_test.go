package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlexIDUnmarshal(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int64
	}{
		{"number", `{"id": 42}`, 42},
		{"numeric string", `{"id": "42"}`, 42},
		{"provisional string", `{"id": "local-3"}`, 0},
		{"null", `{"id": null}`, 0},
		{"absent", `{}`, 0},
		{"float", `{"id": 4.7}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var rec ChangeRecord
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &rec))
			require.Equal(t, tc.want, rec.ID.Int64())
		})
	}
}

func TestDecodeChangeBatchBareArray(t *testing.T) {
	items, err := DecodeChangeBatch([]byte(`[{"id": 1, "title": "a"}, {"id": "local-1"}]`))
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, int64(1), items[0].ID.Int64())
	require.NotNil(t, items[0].Title)
	require.Equal(t, "a", *items[0].Title)
	require.Equal(t, int64(0), items[1].ID.Int64())
	require.Nil(t, items[1].Title)
}

func TestDecodeChangeBatchEnvelope(t *testing.T) {
	items, err := DecodeChangeBatch([]byte(`{"changes": [{"id": 7, "deleted": 1}]}`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, int64(7), items[0].ID.Int64())
	require.NotNil(t, items[0].Deleted)
	require.Equal(t, int64(1), *items[0].Deleted)
}

func TestDecodeChangeBatchMalformed(t *testing.T) {
	_, err := DecodeChangeBatch([]byte(`{"changes": `))
	require.Error(t, err)
}

func TestDecodeImportRows(t *testing.T) {
	rows, err := DecodeImportRows([]byte(`{"rows": [{"id": 3, "title": "imported"}]}`))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(3), rows[0].ID.Int64())

	rows, err = DecodeImportRows([]byte(`[]`))
	require.NoError(t, err)
	require.Empty(t, rows)
}
