package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDCanonicalForm(t *testing.T) {
	cases := []struct {
		a, b string
	}{
		{`"a\u0026b"`, `"a&b"`},
		{`"\u003cx\u003e"`, `"<x>"`},
		{`"\u0061"`, `"a"`},
		{`1`, `1.0`},
		{`100`, `1e2`},
		{`-3`, `-3.000`},
	}
	for _, tc := range cases {
		var a, b ID
		require.NoError(t, json.Unmarshal([]byte(tc.a), &a))
		require.NoError(t, json.Unmarshal([]byte(tc.b), &b))
		assert.Equal(t, a, b, "%s vs %s", tc.a, tc.b)
	}

	var s, n ID
	require.NoError(t, json.Unmarshal([]byte(`"1"`), &s))
	require.NoError(t, json.Unmarshal([]byte(`1`), &n))
	assert.NotEqual(t, s, n)
	assert.Equal(t, StringID("a&b"), ID(`"a&b"`))
}

func TestIDRejectsObjects(t *testing.T) {
	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &id))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &id))
	assert.Error(t, json.Unmarshal([]byte(`true`), &id))
}

// json.Marshal 會對 Marshaler 的輸出做 HTML 跳脫，重新讀回後仍須是同一個 ID
func TestChitIDSurvivesStoreRoundTrip(t *testing.T) {
	var c Chit
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a&b","x":1}`), &c))

	stored, err := json.Marshal([]Chit{c})
	require.NoError(t, err)

	var loaded []Chit
	require.NoError(t, json.Unmarshal(stored, &loaded))
	require.Len(t, loaded, 1)
	assert.Equal(t, c.ID, loaded[0].ID)

	var update Chit
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a&b","x":2}`), &update))
	assert.Len(t, UpsertChit(loaded, update), 1)
	assert.Empty(t, RemoveChit(loaded, StringID("a&b")))
	assert.Empty(t, RemoveImage([]Image{{ID: loaded[0].ID}}, update.ID))
}
