package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStringArrayPreservesOrder(t *testing.T) {
	arr := JSONStringArray{"req-b", "req-a", "req-b"}
	value, err := arr.Value()
	require.NoError(t, err)

	var loaded JSONStringArray
	require.NoError(t, loaded.Scan(value))
	assert.Equal(t, arr, loaded, "order and duplicates must survive the column")
}

func TestJSONStringArrayNilStoresEmptyList(t *testing.T) {
	var arr JSONStringArray
	value, err := arr.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)
}

func TestJSONStringArrayScanSources(t *testing.T) {
	var fromBytes JSONStringArray
	require.NoError(t, fromBytes.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, JSONStringArray{"a", "b"}, fromBytes)

	var fromNil JSONStringArray
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)

	var fromInt JSONStringArray
	assert.Error(t, fromInt.Scan(42))
}

func TestJSONChunkListRoundTrip(t *testing.T) {
	list := JSONChunkList{
		{Kind: "delta", Content: "Hello"},
		{Kind: "delta", Content: " world"},
		{Kind: "complete", TotalTokens: 12},
		{Kind: "error", Message: "upstream closed"},
	}
	value, err := list.Value()
	require.NoError(t, err)

	var loaded JSONChunkList
	require.NoError(t, loaded.Scan(value))
	assert.Equal(t, list, loaded)
}

func TestJSONChunkListNilStoresEmptyList(t *testing.T) {
	var list JSONChunkList
	value, err := list.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)

	require.NoError(t, list.Scan(nil))
	assert.Nil(t, list)
}
