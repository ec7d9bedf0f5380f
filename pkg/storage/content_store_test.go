package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentStorePutIsContentAddressed(t *testing.T) {
	store, err := NewContentStore(t.TempDir())
	require.NoError(t, err)

	first, size, err := store.Put(strings.NewReader("marksheet"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), size)
	assert.True(t, IsLocalID(first))

	second, _, err := store.Put(strings.NewReader("marksheet"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, _, err := store.Put(strings.NewReader("income certificate"))
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	file, err := store.Open(first)
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "marksheet", string(body))
}

func TestContentStoreRejectsForeignIDs(t *testing.T) {
	store, err := NewContentStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG")
	require.Error(t, err)
	require.Error(t, store.Delete("../etc/passwd"))
}
