package rowkv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexCache_TouchAndLookup(t *testing.T) {
	c := newIndexCache(2)
	c.touch("a", 0)
	c.touch("b", 1)

	idx, ok := c.lookup("a")
	require.True(t, ok)
	require.Equal(t, uint32(0), idx)
}

func TestIndexCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newIndexCache(2)
	c.touch("a", 0)
	c.touch("b", 1)
	c.touch("a", 0) // a is now most-recently-used
	c.touch("c", 2) // evicts b

	_, ok := c.lookup("b")
	require.False(t, ok)
	_, ok = c.lookup("a")
	require.True(t, ok)
	_, ok = c.lookup("c")
	require.True(t, ok)
}

func TestIndexCache_ZeroCapacityNeverCaches(t *testing.T) {
	c := newIndexCache(0)
	c.touch("a", 0)
	_, ok := c.lookup("a")
	require.False(t, ok)
}

func TestIndexCache_DropExact(t *testing.T) {
	c := newIndexCache(2)
	c.touch("a", 0)
	c.dropExact("a")
	_, ok := c.lookup("a")
	require.False(t, ok)
}

func TestKeyIndex_FindsExistingKeyByScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.rowkv")
	schema := testSchema(t)
	fl, err := openFileLayout(NewReal(), path, schema)
	require.NoError(t, err)
	defer fl.close()

	require.NoError(t, fl.setRowCount(2))
	row0 := make([]byte, schema.RowLength)
	copy(row0, "alice")
	require.NoError(t, fl.writeRow(0, row0))
	row1 := make([]byte, schema.RowLength)
	copy(row1, "bob")
	require.NoError(t, fl.writeRow(1, row1))

	ki := newKeyIndex(8, fl)
	idx, err := ki.find([]byte("bob\x00\x00\x00\x00\x00"), false)
	require.NoError(t, err)
	require.Equal(t, uint32(1), idx)
}

func TestKeyIndex_MissingKeyWithoutCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.rowkv")
	schema := testSchema(t)
	fl, err := openFileLayout(NewReal(), path, schema)
	require.NoError(t, err)
	defer fl.close()

	ki := newKeyIndex(8, fl)
	_, err = ki.find([]byte("nope\x00\x00\x00\x00"), false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestKeyIndex_CreatesNewRowOnMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.rowkv")
	schema := testSchema(t)
	fl, err := openFileLayout(NewReal(), path, schema)
	require.NoError(t, err)
	defer fl.close()

	ki := newKeyIndex(8, fl)
	idx, err := ki.find([]byte("new\x00\x00\x00\x00\x00"), true)
	require.NoError(t, err)
	require.Equal(t, uint32(0), idx)
	require.Equal(t, uint32(1), fl.rowCount())

	idx2, err := ki.find([]byte("new\x00\x00\x00\x00\x00"), false)
	require.NoError(t, err)
	require.Equal(t, idx, idx2)
}
