package rowkv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSet_AddHasRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.rowkv")
	s, err := OpenSet(SetOptions{Path: path, Type: "uint16"})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Add(69))
	require.NoError(t, s.Add(1337))
	require.NoError(t, s.Remove(420))

	has, err := s.Has(69)
	require.NoError(t, err)
	require.True(t, has)

	has, err = s.Has(420)
	require.NoError(t, err)
	require.False(t, has)

	has, err = s.Has(1337)
	require.NoError(t, err)
	require.True(t, has)

	require.Equal(t, 2, s.Size())
}

func TestSet_AddIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.rowkv")
	s, err := OpenSet(SetOptions{Path: path, Type: "uint8"})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Add(5))
	require.NoError(t, s.Add(5))
	require.Equal(t, 1, s.Size())
}

func TestOpenSet_RequiresTypeOrMaxLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.rowkv")
	_, err := OpenSet(SetOptions{Path: path})
	require.ErrorIs(t, err, ErrConfig)
}

func TestOpenSet_StringValuesWithMaxLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.rowkv")
	s, err := OpenSet(SetOptions{Path: path, MaxLength: ptrInt(16)})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Add("alice"))
	has, err := s.Has("alice")
	require.NoError(t, err)
	require.True(t, has)
}
