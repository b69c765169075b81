package rowkv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireFileGuard_SecondAcquireFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.rowkv")

	g1, err := acquireFileGuard(path)
	require.NoError(t, err)
	defer g1.release()

	_, err = acquireFileGuard(path)
	require.ErrorIs(t, err, ErrAlreadyOpen)
}

func TestFileGuard_ReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.rowkv")

	g1, err := acquireFileGuard(path)
	require.NoError(t, err)
	require.NoError(t, g1.release())

	g2, err := acquireFileGuard(path)
	require.NoError(t, err)
	require.NoError(t, g2.release())
}

func TestFileGuard_ReleaseIsSafeOnNilAndDouble(t *testing.T) {
	var g *fileGuard
	require.NoError(t, g.release())

	path := filepath.Join(t.TempDir(), "t.rowkv")
	g2, err := acquireFileGuard(path)
	require.NoError(t, err)
	require.NoError(t, g2.release())
	require.NoError(t, g2.release())
}
