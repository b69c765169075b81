package rowkv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	schema, err := resolveSchema("k", []ColumnDecl{
		{Name: "k", MaxLength: ptrInt(8)},
		{Name: "v", Type: "uint32"},
	})
	require.NoError(t, err)
	return schema
}

func TestOpenFileLayout_CreatesFileWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.rowkv")
	schema := testSchema(t)

	fl, err := openFileLayout(NewReal(), path, schema)
	require.NoError(t, err)
	defer fl.close()

	require.Equal(t, uint32(0), fl.rowCount())
	require.Equal(t, int64(len(schema.Preamble))+4, fl.dataOffset)
}

func TestOpenFileLayout_ReopensAndPreservesRowCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.rowkv")
	schema := testSchema(t)

	fl, err := openFileLayout(NewReal(), path, schema)
	require.NoError(t, err)
	require.NoError(t, fl.setRowCount(3))
	require.NoError(t, fl.close())

	fl2, err := openFileLayout(NewReal(), path, schema)
	require.NoError(t, err)
	defer fl2.close()
	require.Equal(t, uint32(3), fl2.rowCount())
}

func TestOpenFileLayout_SchemaMismatchOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.rowkv")
	schema := testSchema(t)

	fl, err := openFileLayout(NewReal(), path, schema)
	require.NoError(t, err)
	require.NoError(t, fl.close())

	otherSchema, err := resolveSchema("k", []ColumnDecl{
		{Name: "k", MaxLength: ptrInt(8)},
		{Name: "v", Type: "uint16"},
	})
	require.NoError(t, err)

	_, err = openFileLayout(NewReal(), path, otherSchema)
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestFileLayout_RowReadWrite(t *testing.T) {
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

	buf := make([]byte, schema.RowLength)
	require.NoError(t, fl.readRow(0, buf))
	require.Equal(t, row0, buf)

	keyBuf := make([]byte, schema.KeyWidth)
	require.NoError(t, fl.readKey(1, keyBuf))
	require.Equal(t, row1[:schema.KeyWidth], keyBuf)
}

func TestFileLayout_Truncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.rowkv")
	schema := testSchema(t)

	fl, err := openFileLayout(NewReal(), path, schema)
	require.NoError(t, err)
	defer fl.close()

	require.NoError(t, fl.setRowCount(1))
	require.NoError(t, fl.writeRow(0, make([]byte, schema.RowLength)))
	require.NoError(t, fl.truncate(fl.rowOffset(0)))

	info, err := NewReal().Stat(path)
	require.NoError(t, err)
	require.Equal(t, fl.rowOffset(0), info.Size())
}
