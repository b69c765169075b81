package rowkv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// fileLayout owns the open file handle for a table and translates row
// indices into byte offsets. It has no notion of keys or caching; that is
// layered on top by indexcache.go and rowcache.go.
type fileLayout struct {
	f          File
	schema     *Schema
	count      uint32
	dataOffset int64
}

// openFileLayout opens path if it exists, verifying its preamble against
// schema, or creates it if it does not.
func openFileLayout(fsys FS, path string, schema *Schema) (*fileLayout, error) {
	dataOffset := int64(len(schema.Preamble)) + 4

	exists, err := fileExists(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %q: %v", ErrIO, path, err)
	}

	if !exists {
		initial := make([]byte, dataOffset)
		copy(initial, schema.Preamble)
		// Row count starts at zero; the trailing 4 bytes are already zero.
		if err := fsys.WriteFileAtomic(path, initial); err != nil {
			return nil, fmt.Errorf("%w: creating table file %q: %v", ErrIO, path, err)
		}
		f, err := fsys.OpenFile(path, os.O_RDWR, 0o644)
		if err != nil {
			return nil, fmt.Errorf("%w: opening table file %q: %v", ErrIO, path, err)
		}
		return &fileLayout{f: f, schema: schema, count: 0, dataOffset: dataOffset}, nil
	}

	f, err := fsys.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: opening table file %q: %v", ErrIO, path, err)
	}

	buf := make([]byte, dataOffset)
	n, err := f.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		_ = f.Close()
		return nil, fmt.Errorf("%w: reading preamble of %q: %v", ErrIO, path, err)
	}
	// A file shorter than the expected preamble was written with a
	// different schema.
	if n < len(schema.Preamble) || !bytes.Equal(buf[:len(schema.Preamble)], schema.Preamble) {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %q: on-disk preamble does not match the current schema", ErrSchemaMismatch, path)
	}
	if n < len(buf) {
		_ = f.Close()
		return nil, fmt.Errorf("%w: reading row count of %q: %v", ErrIO, path, err)
	}
	count := binary.LittleEndian.Uint32(buf[len(schema.Preamble):dataOffset])

	return &fileLayout{f: f, schema: schema, count: count, dataOffset: dataOffset}, nil
}

// rowOffset returns the absolute byte offset of row i.
func (fl *fileLayout) rowOffset(i uint32) int64 {
	return fl.dataOffset + int64(i)*int64(fl.schema.RowLength)
}

// readRow reads row i's rowLength bytes into buf.
func (fl *fileLayout) readRow(i uint32, buf []byte) error {
	if _, err := fl.f.ReadAt(buf[:fl.schema.RowLength], fl.rowOffset(i)); err != nil {
		return fmt.Errorf("%w: reading row %d: %v", ErrIO, i, err)
	}
	return nil
}

// writeRow writes buf (exactly rowLength bytes) to row i.
func (fl *fileLayout) writeRow(i uint32, buf []byte) error {
	if _, err := fl.f.WriteAt(buf[:fl.schema.RowLength], fl.rowOffset(i)); err != nil {
		return fmt.Errorf("%w: writing row %d: %v", ErrIO, i, err)
	}
	return nil
}

// readKey reads only the keyWidth bytes of row i's key column into buf.
func (fl *fileLayout) readKey(i uint32, buf []byte) error {
	if _, err := fl.f.ReadAt(buf[:fl.schema.KeyWidth], fl.rowOffset(i)); err != nil {
		return fmt.Errorf("%w: reading key of row %d: %v", ErrIO, i, err)
	}
	return nil
}

// rowCount returns the table's current row count.
func (fl *fileLayout) rowCount() uint32 { return fl.count }

// setRowCount persists a new row count at its fixed offset and updates the
// in-memory copy.
func (fl *fileLayout) setRowCount(n uint32) error {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, n)
	if _, err := fl.f.WriteAt(b, fl.dataOffset-4); err != nil {
		return fmt.Errorf("%w: persisting row count: %v", ErrIO, err)
	}
	fl.count = n
	return nil
}

// truncate shrinks the file to size bytes.
func (fl *fileLayout) truncate(size int64) error {
	if err := fl.f.Truncate(size); err != nil {
		return fmt.Errorf("%w: truncating to %d bytes: %v", ErrIO, size, err)
	}
	return nil
}

// close releases the underlying file handle.
func (fl *fileLayout) close() error {
	if err := fl.f.Close(); err != nil {
		return fmt.Errorf("%w: closing table file: %v", ErrIO, err)
	}
	return nil
}
