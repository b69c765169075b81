package rowkv

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Row is a mapping from non-key column name to its decoded value. Values
// are always a string (for string columns) or an int64 (for integer
// columns); a body may assign any Go integer type or a float64 with no
// fractional part, and it will be canonicalized to this representation
// before validation. The key column's value is not part of Row; it is
// supplied to At and carried out-of-band by the transaction controller.
type Row map[string]any

// TxBody is the function a caller submits to Table.At(key). It receives
// the row snapshot for that key and a control handle; whatever state the
// snapshot is in and whatever the handle's flags say when body returns is
// what gets persisted.
type TxBody func(row Row, h *Handle) (any, error)

// Result is delivered on the channel returned by a submitted transaction.
type Result struct {
	Value any
	Err   error
}

// Options configures a table opened with Open.
type Options struct {
	// Path is the table file's location on disk.
	Path string

	// Key names the column, among Values, that serves as the primary key.
	Key string

	// Values lists every column, including the key column, in the order
	// they should be declared. Non-key columns appear on disk in this
	// order after the key column.
	Values []ColumnDecl

	// IndexCache is the index cache's capacity. Defaults to 1024 when nil.
	// Zero disables caching but not correctness.
	IndexCache *int

	// IndexData is the row cache's capacity. Defaults to 64 when nil.
	IndexData *int

	// FS overrides the filesystem implementation. Defaults to Real{}.
	FS FS
}

const (
	defaultIndexCache = 1024
	defaultIndexData  = 64
)

// Table is an open row table: the transaction-controller façade over a
// schema, a backing file, the index and row caches, and the per-key /
// global-file locking discipline described in SPEC_FULL.md §5.
type Table struct {
	schema *Schema
	file   *fileLayout
	guard  *fileGuard

	fileMu sync.Mutex
	store  *rowStore

	keys *keyLocks

	closeMu sync.Mutex
	closed  bool
}

// Open creates or opens a table at opts.Path with the given schema.
func Open(opts Options) (*Table, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrConfig)
	}
	schema, err := resolveSchema(opts.Key, opts.Values)
	if err != nil {
		return nil, err
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = NewReal()
	}

	guard, err := acquireFileGuard(opts.Path)
	if err != nil {
		return nil, err
	}

	file, err := openFileLayout(fsys, opts.Path, schema)
	if err != nil {
		_ = guard.release()
		return nil, err
	}

	indexCacheCap := defaultIndexCache
	if opts.IndexCache != nil {
		indexCacheCap = *opts.IndexCache
	}
	rowCacheCap := defaultIndexData
	if opts.IndexData != nil {
		rowCacheCap = *opts.IndexData
	}

	t := &Table{
		schema: schema,
		file:   file,
		guard:  guard,
		store:  newRowStore(schema, file, indexCacheCap, rowCacheCap),
		keys:   newKeyLocks(),
	}
	registerForExitFlush(t)
	return t, nil
}

// At validates key against the key column's type and width and returns a
// submit function bound to it. The key façade surface is
// "t.At(key)(body)" in place of the source's "engine[k](body)" indexing
// sugar, which has no Go equivalent.
func (t *Table) At(key any) (func(TxBody) <-chan Result, error) {
	t.closeMu.Lock()
	closed := t.closed
	t.closeMu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	keyCol := t.schema.Key()
	keyBytes, _, err := encodeColumnValue(keyCol, key)
	if err != nil {
		return nil, err
	}
	return func(body TxBody) <-chan Result {
		return t.submit(keyBytes, body)
	}, nil
}

func (t *Table) submit(keyBytes []byte, body TxBody) <-chan Result {
	ch := make(chan Result, 1)
	keyStr := string(keyBytes)
	t.keys.enqueue(keyStr, func() {
		ch <- t.runTx(keyBytes, body)
	})
	return ch
}

func (t *Table) withFileLock(fn func() error) error {
	t.fileMu.Lock()
	defer t.fileMu.Unlock()
	return fn()
}

func (t *Table) runTx(keyBytes []byte, body TxBody) Result {
	var row Row
	var existed bool
	loadErr := t.withFileLock(func() error {
		var err error
		row, existed, err = t.store.load(keyBytes)
		return err
	})
	if loadErr != nil {
		return Result{Err: loadErr}
	}

	old := cloneRow(row)
	h := newHandle(existed)
	value, bodyErr := body(row, h)
	if bodyErr != nil {
		return Result{Value: value, Err: bodyErr}
	}

	if h.Removed() {
		if existed {
			if err := t.withFileLock(func() error { return t.store.remove(keyBytes) }); err != nil {
				return Result{Value: value, Err: err}
			}
		}
		return Result{Value: value}
	}

	dirty, err := normalizeAndDiff(t.schema, row, old)
	if err != nil {
		return Result{Value: value, Err: err}
	}

	if dirty || (!existed && h.Confirmed()) {
		if err := t.withFileLock(func() error { return t.store.write(keyBytes, row) }); err != nil {
			return Result{Value: value, Err: err}
		}
	}

	return Result{Value: value}
}

// normalizeAndDiff fills absent columns with their defaults, validates
// every non-key column in row against its type and width, drops any keys
// row carries that aren't schema columns, and reports whether the
// normalized row differs from old.
func normalizeAndDiff(schema *Schema, row, old Row) (bool, error) {
	for _, col := range schema.NonKeyColumns() {
		v, ok := row[col.Name]
		if !ok {
			v = col.Default
		}
		canon, err := canonicalize(col.Type, v)
		if err != nil {
			return false, fmt.Errorf("column %q: %w", col.Name, err)
		}
		if err := validate(col.Type, col.Width, canon); err != nil {
			return false, fmt.Errorf("column %q: %w", col.Name, err)
		}
		row[col.Name] = canon
	}
	for k := range row {
		if _, ok := schema.column(k); !ok {
			delete(row, k)
		}
	}
	return !reflect.DeepEqual(row, old), nil
}

// Size returns the table's current row count, including rows held in the
// row cache that have not yet been written to the file.
func (t *Table) Size() int {
	t.fileMu.Lock()
	defer t.fileMu.Unlock()
	n := int(t.file.rowCount())
	for el := t.store.cache.order.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*rowEntry)
		if _, err := t.store.index.find(entry.keyBytes, false); err == ErrNotFound {
			n++
		}
	}
	return n
}

// Close flushes every row cache entry to disk and releases the file
// handle. Repeated calls are a no-op.
func (t *Table) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	unregisterForExitFlush(t)

	flushErr := t.withFileLock(func() error { return t.store.flushAll() })
	closeErr := t.file.close()
	guardErr := t.guard.release()
	return errors.Join(flushErr, closeErr, guardErr)
}
