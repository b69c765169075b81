package rowkv

import "container/list"

// rowEntry is the payload stored in a rowCache's list element. keyBytes is
// the row's encoded key, needed to rebuild the on-disk row when the entry
// is flushed; row holds only the non-key columns, per the data model.
type rowEntry struct {
	keyBytes []byte
	keyStr   string
	row      Row
}

// rowCache is a bounded most-recently-used mapping from key to a row
// snapshot. Every entry is implicitly dirty relative to disk; eviction
// flushes it via rowStore.save.
type rowCache struct {
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

func newRowCache(capacity int) *rowCache {
	return &rowCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

func (c *rowCache) lookup(keyStr string) (Row, bool) {
	el, ok := c.entries[keyStr]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*rowEntry).row, true
}

func (c *rowCache) dropExact(keyStr string) {
	el, ok := c.entries[keyStr]
	if !ok {
		return
	}
	c.order.Remove(el)
	delete(c.entries, keyStr)
}

// rowStore combines the key index, the row cache, and the backing file
// into the load/save/write/remove operations the transaction controller
// drives. Every method assumes the caller already holds the table's
// global file lock.
type rowStore struct {
	schema *Schema
	file   *fileLayout
	index  *keyIndex
	cache  *rowCache
}

func newRowStore(schema *Schema, file *fileLayout, indexCacheCap, rowCacheCap int) *rowStore {
	return &rowStore{
		schema: schema,
		file:   file,
		index:  newKeyIndex(indexCacheCap, file),
		cache:  newRowCache(rowCacheCap),
	}
}

// load returns the row snapshot for keyBytes and whether it already
// existed. A miss returns a fresh snapshot populated with column defaults.
func (rs *rowStore) load(keyBytes []byte) (Row, bool, error) {
	keyStr := string(keyBytes)

	if row, ok := rs.cache.lookup(keyStr); ok {
		return cloneRow(row), true, nil
	}

	idx, err := rs.index.find(keyBytes, false)
	if err == ErrNotFound {
		return defaultRow(rs.schema), false, nil
	}
	if err != nil {
		return nil, false, err
	}

	buf := make([]byte, rs.schema.RowLength)
	if err := rs.file.readRow(idx, buf); err != nil {
		return nil, false, err
	}

	row := make(Row, len(rs.schema.NonKeyColumns()))
	for _, col := range rs.schema.NonKeyColumns() {
		v, err := read(buf, col.Type, int(col.Offset), col.Width)
		if err != nil {
			return nil, false, err
		}
		row[col.Name] = v
	}

	rs.insertCacheEntry(keyBytes, keyStr, cloneRow(row))
	return row, true, nil
}

// save builds a rowLength buffer from row, allocating a row index if
// necessary, and writes it at that index.
func (rs *rowStore) save(keyBytes []byte, row Row) error {
	buf := make([]byte, rs.schema.RowLength)
	// keyBytes is already the exact on-disk encoding computed by At(key).
	copy(buf[0:rs.schema.KeyWidth], keyBytes)

	for _, col := range rs.schema.NonKeyColumns() {
		v, ok := row[col.Name]
		if !ok {
			v = col.Default
		}
		write(buf, col.Type, v, int(col.Offset), col.Width)
	}

	idx, err := rs.index.find(keyBytes, true)
	if err != nil {
		return err
	}
	return rs.file.writeRow(idx, buf)
}

// write inserts or replaces row at the front of the row cache, flushing
// the tail entry via save on overflow. It touches the file for the hot key
// itself only when the row cache's capacity is zero, in which case the row
// is saved directly.
func (rs *rowStore) write(keyBytes []byte, row Row) error {
	keyStr := string(keyBytes)
	rs.cache.dropExact(keyStr)
	return rs.insertCacheEntry(keyBytes, keyStr, cloneRow(row))
}

func (rs *rowStore) insertCacheEntry(keyBytes []byte, keyStr string, row Row) error {
	if rs.cache.capacity <= 0 {
		return rs.save(keyBytes, row)
	}

	el := rs.cache.order.PushFront(&rowEntry{keyBytes: keyBytes, keyStr: keyStr, row: row})
	rs.cache.entries[keyStr] = el

	if rs.cache.order.Len() > rs.cache.capacity {
		tail := rs.cache.order.Back()
		rs.cache.order.Remove(tail)
		entry := tail.Value.(*rowEntry)
		delete(rs.cache.entries, entry.keyStr)
		if err := rs.save(entry.keyBytes, entry.row); err != nil {
			return err
		}
	}
	return nil
}

// remove drops any cached entries for keyBytes and, if the row exists on
// disk, compacts it out via swap-with-last.
func (rs *rowStore) remove(keyBytes []byte) error {
	keyStr := string(keyBytes)
	rs.cache.dropExact(keyStr)
	rs.index.dropExact(keyStr)

	idx, err := rs.index.find(keyBytes, false)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	count := rs.file.rowCount()
	if count == 1 {
		if err := rs.file.setRowCount(0); err != nil {
			return err
		}
		return rs.file.truncate(rs.file.rowOffset(0))
	}

	lastIdx := count - 1
	if idx != lastIdx {
		buf := make([]byte, rs.schema.RowLength)
		if err := rs.file.readRow(lastIdx, buf); err != nil {
			return err
		}
		if err := rs.file.writeRow(idx, buf); err != nil {
			return err
		}
		// The former last row now lives at idx; drop its stale mapping.
		rs.index.dropExact(string(buf[:rs.schema.KeyWidth]))
	}
	if err := rs.file.truncate(rs.file.rowOffset(lastIdx)); err != nil {
		return err
	}
	return rs.file.setRowCount(count - 1)
}

// flushAll writes back every row cache entry, for use during Close.
func (rs *rowStore) flushAll() error {
	for el := rs.cache.order.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*rowEntry)
		if err := rs.save(entry.keyBytes, entry.row); err != nil {
			return err
		}
	}
	rs.cache.order.Init()
	rs.cache.entries = make(map[string]*list.Element)
	return nil
}

func cloneRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func defaultRow(schema *Schema) Row {
	row := make(Row, len(schema.NonKeyColumns()))
	for _, col := range schema.NonKeyColumns() {
		row[col.Name] = col.Default
	}
	return row
}
