package rowkv

import (
	"bytes"
	"container/list"
)

// indexEntry is the payload stored in an indexCache's list element.
type indexEntry struct {
	key string
	idx uint32
}

// indexCache is a bounded most-recently-used mapping from key to row
// index. It is not independently synchronized: every caller already holds
// the table's global file lock while touching it.
type indexCache struct {
	capacity int
	order    *list.List // front = most recently used
	entries  map[string]*list.Element
}

func newIndexCache(capacity int) *indexCache {
	return &indexCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// lookup returns the cached row index for key, moving it to the front on a
// hit.
func (c *indexCache) lookup(key string) (uint32, bool) {
	el, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*indexEntry).idx, true
}

// touch inserts or updates key's row index at the front, evicting the tail
// entry if the cache is over capacity.
func (c *indexCache) touch(key string, idx uint32) {
	if c.capacity <= 0 {
		return
	}
	if el, ok := c.entries[key]; ok {
		el.Value.(*indexEntry).idx = idx
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&indexEntry{key: key, idx: idx})
	c.entries[key] = el
	if c.order.Len() > c.capacity {
		tail := c.order.Back()
		c.order.Remove(tail)
		delete(c.entries, tail.Value.(*indexEntry).key)
	}
}

// dropExact removes key's entry, if any.
func (c *indexCache) dropExact(key string) {
	el, ok := c.entries[key]
	if !ok {
		return
	}
	c.order.Remove(el)
	delete(c.entries, key)
}

// keyIndex resolves keys to row indices, consulting an indexCache first
// and falling back to a linear scan of the key column.
type keyIndex struct {
	cache *indexCache
	file  *fileLayout
}

func newKeyIndex(capacity int, file *fileLayout) *keyIndex {
	return &keyIndex{cache: newIndexCache(capacity), file: file}
}

// find resolves keyBytes to a row index.
//
// On a cache hit, the file is never touched. On a cache miss, it scans the
// key column from row 0 to rowCount-1. If the key is found, the index is
// cached and returned. If not found and create is false, ErrNotFound is
// returned. If not found and create is true, a new row index is allocated
// by incrementing the row count; the caller is responsible for
// initializing the row's bytes.
func (ki *keyIndex) find(keyBytes []byte, create bool) (uint32, error) {
	keyStr := string(keyBytes)
	if idx, ok := ki.cache.lookup(keyStr); ok {
		return idx, nil
	}

	buf := make([]byte, ki.file.schema.KeyWidth)
	n := ki.file.rowCount()
	for i := uint32(0); i < n; i++ {
		if err := ki.file.readKey(i, buf); err != nil {
			return 0, err
		}
		if bytes.Equal(buf, keyBytes) {
			ki.cache.touch(keyStr, i)
			return i, nil
		}
	}

	if !create {
		return 0, ErrNotFound
	}

	idx := n
	if err := ki.file.setRowCount(n + 1); err != nil {
		return 0, err
	}
	ki.cache.touch(keyStr, idx)
	return idx, nil
}

// dropExact removes keyStr's index cache entry, if any. Used by remove()
// to invalidate the caller's own mapping and the mapping of the row that
// compaction moved into the removed row's slot.
func (ki *keyIndex) dropExact(keyStr string) {
	ki.cache.dropExact(keyStr)
}
