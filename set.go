package rowkv

import "fmt"

// SetOptions configures a Set opened with OpenSet.
type SetOptions struct {
	// Path is the set file's location on disk.
	Path string

	// Type is the stored value's column type. Defaults to "string".
	Type string

	// MaxLength is the stored value's on-disk width, for string values.
	MaxLength *int

	// IndexCache and IndexData are forwarded to the underlying table under
	// its own option names, per SPEC_FULL.md §9: the façade must not
	// rename them.
	IndexCache *int
	IndexData  *int

	// FS overrides the filesystem implementation. Defaults to Real{}.
	FS FS
}

// Set is a persistent set of values, implemented as a thin façade over a
// single-column Table whose one column, named "value", is also the key.
type Set struct {
	table *Table
}

// OpenSet creates or opens a set at opts.Path.
func OpenSet(opts SetOptions) (*Set, error) {
	if opts.Type == "" && opts.MaxLength == nil {
		return nil, fmt.Errorf("%w: set requires a type and/or a maxLength", ErrConfig)
	}
	colType := opts.Type
	if colType == "" {
		colType = "string"
	}
	t, err := Open(Options{
		Path:       opts.Path,
		Key:        "value",
		Values:     []ColumnDecl{{Name: "value", Type: colType, MaxLength: opts.MaxLength}},
		IndexCache: opts.IndexCache,
		IndexData:  opts.IndexData,
		FS:         opts.FS,
	})
	if err != nil {
		return nil, err
	}
	return &Set{table: t}, nil
}

// Has reports whether value is a member of the set.
func (s *Set) Has(value any) (bool, error) {
	at, err := s.table.At(value)
	if err != nil {
		return false, err
	}
	res := <-at(func(row Row, h *Handle) (any, error) {
		return h.Exists(), nil
	})
	if res.Err != nil {
		return false, res.Err
	}
	return res.Value.(bool), nil
}

// Add inserts value into the set. It is a no-op if value is already a
// member.
func (s *Set) Add(value any) error {
	at, err := s.table.At(value)
	if err != nil {
		return err
	}
	res := <-at(func(row Row, h *Handle) (any, error) {
		h.Confirm()
		return nil, nil
	})
	return res.Err
}

// Remove deletes value from the set. It is a no-op if value is not a
// member.
func (s *Set) Remove(value any) error {
	at, err := s.table.At(value)
	if err != nil {
		return err
	}
	res := <-at(func(row Row, h *Handle) (any, error) {
		h.Remove()
		return nil, nil
	})
	return res.Err
}

// Size returns the number of members in the set.
func (s *Set) Size() int { return s.table.Size() }

// Close flushes and releases the underlying table.
func (s *Set) Close() error { return s.table.Close() }
