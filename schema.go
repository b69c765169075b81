package rowkv

import (
	"encoding/binary"
	"fmt"
)

// magic identifies a rowkv table file. It is always written in full; a
// file that starts with anything else is never a rowkv table.
var magic = [4]byte{0x0B, 0x0A, 0x0D, 0x0B}

// ColumnDecl is a caller's declaration of one column, as passed to Open in
// Options.Values.
type ColumnDecl struct {
	// Name is required and must be unique within a schema.
	Name string

	// Type is one of "string", "uint32", "int32", "uint16", "int16",
	// "uint8", "int8". Defaults to "string" when empty.
	Type string

	// MaxLength is the on-disk width in bytes for a string column,
	// including its 2-byte length prefix. Must be left nil for fixed-width
	// integer types; required for string columns that declare no Default.
	MaxLength *int

	// Default is the column's default value, substituted whenever a row
	// snapshot is missing this field. Must be nil for the key column.
	Default any
}

// Column is a resolved, on-disk column: the byte-exact layout rowkv uses
// once a table is open.
type Column struct {
	Name    string
	Type    ColumnType
	Width   uint16
	Default any
	Offset  uint16
	IsKey   bool
}

// Schema is the resolved, immutable layout of a table: column order, byte
// offsets, and the frozen preamble bytes used for the schema-compatibility
// check on reopen.
type Schema struct {
	Columns   []Column // key column first, then non-key columns in declaration order
	RowLength uint16
	KeyWidth  uint16

	Preamble      []byte // magic + NamesBlock + HeaderBlock + DefaultsBlock
	NamesBlock    []byte
	HeaderBlock   []byte
	DefaultsBlock []byte
}

// Key returns the schema's key column.
func (s *Schema) Key() Column { return s.Columns[0] }

// NonKeyColumns returns the schema's columns excluding the key column.
func (s *Schema) NonKeyColumns() []Column { return s.Columns[1:] }

// column looks up a resolved column by name.
func (s *Schema) column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// resolveSchema validates a caller's column declarations and computes the
// resolved, on-disk Schema: offsets, widths, and the frozen preamble bytes.
func resolveSchema(keyName string, decls []ColumnDecl) (*Schema, error) {
	if keyName == "" {
		return nil, fmt.Errorf("%w: key is required", ErrConfig)
	}
	if len(decls) == 0 {
		return nil, fmt.Errorf("%w: values must declare at least the key column", ErrConfig)
	}

	seen := make(map[string]struct{}, len(decls))
	var keyDecl *ColumnDecl
	var nonKeyDecls []ColumnDecl
	for i := range decls {
		d := decls[i]
		if d.Name == "" {
			return nil, fmt.Errorf("%w: column at position %d has an empty name", ErrConfig, i)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column name %q", ErrConfig, d.Name)
		}
		seen[d.Name] = struct{}{}

		if d.Name == keyName {
			keyDecl = &decls[i]
			continue
		}
		nonKeyDecls = append(nonKeyDecls, d)
	}
	if keyDecl == nil {
		return nil, fmt.Errorf("%w: key %q does not match any declared value", ErrConfig, keyName)
	}
	if keyDecl.Default != nil {
		return nil, fmt.Errorf("%w: key column %q must not declare a default", ErrConfig, keyName)
	}

	keyCol, err := resolveColumn(*keyDecl, true)
	if err != nil {
		return nil, err
	}

	columns := make([]Column, 0, len(decls))
	columns = append(columns, keyCol)

	offset := keyCol.Width
	for _, d := range nonKeyDecls {
		col, err := resolveColumn(d, false)
		if err != nil {
			return nil, err
		}
		col.Offset = offset
		offset += col.Width
		columns = append(columns, col)
	}
	columns[0].Offset = 0

	schema := &Schema{
		Columns:   columns,
		RowLength: offset,
		KeyWidth:  keyCol.Width,
	}
	schema.NamesBlock = buildNamesBlock(columns)
	schema.HeaderBlock = buildHeaderBlock(columns)
	schema.DefaultsBlock, err = buildDefaultsBlock(columns[1:])
	if err != nil {
		return nil, err
	}

	preamble := make([]byte, 0, 4+len(schema.NamesBlock)+len(schema.HeaderBlock)+len(schema.DefaultsBlock))
	preamble = append(preamble, magic[:]...)
	preamble = append(preamble, schema.NamesBlock...)
	preamble = append(preamble, schema.HeaderBlock...)
	preamble = append(preamble, schema.DefaultsBlock...)
	schema.Preamble = preamble

	return schema, nil
}

// resolveColumn resolves one declaration into its on-disk Column, applying
// the width/default rules from the data model.
func resolveColumn(d ColumnDecl, isKey bool) (Column, error) {
	typeName := d.Type
	if typeName == "" {
		typeName = "string"
	}
	t, err := typeIdOf(typeName)
	if err != nil {
		return Column{}, fmt.Errorf("column %q: %w", d.Name, err)
	}

	col := Column{Name: d.Name, Type: t, IsKey: isKey}

	if isFixedWidth(t) {
		if d.MaxLength != nil {
			return Column{}, fmt.Errorf("%w: column %q: fixed-width type %s must not declare maxLength", ErrConfig, d.Name, typeName)
		}
		col.Width = fixedWidth(t)
		if d.Default != nil {
			canon, err := canonicalize(t, d.Default)
			if err != nil {
				return Column{}, fmt.Errorf("column %q default: %w", d.Name, err)
			}
			if err := validate(t, col.Width, canon); err != nil {
				return Column{}, fmt.Errorf("column %q default: %w", d.Name, err)
			}
			col.Default = canon
		} else {
			col.Default = int64(0)
		}
		return col, nil
	}

	// Variable-width (string) column.
	switch {
	case d.MaxLength != nil:
		if *d.MaxLength < 2 {
			return Column{}, fmt.Errorf("%w: column %q: maxLength %d too small for length prefix", ErrConfig, d.Name, *d.MaxLength)
		}
		col.Width = uint16(*d.MaxLength)
	case d.Default != nil:
		s, ok := d.Default.(string)
		if !ok {
			return Column{}, fmt.Errorf("%w: column %q: string column default must be a string", ErrConfig, d.Name)
		}
		col.Width = uint16(len(s)) + 2
	default:
		return Column{}, fmt.Errorf("%w: column %q: string column requires maxLength or a default", ErrConfig, d.Name)
	}

	if isKey {
		col.Default = nil
	} else {
		canon, err := canonicalize(t, defaultOrEmpty(d.Default))
		if err != nil {
			return Column{}, fmt.Errorf("column %q default: %w", d.Name, err)
		}
		if err := validate(t, col.Width, canon); err != nil {
			return Column{}, fmt.Errorf("column %q default: %w", d.Name, err)
		}
		col.Default = canon
	}
	return col, nil
}

func defaultOrEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}

// buildNamesBlock encodes the names block: u16le payload length, then
// NUL-terminated UTF-8 column names in on-disk order.
func buildNamesBlock(columns []Column) []byte {
	var payload []byte
	for _, c := range columns {
		payload = append(payload, c.Name...)
		payload = append(payload, 0)
	}
	block := make([]byte, 2+len(payload))
	binary.LittleEndian.PutUint16(block, uint16(len(payload)))
	copy(block[2:], payload)
	return block
}

// buildHeaderBlock encodes the header block: u32le payload length, then per
// column a one-byte type id and a two-byte little-endian width.
func buildHeaderBlock(columns []Column) []byte {
	payload := make([]byte, 0, len(columns)*3)
	for _, c := range columns {
		payload = append(payload, byte(c.Type))
		w := make([]byte, 2)
		binary.LittleEndian.PutUint16(w, c.Width)
		payload = append(payload, w...)
	}
	block := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(block, uint32(len(payload)))
	copy(block[4:], payload)
	return block
}

// buildDefaultsBlock encodes the non-key columns' default bytes,
// concatenated at their declared widths in on-disk order.
func buildDefaultsBlock(nonKey []Column) ([]byte, error) {
	var out []byte
	for _, c := range nonKey {
		buf := make([]byte, c.Width)
		write(buf, c.Type, c.Default, 0, c.Width)
		out = append(out, buf...)
	}
	return out, nil
}

// parseNamesBlock decodes a names block payload (without its length
// prefix) into ordered column names.
func parseNamesBlock(payload []byte) []string {
	var names []string
	start := 0
	for i, b := range payload {
		if b == 0 {
			names = append(names, string(payload[start:i]))
			start = i + 1
		}
	}
	return names
}
