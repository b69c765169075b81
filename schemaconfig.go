package rowkv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

// configColumn is the on-disk JSONC representation of a ColumnDecl.
type configColumn struct {
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Default   any    `json:"default,omitempty"`
}

// configFile is the on-disk JSONC representation of Options, for
// OpenFromConfigFile/LoadOptions/SaveOptions.
type configFile struct {
	Path       string         `json:"path"`
	Key        string         `json:"key"`
	Values     []configColumn `json:"values"`
	IndexCache *int           `json:"indexCache,omitempty"`
	IndexData  *int           `json:"indexData,omitempty"`
}

// LoadOptions reads a JSONC schema description from path and returns the
// Options it describes. Comments in the file are allowed, matching the
// project's existing .tk.json convention.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return Options{}, fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %s: invalid JSONC: %v", ErrConfig, path, err)
	}

	var cf configFile
	if err := json.Unmarshal(standardized, &cf); err != nil {
		return Options{}, fmt.Errorf("%w: %s: invalid JSON: %v", ErrConfig, path, err)
	}

	if cf.Path == "" {
		return Options{}, fmt.Errorf("%w: %s: path is required", ErrConfig, path)
	}
	if cf.Key == "" {
		return Options{}, fmt.Errorf("%w: %s: key is required", ErrConfig, path)
	}

	values := make([]ColumnDecl, 0, len(cf.Values))
	for _, v := range cf.Values {
		values = append(values, ColumnDecl{
			Name:      v.Name,
			Type:      v.Type,
			MaxLength: v.MaxLength,
			Default:   v.Default,
		})
	}

	return Options{
		Path:       cf.Path,
		Key:        cf.Key,
		Values:     values,
		IndexCache: cf.IndexCache,
		IndexData:  cf.IndexData,
	}, nil
}

// OpenFromConfigFile loads Options from a JSONC schema file at path and
// opens the resulting table.
func OpenFromConfigFile(path string) (*Table, error) {
	opts, err := LoadOptions(path)
	if err != nil {
		return nil, err
	}
	return Open(opts)
}

// SaveOptions writes opts to path as formatted JSON, atomically.
func SaveOptions(path string, opts Options) error {
	cf := configFile{
		Path:       opts.Path,
		Key:        opts.Key,
		IndexCache: opts.IndexCache,
		IndexData:  opts.IndexData,
	}
	for _, v := range opts.Values {
		cf.Values = append(cf.Values, configColumn{
			Name:      v.Name,
			Type:      v.Type,
			MaxLength: v.MaxLength,
			Default:   v.Default,
		})
	}

	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", ErrConfig, path, err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIO, path, err)
	}
	return nil
}
