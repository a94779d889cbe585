package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTable is returned when a table file parses but its content does
// not describe valid states and rows.
var ErrInvalidTable = errors.New("invalid action-value table")

// Row holds one score per action, in Actions order.
type Row [NumActions]float64

// Table maps state keys ("HIGH_NEW") to action scores.
type Table map[string]Row

// tableFile is the on-disk shape written by the offline trainer.
type tableFile struct {
	QTable map[string][]float64 `json:"q_table" yaml:"q_table"`
}

// DefaultTable scores each state's obvious action at 10 and the rest at 0.
func DefaultTable() Table {
	t := make(Table, 8)
	for _, s := range AllStates() {
		var row Row
		row[int(s.Bucket)] = 10.0
		t[s.Key()] = row
	}
	return t
}

// Clone returns an independent copy of t.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Keys returns the state keys in sorted order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadTable reads a table from a YAML (.yaml/.yml) or JSON file.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}
	return ParseTable(data, formatFor(path))
}

// ParseTable decodes a table in the given format ("yaml" or "json").
func ParseTable(data []byte, format string) (Table, error) {
	var file tableFile
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse yaml table: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse json table: %w", err)
		}
	}

	if len(file.QTable) == 0 {
		return nil, fmt.Errorf("%w: no q_table entries", ErrInvalidTable)
	}

	t := make(Table, len(file.QTable))
	for key, values := range file.QTable {
		if _, err := ParseStateKey(key); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
		}
		if len(values) != NumActions {
			return nil, fmt.Errorf("%w: state %s has %d scores, want %d", ErrInvalidTable, key, len(values), NumActions)
		}
		var row Row
		for i, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: state %s has non-finite score", ErrInvalidTable, key)
			}
			row[i] = v
		}
		t[key] = row
	}
	return t, nil
}

// MarshalFile renders t in the file format LoadTable reads.
func (t Table) MarshalFile(format string) ([]byte, error) {
	file := tableFile{QTable: make(map[string][]float64, len(t))}
	for k, row := range t {
		file.QTable[k] = append([]float64(nil), row[:]...)
	}
	if format == "yaml" {
		return yaml.Marshal(file)
	}
	return json.MarshalIndent(file, "", "  ")
}

func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
