// Package sources holds the static table of knowledge sources each
// specialist cites, keyed on a coarse symptom category.
package sources

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/koscakluka/huddle-core/core/conversations"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var defaultTable []byte

var (
	ErrEmptyTable       = errors.New("source table has no categories")
	ErrUnknownFallback  = errors.New("fallback category is not defined")
	ErrUnsupportedTable = errors.New("unsupported source table format")
)

// Rule decides whether a case belongs to a category. It matches when any
// keyword occurs in the lowercased case text, or when every keyword of one
// of the All groups does.
type Rule struct {
	Any []string   `yaml:"any,omitempty" toml:"any,omitempty"`
	All [][]string `yaml:"all,omitempty" toml:"all,omitempty"`
}

func (r Rule) Matches(text string) bool {
	text = strings.ToLower(text)
	for _, keyword := range r.Any {
		if strings.Contains(text, strings.ToLower(keyword)) {
			return true
		}
	}
	for _, group := range r.All {
		if len(group) == 0 {
			continue
		}
		matched := true
		for _, keyword := range group {
			if !strings.Contains(text, strings.ToLower(keyword)) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

type Category struct {
	Name    string                            `yaml:"name" toml:"name"`
	Match   Rule                              `yaml:"match,omitempty" toml:"match,omitempty"`
	Sources map[string][]conversations.Source `yaml:"sources" toml:"sources"`
}

type Table struct {
	Fallback   string     `yaml:"fallback" toml:"fallback"`
	Categories []Category `yaml:"categories" toml:"categories"`
}

// Default returns the built-in table.
func Default() *Table {
	table, err := ParseYAML(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("sources: built-in table is invalid: %v", err))
	}
	return table
}

func ParseYAML(data []byte) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyTable
	}
	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("sources: decode yaml: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

func ParseTOML(data []byte) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyTable
	}
	var table Table
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("sources: decode toml: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// LoadFile reads a table from a .yaml, .yml or .toml file.
func LoadFile(path string) (*Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sources: read %s: %w", path, err)
	}

	var table *Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		table, err = ParseYAML(content)
	case ".toml":
		table, err = ParseTOML(content)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTable, path)
	}
	if err != nil {
		return nil, fmt.Errorf("sources: %s: %w", path, err)
	}
	return table, nil
}

func (t *Table) Validate() error {
	if len(t.Categories) == 0 {
		return ErrEmptyTable
	}
	if t.Fallback != "" && t.category(t.Fallback) == nil {
		return fmt.Errorf("%w: %q", ErrUnknownFallback, t.Fallback)
	}
	return nil
}

// Category returns the name of the first category whose rule matches the
// case text, or the fallback.
func (t *Table) Category(text string) string {
	for _, category := range t.Categories {
		if category.Name == t.Fallback {
			continue
		}
		if category.Match.Matches(text) {
			return category.Name
		}
	}
	return t.Fallback
}

// Lookup returns the sources per role for the category the case text falls
// into. The result is a copy and may be modified freely.
func (t *Table) Lookup(text string) map[conversations.RoleID][]conversations.Source {
	bySpecialist := map[conversations.RoleID][]conversations.Source{}

	category := t.category(t.Category(text))
	if category == nil {
		return bySpecialist
	}
	for role, sources := range category.Sources {
		bySpecialist[conversations.RoleID(role)] = slices.Clone(sources)
	}
	return bySpecialist
}

func (t *Table) category(name string) *Category {
	for i := range t.Categories {
		if t.Categories[i].Name == name {
			return &t.Categories[i]
		}
	}
	return nil
}

// Union flattens per-role sources in the given role order, dropping exact
// duplicates.
func Union(bySpecialist map[conversations.RoleID][]conversations.Source, order []conversations.RoleID) []conversations.Source {
	union := []conversations.Source{}
	for _, role := range order {
		for _, source := range bySpecialist[role] {
			if !slices.Contains(union, source) {
				union = append(union, source)
			}
		}
	}
	return union
}
