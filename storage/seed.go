package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// SeedColumn is one column of a seed file.
type SeedColumn struct {
	Name     string `yaml:"name"`
	Position *int   `yaml:"position,omitempty"`
}

type seedFile struct {
	Columns []SeedColumn `yaml:"columns"`
}

// DefaultColumns is used when no seed file is configured.
func DefaultColumns() []SeedColumn {
	return []SeedColumn{{Name: "To Do"}, {Name: "In Progress"}, {Name: "Done"}}
}

// LoadSeed reads a YAML seed file of the form
//
//	columns:
//	  - name: To Do
//	  - name: Done
//	    position: 5
//
// An empty path yields DefaultColumns.
func LoadSeed(path string) ([]SeedColumn, error) {
	if path == "" {
		return DefaultColumns(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes and validates seed YAML.
func ParseSeed(data []byte) ([]SeedColumn, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if len(f.Columns) == 0 {
		return nil, fmt.Errorf("seed file lists no columns")
	}
	for i, c := range f.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("seed column %d: name is required", i)
		}
		if len(name) > 100 {
			return nil, fmt.Errorf("seed column %q: name longer than 100 characters", name)
		}
		f.Columns[i].Name = name
	}
	return f.Columns, nil
}

// Seed creates the given columns unless the board already has some. Columns
// without an explicit position take their index in the list. It returns the
// number of columns created.
func Seed(ctx context.Context, repo Repository, cols []SeedColumn) (int, error) {
	existing, err := repo.ListColumns(ctx)
	if err != nil {
		return 0, fmt.Errorf("list columns: %w", err)
	}
	if len(existing) > 0 {
		log.WithField("columns", len(existing)).Info("board already has columns; skipping seed")
		return 0, nil
	}
	for i, c := range cols {
		pos := i
		if c.Position != nil {
			pos = *c.Position
		}
		if _, err := repo.CreateColumn(ctx, c.Name, pos); err != nil {
			return i, fmt.Errorf("create column %q: %w", c.Name, err)
		}
		log.WithFields(log.Fields{"column": c.Name, "position": pos}).Debug("seeded column")
	}
	return len(cols), nil
}
