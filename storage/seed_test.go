package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseSeed(t *testing.T) {
	cols, err := ParseSeed([]byte("columns:\n  - name: Backlog\n  - name: \" Review \"\n    position: 5\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cols) != 2 || cols[0].Name != "Backlog" || cols[1].Name != "Review" || *cols[1].Position != 5 {
		t.Fatalf("unexpected columns: %#v", cols)
	}
}

func TestParseSeedRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: "columns: []\n"},
		{name: "blank name", data: "columns:\n  - name: \"  \"\n"},
		{name: "not yaml", data: "columns: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSeed([]byte(tt.data)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadSeedDefaults(t *testing.T) {
	cols, err := LoadSeed("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cols) != 3 || cols[0].Name != "To Do" || cols[2].Name != "Done" {
		t.Fatalf("unexpected defaults: %#v", cols)
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.yaml")
	if err := os.WriteFile(path, []byte("columns:\n  - name: Only\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cols, err := LoadSeed(path)
	if err != nil || len(cols) != 1 || cols[0].Name != "Only" {
		t.Fatalf("unexpected result: %#v %v", cols, err)
	}
	if _, err := LoadSeed(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSeedCreatesColumnsOnce(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	n, err := Seed(ctx, repo, DefaultColumns())
	if err != nil || n != 3 {
		t.Fatalf("seed: n=%d err=%v", n, err)
	}
	cols, _ := repo.ListColumns(ctx)
	if len(cols) != 3 || cols[0].Name != "To Do" || cols[1].Name != "In Progress" || cols[1].Position != 1 {
		t.Fatalf("unexpected columns: %#v", cols)
	}

	n, err = Seed(ctx, repo, DefaultColumns())
	if err != nil || n != 0 {
		t.Fatalf("expected reseed to be skipped: n=%d err=%v", n, err)
	}
}
