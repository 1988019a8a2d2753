package database

import (
	"io/fs"
	"strings"
	"testing"
)

func TestSchemaIsEmbedded(t *testing.T) {
	files, err := fs.Glob(schemaFS, "schema/*.sql")
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migrations embedded")
	}

	for _, name := range files {
		data, err := fs.ReadFile(schemaFS, name)
		if err != nil {
			t.Fatalf("failed to read %s: %v", name, err)
		}
		if !strings.Contains(string(data), "-- +goose Up") {
			t.Errorf("%s has no goose Up annotation", name)
		}
		if !strings.Contains(string(data), "-- +goose Down") {
			t.Errorf("%s has no goose Down annotation", name)
		}
	}
}

func TestNewPoolRejectsBadURL(t *testing.T) {
	_, err := NewPool(t.Context(), PoolConfig{DatabaseURL: "postgres://%zz"})
	if err == nil {
		t.Fatal("expected error for malformed database URL")
	}
}
