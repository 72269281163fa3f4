package infra

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"

	"wordcraft/internal/sqlinline"
)

func TestExtractMarker(t *testing.T) {
	marker, body, err := extractMarker("\n  --sql 0b9c1c52-3c8e-4a6c-9d53-6f0b3a4f6a11\nSELECT 1\nFROM t")
	if err != nil {
		t.Fatalf("extractMarker() error: %v", err)
	}
	if marker != "0b9c1c52-3c8e-4a6c-9d53-6f0b3a4f6a11" {
		t.Fatalf("marker = %q", marker)
	}
	if body != "SELECT 1\nFROM t" {
		t.Fatalf("body = %q", body)
	}
}

func TestExtractMarkerRejects(t *testing.T) {
	for _, q := range []string{"", "SELECT 1", "--sql not-a-uuid\nSELECT 1", "-- sql 0b9c1c52-3c8e-4a6c-9d53-6f0b3a4f6a11\nSELECT 1"} {
		if _, _, err := extractMarker(q); err == nil {
			t.Fatalf("extractMarker(%q) error = nil, want error", q)
		}
	}
}

func TestEveryInlineStatementCarriesMarker(t *testing.T) {
	for i, q := range append(append([]string{}, sqlinline.Schema...), sqlinline.All...) {
		if _, _, err := extractMarker(q); err != nil {
			t.Fatalf("statement %d: %v\n%s", i, err, q)
		}
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("wrap: %w", pgx.ErrNoRows)) {
		t.Fatalf("IsNoRows(wrapped ErrNoRows) = false")
	}
	if IsNoRows(errors.New("other")) {
		t.Fatalf("IsNoRows(other) = true")
	}
}
