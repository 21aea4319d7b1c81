// ABOUTME: Tests for export and import functionality
// ABOUTME: Covers YAML backup format and markdown export

package storage

import (
	"context"
	"strings"
	"testing"
)

func TestExportToYAML(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.InsertLocation(ctx, sampleAt(41.8781, -87.6298, 0)); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	data, err := ExportToYAML(ctx, db)
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	yamlStr := string(data)
	if !strings.Contains(yamlStr, "version: \"1.0\"") {
		t.Error("missing version header")
	}
	if !strings.Contains(yamlStr, "tool: tracker") {
		t.Error("missing tool header")
	}
	if !strings.Contains(yamlStr, "exported_at:") {
		t.Error("missing exported_at header")
	}
	if !strings.Contains(yamlStr, "latitude: 41.8781") {
		t.Error("missing latitude")
	}
	if !strings.Contains(yamlStr, "longitude: -87.6298") {
		t.Error("missing longitude")
	}
}

func TestImportFromYAML_RoundTrip(t *testing.T) {
	src := testDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := src.InsertLocation(ctx, sampleAt(float64(i), float64(i), i)); err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
	}

	data, err := ExportToYAML(ctx, src)
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	dst := testDB(t)
	n, err := ImportFromYAML(ctx, dst, data)
	if err != nil {
		t.Fatalf("failed to import: %v", err)
	}
	if n != 3 {
		t.Errorf("imported %d, want 3", n)
	}

	want, _ := src.ListLocations(ctx)
	got, err := dst.ListLocations(ctx)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if !sameSamples(want, got) {
		t.Error("imported samples differ from source")
	}
}

func TestImportFromYAML_ReplacesExisting(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.InsertLocation(ctx, sampleAt(1, 1, 0)); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	data, err := ExportToYAML(ctx, db)
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	// Importing the same backup twice must not duplicate rows.
	if _, err := ImportFromYAML(ctx, db, data); err != nil {
		t.Fatalf("failed to import: %v", err)
	}
	n, _ := db.CountLocations(ctx)
	if n != 1 {
		t.Errorf("got %d rows, want 1", n)
	}
}

func TestImportFromYAML_WrongVersion(t *testing.T) {
	db := testDB(t)

	data := []byte("version: \"9.9\"\ntool: tracker\nlocations: []\n")
	if _, err := ImportFromYAML(context.Background(), db, data); err == nil {
		t.Error("expected error for unsupported version")
	}
}

func TestImportFromYAML_WrongTool(t *testing.T) {
	db := testDB(t)

	data := []byte("version: \"1.0\"\ntool: notes\nlocations: []\n")
	_, err := ImportFromYAML(context.Background(), db, data)
	if err == nil || !strings.Contains(err.Error(), "wrong tool") {
		t.Errorf("expected wrong tool error, got %v", err)
	}
}

func TestImportFromYAML_InvalidID(t *testing.T) {
	db := testDB(t)

	data := []byte(`version: "1.0"
tool: tracker
locations:
  - id: not-a-uuid
    latitude: 1
    longitude: 2
    timestamp: 1000
`)
	if _, err := ImportFromYAML(context.Background(), db, data); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestImportFromYAML_Malformed(t *testing.T) {
	db := testDB(t)

	if _, err := ImportFromYAML(context.Background(), db, []byte("{{not yaml")); err == nil {
		t.Error("expected parse error")
	}
}

func TestParseBackup_OldestFirst(t *testing.T) {
	data := []byte(`version: "1.0"
tool: tracker
locations:
  - id: 6ba7b810-9dad-11d1-80b4-00c04fd430c8
    latitude: 2
    longitude: 2
    timestamp: 2000
  - id: 6ba7b811-9dad-11d1-80b4-00c04fd430c8
    latitude: 1
    longitude: 1
    timestamp: 1000
`)
	samples, err := ParseBackup(data)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	if samples[0].Timestamp != 1000 {
		t.Errorf("expected oldest first, got timestamp %d", samples[0].Timestamp)
	}
}

func TestExportToMarkdown(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.InsertLocation(ctx, sampleAt(41.8781, -87.6298, 0)); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	data, err := ExportToMarkdown(ctx, db)
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	md := string(data)
	if !strings.Contains(md, "# Location Export") {
		t.Error("missing header")
	}
	if !strings.Contains(md, "| Time | Latitude | Longitude |") {
		t.Error("missing table header")
	}
	if !strings.Contains(md, "| 2024-12-14 15:00:00 | 41.878100 | -87.629800 |") {
		t.Errorf("missing row, got:\n%s", md)
	}
}

func TestExportToMarkdown_Empty(t *testing.T) {
	db := testDB(t)

	data, err := ExportToMarkdown(context.Background(), db)
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}
	if !strings.Contains(string(data), "No locations recorded.") {
		t.Error("expected empty message")
	}
}
