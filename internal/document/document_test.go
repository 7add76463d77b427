package document

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.5, 0.5},
		{0, 0},
		{1, 1},
		{1.4, 1},
		{-0.2, 0},
		{100, 1},
	}
	for _, tt := range tests {
		if got := ClampConfidence(tt.in); got != tt.want {
			t.Errorf("ClampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")
	if err := os.WriteFile(path, []byte{0x89, 0x50, 0x4e, 0x47}, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	doc, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if doc.Filename != "shot.png" {
		t.Errorf("filename = %s", doc.Filename)
	}
	if doc.ContentType != "image/png" {
		t.Errorf("content type = %s", doc.ContentType)
	}
	if !doc.HasImages {
		t.Error("png should be flagged image-bearing")
	}
	if doc.Size != 4 {
		t.Errorf("size = %d", doc.Size)
	}
}

func TestFromFilePDFNotFlaggedAsImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	doc, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if doc.HasImages {
		t.Error("image detection inside PDFs is not derived from the extension")
	}
}

func TestFromFileMissing(t *testing.T) {
	if _, err := FromFile(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

// The wire shape the frontend consumes. Key names are part of the
// contract and must not drift with refactors.
func TestResultJSONKeys(t *testing.T) {
	res := Result{
		FileID:          "abc",
		Filename:        "a.pdf",
		FileSize:        1,
		FileType:        "application/pdf",
		Category:        "invoice",
		ConfidenceScore: 0.9,
		Entities:        []Entity{},
		Dates:           []string{},
		Tables:          []TableBlock{},
		Status:          "COMPLETED",
	}
	b, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, key := range []string{
		`"fileId"`, `"filename"`, `"fileSize"`, `"fileType"`, `"category"`,
		`"confidenceScore"`, `"entities"`, `"dates"`, `"tables"`, `"status"`,
	} {
		if !strings.Contains(s, key) {
			t.Errorf("serialized result missing %s: %s", key, s)
		}
	}
	if strings.Contains(s, `"message"`) {
		t.Error("empty message should be omitted")
	}
}
