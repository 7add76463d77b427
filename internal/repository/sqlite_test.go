package repository

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/docintel/docintel/constants"
	"github.com/docintel/docintel/internal/common"
	"github.com/docintel/docintel/internal/document"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(fp string) document.ProcessingRecord {
	return document.ProcessingRecord{
		Fingerprint: fp,
		Filename:    "invoice.pdf",
		ContentType: "application/pdf",
		FileSize:    1234,
	}
}

func TestClaimProcessingFirstClaimWins(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	stale := time.Now().Add(-10 * time.Minute)

	claim, err := store.ClaimProcessing(ctx, testRecord("fp-1"), stale)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !claim.Claimed {
		t.Fatal("first claim should win")
	}

	rec, err := store.GetRecord(ctx, "fp-1")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if rec.Status != constants.StatusProcessing {
		t.Errorf("claimed record status = %s, want %s", rec.Status, constants.StatusProcessing)
	}
}

func TestClaimProcessingSecondClaimLoses(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	stale := time.Now().Add(-10 * time.Minute)

	if _, err := store.ClaimProcessing(ctx, testRecord("fp-1"), stale); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	claim, err := store.ClaimProcessing(ctx, testRecord("fp-1"), stale)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claim.Claimed {
		t.Fatal("second claim must lose while the first is in flight")
	}
	if claim.Existing == nil || claim.Existing.Status != constants.StatusProcessing {
		t.Errorf("loser should see the in-flight record, got %+v", claim.Existing)
	}
}

func TestClaimProcessingTerminalRecordNeverReclaimed(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	stale := time.Now().Add(time.Minute) // everything is "stale" under this bound

	if _, err := store.ClaimProcessing(ctx, testRecord("fp-1"), stale); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := store.UpdateStatus(ctx, "fp-1", constants.StatusCompleted, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}

	claim, err := store.ClaimProcessing(ctx, testRecord("fp-1"), stale)
	if err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	if claim.Claimed {
		t.Fatal("completed record must never be re-claimed")
	}
	if claim.Existing.Status != constants.StatusCompleted {
		t.Errorf("existing status = %s", claim.Existing.Status)
	}
}

func TestClaimProcessingReclaimsStaleProcessing(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.ClaimProcessing(ctx, testRecord("fp-1"), time.Now().Add(-10*time.Minute)); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// A staleBefore bound in the future marks the fresh claim as abandoned.
	claim, err := store.ClaimProcessing(ctx, testRecord("fp-1"), time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	if !claim.Claimed {
		t.Fatal("stale Processing record should be re-claimable")
	}
}

func TestUpdateStatusStoresErrorMessage(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.ClaimProcessing(ctx, testRecord("fp-1"), time.Now().Add(-10*time.Minute)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := store.UpdateStatus(ctx, "fp-1", constants.StatusFailed, "provider error: upstream overloaded"); err != nil {
		t.Fatalf("update: %v", err)
	}

	rec, err := store.GetRecord(ctx, "fp-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != constants.StatusFailed {
		t.Errorf("status = %s", rec.Status)
	}
	if rec.ErrorMessage != "provider error: upstream overloaded" {
		t.Errorf("error message = %q", rec.ErrorMessage)
	}
}

func TestUpdateStatusUnknownFingerprint(t *testing.T) {
	store := testStore(t)
	err := store.UpdateStatus(context.Background(), "missing", constants.StatusCompleted, "")
	if !common.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestGetRecordNotFound(t *testing.T) {
	store := testStore(t)
	_, err := store.GetRecord(context.Background(), "missing")
	if !common.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestBlobRoundtrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	content := []byte("INVOICE #123, Total $50")

	if _, err := store.ClaimProcessing(ctx, testRecord("fp-1"), time.Now().Add(-10*time.Minute)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := store.SaveBlob(ctx, "fp-1", content); err != nil {
		t.Fatalf("save blob: %v", err)
	}
	// Idempotent on re-save.
	if err := store.SaveBlob(ctx, "fp-1", content); err != nil {
		t.Fatalf("re-save blob: %v", err)
	}

	got, err := store.GetBlob(ctx, "fp-1")
	if err != nil {
		t.Fatalf("get blob: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("blob roundtrip mismatch: got %q", got)
	}
}

func TestGetBlobNotFound(t *testing.T) {
	store := testStore(t)
	_, err := store.GetBlob(context.Background(), "missing")
	if !common.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestExtractionLatestWins(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.ClaimProcessing(ctx, testRecord("fp-1"), time.Now().Add(-10*time.Minute)); err != nil {
		t.Fatalf("claim: %v", err)
	}

	first := &document.ExtractionRecord{
		Fingerprint: "fp-1",
		Category:    constants.Other,
		Confidence:  0.3,
		Entities:    []document.Entity{},
		Dates:       []string{},
		Tables:      []document.TableBlock{},
		ModelID:     "test/model",
	}
	second := &document.ExtractionRecord{
		Fingerprint: "fp-1",
		Category:    constants.Invoice,
		Confidence:  0.9,
		Entities:    []document.Entity{{Type: "merchant", Value: "ACME", Confidence: 0.95}},
		Dates:       []string{"2026-03-14"},
		Tables: []document.TableBlock{
			{Name: "items", Headers: []string{"desc", "amount"}, Rows: [][]string{{"widget", "50.00"}}},
		},
		ModelID: "test/model",
	}
	if err := store.PutExtraction(ctx, first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := store.PutExtraction(ctx, second); err != nil {
		t.Fatalf("put second: %v", err)
	}

	got, err := store.GetExtraction(ctx, "fp-1")
	if err != nil {
		t.Fatalf("get extraction: %v", err)
	}
	if got.Category != constants.Invoice || got.Confidence != 0.9 {
		t.Errorf("latest extraction not returned: %+v", got)
	}
	if len(got.Entities) != 1 || got.Entities[0].Value != "ACME" {
		t.Errorf("entities lost in roundtrip: %+v", got.Entities)
	}
	if len(got.Tables) != 1 || len(got.Tables[0].Rows) != 1 {
		t.Errorf("tables lost in roundtrip: %+v", got.Tables)
	}
}

func TestGetExtractionNotFound(t *testing.T) {
	store := testStore(t)
	_, err := store.GetExtraction(context.Background(), "missing")
	if !common.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestListCompleted(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	stale := time.Now().Add(-10 * time.Minute)

	// One completed, one failed, one still processing.
	for _, fp := range []string{"fp-done", "fp-failed", "fp-running"} {
		rec := testRecord(fp)
		if _, err := store.ClaimProcessing(ctx, rec, stale); err != nil {
			t.Fatalf("claim %s: %v", fp, err)
		}
	}
	ext := &document.ExtractionRecord{
		Fingerprint: "fp-done",
		Category:    constants.Invoice,
		Confidence:  0.9,
		Entities:    []document.Entity{},
		Dates:       []string{},
		Tables:      []document.TableBlock{},
		ModelID:     "test/model",
	}
	if err := store.PutExtraction(ctx, ext); err != nil {
		t.Fatalf("put extraction: %v", err)
	}
	if err := store.UpdateStatus(ctx, "fp-done", constants.StatusCompleted, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := store.UpdateStatus(ctx, "fp-failed", constants.StatusFailed, "boom"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	list, err := store.ListCompleted(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 completed document, got %d", len(list))
	}
	if list[0].Record.Fingerprint != "fp-done" {
		t.Errorf("listed fingerprint = %s", list[0].Record.Fingerprint)
	}
	if list[0].Extraction.Category != constants.Invoice {
		t.Errorf("listed category = %s", list[0].Extraction.Category)
	}
}

func TestOpenDispatchesOnScheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.db")
	store, err := Open(context.Background(), path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*SQLiteStore); !ok {
		t.Errorf("plain path should open the SQLite backend, got %T", store)
	}
}
