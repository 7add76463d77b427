package async

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docintel/docintel/constants"
	"github.com/docintel/docintel/internal/core"
	"github.com/docintel/docintel/internal/fingerprint"
	"github.com/docintel/docintel/internal/llm"
	"github.com/docintel/docintel/internal/repository"
)

type cannedInvoker struct{}

func (cannedInvoker) CompleteJSON(_ context.Context, _, _ string, _ llm.Payload, shape llm.Shape) ([]byte, error) {
	if shape == llm.ShapeCategory {
		return []byte(`{"category":"invoice","confidence_score":0.9,"reasoning":"totals"}`), nil
	}
	return []byte(`{"entities":[],"dates":[],"tables":[]}`), nil
}

func TestQueueProcessesFiles(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	store, err := repository.Open(context.Background(), filepath.Join(dir, "test.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	proc := core.NewProcessor(logger, cannedInvoker{}, store, core.Options{})

	contents := map[string]string{
		"a.txt": "INVOICE #123, Total $50",
		"b.txt": "INVOICE #456, Total $12",
	}
	q := NewQueue(proc, logger, WithWorkers(2), WithJobTimeout(30*time.Second))
	for name, body := range contents {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
		if err := q.Enqueue(context.Background(), Job{Path: path, SubmittedAt: time.Now()}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	for name, body := range contents {
		fp := fingerprint.Sum([]byte(body))
		rec, err := store.GetRecord(context.Background(), fp)
		if err != nil {
			t.Fatalf("record missing for %s: %v", name, err)
		}
		if rec.Status != constants.StatusCompleted {
			t.Errorf("%s status = %s", name, rec.Status)
		}
	}
}

func TestQueueEnqueueAfterShutdownIsDropped(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := repository.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	proc := core.NewProcessor(logger, cannedInvoker{}, store, core.Options{})

	q := NewQueue(proc, logger, WithWorkers(1))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	// Must not panic on a closed channel.
	if err := q.Enqueue(context.Background(), Job{Path: "late.txt"}); err != nil {
		t.Errorf("post-shutdown enqueue returned error: %v", err)
	}
	q.Shutdown(ctx) // idempotent
}
