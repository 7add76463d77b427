// Package core owns the per-document processing state machine: claim,
// analyze, persist, and settle on a terminal status.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/docintel/docintel/constants"
	"github.com/docintel/docintel/internal/common"
	"github.com/docintel/docintel/internal/document"
	"github.com/docintel/docintel/internal/fingerprint"
	"github.com/docintel/docintel/internal/llm"
	"github.com/docintel/docintel/internal/repository"
)

// Options tunes a Processor. Zero values fall back to defaults.
type Options struct {
	TextModel     string
	VisionModel   string
	Timeout       time.Duration // covers both model calls and all their retries
	StaleAfter    time.Duration // Processing records older than this may be re-claimed
	MaxConcurrent int64         // cap on concurrently analyzed documents; 0 = default
	TextExtractor TextExtractor
}

// Processor coordinates fingerprinting, model selection, the two model
// calls, and persistence for one document at a time.
type Processor struct {
	logger      *slog.Logger
	invoker     llm.Invoker
	store       repository.Store
	textModel   string
	visionModel string
	timeout     time.Duration
	staleAfter  time.Duration
	sem         *semaphore.Weighted
	text        TextExtractor
}

func NewProcessor(logger *slog.Logger, invoker llm.Invoker, store repository.Store, opts Options) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TextModel == "" {
		opts.TextModel = "openai/gpt-4o-mini"
	}
	if opts.VisionModel == "" {
		opts.VisionModel = "openai/gpt-4o"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Minute
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 10 * time.Minute
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.TextExtractor == nil {
		opts.TextExtractor = PassthroughExtractor{}
	}
	return &Processor{
		logger:      logger,
		invoker:     invoker,
		store:       store,
		textModel:   opts.TextModel,
		visionModel: opts.VisionModel,
		timeout:     opts.Timeout,
		staleAfter:  opts.StaleAfter,
		sem:         semaphore.NewWeighted(opts.MaxConcurrent),
		text:        opts.TextExtractor,
	}
}

// Process runs the full flow for one upload. Analysis failures settle the
// record in Failed and come back as a best-effort "other" result, not as
// an error; the error return is reserved for storage-level trouble.
func (p *Processor) Process(ctx context.Context, doc document.Document) (document.Result, error) {
	doc.Fingerprint = fingerprint.Sum(doc.Content)
	doc.Size = int64(len(doc.Content))
	start := time.Now()

	p.logger.Info("process.start",
		"fingerprint", doc.Fingerprint,
		"filename", doc.Filename,
		"content_type", doc.ContentType,
		"size", doc.Size,
	)

	rec := document.ProcessingRecord{
		Fingerprint: doc.Fingerprint,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		FileSize:    doc.Size,
	}
	claim, err := p.store.ClaimProcessing(ctx, rec, time.Now().Add(-p.staleAfter))
	if err != nil {
		return document.Result{}, fmt.Errorf("claim processing: %w", err)
	}

	if !claim.Claimed {
		existing := claim.Existing
		switch existing.Status {
		case constants.StatusCompleted:
			// At-most-once: the stored result is returned unchanged, no
			// model calls.
			ext, err := p.store.GetExtraction(ctx, doc.Fingerprint)
			if err != nil {
				return document.Result{}, fmt.Errorf("load stored extraction: %w", err)
			}
			p.logger.Info("process.cache_hit", "fingerprint", doc.Fingerprint, "category", ext.Category)
			return resultFromExtraction(existing, ext), nil
		case constants.StatusFailed:
			p.logger.Info("process.prior_failure", "fingerprint", doc.Fingerprint)
			return failedResult(existing, "analysis previously failed for this document"), nil
		default:
			// Pending or Processing: someone else owns the analysis.
			p.logger.Info("process.in_flight", "fingerprint", doc.Fingerprint, "status", existing.Status)
			return processingResult(existing), nil
		}
	}

	res := p.analyze(ctx, doc)
	p.logger.Info("process.done",
		"fingerprint", doc.Fingerprint,
		"status", res.Status,
		"category", res.Category,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// analyze runs both model calls for a freshly claimed document and
// settles the record in a terminal state.
func (p *Processor) analyze(ctx context.Context, doc document.Document) document.Result {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return p.fail(ctx, doc, err, "analysis was canceled before it started")
	}
	defer p.sem.Release(1)

	// Bytes are persisted before any model call so the original stays
	// retrievable even when analysis fails.
	if err := p.store.SaveBlob(ctx, doc.Fingerprint, doc.Content); err != nil {
		return p.fail(ctx, doc, err, "storing the document failed")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	kind := llm.SelectModel(doc.ContentType, doc.HasImages)
	model := p.textModel
	if kind == llm.ModelVision {
		model = p.visionModel
	}

	payload, err := p.buildPayload(ctx, doc)
	if err != nil {
		return p.fail(ctx, doc, err, "preparing the document for analysis failed")
	}

	// The categorize and extract calls read the same input and neither
	// depends on the other, so they run concurrently.
	var catRaw, extRaw []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catRaw, err = p.invoker.CompleteJSON(gctx, model, llm.BuildCategorizePrompt(), payload, llm.ShapeCategory)
		return err
	})
	g.Go(func() error {
		var err error
		extRaw, err = p.invoker.CompleteJSON(gctx, model, llm.BuildExtractPrompt(), payload, llm.ShapeExtraction)
		return err
	})
	if err := g.Wait(); err != nil {
		return p.fail(ctx, doc, err, callerMessage(err))
	}

	var cr llm.CategoryResult
	if err := json.Unmarshal(catRaw, &cr); err != nil {
		return p.fail(ctx, doc, err, "the model returned an unusable category result")
	}
	var er llm.ExtractionResult
	if err := json.Unmarshal(extRaw, &er); err != nil {
		return p.fail(ctx, doc, err, "the model returned an unusable extraction result")
	}

	category, matched := constants.Canonicalize(cr.Category)
	if !matched {
		p.logger.Warn("process.category_overflow", "fingerprint", doc.Fingerprint, "reported", cr.Category)
	}
	ext := &document.ExtractionRecord{
		Fingerprint: doc.Fingerprint,
		Category:    category,
		Confidence:  document.ClampConfidence(cr.ConfidenceScore),
		Entities:    clampEntities(er.Entities),
		Dates:       notNil(er.Dates),
		Tables:      notNil(er.Tables),
		ModelID:     model,
		CreatedAt:   time.Now().UTC(),
	}

	// Status flips only after the extraction row is durably written.
	if err := p.store.PutExtraction(ctx, ext); err != nil {
		return p.fail(ctx, doc, err, "storing the analysis result failed")
	}
	if err := p.store.UpdateStatus(ctx, doc.Fingerprint, constants.StatusCompleted, ""); err != nil {
		return p.fail(ctx, doc, err, "finalizing the analysis failed")
	}

	rec := document.ProcessingRecord{
		Fingerprint: doc.Fingerprint,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		FileSize:    doc.Size,
		Status:      constants.StatusCompleted,
	}
	return resultFromExtraction(&rec, ext)
}

// fail settles the record in Failed with the detailed error and hands the
// caller a best-effort result with a short message. The analysis deadline
// may already be spent, so the status write gets its own context.
func (p *Processor) fail(ctx context.Context, doc document.Document, cause error, message string) document.Result {
	p.logger.Error("process.failed", "fingerprint", doc.Fingerprint, "error", cause)

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.store.UpdateStatus(sctx, doc.Fingerprint, constants.StatusFailed, cause.Error()); err != nil {
		p.logger.Error("process.fail_status_write_failed", "fingerprint", doc.Fingerprint, "error", err)
	}

	rec := document.ProcessingRecord{
		Fingerprint: doc.Fingerprint,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		FileSize:    doc.Size,
		Status:      constants.StatusFailed,
	}
	return failedResult(&rec, message)
}

// callerMessage maps an analysis error onto a short, actionable message.
// Raw vendor strings and stack traces stay in the logs and the record.
func callerMessage(err error) string {
	switch common.KindOf(err) {
	case common.KindTransient:
		return "the analysis provider is currently unavailable; try again later"
	case common.KindBadRequest:
		return "the analysis request was rejected; check the configured model"
	case common.KindSchema:
		return "the model could not produce a valid result for this document"
	default:
		return "analysis failed"
	}
}

func resultFromExtraction(rec *document.ProcessingRecord, ext *document.ExtractionRecord) document.Result {
	return document.Result{
		FileID:          rec.Fingerprint,
		Filename:        rec.Filename,
		FileSize:        rec.FileSize,
		FileType:        rec.ContentType,
		Category:        string(ext.Category),
		ConfidenceScore: ext.Confidence,
		Entities:        notNil(ext.Entities),
		Dates:           notNil(ext.Dates),
		Tables:          notNil(ext.Tables),
		Status:          string(constants.StatusCompleted),
	}
}

func failedResult(rec *document.ProcessingRecord, message string) document.Result {
	return document.Result{
		FileID:          rec.Fingerprint,
		Filename:        rec.Filename,
		FileSize:        rec.FileSize,
		FileType:        rec.ContentType,
		Category:        string(constants.Other),
		ConfidenceScore: 0,
		Entities:        []document.Entity{},
		Dates:           []string{},
		Tables:          []document.TableBlock{},
		Status:          string(constants.StatusFailed),
		Message:         message,
	}
}

func processingResult(rec *document.ProcessingRecord) document.Result {
	return document.Result{
		FileID:   rec.Fingerprint,
		Filename: rec.Filename,
		FileSize: rec.FileSize,
		FileType: rec.ContentType,
		Entities: []document.Entity{},
		Dates:    []string{},
		Tables:   []document.TableBlock{},
		Status:   string(constants.StatusProcessing),
		Message:  "analysis is in progress; retry shortly",
	}
}

func clampEntities(in []document.Entity) []document.Entity {
	out := make([]document.Entity, len(in))
	for i, e := range in {
		e.Confidence = document.ClampConfidence(e.Confidence)
		out[i] = e
	}
	return out
}

func notNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
