package server

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docintel/docintel/constants"
	"github.com/docintel/docintel/internal/common"
	"github.com/docintel/docintel/internal/core"
	"github.com/docintel/docintel/internal/document"
	"github.com/docintel/docintel/internal/export"
	"github.com/docintel/docintel/internal/repository"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	proc           *core.Processor
	store          repository.Store
	exporter       *export.Service
	maxUploadBytes int64
	log            *slog.Logger
}

func NewHandler(proc *core.Processor, store repository.Store, exporter *export.Service, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 25 << 20
	}
	return &Handler{
		proc:           proc,
		store:          store,
		exporter:       exporter,
		maxUploadBytes: maxUploadBytes,
		log:            logger,
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Upload accepts a multipart file, runs the analysis flow inline, and
// returns the full result. Duplicate content comes back from storage
// without new model calls.
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "multipart field 'file' is required"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "could not open uploaded file"})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		h.log.Error("upload.read_failed", "filename", fileHeader.Filename, "error", err)
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": true, "message": "upload too large or unreadable"})
		return
	}

	doc := documentFromUpload(fileHeader.Filename, fileHeader.Header.Get("Content-Type"), content)
	result, err := h.proc.Process(c.Request.Context(), doc)
	if err != nil {
		h.log.Error("upload.process_failed", "filename", doc.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "analysis could not be started; try again"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetResult returns the stored outcome for a fingerprint.
func (h *Handler) GetResult(c *gin.Context) {
	fp := c.Param("id")

	rec, err := h.store.GetRecord(c.Request.Context(), fp)
	if common.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "unknown file id"})
		return
	}
	if err != nil {
		h.log.Error("result.lookup_failed", "fingerprint", fp, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, h.resultForRecord(c, rec))
}

// Download streams the original document bytes back.
func (h *Handler) Download(c *gin.Context) {
	fp := c.Param("id")

	rec, err := h.store.GetRecord(c.Request.Context(), fp)
	if common.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "unknown file id"})
		return
	}
	if err != nil {
		h.log.Error("download.lookup_failed", "fingerprint", fp, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "lookup failed"})
		return
	}

	content, err := h.store.GetBlob(c.Request.Context(), fp)
	if err != nil {
		h.log.Error("download.blob_failed", "fingerprint", fp, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "stored bytes unavailable"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+rec.Filename+`"`)
	c.Data(http.StatusOK, rec.ContentType, content)
}

// ExportXLSX returns a workbook of all completed extractions.
func (h *Handler) ExportXLSX(c *gin.Context) {
	b, err := h.exporter.CompletedXLSX(c.Request.Context())
	if err != nil {
		h.log.Error("export.failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="documents.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, b)
}

// resultForRecord reassembles the caller-visible result from stored state.
func (h *Handler) resultForRecord(c *gin.Context, rec *document.ProcessingRecord) document.Result {
	if rec.Status == constants.StatusCompleted {
		ext, err := h.store.GetExtraction(c.Request.Context(), rec.Fingerprint)
		if err == nil {
			return document.Result{
				FileID:          rec.Fingerprint,
				Filename:        rec.Filename,
				FileSize:        rec.FileSize,
				FileType:        rec.ContentType,
				Category:        string(ext.Category),
				ConfidenceScore: ext.Confidence,
				Entities:        ext.Entities,
				Dates:           ext.Dates,
				Tables:          ext.Tables,
				Status:          string(rec.Status),
			}
		}
		h.log.Error("result.extraction_missing", "fingerprint", rec.Fingerprint, "error", err)
	}

	res := document.Result{
		FileID:   rec.Fingerprint,
		Filename: rec.Filename,
		FileSize: rec.FileSize,
		FileType: rec.ContentType,
		Category: string(constants.Other),
		Entities: []document.Entity{},
		Dates:    []string{},
		Tables:   []document.TableBlock{},
		Status:   string(rec.Status),
	}
	if rec.ErrorMessage != "" {
		res.Message = "analysis failed for this document"
	}
	return res
}

// documentFromUpload fills declared metadata, falling back to the file
// extension when the part carries no content type.
func documentFromUpload(filename, declaredType string, content []byte) document.Document {
	doc := document.Document{
		Filename:    filename,
		ContentType: declaredType,
		Size:        int64(len(content)),
		Content:     content,
	}
	if doc.ContentType == "" || doc.ContentType == "application/octet-stream" {
		doc.ContentType = contentTypeFromName(filename)
	}
	if isImageType(doc.ContentType) {
		doc.HasImages = true
	}
	return doc
}
