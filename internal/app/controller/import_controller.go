package controller

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ikkim/traceability-backend/internal/app/service"
	apperrors "github.com/ikkim/traceability-backend/internal/errors"
	"github.com/ikkim/traceability-backend/internal/ingest"
	"github.com/ikkim/traceability-backend/internal/metrics"
	"github.com/ikkim/traceability-backend/internal/middleware"
)

const (
	uploadField   = "csvFile"
	importIDField = "import_id"
	maxImportID   = 64
)

// Archiver stores a copy of an uploaded import; *storage.ImportArchive
// satisfies it.
type Archiver interface {
	Archive(ctx context.Context, kind, filename string, data []byte) (string, error)
}

// ProgressStreamer upgrades a request into a live progress feed;
// *websocket.Hub satisfies it.
type ProgressStreamer interface {
	Serve(w http.ResponseWriter, r *http.Request, importID string) error
}

type ImportController struct {
	imports        service.ImportService
	archive        Archiver
	stream         ProgressStreamer
	metrics        *metrics.Metrics
	maxUploadBytes int64
}

// NewImportController wires the batch endpoints; archive, stream and m may be nil.
func NewImportController(imports service.ImportService, archive Archiver, stream ProgressStreamer, m *metrics.Metrics, maxUploadBytes int64) *ImportController {
	return &ImportController{
		imports:        imports,
		archive:        archive,
		stream:         stream,
		metrics:        m,
		maxUploadBytes: maxUploadBytes,
	}
}

type importRunner func(ctx context.Context, importID string, src ingest.RowSource) (*service.ImportSummary, error)

// BatchImportCodes provisions code pairs from a CSV or XLSX upload
// POST /api/batch-import-codes
func (ctrl *ImportController) BatchImportCodes(c *gin.Context) {
	ctrl.runImport(c, service.ImportKindCodes, ctrl.imports.ImportCodes)
}

// BatchImportProducts links codes to products and distributors from an upload
// POST /api/batch-import-products
func (ctrl *ImportController) BatchImportProducts(c *gin.Context) {
	ctrl.runImport(c, service.ImportKindChannels, ctrl.imports.ImportChannels)
}

func (ctrl *ImportController) runImport(c *gin.Context, kind service.ImportKind, run importRunner) {
	log := middleware.GetLoggerFromContext(c)

	if ctrl.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ctrl.maxUploadBytes)
	}

	file, header, err := c.Request.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperrors.BadRequest(c, "上传文件过大")
			return
		}
		apperrors.BadRequest(c, apperrors.MsgFileRequired)
		return
	}
	defer file.Close()

	importID := strings.TrimSpace(c.PostForm(importIDField))
	if len(importID) > maxImportID {
		apperrors.BadRequest(c, "import_id 过长")
		return
	}
	if importID == "" {
		importID = uuid.New().String()
	}

	var body io.Reader = file
	if ctrl.archive != nil {
		data, err := io.ReadAll(file)
		if err != nil {
			apperrors.RespondWithError(c, apperrors.Parse(apperrors.MsgFileRead, err))
			return
		}
		ctrl.archiveUpload(c, string(kind), header.Filename, data)
		body = bytes.NewReader(data)
	}

	src, err := ingest.Open(header.Filename, body)
	if err != nil {
		log.Warn("Failed to open import file", map[string]interface{}{
			"filename": header.Filename,
			"error":    err.Error(),
		})
		apperrors.RespondWithError(c, apperrors.Parse(apperrors.MsgFileRead, err))
		return
	}
	defer src.Close()

	log.Info("Batch import started", map[string]interface{}{
		"import_id": importID,
		"kind":      kind,
		"filename":  header.Filename,
		"size":      header.Size,
	})

	summary, err := run(c.Request.Context(), importID, src)
	if err != nil {
		var rejected *service.RejectedInputError
		if errors.As(err, &rejected) {
			apperrors.RespondWithErrors(c, http.StatusBadRequest, rejected.Message, rejected.Errors)
			return
		}
		apperrors.RespondWithError(c, err)
		return
	}

	ctrl.metrics.ObserveImport(string(kind), summary.SuccessCount, summary.ErrorCount)
	c.JSON(http.StatusOK, summary)
}

// archiveUpload is best effort; a failed upload never blocks the import.
func (ctrl *ImportController) archiveUpload(c *gin.Context, kind, filename string, data []byte) {
	log := middleware.GetLoggerFromContext(c)

	key, err := ctrl.archive.Archive(c.Request.Context(), kind, filename, data)
	if err != nil {
		log.Warn("Failed to archive import upload", map[string]interface{}{
			"filename": filename,
			"error":    err.Error(),
		})
		return
	}
	log.Info("Import upload archived", map[string]interface{}{
		"filename": filename,
		"key":      key,
	})
}

// GetProgress returns the latest snapshot of an import
// GET /api/import-progress/:id
func (ctrl *ImportController) GetProgress(c *gin.Context) {
	progress, err := ctrl.imports.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"progress": progress,
	})
}

// WatchProgress streams progress frames of an import over a websocket
// GET /api/import-progress/:id/ws
func (ctrl *ImportController) WatchProgress(c *gin.Context) {
	if ctrl.stream == nil {
		apperrors.RespondWithError(c, apperrors.Precondition("未启用实时进度推送"))
		return
	}

	importID := c.Param("id")
	if err := ctrl.stream.Serve(c.Writer, c.Request, importID); err != nil {
		// The upgrader has already answered the client.
		middleware.GetLoggerFromContext(c).Warn("Progress stream upgrade failed", map[string]interface{}{
			"import_id": importID,
			"error":     err.Error(),
		})
	}
}
