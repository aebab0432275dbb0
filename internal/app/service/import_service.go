package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/traceability-backend/internal/app/model"
	"github.com/ikkim/traceability-backend/internal/app/repository"
	apperrors "github.com/ikkim/traceability-backend/internal/errors"
	"github.com/ikkim/traceability-backend/internal/ingest"
	"github.com/ikkim/traceability-backend/pkg/logger"
	"github.com/ikkim/traceability-backend/pkg/redis"
)

const (
	DefaultChunkSize      = 100
	DefaultChunkPacing    = 100 * time.Millisecond
	DefaultErrorSampleCap = 10
	channelProgressEvery  = 50
)

type ImportKind string

const (
	ImportKindCodes    ImportKind = "codes"
	ImportKindChannels ImportKind = "channels"
)

// ImportSummary is returned to the caller once a batch finishes.
type ImportSummary struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	ImportID     string   `json:"importId,omitempty"`
	TotalCount   int      `json:"totalCount"`
	SuccessCount int      `json:"successCount"`
	ErrorCount   int      `json:"errorCount"`
	Errors       []string `json:"errors"`
	Cancelled    bool     `json:"cancelled,omitempty"`
}

// ImportProgress is a snapshot emitted while a batch runs.
type ImportProgress struct {
	ImportID  string     `json:"importId"`
	Kind      ImportKind `json:"kind"`
	Total     int        `json:"total"`
	Processed int        `json:"processed"`
	Success   int        `json:"success"`
	Failure   int        `json:"failure"`
	Done      bool       `json:"done"`
	Cancelled bool       `json:"cancelled"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ProgressStore persists snapshots so another request can poll them.
type ProgressStore interface {
	Save(ctx context.Context, importID string, progress ImportProgress) error
	Load(ctx context.Context, importID string) (*ImportProgress, error)
}

// RejectedInputError aborts a batch before any write: the input had rows
// missing required fields, or no valid rows at all.
type RejectedInputError struct {
	Message string
	Errors  []string
}

func (e *RejectedInputError) Error() string {
	return fmt.Sprintf("%s (%d rejected rows)", e.Message, len(e.Errors))
}

func (e *RejectedInputError) Unwrap() error {
	return apperrors.Validation(e.Message)
}

type ImportOptions struct {
	ChunkSize      int
	ChunkPacing    time.Duration
	ErrorSampleCap int
}

type ImportService interface {
	ImportCodes(ctx context.Context, importID string, src ingest.RowSource) (*ImportSummary, error)
	ImportChannels(ctx context.Context, importID string, src ingest.RowSource) (*ImportSummary, error)
	Progress(ctx context.Context, importID string) (*ImportProgress, error)
}

// ProgressPublisher pushes live snapshots to whoever watches an import;
// *websocket.Hub satisfies it.
type ProgressPublisher interface {
	Publish(importID string, data interface{})
}

type importService struct {
	store     repository.Store
	opts      ImportOptions
	progress  ProgressStore
	publisher ProgressPublisher
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewImportService builds the pipeline; progress and publisher may be nil.
func NewImportService(store repository.Store, opts ImportOptions, progress ProgressStore, publisher ProgressPublisher) ImportService {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkPacing < 0 {
		opts.ChunkPacing = 0
	}
	if opts.ErrorSampleCap <= 0 {
		opts.ErrorSampleCap = DefaultErrorSampleCap
	}
	return &importService{
		store:     store,
		opts:      opts,
		progress:  progress,
		publisher: publisher,
		sleep:     sleepContext,
	}
}

// ImportCodes provisions code pairs in fixed-size chunks, one bulk insert per
// chunk. A failed chunk fails all of its rows and the loop moves on.
func (s *importService) ImportCodes(ctx context.Context, importID string, src ingest.RowSource) (*ImportSummary, error) {
	records, err := s.validate(src, ingest.CodeSchema)
	if err != nil {
		return nil, err
	}

	run := s.newRun(importID, ImportKindCodes, len(records))
	logger.Info("Starting chunked code import", map[string]interface{}{
		"import_id":  importID,
		"total":      len(records),
		"chunk_size": s.opts.ChunkSize,
	})

	for start := 0; start < len(records); start += s.opts.ChunkSize {
		if start > 0 && s.opts.ChunkPacing > 0 {
			if err := s.sleep(ctx, s.opts.ChunkPacing); err != nil {
				run.cancel()
				break
			}
		}
		if ctx.Err() != nil {
			run.cancel()
			break
		}

		end := min(start+s.opts.ChunkSize, len(records))
		chunk := make([]model.TraceabilityCode, 0, end-start)
		for _, rec := range records[start:end] {
			chunk = append(chunk, model.TraceabilityCode{Code: rec["code"], DarkCode: rec["dark_code"]})
		}

		if err := s.store.Codes().BulkCreate(ctx, chunk); err != nil {
			run.fail(len(chunk), chunkErrorMessage(start, end, err))
			logger.Warn("Chunk import failed", map[string]interface{}{
				"import_id": importID,
				"chunk":     start/s.opts.ChunkSize + 1,
				"rows":      fmt.Sprintf("%d-%d", start+1, end),
				"error":     err.Error(),
			})
		} else {
			run.succeed(len(chunk))
		}
		s.report(ctx, run)
	}

	summary := run.finish(ctx, s)
	summary.Success = summary.ErrorCount == 0 && !summary.Cancelled
	summary.Message = fmt.Sprintf("导入完成 - 成功: %d 条, 失败: %d 条", summary.SuccessCount, summary.ErrorCount)
	return summary, nil
}

// ImportChannels links existing codes to products row by row; each row needs
// its own code lookup before the atomic create-or-reuse + link.
func (s *importService) ImportChannels(ctx context.Context, importID string, src ingest.RowSource) (*ImportSummary, error) {
	records, err := s.validate(src, ingest.ChannelSchema)
	if err != nil {
		return nil, err
	}

	run := s.newRun(importID, ImportKindChannels, len(records))
	logger.Info("Starting per-row channel import", map[string]interface{}{
		"import_id": importID,
		"total":     len(records),
	})

	for i, rec := range records {
		if ctx.Err() != nil {
			run.cancel()
			break
		}

		if err := s.linkChannel(ctx, rec); err != nil {
			run.fail(1, err.Error())
		} else {
			run.succeed(1)
		}

		if (i+1)%channelProgressEvery == 0 || i == len(records)-1 {
			s.report(ctx, run)
		}
	}

	summary := run.finish(ctx, s)
	summary.Success = true
	summary.Message = fmt.Sprintf("批量导入完成 - 成功: %d 条, 失败: %d 条", summary.SuccessCount, summary.ErrorCount)
	return summary, nil
}

func (s *importService) linkChannel(ctx context.Context, rec ingest.Record) error {
	codeValue, sku, distributor := rec["code"], rec["sku"], rec["distributor"]

	code, err := s.store.Codes().FindByCode(ctx, codeValue)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("明码 %s 不存在于溯源表中", codeValue)
		}
		return fmt.Errorf("检查明码 %s 错误: %s", codeValue, apperrors.ParseError(err).Message)
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		product, err := tx.Products().CreateOrIgnore(ctx, sku, model.ProductAttributes{})
		if err != nil {
			return err
		}
		return tx.Codes().LinkProduct(ctx, code.ID, product.ID, repository.SetDistributorTo(&distributor))
	})
	if err != nil {
		logger.Warn("Channel row failed", map[string]interface{}{
			"code":  codeValue,
			"sku":   sku,
			"error": err.Error(),
		})
		return fmt.Errorf("处理记录 %s 错误: %s", codeValue, apperrors.ParseError(err).Message)
	}
	return nil
}

func (s *importService) Progress(ctx context.Context, importID string) (*ImportProgress, error) {
	if s.progress == nil {
		return nil, apperrors.Precondition("未启用导入进度跟踪")
	}
	progress, err := s.progress.Load(ctx, importID)
	if errors.Is(err, redis.ErrProgressNotFound) {
		return nil, apperrors.NotFound("未找到导入进度")
	}
	return progress, err
}

// validate runs the all-or-nothing shape gate before any write.
func (s *importService) validate(src ingest.RowSource, schema ingest.Schema) ([]ingest.Record, error) {
	validated, err := ingest.Validate(src, schema)
	if err != nil {
		logger.Error("Failed to read import rows", err, map[string]interface{}{
			"schema": schema.Name,
		})
		return nil, apperrors.Parse(apperrors.MsgFileRead, err)
	}

	logger.Info("Import rows parsed", map[string]interface{}{
		"schema":  schema.Name,
		"valid":   len(validated.Records),
		"invalid": len(validated.Errors),
	})

	if len(validated.Errors) > 0 {
		return nil, &RejectedInputError{Message: apperrors.MsgCSVMalformed, Errors: validated.Errors}
	}
	if len(validated.Records) == 0 {
		return nil, &RejectedInputError{Message: apperrors.MsgCSVEmpty}
	}
	return validated.Records, nil
}

func (s *importService) report(ctx context.Context, run *importRun) {
	p := run.snapshot()
	logger.Info("Import progress", map[string]interface{}{
		"import_id": p.ImportID,
		"kind":      p.Kind,
		"processed": p.Processed,
		"total":     p.Total,
		"percent":   fmt.Sprintf("%.1f", float64(p.Processed)*100/float64(max(p.Total, 1))),
	})

	if p.ImportID == "" {
		return
	}
	if s.publisher != nil {
		s.publisher.Publish(p.ImportID, p)
	}
	if s.progress == nil {
		return
	}
	// Progress is advisory; a cancelled request still records its last state.
	if err := s.progress.Save(context.WithoutCancel(ctx), p.ImportID, p); err != nil {
		logger.Warn("Failed to save import progress", map[string]interface{}{
			"import_id": p.ImportID,
			"error":     err.Error(),
		})
	}
}

type importRun struct {
	progress  ImportProgress
	errors    []string
	sampleCap int
}

func (s *importService) newRun(importID string, kind ImportKind, total int) *importRun {
	return &importRun{
		progress:  ImportProgress{ImportID: importID, Kind: kind, Total: total},
		errors:    []string{},
		sampleCap: s.opts.ErrorSampleCap,
	}
}

func (r *importRun) succeed(n int) {
	r.progress.Processed += n
	r.progress.Success += n
}

func (r *importRun) fail(n int, msg string) {
	r.progress.Processed += n
	r.progress.Failure += n
	if len(r.errors) < r.sampleCap {
		r.errors = append(r.errors, msg)
	}
}

func (r *importRun) cancel() {
	r.progress.Cancelled = true
}

func (r *importRun) snapshot() ImportProgress {
	p := r.progress
	p.UpdatedAt = time.Now()
	return p
}

func (r *importRun) finish(ctx context.Context, s *importService) *ImportSummary {
	r.progress.Done = true
	s.report(ctx, r)

	logger.Info("Import finished", map[string]interface{}{
		"import_id": r.progress.ImportID,
		"kind":      r.progress.Kind,
		"success":   r.progress.Success,
		"failure":   r.progress.Failure,
		"cancelled": r.progress.Cancelled,
	})

	return &ImportSummary{
		ImportID:     r.progress.ImportID,
		TotalCount:   r.progress.Total,
		SuccessCount: r.progress.Success,
		ErrorCount:   r.progress.Failure,
		Errors:       r.errors,
		Cancelled:    r.progress.Cancelled,
	}
}

func chunkErrorMessage(start, end int, err error) string {
	if errors.Is(err, apperrors.ErrConflict) {
		return fmt.Sprintf("批次 %d-%d: 存在重复的明码或暗码", start, end)
	}
	return fmt.Sprintf("批次 %d-%d: %s", start, end, apperrors.ParseError(err).Message)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
