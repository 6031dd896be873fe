package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/domain"
	apperrors "github.com/CacconeLabYale/TsetseCheckout/internal/pkg/errors"
)

// Sheet is a parsed spreadsheet handed to the processor: the header columns
// and one RowValues per data row, in upload order.
type Sheet struct {
	Columns []string
	Rows    []RowValues
}

// Processor turns one uploaded spreadsheet into a batch decision. The batch
// is all-or-nothing: a single failing row keeps every row out of the
// database, and the requester is notified with the full per-row outcome
// either way.
type Processor struct {
	builder  *Builder
	store    RequestStore
	notifier Notifier
	logger   *slog.Logger
}

// NewProcessor creates a batch processor.
func NewProcessor(builder *Builder, store RequestStore, notifier Notifier, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		builder:  builder,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Process validates every row of the sheet and commits or rejects the whole
// batch. The header is checked before any row is touched; a missing expected
// column aborts with a configuration-style error. Returned errors are
// configuration or infrastructure problems; row-level validation failures
// live inside the BatchResult.
func (p *Processor) Process(ctx context.Context, requester *domain.User, sheet *Sheet, uploadID uuid.UUID) (*BatchResult, error) {
	if missing := missingColumns(sheet.Columns); len(missing) > 0 {
		return nil, apperrors.MissingColumns(missing)
	}

	now := time.Now().UTC()

	var rows []RowOutcome
	passed := true
	claimed := make(map[string]int) // tube tuple -> first claiming line
	line := 0

	for _, record := range sheet.Rows {
		// Producers sometimes repeat the header partway through a sheet.
		if record[ColToProduce] == ColToProduce {
			continue
		}
		line++

		row := make(RowValues, len(record))
		for _, col := range ExpectedColumns() {
			row[col] = record[col]
		}

		req, failures, err := p.builder.Build(ctx, requester, row, now)
		if err != nil {
			return nil, err
		}
		req.UploadID = &uploadID

		if len(failures) == 0 {
			key := tupleKey(req)
			if firstLine, dup := claimed[key]; dup {
				failures[ColTubeNumber] = fmt.Sprintf(
					"tube %d from %s %d/%d is already requested on line %d of this spreadsheet",
					req.TubeNumber, req.VillageSymbol, req.CollectionMonth, req.CollectionYear, firstLine)
				req.PassedValidation = false
			} else {
				claimed[key] = line
			}
		}

		if len(failures) > 0 {
			passed = false
		}
		rows = append(rows, RowOutcome{Line: line, Request: req, Failures: failures})
	}

	if passed && len(rows) > 0 {
		requests := make([]*domain.CheckoutRequest, 0, len(rows))
		for _, row := range rows {
			requests = append(requests, row.Request)
		}
		if err := p.store.InsertBatch(ctx, requests); err != nil {
			return nil, err
		}
	}

	result := &BatchResult{Passed: passed, Rows: rows}

	p.logger.Info("batch processed",
		slog.String("upload_id", uploadID.String()),
		slog.String("username", requester.Username),
		slog.Int("rows", len(rows)),
		slog.Bool("passed", passed))

	p.notify(ctx, requester, result)
	return result, nil
}

// notify hands the frozen outcome list to the notifier. Notification must
// not block or fail the batch decision, so enqueue errors are only logged.
func (p *Processor) notify(ctx context.Context, requester *domain.User, result *BatchResult) {
	notification := BatchNotification{
		Recipient: requester.Email,
		Username:  requester.Username,
		Passed:    result.Passed,
		Rows:      Summarize(result),
	}

	if err := p.notifier.NotifyBatchProcessed(ctx, notification); err != nil {
		p.logger.Error("failed to enqueue batch confirmation",
			slog.String("recipient", notification.Recipient),
			slog.Any("error", err))
	}
}

func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}

	var missing []string
	for _, col := range ExpectedColumns() {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func tupleKey(req *domain.CheckoutRequest) string {
	return fmt.Sprintf("%s|%d|%d|%d", req.VillageSymbol, req.CollectionMonth, req.CollectionYear, req.TubeNumber)
}
