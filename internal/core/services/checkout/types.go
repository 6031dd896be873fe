package checkout

import (
	"context"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/domain"
)

// Recognized spreadsheet columns. The set is closed: a column name outside
// this list is ignored by the aggregator rather than copied through.
const (
	ColToProduce       = "to_produce"
	ColVillageSymbol   = "village_symbol"
	ColCollectionMonth = "collection_month"
	ColCollectionYear  = "collection_year"
	ColTissueType      = "tissue_type"
	ColTubeNumber      = "tube_number"
	ColNewBuilding     = "new_building"
	ColNewRoom         = "new_room"
	ColNewCryo         = "new_cryo"
)

// FieldUsername keys requester-identity failures in a failure map. It is not
// a spreadsheet column; the requester comes in through authentication.
const FieldUsername = "username"

// ExpectedColumns returns the columns every uploaded spreadsheet must name in
// its header row.
func ExpectedColumns() []string {
	return []string{
		ColToProduce,
		ColVillageSymbol,
		ColCollectionMonth,
		ColCollectionYear,
		ColTissueType,
		ColTubeNumber,
		ColNewBuilding,
		ColNewRoom,
		ColNewCryo,
	}
}

// RowValues holds one raw spreadsheet row keyed by column name.
type RowValues map[string]string

// Failures maps a field name to the message explaining why it failed
// validation. An empty map means the row passed.
type Failures map[string]string

// UserDirectory answers whether a username belongs to a registered user.
type UserDirectory interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// AvailabilityChecker answers whether a tube tuple is still free to claim.
type AvailabilityChecker interface {
	TubeAvailable(ctx context.Context, villageSymbol string, month, year, tubeNumber int) (bool, error)
}

// RequestStore persists a validated batch of checkout requests as one unit.
type RequestStore interface {
	InsertBatch(ctx context.Context, requests []*domain.CheckoutRequest) error
}

// Notifier delivers the per-batch confirmation to the requester. Delivery is
// asynchronous; the processor only hands over the frozen outcome list.
type Notifier interface {
	NotifyBatchProcessed(ctx context.Context, notification BatchNotification) error
}

// RowOutcome pairs a spreadsheet line with its aggregated request and any
// validation failures.
type RowOutcome struct {
	Line     int
	Request  *domain.CheckoutRequest
	Failures Failures
}

// BatchResult is the final decision for one processed spreadsheet.
type BatchResult struct {
	Passed bool
	Rows   []RowOutcome
}

// BatchNotification is the frozen per-row summary handed to the notifier.
type BatchNotification struct {
	Recipient string       `json:"recipient"`
	Username  string       `json:"username"`
	Passed    bool         `json:"passed"`
	Rows      []RowSummary `json:"rows"`
}

// RowSummary is one line of the confirmation message.
type RowSummary struct {
	Line      int      `json:"line"`
	RequestID string   `json:"request_id,omitempty"`
	Failures  Failures `json:"failures,omitempty"`
}

// Summarize flattens a batch result into per-row summaries. Request ids are
// only reported for a committed batch; an uncommitted one has no durable ids
// to hand out.
func Summarize(result *BatchResult) []RowSummary {
	summaries := make([]RowSummary, 0, len(result.Rows))
	for _, row := range result.Rows {
		summary := RowSummary{Line: row.Line}
		if result.Passed {
			summary.RequestID = row.Request.ID.String()
		}
		if len(row.Failures) > 0 {
			summary.Failures = row.Failures
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
