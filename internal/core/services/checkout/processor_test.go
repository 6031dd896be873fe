package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/domain"
	apperrors "github.com/CacconeLabYale/TsetseCheckout/internal/pkg/errors"
)

// mockRequestStore records inserted batches and assigns ids like the
// database would.
type mockRequestStore struct {
	inserted [][]*domain.CheckoutRequest
	err      error
}

func (m *mockRequestStore) InsertBatch(_ context.Context, requests []*domain.CheckoutRequest) error {
	if m.err != nil {
		return m.err
	}
	for _, req := range requests {
		req.ID = uuid.New()
	}
	m.inserted = append(m.inserted, requests)
	return nil
}

func (m *mockRequestStore) totalInserted() int {
	total := 0
	for _, batch := range m.inserted {
		total += len(batch)
	}
	return total
}

// mockNotifier captures every notification handed to it.
type mockNotifier struct {
	notifications []BatchNotification
	err           error
}

func (m *mockNotifier) NotifyBatchProcessed(_ context.Context, n BatchNotification) error {
	m.notifications = append(m.notifications, n)
	return m.err
}

func testProcessor(t *testing.T, store RequestStore, notifier Notifier) *Processor {
	t.Helper()

	users := &mockUserDirectory{usernames: map[string]bool{"gdunn": true}}
	availability := &mockAvailability{taken: map[string]bool{}}
	return NewProcessor(testBuilder(t, users, availability), store, notifier, nil)
}

func sheetOf(rows ...RowValues) *Sheet {
	return &Sheet{Columns: ExpectedColumns(), Rows: rows}
}

func rowWithTube(tube string) RowValues {
	row := validRow()
	row[ColTubeNumber] = tube
	return row
}

func TestProcessor_Process_MissingColumns(t *testing.T) {
	store := &mockRequestStore{}
	notifier := &mockNotifier{}
	p := testProcessor(t, store, notifier)

	sheet := &Sheet{
		Columns: []string{ColToProduce, ColVillageSymbol},
		Rows:    []RowValues{validRow()},
	}

	_, err := p.Process(context.Background(), testRequester(), sheet, uuid.New())
	require.Error(t, err)

	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeMissingColumns, appErr.Code)
	assert.Contains(t, appErr.Message, ColCollectionMonth)

	assert.Zero(t, store.totalInserted(), "nothing may be written before the header check")
	assert.Empty(t, notifier.notifications)
}

func TestProcessor_Process_AllRowsValid(t *testing.T) {
	store := &mockRequestStore{}
	notifier := &mockNotifier{}
	p := testProcessor(t, store, notifier)

	uploadID := uuid.New()
	sheet := sheetOf(rowWithTube("101"), rowWithTube("102"), rowWithTube("103"))

	result, err := p.Process(context.Background(), testRequester(), sheet, uploadID)
	require.NoError(t, err)

	assert.True(t, result.Passed)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, 3, store.totalInserted())
	require.Len(t, store.inserted, 1, "the batch is committed as one unit")

	for i, row := range result.Rows {
		assert.Equal(t, i+1, row.Line)
		assert.Empty(t, row.Failures)
		assert.Equal(t, uploadID, *row.Request.UploadID)
	}

	require.Len(t, notifier.notifications, 1)
	n := notifier.notifications[0]
	assert.True(t, n.Passed)
	assert.Equal(t, "gdunn@example.edu", n.Recipient)
	assert.Equal(t, "gdunn", n.Username)
	require.Len(t, n.Rows, 3)
	for _, summary := range n.Rows {
		assert.NotEmpty(t, summary.RequestID)
		assert.Empty(t, summary.Failures)
	}
}

func TestProcessor_Process_OneBadRowRejectsBatch(t *testing.T) {
	store := &mockRequestStore{}
	notifier := &mockNotifier{}
	p := testProcessor(t, store, notifier)

	bad := rowWithTube("104")
	bad[ColTissueType] = "gizzard"
	sheet := sheetOf(rowWithTube("101"), rowWithTube("102"), bad, rowWithTube("105"), rowWithTube("106"))

	result, err := p.Process(context.Background(), testRequester(), sheet, uuid.New())
	require.NoError(t, err)

	assert.False(t, result.Passed)
	require.Len(t, result.Rows, 5, "every row is reported even when the batch fails")
	assert.Zero(t, store.totalInserted(), "a single failing row keeps the whole batch out")

	assert.Empty(t, result.Rows[0].Failures)
	assert.Contains(t, result.Rows[2].Failures, ColTissueType)

	require.Len(t, notifier.notifications, 1)
	n := notifier.notifications[0]
	assert.False(t, n.Passed)
	require.Len(t, n.Rows, 5)
	assert.Empty(t, n.Rows[0].RequestID, "no ids are reported for an uncommitted batch")
	assert.Contains(t, n.Rows[2].Failures, ColTissueType)
}

func TestProcessor_Process_SkipsRepeatedHeaderRows(t *testing.T) {
	store := &mockRequestStore{}
	notifier := &mockNotifier{}
	p := testProcessor(t, store, notifier)

	header := make(RowValues)
	for _, col := range ExpectedColumns() {
		header[col] = col
	}
	sheet := sheetOf(rowWithTube("101"), header, rowWithTube("102"))

	result, err := p.Process(context.Background(), testRequester(), sheet, uuid.New())
	require.NoError(t, err)

	assert.True(t, result.Passed)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, 1, result.Rows[0].Line)
	assert.Equal(t, 2, result.Rows[1].Line)
	assert.Equal(t, 2, store.totalInserted())
}

func TestProcessor_Process_DuplicateTupleWithinSheet(t *testing.T) {
	store := &mockRequestStore{}
	notifier := &mockNotifier{}
	p := testProcessor(t, store, notifier)

	sheet := sheetOf(rowWithTube("101"), rowWithTube("101"))

	result, err := p.Process(context.Background(), testRequester(), sheet, uuid.New())
	require.NoError(t, err)

	assert.False(t, result.Passed)
	assert.Empty(t, result.Rows[0].Failures)
	require.Contains(t, result.Rows[1].Failures, ColTubeNumber)
	assert.Contains(t, result.Rows[1].Failures[ColTubeNumber], "line 1")
	assert.Zero(t, store.totalInserted())
}

func TestProcessor_Process_StoreErrorPropagates(t *testing.T) {
	store := &mockRequestStore{err: errors.New("deadlock detected")}
	notifier := &mockNotifier{}
	p := testProcessor(t, store, notifier)

	_, err := p.Process(context.Background(), testRequester(), sheetOf(rowWithTube("101")), uuid.New())
	require.Error(t, err)
	assert.Empty(t, notifier.notifications, "no confirmation goes out for an undecided batch")
}

func TestProcessor_Process_NotifierErrorDoesNotFailBatch(t *testing.T) {
	store := &mockRequestStore{}
	notifier := &mockNotifier{err: errors.New("redis: connection refused")}
	p := testProcessor(t, store, notifier)

	result, err := p.Process(context.Background(), testRequester(), sheetOf(rowWithTube("101")), uuid.New())
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 1, store.totalInserted())
}
