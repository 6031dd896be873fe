package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/domain"
	"github.com/CacconeLabYale/TsetseCheckout/internal/core/services/checkout"
	apperrors "github.com/CacconeLabYale/TsetseCheckout/internal/pkg/errors"
)

// RequestStore is the persistence surface the checkout handlers need.
type RequestStore interface {
	InsertBatch(ctx context.Context, requests []*domain.CheckoutRequest) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CheckoutRequest, error)
	Approve(ctx context.Context, id uuid.UUID, at time.Time) (*domain.CheckoutRequest, error)
	UpdateSampleStatus(ctx context.Context, id uuid.UUID, status int) (*domain.CheckoutRequest, error)
}

// CheckoutHandler serves single-request submissions from the web form and
// request listings.
type CheckoutHandler struct {
	builder  *checkout.Builder
	requests RequestStore
	notifier checkout.Notifier
	logger   *slog.Logger
}

// NewCheckoutHandler creates the checkout endpoints handler.
func NewCheckoutHandler(builder *checkout.Builder, requests RequestStore, notifier checkout.Notifier, logger *slog.Logger) *CheckoutHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &CheckoutHandler{
		builder:  builder,
		requests: requests,
		notifier: notifier,
		logger:   logger,
	}
}

// createCheckoutPayload carries one form submission. Every field arrives as a
// raw string and goes through the same validators as a spreadsheet cell.
type createCheckoutPayload struct {
	ToProduce       string `json:"to_produce"`
	VillageSymbol   string `json:"village_symbol"`
	CollectionMonth string `json:"collection_month"`
	CollectionYear  string `json:"collection_year"`
	TissueType      string `json:"tissue_type"`
	TubeNumber      string `json:"tube_number"`
	NewBuilding     string `json:"new_building"`
	NewRoom         string `json:"new_room"`
	NewCryo         string `json:"new_cryo"`
}

func (p createCheckoutPayload) rowValues() checkout.RowValues {
	return checkout.RowValues{
		checkout.ColToProduce:       p.ToProduce,
		checkout.ColVillageSymbol:   p.VillageSymbol,
		checkout.ColCollectionMonth: p.CollectionMonth,
		checkout.ColCollectionYear:  p.CollectionYear,
		checkout.ColTissueType:      p.TissueType,
		checkout.ColTubeNumber:      p.TubeNumber,
		checkout.ColNewBuilding:     p.NewBuilding,
		checkout.ColNewRoom:         p.NewRoom,
		checkout.ColNewCryo:         p.NewCryo,
	}
}

// Create handles POST /api/checkouts. A row that fails validation comes back
// as 422 with the full failure map; a valid one is committed and confirmed by
// email like a one-row spreadsheet.
func (h *CheckoutHandler) Create(c *gin.Context) {
	requester := GetRequester(c)

	var payload createCheckoutPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, apperrors.BadRequest("request body must be valid JSON"))
		return
	}

	ctx := c.Request.Context()
	req, failures, err := h.builder.Build(ctx, requester, payload.rowValues(), time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}

	if len(failures) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"passed":   false,
			"failures": failures,
		})
		return
	}

	if err := h.requests.InsertBatch(ctx, []*domain.CheckoutRequest{req}); err != nil {
		respondError(c, err)
		return
	}

	h.notify(ctx, requester, req)

	c.JSON(http.StatusCreated, gin.H{
		"passed":  true,
		"request": req,
	})
}

// List handles GET /api/checkouts, returning the requester's own requests.
func (h *CheckoutHandler) List(c *gin.Context) {
	requester := GetRequester(c)

	requests, err := h.requests.ListByUser(c.Request.Context(), requester.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    len(requests),
		"requests": requests,
	})
}

// Approve handles PATCH /api/admin/checkouts/:id/approve.
func (h *CheckoutHandler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.BadRequest("invalid checkout request id"))
		return
	}

	req, err := h.requests.Approve(c.Request.Context(), id, time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("checkout request approved",
		slog.String("request_id", id.String()),
		slog.String("approved_by", GetRequester(c).Username))

	c.JSON(http.StatusOK, gin.H{"request": req})
}

type updateStatusPayload struct {
	SampleStatus *int `json:"sample_status"`
}

// UpdateStatus handles PATCH /api/admin/checkouts/:id/status, moving a sample
// through its lifecycle. Marking a sample returned releases its tube for new
// requests.
func (h *CheckoutHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.BadRequest("invalid checkout request id"))
		return
	}

	var payload updateStatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.SampleStatus == nil {
		respondError(c, apperrors.BadRequest("request body must carry a sample_status code"))
		return
	}
	if !domain.IsValidSampleStatus(*payload.SampleStatus) {
		respondError(c, apperrors.BadRequest(
			fmt.Sprintf("invalid sample status code %d", *payload.SampleStatus)))
		return
	}

	req, err := h.requests.UpdateSampleStatus(c.Request.Context(), id, *payload.SampleStatus)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("sample status updated",
		slog.String("request_id", id.String()),
		slog.Int("sample_status", *payload.SampleStatus),
		slog.String("updated_by", GetRequester(c).Username))

	c.JSON(http.StatusOK, gin.H{"request": req})
}

func (h *CheckoutHandler) notify(ctx context.Context, requester *domain.User, req *domain.CheckoutRequest) {
	notification := checkout.BatchNotification{
		Recipient: requester.Email,
		Username:  requester.Username,
		Passed:    true,
		Rows:      []checkout.RowSummary{{Line: 1, RequestID: req.ID.String()}},
	}

	if err := h.notifier.NotifyBatchProcessed(ctx, notification); err != nil {
		h.logger.Error("failed to enqueue confirmation",
			slog.String("recipient", requester.Email),
			slog.Any("error", err))
	}
}
