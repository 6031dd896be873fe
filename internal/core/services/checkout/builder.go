package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/domain"
	"github.com/CacconeLabYale/TsetseCheckout/internal/core/vocab"
	apperrors "github.com/CacconeLabYale/TsetseCheckout/internal/pkg/errors"
)

// Builder aggregates one raw row of named values into a CheckoutRequest.
// Every recognized field is validated even after an earlier field fails, so
// the requester sees all problems in a submission at once.
type Builder struct {
	validators   *Validators
	users        UserDirectory
	availability AvailabilityChecker
	logger       *slog.Logger
}

// NewBuilder creates a request builder.
func NewBuilder(set *vocab.Set, users UserDirectory, availability AvailabilityChecker, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Builder{
		validators:   NewValidators(set),
		users:        users,
		availability: availability,
		logger:       logger,
	}
}

// Build runs every field validator over the row and returns the
// maximally-populated normalized request together with the complete failure
// map. The tube-availability check runs only on an otherwise-valid row and
// merges its failure into the same map. The returned error is reserved for
// infrastructure problems (directory or availability lookups failing);
// validation failures never surface as errors.
func (b *Builder) Build(ctx context.Context, requester *domain.User, row RowValues, now time.Time) (*domain.CheckoutRequest, Failures, error) {
	failures := make(Failures)

	req := &domain.CheckoutRequest{
		UserID:        requester.ID,
		SampleStatus:  domain.SampleStatusWaitingToLeave,
		DateOfRequest: now,
	}

	exists, err := b.users.UsernameExists(ctx, requester.Username)
	if err != nil {
		return nil, nil, apperrors.DatabaseError(err)
	}
	if !exists {
		failures[FieldUsername] = fmt.Sprintf("%s is not a valid username", requester.Username)
	}

	if v, err := b.validators.Derivative(row[ColToProduce]); err != nil {
		failures[ColToProduce] = err.Error()
	} else {
		req.ToProduce = v
	}

	if v, err := b.validators.VillageSymbol(row[ColVillageSymbol]); err != nil {
		failures[ColVillageSymbol] = err.Error()
	} else {
		req.VillageSymbol = v
	}

	if v, err := b.validators.Month(row[ColCollectionMonth]); err != nil {
		failures[ColCollectionMonth] = err.Error()
	} else {
		req.CollectionMonth = v
	}

	if v, err := b.validators.Year(row[ColCollectionYear]); err != nil {
		failures[ColCollectionYear] = err.Error()
	} else {
		req.CollectionYear = v
	}

	if v, err := b.validators.TissueType(row[ColTissueType]); err != nil {
		failures[ColTissueType] = err.Error()
	} else {
		req.TissueType = v
	}

	if v, err := b.validators.TubeNumber(row[ColTubeNumber]); err != nil {
		failures[ColTubeNumber] = err.Error()
	} else {
		req.TubeNumber = v
	}

	if v, err := b.validators.BuildingCode(row[ColNewBuilding]); err != nil {
		failures[ColNewBuilding] = err.Error()
	} else {
		req.NewBuilding = v
	}

	// No validators are registered for the destination room and storage
	// location; they are copied through as-is.
	req.NewRoom = strings.TrimSpace(row[ColNewRoom])
	req.NewCryo = strings.TrimSpace(row[ColNewCryo])

	if len(failures) == 0 {
		available, err := b.availability.TubeAvailable(ctx, req.VillageSymbol, req.CollectionMonth, req.CollectionYear, req.TubeNumber)
		if err != nil {
			return nil, nil, apperrors.DatabaseError(err)
		}
		if !available {
			failures[ColTubeNumber] = fmt.Sprintf("tube %d from %s %d/%d has already been requested or is unavailable",
				req.TubeNumber, req.VillageSymbol, req.CollectionMonth, req.CollectionYear)
		}
	}

	req.PassedValidation = len(failures) == 0
	return req, failures, nil
}
