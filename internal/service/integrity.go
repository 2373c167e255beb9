package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// IntegrityChecker reports disagreements between trip seats and tickets
// for manual reconciliation.  It never repairs anything.
type IntegrityChecker struct {
	repo *repository.IntegrityRepo
	log  *zap.Logger
}

// NewIntegrityChecker constructs an IntegrityChecker.
func NewIntegrityChecker(repo *repository.IntegrityRepo, log *zap.Logger) *IntegrityChecker {
	return &IntegrityChecker{repo: repo, log: log.Named("integrity")}
}

// Check scans one trip and logs every issue at error level.
func (c *IntegrityChecker) Check(ctx context.Context, tripID uint64) ([]model.IntegrityIssue, error) {
	issues, err := c.repo.Scan(ctx, nil, tripID)
	if err != nil {
		return nil, fmt.Errorf("integrity check trip %d: %w", tripID, err)
	}
	for _, is := range issues {
		c.log.Error("integrity violation",
			zap.Uint64("trip_id", tripID),
			zap.String("kind", string(is.Kind)),
			zap.Uint64("trip_seat_id", is.TripSeatID),
			zap.String("ticket_id", is.TicketID))
	}
	if issues == nil {
		issues = []model.IntegrityIssue{}
	}
	return issues, nil
}
