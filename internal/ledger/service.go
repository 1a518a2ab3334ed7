package ledger

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// Reader abstracts ledger queries for the service.
type Reader interface {
	List(ctx context.Context, filter Filter) ([]Entry, error)
	Balance(ctx context.Context, medicineID int64, asOf time.Time) (int, error)
	Discrepancies(ctx context.Context) ([]Discrepancy, error)
}

// Service exposes ledger queries and reconciliation.
type Service struct {
	repo Reader
}

// NewService builds Service.
func NewService(repo Reader) *Service {
	return &Service{repo: repo}
}

// List returns ledger entries matching filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Entry, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, shared.Invalid("transaction_type", "is not a known kind")
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, shared.Invalid("to", "must not be before from")
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.repo.List(ctx, filter)
}

// BalanceAt returns the signed ledger sum of a medicine as of a point in time.
func (s *Service) BalanceAt(ctx context.Context, medicineID int64, asOf time.Time) (int, error) {
	if medicineID <= 0 {
		return 0, shared.Invalid("medicine_id", "is required")
	}
	return s.repo.Balance(ctx, medicineID, asOf)
}

// Reconcile lists medicines whose on-hand counter disagrees with the ledger.
// Intake is recorded as a purchase entry, so a consistent medicine has OnHand == LedgerBalance.
func (s *Service) Reconcile(ctx context.Context) ([]Discrepancy, error) {
	return s.repo.Discrepancies(ctx)
}
