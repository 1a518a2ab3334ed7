package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Summary is the front page of the pharmacy for one day.
type Summary struct {
	Day              string          `json:"day"`
	BillsToday       int             `json:"bills_today"`
	SalesToday       decimal.Decimal `json:"sales_today"`
	OutstandingDue   decimal.Decimal `json:"outstanding_due"`
	CancelledToday   int             `json:"cancelled_today"`
	RefundedToday    int             `json:"refunded_today"`
	TotalMedicines   int             `json:"total_medicines"`
	LowStock         int             `json:"low_stock"`
	OutOfStock       int             `json:"out_of_stock"`
	Expired          int             `json:"expired"`
	ExpiringSoon     int             `json:"expiring_soon"`
	StockValue       decimal.Decimal `json:"stock_value"`
	ExpiryWindowDays int             `json:"expiry_window_days"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

type Config struct {
	ExpiryWarningDays int
}

// Service builds cached dashboard summaries.
type Service struct {
	repo       Repository
	cache      *Cache
	logger     *slog.Logger
	group      singleflight.Group
	expiryDays int
	now        func() time.Time
}

func NewService(repo Repository, cache *Cache, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	days := cfg.ExpiryWarningDays
	if days <= 0 {
		days = 30
	}
	return &Service{repo: repo, cache: cache, logger: logger, expiryDays: days, now: time.Now}
}

// Summary returns the summary for the calendar day of day. Concurrent misses for the same key share one load.
func (s *Service) Summary(ctx context.Context, day time.Time) (Summary, error) {
	if day.IsZero() {
		day = s.now()
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	key, err := s.cache.BuildKey(ctx, "dashboard", "summary", start.Format("2006-01-02"))
	if err != nil {
		s.logger.Warn("dashboard cache version", slog.Any("error", err))
		return s.load(ctx, start)
	}
	res, err, _ := s.group.Do(key, func() (any, error) {
		var out Summary
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return s.load(ctx, start)
		})
		return out, err
	})
	if err != nil {
		return Summary{}, err
	}
	return res.(Summary), nil
}

func (s *Service) load(ctx context.Context, start time.Time) (Summary, error) {
	bills, err := s.repo.BillStats(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return Summary{}, err
	}
	stock, err := s.repo.StockStats(ctx, start, start.AddDate(0, 0, s.expiryDays))
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Day:              start.Format("2006-01-02"),
		BillsToday:       bills.Bills,
		SalesToday:       bills.CompletedSales,
		OutstandingDue:   bills.Outstanding,
		CancelledToday:   bills.Cancelled,
		RefundedToday:    bills.Refunded,
		TotalMedicines:   stock.Medicines,
		LowStock:         stock.LowStock,
		OutOfStock:       stock.OutOfStock,
		Expired:          stock.Expired,
		ExpiringSoon:     stock.ExpiringSoon,
		StockValue:       stock.StockValue,
		ExpiryWindowDays: s.expiryDays,
		GeneratedAt:      s.now().UTC(),
	}, nil
}

// Invalidate drops every cached summary.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
