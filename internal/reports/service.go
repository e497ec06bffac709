// Package reports builds the revenue summaries shown on the dashboard.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/repik/lavanderia/internal/domain"
)

const (
	DateLayout = "2006-01-02"
	weekDays   = 7
)

// DailyReport summarizes the orders created on one calendar day.
type DailyReport struct {
	Date          string                       `json:"date"`
	TotalOrders   int64                        `json:"totalOrders"`
	TotalIncome   decimal.Decimal              `json:"totalIncome"`
	AverageTicket decimal.Decimal              `json:"averageTicket"`
	ByStatus      map[domain.OrderStatus]int64 `json:"byStatus"`
}

type WeeklySummary struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalOrders   int64           `json:"totalOrders"`
	AverageTicket decimal.Decimal `json:"averageTicket"`
}

// WeeklyReport covers today and the six days before it, oldest first.
type WeeklyReport struct {
	Days    []DailyReport `json:"days"`
	Summary WeeklySummary `json:"summary"`
}

// Service is the Report Service. Day boundaries follow loc.
type Service struct {
	orders domain.OrderRepository
	loc    *time.Location
	now    func() time.Time
}

func NewService(orders domain.OrderRepository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{orders: orders, loc: loc, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Daily reports on date (YYYY-MM-DD). An empty date means today.
func (s *Service) Daily(ctx context.Context, tenantID uuid.UUID, date string) (*DailyReport, error) {
	day := s.now().In(s.loc)
	if date != "" {
		parsed, err := time.ParseInLocation(DateLayout, date, s.loc)
		if err != nil {
			verr := &domain.ValidationError{}
			verr.Add("date", "must be a date in YYYY-MM-DD format")
			return nil, fmt.Errorf("reports.Daily: %w", verr)
		}
		day = parsed
	}

	report, err := s.daily(ctx, tenantID, day)
	if err != nil {
		return nil, fmt.Errorf("reports.Daily: %w", err)
	}
	return report, nil
}

// Weekly reports on today and the six prior days. The days are queried
// concurrently.
func (s *Service) Weekly(ctx context.Context, tenantID uuid.UUID) (*WeeklyReport, error) {
	today := s.now().In(s.loc)
	days := make([]DailyReport, weekDays)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(weekDays)
	for i := range weekDays {
		day := today.AddDate(0, 0, i-(weekDays-1))
		g.Go(func() error {
			r, err := s.daily(gctx, tenantID, day)
			if err != nil {
				return fmt.Errorf("%s: %w", day.Format(DateLayout), err)
			}
			days[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reports.Weekly: %w", err)
	}

	summary := WeeklySummary{TotalIncome: decimal.Zero}
	for _, d := range days {
		summary.TotalIncome = summary.TotalIncome.Add(d.TotalIncome)
		summary.TotalOrders += d.TotalOrders
	}
	summary.AverageTicket = average(summary.TotalIncome, summary.TotalOrders)

	return &WeeklyReport{Days: days, Summary: summary}, nil
}

func (s *Service) daily(ctx context.Context, tenantID uuid.UUID, day time.Time) (*DailyReport, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1)

	stats, err := s.orders.Stats(ctx, tenantID, start, end)
	if err != nil {
		return nil, err
	}

	byStatus := make(map[domain.OrderStatus]int64, len(domain.OrderStatuses))
	for _, st := range domain.OrderStatuses {
		byStatus[st] = stats.ByStatus[st]
	}

	income := stats.TotalIncome.Round(2)
	return &DailyReport{
		Date:          start.Format(DateLayout),
		TotalOrders:   stats.TotalOrders,
		TotalIncome:   income,
		AverageTicket: average(income, stats.TotalOrders),
		ByStatus:      byStatus,
	}, nil
}

func average(total decimal.Decimal, count int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(count)).Round(2)
}
