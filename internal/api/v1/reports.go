package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/repik/lavanderia/internal/reports"
)

type DailyReportInput struct {
	Date string `query:"date" doc:"Day in YYYY-MM-DD, defaults to today" example:"2025-03-14"`
}

type DailyReportOutput struct {
	Body Envelope[*reports.DailyReport]
}

type WeeklyReportOutput struct {
	Body Envelope[*reports.WeeklyReport]
}

// RegisterReportRoutes mounts the reports every employee may read.
func RegisterReportRoutes(api huma.API, svc ReportService) {
	huma.Register(api, huma.Operation{
		OperationID: "daily-report",
		Method:      http.MethodGet,
		Path:        "/reports/daily",
		Summary:     "Orders and income for one day",
		Tags:        []string{"Reports"},
	}, func(ctx context.Context, input *DailyReportInput) (*DailyReportOutput, error) {
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		r, err := svc.Daily(ctx, s.TenantID, input.Date)
		if err != nil {
			return nil, toHTTPError(err, "report")
		}

		return &DailyReportOutput{Body: wrap(r)}, nil
	})
}

// RegisterOwnerReportRoutes mounts the reports restricted to owners. The
// caller mounts api behind middleware.RequireOwner.
func RegisterOwnerReportRoutes(api huma.API, svc ReportService) {
	huma.Register(api, huma.Operation{
		OperationID: "weekly-report",
		Method:      http.MethodGet,
		Path:        "/reports/weekly",
		Summary:     "Daily breakdown and totals for the last seven days",
		Tags:        []string{"Reports"},
	}, func(ctx context.Context, _ *struct{}) (*WeeklyReportOutput, error) {
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		r, err := svc.Weekly(ctx, s.TenantID)
		if err != nil {
			return nil, toHTTPError(err, "report")
		}

		return &WeeklyReportOutput{Body: wrap(r)}, nil
	})
}
