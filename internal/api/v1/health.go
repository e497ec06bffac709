package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"
)

const healthTimeout = 2 * time.Second

type Health struct {
	Database string `json:"database" enum:"ok,down"`
	Redis    string `json:"redis" enum:"ok,down,disabled"`
}

type HealthOutput struct {
	Body Envelope[Health]
}

// RegisterHealthRoutes mounts the liveness probe. redis may be nil when live
// events are disabled.
func RegisterHealthRoutes(api huma.API, db, redis Pinger) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Report service health",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
		ctx, cancel := context.WithTimeout(ctx, healthTimeout)
		defer cancel()

		h := Health{Database: "ok", Redis: "disabled"}
		if err := db.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("health: database ping failed")
			h.Database = "down"
		}
		if redis != nil {
			h.Redis = "ok"
			if err := redis.Ping(ctx); err != nil {
				log.Warn().Err(err).Msg("health: redis ping failed")
				h.Redis = "down"
			}
		}

		if h.Database != "ok" {
			return nil, huma.Error503ServiceUnavailable("database unavailable")
		}

		return &HealthOutput{Body: wrap(h)}, nil
	})
}
