package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/vyayamzone/vyayam-api/internal/models"
)

// Pinger is satisfied by *store.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		ok := p.Ping(ctx) == nil
		resp := models.APIResponse{
			Success: ok,
			Message: "ok",
			Data: map[string]interface{}{
				"db":   ok,
				"time": time.Now(),
			},
		}
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			resp.Message = "db unreachable"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
