package health

import (
	"context"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// Pinger checks one dataset connection string.
type Pinger interface {
	Ping(ctx context.Context, uri string) error
}

// Dataset is a named connection string probed by Readiness.
type Dataset struct {
	Name string
	URI  string
}

const pingTimeout = 3 * time.Second

// Readiness reports ready only when every configured dataset answers a ping.
// Datasets without a URI are reported as "unconfigured" and fail readiness.
func Readiness(p Pinger, datasets []Dataset) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status   string            `json:"status"`
			Datasets map[string]string `json:"datasets"`
		}
		out := resp{Status: "ready", Datasets: make(map[string]string, len(datasets))}

		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		for _, d := range datasets {
			switch {
			case d.URI == "":
				out.Datasets[d.Name] = "unconfigured"
				out.Status = "not_ready"
			case p.Ping(ctx, d.URI) != nil:
				out.Datasets[d.Name] = "unreachable"
				out.Status = "not_ready"
			default:
				out.Datasets[d.Name] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if out.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
