package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	drepo "Noesis/internal/domain/repository"
	icache "Noesis/internal/service/cache"
	"Noesis/internal/service/metrics"
	"Noesis/internal/service/ratelimit"
	"Noesis/internal/usecase"
	xhttp "Noesis/pkg/http"
	applogger "Noesis/pkg/logger"
	xutil "Noesis/pkg/util"
)

// IncidentsHandler is the lightweight net/http surface used by embedded
// deployments that skip the Echo stack. Read endpoints only; collection is
// triggered through the Echo API or the scheduler.
type IncidentsHandler struct {
	store drepo.IncidentStore
	risk  *usecase.RiskPrediction
	cache icache.BytesCache
	rl    *ratelimit.Limiter
	l     *applogger.Logger
}

func NewIncidentsHandler(store drepo.IncidentStore, risk *usecase.RiskPrediction) *IncidentsHandler {
	metrics.Register()
	return &IncidentsHandler{store: store, risk: risk, rl: ratelimit.New()}
}

func (h *IncidentsHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *IncidentsHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *IncidentsHandler) Incidents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "incidents"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		severity := r.URL.Query().Get("severity")
		status := r.URL.Query().Get("status")
		region := r.URL.Query().Get("region")
		limit := xhttp.ParseIntDefault(r.URL.Query().Get("limit"), 50)

		// Since is aligned to the minute so nearby requests share a cache key.
		since := xhttp.ParseTimeDefault(r.URL.Query().Get("since"), time.Time{})
		if !since.IsZero() {
			since, _ = xutil.AlignRange(since, since, "1m")
		}

		if !h.rl.Allow(r.RemoteAddr+":incidents", 5, 2) {
			if h.l != nil {
				h.l.Warn("api.incidents rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}

		cacheKey := "incidents:" + severity + ":" + status + ":" + region + ":" + strconv.Itoa(limit)
		if !since.IsZero() {
			cacheKey += ":" + strconv.FormatInt(since.Unix(), 10)
		}
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("api.incidents cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("api.incidents write_error", applogger.Error(err))
				}
				return
			}
		}

		res, err := h.store.Query(r.Context(), drepo.IncidentFilter{
			Severity: severity,
			Status:   status,
			Region:   region,
			Since:    since,
			Limit:    limit,
		})
		if err != nil {
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("api.incidents error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(res)
		if err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, 30*time.Second); err != nil && h.l != nil {
				h.l.Warn("api.incidents cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("api.incidents write_error", applogger.Error(err))
		}
	}
}

func (h *IncidentsHandler) Predictions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "predictions"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		threshold := parseFloat(r.URL.Query().Get("confidence_threshold"), 0.3)
		limit := xhttp.ParseIntDefault(r.URL.Query().Get("limit"), 50)

		if !h.rl.Allow(r.RemoteAddr+":predictions", 3, 1) {
			if h.l != nil {
				h.l.Warn("api.predictions rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}

		history, err := h.store.Query(r.Context(), drepo.IncidentFilter{Limit: 500})
		if err != nil {
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("api.predictions error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		predictions := h.risk.Predict(history)
		filtered := predictions[:0]
		for _, p := range predictions {
			if p.Confidence < threshold {
				continue
			}
			filtered = append(filtered, p)
			if len(filtered) >= limit {
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(filtered)
		if err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("api.predictions write_error", applogger.Error(err))
		}
	}
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}
