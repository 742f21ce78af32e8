package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/kardex-pos/api/responses"
	"github.com/angelmondragon/kardex-pos/api/validators"
	"github.com/angelmondragon/kardex-pos/internal/dashboard"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

func DashboardStats(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func DashboardLowStock(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.LowStockProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProductList(rows))
	}
}

func DashboardDailySales(svc dashboard.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := reportRange(r, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		days, err := svc.DailySales(r.Context(), from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, days)
	}
}

func DashboardTopProducts(svc dashboard.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := reportRange(r, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", dashboard.DefaultTopLimit, 1, dashboard.MaxTopLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.TopProducts(r.Context(), from, to, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// reportRange reads from/to days; either may be omitted and defaults to today.
func reportRange(r *http.Request, loc *time.Location) (time.Time, time.Time, error) {
	from, err := validators.ParseQueryDate(r, "from", loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := validators.ParseQueryDate(r, "to", loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	today := time.Now().In(loc)
	if to.IsZero() {
		to = today
	}
	if from.IsZero() {
		from = to
	}
	return from, to, nil
}
