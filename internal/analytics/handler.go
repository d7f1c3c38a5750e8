package analytics

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	"github.com/expensio/expense-service/internal/auth"
	"github.com/expensio/expense-service/internal/transport"
	"github.com/expensio/expense-service/internal/user"
	"github.com/expensio/expense-service/pkg/logger"
)

type ServiceAPI interface {
	Dashboard(actor *user.User, start, end *time.Time) (*DashboardSummary, error)
	Report(actor *user.User, q ReportQuery) (*Report, error)
	Trends(actor *user.User, q TrendQuery) (*Trend, error)
	CategoryStats(actor *user.User, start, end *time.Time) ([]CategoryStat, error)
	UserSummary(actor *user.User, userID int64) (*UserSummary, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.Service.Dashboard(actor, start, end)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}

// parseDateRange reads the optional start_date/end_date query parameters
// shared by the dashboard and category stats endpoints.
func parseDateRange(r *http.Request) (start, end *time.Time, err error) {
	if v := r.URL.Query().Get("start_date"); v != "" {
		t, perr := time.Parse("2006-01-02", v)
		if perr != nil {
			return nil, nil, errors.New("invalid start_date")
		}
		start = &t
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		t, perr := time.Parse("2006-01-02", v)
		if perr != nil {
			return nil, nil, errors.New("invalid end_date")
		}
		end = &t
	}
	return start, end, nil
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := ReportQuery{GroupBy: r.URL.Query().Get("group_by")}
	if v := r.URL.Query().Get("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid start_date")
			return
		}
		q.StartDate = &t
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid end_date")
			return
		}
		q.EndDate = &t
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		q.OwnerID = &id
	}

	report, err := h.Service.Report(actor, q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) GetTrends(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := TrendQuery{Period: r.URL.Query().Get("period")}
	if q.Period == "" {
		q.Period = "monthly"
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		q.OwnerID = &id
	}

	trend, err := h.Service.Trends(actor, q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, trend)
}

func (h *Handler) GetCategoryStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.Service.CategoryStats(actor, start, end)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"categories": stats})
}

func (h *Handler) GetUserSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	summary, err := h.Service.UserSummary(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}
