package expense

import (
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"

	"github.com/expensio/expense-service/internal/auth"
	"github.com/expensio/expense-service/internal/storage"
	"github.com/expensio/expense-service/internal/transport"
	"github.com/expensio/expense-service/internal/user"
	"github.com/expensio/expense-service/pkg/logger"
)

const maxUploadSize = 32 << 20 // 32 MiB across all receipt parts

type ServiceAPI interface {
	List(actor *user.User, q ListExpensesQuery) (*ListExpensesResponse, error)
	Get(actor *user.User, id int64) (*Expense, error)
	Create(actor *user.User, dto CreateExpenseDTO, attachments []Receipt) (*Expense, error)
	Update(actor *user.User, id int64, dto UpdateExpenseDTO, newAttachments []Receipt, removeReceiptIDs []int64) (*Expense, error)
	Delete(actor *user.User, id int64) error
	Approve(actor *user.User, id int64) (*Expense, error)
	Reject(actor *user.User, id int64, reason string) (*Expense, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Files   storage.FileStore
}

func NewHandler(service ServiceAPI, files storage.FileStore) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		Files:       files,
	}
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q, err := parseListQuery(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.Service.List(actor, q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	e, err := h.Service.Get(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e)
}

// CreateExpense accepts either plain JSON or multipart form data. The
// multipart shape carries the JSON payload in a "data" field and any
// number of receipt files in "receipts".
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateExpenseDTO
	var attachments []Receipt

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue("data")), &dto); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid expense payload")
			return
		}
		var err error
		attachments, err = h.storeReceipts(actor.ID, r.MultipartForm.File["receipts"])
		if err != nil {
			h.Logger.Error("failed to store receipt upload", "error", err, "user_id", actor.ID)
			h.WriteError(w, http.StatusInternalServerError, "failed to store receipt")
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	e, err := h.Service.Create(actor, dto, attachments)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("expense created",
		"expense_id", e.ID,
		"user_id", actor.ID,
		"amount", e.Amount,
		"status", e.Status)
	h.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	var dto UpdateExpenseDTO
	var attachments []Receipt
	var removeIDs []int64

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue("data")), &dto); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid expense payload")
			return
		}
		removeIDs = parseIDList(r.FormValue("remove_receipts"))
		attachments, err = h.storeReceipts(actor.ID, r.MultipartForm.File["receipts"])
		if err != nil {
			h.Logger.Error("failed to store receipt upload", "error", err, "user_id", actor.ID)
			h.WriteError(w, http.StatusInternalServerError, "failed to store receipt")
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	e, err := h.Service.Update(actor, id, dto, attachments, removeIDs)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	if err := h.Service.Delete(actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ApproveExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	e, err := h.Service.Approve(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) RejectExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	var dto RejectExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.Service.Reject(actor, id, dto.Reason)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e)
}

// storeReceipts writes every uploaded part to the file store. On failure
// the parts already stored are released so nothing is orphaned.
func (h *Handler) storeReceipts(ownerID int64, files []*multipart.FileHeader) ([]Receipt, error) {
	var receipts []Receipt
	cleanup := func() {
		for _, r := range receipts {
			if _, err := h.Files.Release(r.Path); err != nil {
				h.Logger.Error("failed to release receipt file", "error", err, "path", r.Path)
			}
		}
	}

	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			cleanup()
			return nil, err
		}

		stored, err := h.Files.Store(ownerID, fh.Filename, fh.Header.Get("Content-Type"), f)
		f.Close()
		if err != nil {
			cleanup()
			return nil, err
		}

		receipts = append(receipts, Receipt{
			Filename:     filepath.Base(stored.Path),
			OriginalName: stored.OriginalName,
			MimeType:     stored.MimeType,
			Size:         stored.Size,
			Path:         stored.Path,
			UploadedAt:   time.Now(),
		})
	}
	return receipts, nil
}

func parseListQuery(r *http.Request) (ListExpensesQuery, error) {
	q := ListExpensesQuery{
		Search:        r.URL.Query().Get("search"),
		Status:        r.URL.Query().Get("status"),
		PaymentMethod: r.URL.Query().Get("payment_method"),
		SortBy:        r.URL.Query().Get("sort_by"),
		SortOrder:     r.URL.Query().Get("sort_order"),
	}
	q.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	if v := r.URL.Query().Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return q, errInvalidQueryParam("category_id")
		}
		q.CategoryID = &id
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return q, errInvalidQueryParam("user_id")
		}
		q.OwnerID = &id
	}
	if v := r.URL.Query().Get("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return q, errInvalidQueryParam("start_date")
		}
		q.StartDate = &t
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return q, errInvalidQueryParam("end_date")
		}
		q.EndDate = &t
	}
	if v := r.URL.Query().Get("min_amount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return q, errInvalidQueryParam("min_amount")
		}
		q.MinAmount = &d
	}
	if v := r.URL.Query().Get("max_amount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return q, errInvalidQueryParam("max_amount")
		}
		q.MaxAmount = &d
	}

	return q, nil
}

type queryParamError string

func errInvalidQueryParam(name string) error {
	return queryParamError("invalid query parameter: " + name)
}

func (e queryParamError) Error() string { return string(e) }

func parseIDList(s string) []int64 {
	if s == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
