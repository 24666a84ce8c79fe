package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/emsdesk/apiserver/internal/services"
)

const paymentsNotFound = "No payment history found"

// PaymentHandler provides HTTP handlers for payment history and payments.
type PaymentHandler struct {
	paymentService *services.PaymentService
	payrollService *services.PayrollService
}

func NewPaymentHandler(paymentService *services.PaymentService, payrollService *services.PayrollService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, payrollService: payrollService}
}

// PaymentRouter registers payment routes on the given router.
func PaymentRouter(
	r chi.Router,
	paymentService *services.PaymentService,
	payrollService *services.PayrollService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewPaymentHandler(paymentService, payrollService)

	r.Get("/{email}", handler.History)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/{email}/statement", handler.Statement)
		r.Post("/create-payment-intent", handler.CreateIntent)
		r.Post("/mark-paid", handler.MarkPaid)
	})
}

// PaymentIntentRequest is the body of POST /payments/create-payment-intent.
type PaymentIntentRequest struct {
	Amount     any    `json:"amount"`
	EmployeeID string `json:"employeeId"`
}

// MarkPaidRequest is the body of POST /payments/mark-paid.
type MarkPaidRequest struct {
	PayrollID string `json:"payrollId"`
	PaymentID string `json:"paymentId"`
}

func (h *PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.paymentService.History(r.Context(), chi.URLParam(r, "email"), page, limit)
	if err != nil {
		writeServiceError(w, r, err, paymentsNotFound)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Statement renders the full history as a PDF attachment.
func (h *PaymentHandler) Statement(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	email := chi.URLParam(r, "email")
	if err := h.paymentService.Statement(r.Context(), email, &buf); err != nil {
		writeServiceError(w, r, err, paymentsNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="payment-statement.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req PaymentIntentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	intent, err := h.paymentService.CreateIntent(r.Context(), req.Amount, req.EmployeeID)
	if err != nil {
		writeServiceError(w, r, err, paymentsNotFound)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (h *PaymentHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	var req MarkPaidRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.PayrollID) == "" {
		writeError(w, http.StatusBadRequest, "payrollId is required")
		return
	}

	caller, _ := callerFromContext(r.Context())
	outcome, err := h.payrollService.MarkPaid(r.Context(), req.PayrollID, req.PaymentID, caller)
	if err != nil {
		writeServiceError(w, r, err, payrollNotFound)
		return
	}
	writeOutcome(w, outcome, outcomeMessages{
		notFound: payrollNotFound,
		already:  "Payment was already recorded",
		updated:  "Payment recorded successfully",
	})
}

func parsePagination(r *http.Request) (page, limit int, err error) {
	page = services.DefaultPaymentPage
	limit = services.DefaultPaymentLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, errors.New("invalid page")
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("invalid limit")
		}
	}
	return page, limit, nil
}
