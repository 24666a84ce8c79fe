package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emsdesk/apiserver/internal/services"
)

const payrollNotFound = "Payroll request not found"

// PayrollHandler provides HTTP handlers for payroll requests.
type PayrollHandler struct {
	payrollService *services.PayrollService
}

func NewPayrollHandler(payrollService *services.PayrollService) *PayrollHandler {
	return &PayrollHandler{payrollService: payrollService}
}

// PayrollRouter registers payroll routes on the given router. Status
// changes record the caller, so they require authentication.
func PayrollRouter(r chi.Router, payrollService *services.PayrollService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewPayrollHandler(payrollService)

	r.Get("/", handler.List)
	r.Post("/request", handler.Request)
	r.With(authMiddleware).Patch("/{id}", handler.UpdateStatus)
}

// PayrollRequestBody is the body of POST /payroll/request.
type PayrollRequestBody struct {
	EmployeeID string `json:"employeeId"`
	Month      string `json:"month"`
	Year       int    `json:"year"`
	Amount     any    `json:"amount"`
}

// PayrollStatusRequest is the body of PATCH /payroll/{id}.
type PayrollStatusRequest struct {
	Status string `json:"status"`
}

func (h *PayrollHandler) List(w http.ResponseWriter, r *http.Request) {
	requests, err := h.payrollService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, payrollNotFound)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *PayrollHandler) Request(w http.ResponseWriter, r *http.Request) {
	var body PayrollRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	id, err := h.payrollService.Request(r.Context(), services.PayrollInput{
		EmployeeID: body.EmployeeID,
		Month:      body.Month,
		Year:       body.Year,
		Amount:     body.Amount,
	})
	if err != nil {
		writeServiceError(w, r, err, "Employee not found")
		return
	}
	writeJSON(w, http.StatusCreated, InsertedResponse{InsertedID: id})
}

func (h *PayrollHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body PayrollStatusRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	caller, _ := callerFromContext(r.Context())
	outcome, err := h.payrollService.UpdateStatus(r.Context(), chi.URLParam(r, "id"), body.Status, caller)
	if err != nil {
		writeServiceError(w, r, err, payrollNotFound)
		return
	}
	writeOutcome(w, outcome, outcomeMessages{
		notFound: payrollNotFound,
		already:  "Payroll status updated successfully",
		updated:  "Payroll status updated successfully",
	})
}
