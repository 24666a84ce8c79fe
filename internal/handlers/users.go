package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emsdesk/apiserver/internal/services"
)

const userNotFound = "User not found"

// UserHandler provides HTTP handlers for users.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers user routes on the given router. Signup upserts are
// public; everything else requires authentication.
func UserRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.Post("/", handler.Upsert)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", handler.List)
		r.Get("/verified", handler.ListVerified)
		r.Get("/{email}", handler.Get)
		r.Patch("/{id}/fire", handler.Fire)
		r.Patch("/{id}/makeHR", handler.PromoteToHR)
		r.Patch("/{id}/salary", handler.SetSalary)
	})
}

// UserUpsertRequest is the body of POST /users.
type UserUpsertRequest struct {
	Email             string  `json:"email"`
	Name              string  `json:"name"`
	Role              string  `json:"role"`
	PhotoURL          *string `json:"photoURL"`
	Designation       *string `json:"designation"`
	PerformanceReview *string `json:"performanceReview"`
	Status            *string `json:"status"`
	BankAccountNo     *string `json:"bank_account_no"`
	Salary            any     `json:"salary"`
}

// SalaryRequest is the body of PATCH /users/{id}/salary. Older clients
// send the capitalised key.
type SalaryRequest struct {
	Salary       any `json:"salary"`
	LegacySalary any `json:"Salary"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) ListVerified(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListVerified(r.Context())
	if err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Upsert creates the user (201) or updates the existing one (200).
func (h *UserHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UserUpsertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	result, err := h.userService.Upsert(r.Context(), services.UserInput{
		Email:             req.Email,
		Name:              req.Name,
		Role:              req.Role,
		PhotoURL:          req.PhotoURL,
		Designation:       req.Designation,
		PerformanceReview: req.PerformanceReview,
		Status:            req.Status,
		BankAccountNo:     req.BankAccountNo,
		Salary:            req.Salary,
	})
	if err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}

	status := http.StatusOK
	if result.Created() {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (h *UserHandler) Fire(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())
	outcome, err := h.userService.Fire(r.Context(), chi.URLParam(r, "id"), caller)
	if err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}
	writeOutcome(w, outcome, outcomeMessages{
		notFound: userNotFound,
		already:  "User is already fired",
		updated:  "User fired successfully",
	})
}

func (h *UserHandler) PromoteToHR(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())
	outcome, err := h.userService.PromoteToHR(r.Context(), chi.URLParam(r, "id"), caller)
	if err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}
	writeOutcome(w, outcome, outcomeMessages{
		notFound: userNotFound,
		already:  "User is already HR",
		updated:  "User promoted to HR",
	})
}

func (h *UserHandler) SetSalary(w http.ResponseWriter, r *http.Request) {
	var req SalaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid salary")
		return
	}
	salary := req.Salary
	if salary == nil {
		salary = req.LegacySalary
	}

	caller, _ := callerFromContext(r.Context())
	outcome, err := h.userService.SetSalary(r.Context(), chi.URLParam(r, "id"), salary, caller)
	if err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}
	writeOutcome(w, outcome, outcomeMessages{
		notFound: userNotFound,
		already:  "Salary is already set to that amount",
		updated:  "Salary updated successfully",
	})
}
