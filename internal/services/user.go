package services

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/emsdesk/apiserver/internal/store"
	"github.com/emsdesk/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context, role string) ([]types.User, error)
	ListVerified(ctx context.Context) ([]types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByID(ctx context.Context, rawID string) (types.User, error)
	UpsertByEmail(ctx context.Context, email string, fields, defaults bson.M) (types.UpsertResult, error)
	ApplyTransition(ctx context.Context, rawID string, t store.Transition) (store.Outcome, error)
}

// UserInput is the body of a signup or profile upsert. Optional fields are
// nil when the caller did not send them.
type UserInput struct {
	Email             string
	Name              string
	Role              string
	PhotoURL          *string
	Designation       *string
	PerformanceReview *string
	Status            *string
	BankAccountNo     *string
	Salary            any
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo   UserRepository
	events *Events
}

func NewUserService(repo UserRepository, events *Events) *UserService {
	return &UserService{repo: repo, events: events}
}

func (s *UserService) List(ctx context.Context, role string) ([]types.User, error) {
	users, err := s.repo.List(ctx, role)
	if err != nil {
		return nil, err
	}
	return presentUsers(users), nil
}

func (s *UserService) ListVerified(ctx context.Context) ([]types.User, error) {
	users, err := s.repo.ListVerified(ctx)
	if err != nil {
		return nil, err
	}
	return presentUsers(users), nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return types.User{}, invalidInput("email is required")
	}
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return types.User{}, err
	}
	user.Role = types.NormalizeRole(user.Role)
	return user, nil
}

// Upsert creates or updates the user keyed by email. Defaults only apply
// when the user is created, so a repeated signup never resets salary or
// status.
func (s *UserService) Upsert(ctx context.Context, in UserInput) (types.UpsertResult, error) {
	email := strings.TrimSpace(in.Email)
	name := strings.TrimSpace(in.Name)
	role := types.NormalizeRole(in.Role)
	if email == "" || name == "" || role == "" {
		return types.UpsertResult{}, invalidInput("Email, name, and role are required")
	}
	if !validRole(role) {
		return types.UpsertResult{}, invalidInput("role must be one of employee, hr or admin")
	}

	fields := bson.M{"name": name, "role": role}
	setString := func(key string, value *string) {
		if value != nil {
			fields[key] = strings.TrimSpace(*value)
		}
	}
	setString("photoURL", in.PhotoURL)
	setString("designation", in.Designation)
	setString("performanceReview", in.PerformanceReview)
	setString("bank_account_no", in.BankAccountNo)

	if in.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*in.Status))
		if status != types.StatusActive && status != types.StatusFired {
			return types.UpsertResult{}, invalidInput("status must be active or fired")
		}
		fields["status"] = status
	}
	if in.Salary != nil {
		salary, err := ParseSalary(in.Salary)
		if err != nil {
			return types.UpsertResult{}, err
		}
		fields["salary"] = salary
	}

	defaults := bson.M{
		"photoURL":          "",
		"salary":            0.0,
		"designation":       "",
		"performanceReview": "",
		"status":            types.StatusActive,
	}
	return s.repo.UpsertByEmail(ctx, email, fields, defaults)
}

func (s *UserService) Fire(ctx context.Context, id string, caller types.Caller) (store.Outcome, error) {
	return s.transition(ctx, id, store.Fire(), types.EventUserFired, caller, nil)
}

func (s *UserService) PromoteToHR(ctx context.Context, id string, caller types.Caller) (store.Outcome, error) {
	return s.transition(ctx, id, store.PromoteToHR(), types.EventUserPromoted, caller, map[string]any{"role": types.RoleHR})
}

// SetSalary validates raw before touching the store. raw may be a JSON
// number or a numeric string; zero and negative salaries are rejected.
func (s *UserService) SetSalary(ctx context.Context, id string, raw any, caller types.Caller) (store.Outcome, error) {
	if raw == nil {
		return store.OutcomeNotFound, invalidInput("Invalid salary")
	}
	salary, err := ParseSalary(raw)
	if err != nil {
		return store.OutcomeNotFound, err
	}
	if salary <= 0 {
		return store.OutcomeNotFound, invalidInput("Invalid salary")
	}
	return s.transition(ctx, id, store.SetSalary(salary), types.EventUserSalaryChanged, caller, map[string]any{"salary": salary})
}

func (s *UserService) transition(ctx context.Context, id string, t store.Transition, event string, caller types.Caller, data map[string]any) (store.Outcome, error) {
	outcome, err := s.repo.ApplyTransition(ctx, id, t)
	if err != nil {
		return outcome, err
	}
	if outcome == store.OutcomeUpdated {
		s.events.Emit(ctx, event, strings.TrimSpace(id), caller.Identity(), data)
	}
	return outcome, nil
}

// ParseSalary converts a decoded JSON value into a salary.
func ParseSalary(raw any) (float64, error) {
	var value float64
	switch v := raw.(type) {
	case float64:
		value = v
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, invalidInput("Invalid salary")
		}
		value = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, invalidInput("Invalid salary")
		}
		value = f
	default:
		return 0, invalidInput("Invalid salary")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, invalidInput("Invalid salary")
	}
	return value, nil
}

func validRole(role string) bool {
	switch role {
	case types.RoleEmployee, types.RoleHR, types.RoleAdmin:
		return true
	}
	return false
}

func presentUsers(users []types.User) []types.User {
	for i := range users {
		users[i].Role = types.NormalizeRole(users[i].Role)
	}
	return users
}
