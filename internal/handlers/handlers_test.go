package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/emsdesk/apiserver/internal/services"
	"github.com/emsdesk/apiserver/internal/store"
	"github.com/emsdesk/apiserver/internal/testutil/memdb"
	"github.com/emsdesk/apiserver/types"
)

const testToken = "good-token"

type stubVerifier struct{}

func (stubVerifier) Verify(ctx context.Context, token string) (types.Caller, error) {
	if token != testToken {
		return types.Caller{}, errors.New("token has expired")
	}
	return types.Caller{UID: "uid-1", Email: "hr@ems.test", EmailVerified: true}, nil
}

type testAPI struct {
	router   *chi.Mux
	users    *memdb.Collection
	works    *memdb.Collection
	payroll  *memdb.Collection
	payments *memdb.Collection
	content  *memdb.Collection
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	api := &testAPI{
		users:    memdb.New("email"),
		works:    memdb.New(),
		payroll:  memdb.New(),
		payments: memdb.New("email"),
		content:  memdb.New(),
	}

	userRepo := store.NewUserRepository(api.users)
	paymentRepo := store.NewPaymentRepository(api.payments)

	userService := services.NewUserService(userRepo, nil)
	workService := services.NewWorkService(store.NewWorkRepository(api.works))
	payrollService := services.NewPayrollService(store.NewPayrollRepository(api.payroll), userRepo, paymentRepo, nil)
	paymentService := services.NewPaymentService(paymentRepo, nil, "usd")
	contentService := services.NewContentService(store.NewContentRepository(api.content), nil)

	auth := RequireAuth(stubVerifier{})
	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	router.With(auth).Get("/me", Me)
	router.Route("/users", func(r chi.Router) { UserRouter(r, userService, auth) })
	router.Route("/works", func(r chi.Router) { WorkRouter(r, workService) })
	router.Route("/payroll", func(r chi.Router) { PayrollRouter(r, payrollService, auth) })
	router.Route("/payments", func(r chi.Router) { PaymentRouter(r, paymentService, payrollService, auth) })
	router.Route("/content", func(r chi.Router) { ContentRouter(r, contentService, auth) })
	api.router = router
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/users", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized access.", decodeBody(t, rec)["message"])

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Invalid or expired token", body["message"])
	assert.Equal(t, "token has expired", body["error"])

	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/me", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hr@ems.test", decodeBody(t, rec)["email"])
}

func TestUserUpsertAndList(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/users", map[string]any{"email": "a@ems.test", "name": "Ada"}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email, name, and role are required", decodeBody(t, rec)["message"])

	rec = api.do(t, http.MethodPost, "/users", map[string]any{"email": "a@ems.test", "name": "Ada", "role": "Employee"}, false)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/users", map[string]any{"email": "a@ems.test", "name": "Ada L", "role": "employee"}, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, api.users.Len())

	api.users.Seed(bson.M{"email": "h@ems.test", "name": "Hal", "role": "HR", "isVerified": true})

	rec = api.do(t, http.MethodGet, "/users?role=hr", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []types.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "hr", users[0].Role)

	rec = api.do(t, http.MethodGet, "/users/verified", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "h@ems.test", users[0].Email)

	rec = api.do(t, http.MethodGet, "/users/nobody@ems.test", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeBody(t, rec)["message"])
}

func TestUserFireTwice(t *testing.T) {
	api := newTestAPI(t)
	ids := api.users.Seed(bson.M{"email": "a@ems.test", "name": "Ada", "role": "employee", "status": "active"})
	id := ids[0].(primitive.ObjectID).Hex()

	rec := api.do(t, http.MethodPatch, "/users/"+id+"/fire", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "User fired successfully", body["message"])
	assert.Equal(t, "updated", body["outcome"])

	rec = api.do(t, http.MethodPatch, "/users/"+id+"/fire", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "User is already fired", body["message"])
	assert.Equal(t, "already_applied", body["outcome"])

	rec = api.do(t, http.MethodPatch, "/users/"+primitive.NewObjectID().Hex()+"/fire", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeBody(t, rec)["message"])
}

func TestUserPromoteLegacyStringID(t *testing.T) {
	api := newTestAPI(t)
	api.users.Seed(bson.M{"_id": "legacy-7", "email": "l@ems.test", "name": "Lee", "role": "employee"})

	rec := api.do(t, http.MethodPatch, "/users/legacy-7/makeHR", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User promoted to HR", decodeBody(t, rec)["message"])

	rec = api.do(t, http.MethodPatch, "/users/legacy-7/makeHR", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User is already HR", decodeBody(t, rec)["message"])
}

func TestUserSetSalary(t *testing.T) {
	api := newTestAPI(t)
	ids := api.users.Seed(bson.M{"email": "a@ems.test", "name": "Ada", "role": "employee", "salary": 1000.0})
	id := ids[0].(primitive.ObjectID).Hex()

	before := api.users.Calls()
	rec := api.do(t, http.MethodPatch, "/users/"+id+"/salary", map[string]any{"salary": "abc"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid salary", decodeBody(t, rec)["message"])
	assert.Equal(t, before, api.users.Calls())

	rec = api.do(t, http.MethodPatch, "/users/"+id+"/salary", map[string]any{}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPatch, "/users/"+id+"/salary", map[string]any{"Salary": "2500"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Salary updated successfully", decodeBody(t, rec)["message"])

	rec = api.do(t, http.MethodPatch, "/users/"+id+"/salary", map[string]any{"salary": 2500}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Salary is already set to that amount", decodeBody(t, rec)["message"])

	assert.Equal(t, 2500.0, api.users.Docs()[0]["salary"])
}

func TestWorks(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/works", map[string]any{"task": "Sales"}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/works", map[string]any{"email": "a@ems.test", "task": "Sales", "assignedDate": "2026-01-02"}, false)
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := decodeBody(t, rec)["insertedId"].(string)
	require.NotEmpty(t, id)

	rec = api.do(t, http.MethodPost, "/works", map[string]any{"email": "a@ems.test", "task": "Support", "assignedDate": "2026-03-04"}, false)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodGet, "/works?email=a@ems.test", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "Support", items[0]["task"])

	rec = api.do(t, http.MethodPut, "/works/"+id, map[string]any{"hours": 6}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody(t, rec)["modifiedCount"])

	rec = api.do(t, http.MethodDelete, "/works/not-an-id", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodDelete, "/works/"+primitive.NewObjectID().Hex(), nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, "/works/"+id, nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, api.works.Len())
}

func TestPayrollRequestUnknownEmployee(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/payroll/request", map[string]any{"employeeId": primitive.NewObjectID().Hex(), "month": "May", "year": 2026}, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Employee not found", decodeBody(t, rec)["message"])
	assert.Equal(t, 0, api.payroll.Len())
}

func TestPayrollFlow(t *testing.T) {
	api := newTestAPI(t)
	ids := api.users.Seed(bson.M{"email": "a@ems.test", "name": "Ada", "role": "employee", "salary": 1200.0, "designation": "Engineer"})
	employeeID := ids[0].(primitive.ObjectID).Hex()

	rec := api.do(t, http.MethodPost, "/payroll/request", map[string]any{"employeeId": employeeID, "month": "may", "year": 2026}, false)
	require.Equal(t, http.StatusCreated, rec.Code)
	payrollID, _ := decodeBody(t, rec)["insertedId"].(string)
	require.NotEmpty(t, payrollID)

	rec = api.do(t, http.MethodPatch, "/payroll/"+payrollID, map[string]any{"status": "approved"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPatch, "/payroll/"+payrollID, map[string]any{"status": "bogus"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for i := 0; i < 2; i++ {
		rec = api.do(t, http.MethodPatch, "/payroll/"+payrollID, map[string]any{"status": "approved"}, true)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "updated", decodeBody(t, rec)["outcome"])
	}

	rec = api.do(t, http.MethodPost, "/payments/mark-paid", map[string]any{"payrollId": payrollID, "paymentId": "pi_1"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Payment recorded successfully", decodeBody(t, rec)["message"])

	rec = api.do(t, http.MethodPost, "/payments/mark-paid", map[string]any{"payrollId": payrollID, "paymentId": "pi_1"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Payment was already recorded", decodeBody(t, rec)["message"])

	rec = api.do(t, http.MethodPatch, "/payroll/"+payrollID, map[string]any{"status": "rejected"}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodGet, "/payments/a@ems.test", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var page types.PaymentPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.TotalCount)
	require.Len(t, page.Payments, 1)
	assert.Equal(t, "May", page.Payments[0].Month)
	assert.Equal(t, 1200.0, page.Payments[0].Amount)

	rec = api.do(t, http.MethodGet, "/payroll/"+payrollID, nil, false)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = api.do(t, http.MethodGet, "/payroll", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var requests []types.PayrollRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &requests))
	require.Len(t, requests, 1)
	assert.Equal(t, types.PayrollPaid, requests[0].Status)
	assert.Equal(t, "hr@ems.test", requests[0].ApprovedBy)
}

func TestPaymentsPagination(t *testing.T) {
	api := newTestAPI(t)
	payments := bson.A{}
	for _, month := range []string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"} {
		payments = append(payments, bson.M{"month": month, "year": 2025, "amount": 100.0})
	}
	api.payments.Seed(bson.M{"email": "a@ems.test", "payments": payments})

	rec := api.do(t, http.MethodGet, "/payments/a@ems.test?page=3&limit=5", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var page types.PaymentPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 12, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Payments, 2)
	assert.Equal(t, "February", page.Payments[0].Month)
	assert.Equal(t, "January", page.Payments[1].Month)

	rec = api.do(t, http.MethodGet, "/payments/a@ems.test?page=0", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/payments/a@ems.test?limit=x", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/payments/nobody@ems.test", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/payments/create-payment-intent", map[string]any{"amount": 10, "employeeId": "x"}, true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPaymentStatement(t *testing.T) {
	api := newTestAPI(t)
	api.payments.Seed(bson.M{"email": "a@ems.test", "designation": "Engineer", "payments": bson.A{
		bson.M{"month": "May", "year": 2026, "amount": 1200.0},
	}})

	rec := api.do(t, http.MethodGet, "/payments/a@ems.test/statement", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/payments/a@ems.test/statement", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestContent(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/content", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/content", map[string]any{"hero": "Welcome"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/content", map[string]any{"hero": "Welcome"}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/content", map[string]any{"hero": "Again"}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodPatch, "/content", map[string]any{}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPatch, "/content", map[string]any{"about": "We pay people"}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/content", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Welcome", body["hero"])
	assert.Equal(t, "We pay people", body["about"])
	assert.Equal(t, 1, api.content.Len())

	rec = api.do(t, http.MethodGet, "/content/assets/content/a.png", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStoreFailureIsGeneric(t *testing.T) {
	api := newTestAPI(t)
	api.works.Err = errors.New("connection reset by peer")

	rec := api.do(t, http.MethodGet, "/works", nil, false)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeBody(t, rec)["message"])
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestMalformedJSON(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/users", "{not json", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
