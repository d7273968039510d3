package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
)

// backend serves canned envelopes keyed by "METHOD /path" and records the
// last request it saw.
type backend struct {
	t        *testing.T
	routes   map[string]func(w http.ResponseWriter, r *http.Request)
	lastReq  *http.Request
	lastBody []byte
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	b := &backend{t: t, routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.lastReq = r
		b.lastBody, _ = io.ReadAll(r.Body)
		h, ok := b.routes[r.Method+" "+r.URL.Path]
		if !ok {
			writeEnvelope(w, http.StatusNotFound, map[string]any{"success": false, "message": "Route not found"})
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) on(route string, status int, body map[string]any) {
	b.routes[route] = func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, status, body)
	}
}

func writeEnvelope(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(data any) map[string]any {
	return map[string]any{"success": true, "data": data}
}

func TestClient_LoginSendsCredentialsAndReturnsToken(t *testing.T) {
	b, srv := newBackend(t)
	b.on("POST /api/auth/login", http.StatusOK, ok(map[string]any{
		"token": "tok-123",
		"user":  map[string]any{"_id": "u1", "name": "Ada", "email": "ada@example.com", "currency": "EUR"},
	}))

	c := New(srv.URL + "/api/")
	res, err := c.Login(context.Background(), core.Credentials{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, "tok-123", res.Token)
	assert.Equal(t, "Ada", res.User.Name)
	assert.Equal(t, "application/json", b.lastReq.Header.Get("Content-Type"))
	assert.Empty(t, b.lastReq.Header.Get("Authorization"))
	assert.JSONEq(t, `{"email":"ada@example.com","password":"pw"}`, string(b.lastBody))
}

func TestClient_WithTokenSetsBearerHeader(t *testing.T) {
	b, srv := newBackend(t)
	b.on("GET /api/auth/me", http.StatusOK, ok(map[string]any{"user": map[string]any{"_id": "u1", "name": "Ada"}}))

	base := New(srv.URL + "/api")
	authed := base.WithToken("tok-xyz")

	u, err := authed.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Bearer tok-xyz", b.lastReq.Header.Get("Authorization"))
	assert.Empty(t, base.Token(), "WithToken must not mutate the original client")
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     map[string]any
		sentinel error
		message  string
	}{
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			body:     map[string]any{"success": false, "message": "Token expired"},
			sentinel: ErrUnauthorized,
			message:  "Token expired",
		},
		{
			name:     "server error hides backend message",
			status:   http.StatusInternalServerError,
			body:     map[string]any{"success": false, "message": "mongo exploded"},
			sentinel: ErrServer,
			message:  GenericServerMessage,
		},
		{
			name:     "bad gateway",
			status:   http.StatusBadGateway,
			body:     nil,
			sentinel: ErrServer,
			message:  GenericServerMessage,
		},
		{
			name:     "not found",
			status:   http.StatusNotFound,
			body:     map[string]any{"success": false, "message": "Transaction not found"},
			sentinel: ErrNotFound,
			message:  "Transaction not found",
		},
		{
			name:   "validation",
			status: http.StatusBadRequest,
			body: map[string]any{
				"success": false,
				"message": "Validation failed",
				"errors":  []map[string]string{{"field": "amount", "message": "Amount must be positive"}},
			},
			sentinel: ErrValidation,
			message:  "Validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, srv := newBackend(t)
			b.routes["GET /transactions/recent"] = func(w http.ResponseWriter, r *http.Request) {
				if tt.body == nil {
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte("<html>bad gateway</html>"))
					return
				}
				writeEnvelope(w, tt.status, tt.body)
			}

			_, err := New(srv.URL).WithToken("t").Recent(context.Background(), 5)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.message, UserMessage(err))

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}
}

func TestClient_ValidationFieldMessages(t *testing.T) {
	b, srv := newBackend(t)
	b.on("POST /transactions", http.StatusUnprocessableEntity, map[string]any{
		"success": false,
		"message": "Invalid input",
		"errors": []map[string]string{
			{"field": "title", "message": "Title is required"},
			{"field": "amount", "message": "Amount must be positive"},
		},
	})

	_, err := New(srv.URL).CreateTransaction(context.Background(), core.TransactionInput{})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, map[string]string{
		"title":  "Title is required",
		"amount": "Amount must be positive",
	}, apiErr.FieldMessages())
}

func TestClient_SuccessFalseOn200(t *testing.T) {
	b, srv := newBackend(t)
	b.on("POST /categories/defaults", http.StatusOK, map[string]any{"success": false, "message": "Defaults already exist"})

	err := New(srv.URL).CreateDefaultCategories(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Defaults already exist", UserMessage(err))
	assert.NotErrorIs(t, err, ErrServer)
}

func TestClient_TransportErrorMessage(t *testing.T) {
	_, srv := newBackend(t)
	url := srv.URL
	srv.Close()

	_, err := New(url).Categories(context.Background(), "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrServer)
	assert.Contains(t, UserMessage(err), "GET /categories")
}

func TestClient_TimeoutIsApplied(t *testing.T) {
	b, srv := newBackend(t)
	b.routes["GET /auth/me"] = func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeEnvelope(w, http.StatusOK, ok(map[string]any{"user": map[string]any{}}))
	}

	_, err := New(srv.URL, WithTimeout(20*time.Millisecond)).Me(context.Background())
	require.Error(t, err)
}

func TestClient_TransactionsQueryAndPagination(t *testing.T) {
	b, srv := newBackend(t)
	b.on("GET /transactions", http.StatusOK, ok(map[string]any{
		"transactions": []map[string]any{
			{"_id": "t1", "title": "Rent", "amount": 950.5, "type": "expense", "category": map[string]any{"_id": "c1", "name": "Housing"}, "date": "2024-05-01T00:00:00Z", "status": "completed"},
		},
		"pagination": map[string]any{"current": 2, "pages": 3, "total": 25, "limit": 10},
	}))

	page, err := New(srv.URL).Transactions(context.Background(), TransactionFilter{
		Search: "rent",
		Type:   core.Expense,
		Page:   2,
		Limit:  10,
	})
	require.NoError(t, err)

	q := b.lastReq.URL.Query()
	assert.Equal(t, "rent", q.Get("search"))
	assert.Equal(t, "expense", q.Get("type"))
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "10", q.Get("limit"))
	assert.False(t, q.Has("category"), "empty filters must not be sent")

	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "Housing", page.Transactions[0].Category.Name)
	assert.Equal(t, int64(95050), page.Transactions[0].Amount.Cents())
	assert.Equal(t, core.Pagination{Current: 2, Pages: 3, Total: 25, Limit: 10}, page.Pagination)
}

func TestClient_SingleRecordWrappedOrBare(t *testing.T) {
	b, srv := newBackend(t)
	b.on("GET /transactions/t1", http.StatusOK, ok(map[string]any{"_id": "t1", "title": "Bare", "date": "2024-01-01T00:00:00Z"}))
	b.on("GET /transactions/t2", http.StatusOK, ok(map[string]any{"transaction": map[string]any{"_id": "t2", "title": "Wrapped", "date": "2024-01-01T00:00:00Z"}}))

	c := New(srv.URL)
	tx1, err := c.Transaction(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Bare", tx1.Title)

	tx2, err := c.Transaction(context.Background(), "t2")
	require.NoError(t, err)
	assert.Equal(t, "Wrapped", tx2.Title)
}

func TestClient_DeleteAccountSendsPasswordInBody(t *testing.T) {
	b, srv := newBackend(t)
	b.on("DELETE /users/account", http.StatusOK, ok(nil))

	require.NoError(t, New(srv.URL).WithToken("t").DeleteAccount(context.Background(), "hunter2"))
	assert.Equal(t, http.MethodDelete, b.lastReq.Method)
	assert.JSONEq(t, `{"password":"hunter2"}`, string(b.lastBody))
}

func TestClient_AnalyticsEndpoints(t *testing.T) {
	b, srv := newBackend(t)
	b.on("GET /analytics/dashboard", http.StatusOK, ok(map[string]any{
		"summary": map[string]any{
			"income":  map[string]any{"total": 3000, "count": 2, "average": 1500},
			"expense": map[string]any{"total": 1200.25, "count": 8, "average": 150.03},
			"net":     1799.75,
		},
		"topCategories": []map[string]any{{"categoryName": "Food", "total": 400, "count": 5}},
		"period":        map[string]any{"startDate": "2024-05-01T00:00:00Z", "endDate": "2024-05-31T23:59:59Z", "type": "month"},
	}))
	b.on("GET /analytics/trends", http.StatusOK, ok(map[string]any{
		"trends": []map[string]any{{"_id": map[string]any{"year": 2024, "month": 4, "type": "income"}, "total": 10, "count": 1}},
	}))
	b.on("GET /analytics/categories", http.StatusOK, ok([]map[string]any{{"categoryName": "Food", "total": 40, "percentage": 55.5}}))
	b.on("GET /analytics/comparison", http.StatusOK, ok(map[string]any{"comparison": map[string]any{
		"income": map[string]any{"current": 100, "previous": 80, "change": 25, "changeType": "increase"},
	}}))

	c := New(srv.URL)
	ctx := context.Background()

	dash, err := c.Dashboard(ctx, core.PeriodYear)
	require.NoError(t, err)
	assert.Equal(t, "year", b.lastReq.URL.Query().Get("period"))
	assert.Equal(t, "1799.75", dash.Summary.Net.Plain())
	assert.Equal(t, "Food", dash.TopCategories[0].CategoryName)

	trends, err := c.Trends(ctx, core.PeriodMonth, core.Income)
	require.NoError(t, err)
	assert.Equal(t, "income", b.lastReq.URL.Query().Get("type"))
	require.Len(t, trends, 1)
	assert.Equal(t, 4, trends[0].ID.Month)

	cats, err := c.CategoryAnalytics(ctx, core.PeriodMonth, "")
	require.NoError(t, err)
	assert.InDelta(t, 55.5, cats[0].Percentage, 0.001)

	cmp, err := c.Comparison(ctx)
	require.NoError(t, err)
	assert.True(t, cmp.Income.Increased())
	assert.Equal(t, int64(8000), cmp.Income.Previous.Cents())
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("some-backend-secret"))
	require.NoError(t, err)

	got, err := TokenExpiry(signed)
	require.NoError(t, err)
	assert.True(t, got.Equal(exp), "got %v, want %v", got, exp)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "u1"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = TokenExpiry(noExp)
	assert.ErrorIs(t, err, ErrNoExpiry)

	_, err = TokenExpiry("not-a-jwt")
	assert.Error(t, err)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Unauthorized", UserMessage(&Error{Status: http.StatusUnauthorized}))
	assert.Equal(t, GenericServerMessage, UserMessage(&Error{Status: 503, Message: "db down"}))
	assert.Equal(t, "The request timed out. Please try again.", UserMessage(context.DeadlineExceeded))
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
}
