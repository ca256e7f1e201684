package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"goldledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware_test_secret_32_chars!"

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, Actor(c))
	})
	return r
}

func get(r *gin.Engine, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, role string, exp time.Duration, method jwt.SigningMethod, key any) string {
	t.Helper()
	claims := JWTClaims{
		UserID: "u-1", Username: "ana", Role: role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(exp))},
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return "Bearer " + s
}

// ── Tests: RequestID ─────────────────────────────────────────────────────────

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	w := get(r, nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	w = get(r, map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = get(r, map[string]string{RequestIDHeader: strings.Repeat("x", 65)})
	assert.Len(t, w.Header().Get(RequestIDHeader), 36, "oversized ids are replaced")
}

// ── Tests: JWT ───────────────────────────────────────────────────────────────

func TestJWTAuth(t *testing.T) {
	r := newEngine(JWTAuth(secret), RequireRole("manager", "admin"))

	w := get(r, map[string]string{"Authorization": bearer(t, "manager", time.Hour, jwt.SigningMethodHS256, []byte(secret))})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", w.Body.String())

	cases := map[string]struct {
		header string
		code   int
	}{
		"missing":      {"", http.StatusUnauthorized},
		"not bearer":   {"Basic abc", http.StatusUnauthorized},
		"garbage":      {"Bearer not.a.jwt", http.StatusUnauthorized},
		"expired":      {bearer(t, "manager", -time.Minute, jwt.SigningMethodHS256, []byte(secret)), http.StatusUnauthorized},
		"wrong secret": {bearer(t, "manager", time.Hour, jwt.SigningMethodHS256, []byte("another_secret_of_32_characters!")), http.StatusUnauthorized},
		"wrong role":   {bearer(t, "clerk", time.Hour, jwt.SigningMethodHS256, []byte(secret)), http.StatusForbidden},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := get(r, map[string]string{"Authorization": tc.header})
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestRequireRole_WithoutClaims(t *testing.T) {
	r := newEngine(RequireRole("admin"))
	assert.Equal(t, http.StatusForbidden, get(r, nil).Code)
}

// ── Tests: rate limiting ─────────────────────────────────────────────────────

func TestRateLimiter_MemoryStore(t *testing.T) {
	limit, err := RateLimiter("2-M", "test", nil)
	require.NoError(t, err)
	r := newEngine(limit)

	assert.Equal(t, http.StatusOK, get(r, nil).Code)
	assert.Equal(t, http.StatusOK, get(r, nil).Code)

	w := get(r, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimiter_BadFormat(t *testing.T) {
	_, err := RateLimiter("lots", "test", nil)
	assert.Error(t, err)
}

// ── Tests: recovery ──────────────────────────────────────────────────────────

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/", func(*gin.Context) { panic("boom") })

	w := get(r, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

// ── Tests: error rendering ───────────────────────────────────────────────────

func failingEngine(err error, written bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.GET("/", func(c *gin.Context) {
		if written {
			c.Status(http.StatusCreated)
			c.Writer.WriteHeaderNow()
		}
		_ = c.Error(err)
		c.Abort()
	})
	return r
}

func TestErrorHandler_RendersLedgerErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		status     int
		kind       string
		detail     string
		retryAfter string
	}{
		{
			name:   "insufficient ownership keeps the balance",
			err:    &service.LedgerError{Kind: service.KindInsufficientOwnership, Message: "only 2g owned", Balance: &service.BalanceSnapshot{Available: decimal.NewFromInt(2), Requested: decimal.NewFromInt(5)}},
			status: http.StatusConflict, kind: "insufficient_ownership", detail: "only 2g owned",
		},
		{
			name:   "conflict is retryable",
			err:    fmt.Errorf("sale: %w", service.ErrConflict),
			status: http.StatusConflict, kind: "conflict", detail: "concurrent modification", retryAfter: "1",
		},
		{
			name:   "invalid input",
			err:    &service.LedgerError{Kind: service.KindInvalidInput, Message: "weight has more than 3 decimals"},
			status: http.StatusUnprocessableEntity, kind: "invalid_input", detail: "weight has more than 3 decimals",
		},
		{
			name:   "not found",
			err:    &service.LedgerError{Kind: service.KindNotFound, Message: "lot missing"},
			status: http.StatusNotFound, kind: "not_found", detail: "lot missing",
		},
		{
			name:   "invalid movement hides the message",
			err:    &service.LedgerError{Kind: service.KindInvalidMovement, Message: "weight would become negative"},
			status: http.StatusInternalServerError, kind: "invalid_movement", detail: "internal server error",
		},
		{
			name:   "plain error",
			err:    errors.New("pq: connection reset"),
			status: http.StatusInternalServerError, detail: "internal server error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(failingEngine(tc.err, false), nil)
			require.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.retryAfter, w.Header().Get("Retry-After"))

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.detail, body["detail"])
			if tc.kind == "" {
				assert.NotContains(t, body, "kind")
			} else {
				assert.Equal(t, tc.kind, body["kind"])
			}
			assert.NotContains(t, w.Body.String(), "pq:")
		})
	}
}

func TestErrorHandler_BalanceInBody(t *testing.T) {
	err := &service.LedgerError{Kind: service.KindInsufficientOwnership, Message: "short",
		Balance: &service.BalanceSnapshot{Available: decimal.NewFromInt(2), Requested: decimal.NewFromInt(5)}}
	w := get(failingEngine(err, false), nil)

	var body struct {
		Balance service.BalanceSnapshot `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Balance.Available.Equal(decimal.NewFromInt(2)))
	assert.True(t, body.Balance.Requested.Equal(decimal.NewFromInt(5)))
}

func TestErrorHandler_LeavesWrittenResponse(t *testing.T) {
	w := get(failingEngine(errors.New("late failure"), true), nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestStatusForKind_UnknownIs500(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusForKind("mystery"))
	assert.Equal(t, http.StatusConflict, StatusForKind(service.KindCreditLimitExceeded))
}

// ── Tests: CORS ──────────────────────────────────────────────────────────────

func TestCORS(t *testing.T) {
	dev, err := CORS(false, "")
	require.NoError(t, err)
	w := get(newEngine(dev), map[string]string{"Origin": "http://localhost:5173"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	prod, err := CORS(true, "https://shop.example, https://admin.example")
	require.NoError(t, err)
	r := newEngine(prod)
	w = get(r, map[string]string{"Origin": "https://admin.example"})
	assert.Equal(t, "https://admin.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusForbidden, get(r, map[string]string{"Origin": "https://evil.example"}).Code)

	locked, err := CORS(true, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(newEngine(locked), map[string]string{"Origin": "https://shop.example"}).Code)

	_, err = CORS(true, "shop.example")
	assert.Error(t, err)
}
