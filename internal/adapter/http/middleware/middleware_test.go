package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"token-ledger/internal/core/ports"
	"token-ledger/internal/core/ports/mocks"
	"token-ledger/internal/service"
	"token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testProviderSecret = "whsec_test"

func signatureRouter(sigSvc ports.SignatureService, captured *string) *gin.Engine {
	router := gin.New()
	router.POST("/api/v1/webhooks/payments", ProviderSignature(sigSvc, testProviderSecret, time.Minute, zerolog.Nop()), func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		if captured != nil {
			*captured = string(b)
		}
		c.JSON(200, gin.H{"ok": true})
	})
	return router
}

func signedRequest(t *testing.T, body string, ts int64, sign func(canonical string) string) *http.Request {
	t.Helper()
	sigSvc := service.NewHMACSignatureService()
	canonical := sigSvc.BuildCanonicalString(http.MethodPost, "/api/v1/webhooks/payments", ts, body)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewBufferString(body))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, sign(canonical))
	return req
}

func TestProviderSignature_MissingHeaders(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := signatureRouter(mocks.NewMockSignatureService(ctrl), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProviderSignature_ExpiredTimestamp(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := signatureRouter(mocks.NewMockSignatureService(ctrl), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", nil)
	req.Header.Set(HeaderSignature, "sig")
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(time.Now().Add(-2*time.Minute).Unix(), 10))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProviderSignature_FutureTimestamp(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := signatureRouter(mocks.NewMockSignatureService(ctrl), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", nil)
	req.Header.Set(HeaderSignature, "sig")
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(time.Now().Add(2*time.Minute).Unix(), 10))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProviderSignature_Valid(t *testing.T) {
	sigSvc := service.NewHMACSignatureService()
	var seen string
	router := signatureRouter(sigSvc, &seen)

	body := `{"event_id":"evt_1","amount":"50"}`
	req := signedRequest(t, body, time.Now().Unix(), func(canonical string) string {
		return sigSvc.Sign(testProviderSecret, canonical)
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, seen, "body must be readable again after verification")
}

func TestProviderSignature_WrongSecret(t *testing.T) {
	sigSvc := service.NewHMACSignatureService()
	router := signatureRouter(sigSvc, nil)

	req := signedRequest(t, `{}`, time.Now().Unix(), func(canonical string) string {
		return sigSvc.Sign("someone-else", canonical)
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProviderSignature_TamperedBody(t *testing.T) {
	sigSvc := service.NewHMACSignatureService()
	router := signatureRouter(sigSvc, nil)

	ts := time.Now().Unix()
	sig := sigSvc.Sign(testProviderSecret, sigSvc.BuildCanonicalString(http.MethodPost, "/api/v1/webhooks/payments", ts, `{"amount":"5"}`))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewBufferString(`{"amount":"5000"}`))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, sig)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokenSvc := mocks.NewMockTokenService(ctrl)

	router := gin.New()
	router.GET("/test", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	for _, header := range []string{"", "Bearer ", "Basic abc", "bearer token"} {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("bad_token").Return(nil, assert.AnError)

	router := gin.New()
	router.GET("/test", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer bad_token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokenSvc := mocks.NewMockTokenService(ctrl)

	accountID := uuid.New()
	tokenSvc.EXPECT().Validate("good_token").Return(&ports.TokenClaims{AccountID: accountID}, nil)

	var captured uuid.UUID
	router := gin.New()
	router.GET("/test", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		captured, _ = AccountID(c)
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer good_token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, accountID, captured)
}

func TestRequestID_PropagatesHeader(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		response.OK(c, gin.H{})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
	var body response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "req-123", body.RequestID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	_, err := uuid.Parse(w.Header().Get(HeaderRequestID))
	assert.NoError(t, err, "generated id should be a uuid")
}

func TestRecovery_PanicRecovered(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(zerolog.Nop()))
	router.GET("/panic", func(c *gin.Context) {
		panic("something went wrong")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SYS_001", resp["error_code"])
	assert.NotEmpty(t, resp["request_id"])
}

func TestRequestLogger_WritesEntry(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	accountID := uuid.New()
	router := gin.New()
	router.Use(RequestLogger(log))
	router.GET("/accounts/:id", func(c *gin.Context) {
		c.Set(CtxAccountID, accountID)
		c.Status(http.StatusNotFound)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/accounts/x", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "/accounts/:id", entry["path"])
	assert.Equal(t, accountID.String(), entry["account_id"])
	assert.EqualValues(t, 404, entry["status"])
}
