package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigalul/gym-appointment/internal/models"
	appErrors "github.com/yigalul/gym-appointment/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

type recordingAudit struct {
	logs []*models.AuditLog
	err  error
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return r.err
}

type requestCounter struct {
	paths []string
}

func (r *requestCounter) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	r.paths = append(r.paths, method+" "+path)
}

func newTestRouter(validator TokenValidator, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/", JWT(validator))
	group.PUT("/clients/:id", append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })...)
	return router
}

func serve(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestJWTRejectsMissingAndMalformedTokens(t *testing.T) {
	router := newTestRouter(stubValidator{claims: &models.JWTClaims{UserID: 10, Role: models.RoleClient}})

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodPut, "/clients/10", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodPut, "/clients/10", "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodPut, "/clients/10", "Bearer bad").Code)
	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodPut, "/clients/10", "Bearer good").Code)
}

func TestRBACAllowsSelfAndListedRoles(t *testing.T) {
	client := stubValidator{claims: &models.JWTClaims{UserID: 10, Role: models.RoleClient}}
	router := newTestRouter(client, RBAC(string(models.RoleAdmin), RoleSelf))

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodPut, "/clients/10", "Bearer good").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodPut, "/clients/11", "Bearer good").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodPut, "/clients/abc", "Bearer good").Code)

	admin := stubValidator{claims: &models.JWTClaims{UserID: 1, Role: models.RoleAdmin}}
	router = newTestRouter(admin, RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodPut, "/clients/11", "Bearer good").Code)
}

func TestRBACWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RBAC(string(models.RoleAdmin))(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	audit := &recordingAudit{err: errors.New("db down")}
	validator := stubValidator{claims: &models.JWTClaims{UserID: 10, Role: models.RoleClient}}
	router := newTestRouter(validator, Audit(audit, nil, models.AuditActionDefaultSlots, "client"))

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodPut, "/clients/10", "Bearer good").Code)
	require.Len(t, audit.logs, 1)
	log := audit.logs[0]
	require.NotNil(t, log.UserID)
	assert.Equal(t, int64(10), *log.UserID)
	require.NotNil(t, log.ResourceID)
	assert.Equal(t, "10", *log.ResourceID)
	assert.Equal(t, models.AuditActionDefaultSlots, log.Action)

	serve(router, http.MethodPut, "/clients/10", "Bearer bad")
	assert.Len(t, audit.logs, 1)
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	counter := &requestCounter{}
	router := gin.New()
	router.Use(Metrics(counter))
	router.GET("/appointments/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodGet, "/appointments/7", "")
	serve(router, http.MethodGet, "/nowhere", "")

	assert.Equal(t, []string{"GET /appointments/:id", "GET unmatched"}, counter.paths)
}

func TestResponseMetaCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	SetCacheHit(c, true)

	assert.Equal(t, true, ExtractMeta(c)[cacheHitKey])
}
