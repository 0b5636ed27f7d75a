package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andvari/socialcore/internal/principal"
)

func init() { gin.SetMode(gin.TestMode) }

func newTestHandler(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	svc, mock := newMockService(t)
	h := NewHandler(svc, zap.NewNop().Sugar())

	r := gin.New()
	r.Use(func(c *gin.Context) { principal.Set(c, principal.Principal{ID: 42}) })
	r.POST("/sessions/end-all", h.EndAll)
	return r, mock
}

// Without the session token header there is no current session to
// spare, so the request is rejected instead of ending everything.
func TestEndAllWithoutTokenHeaderIsRejected(t *testing.T) {
	r, mock := newTestHandler(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/end-all", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndAllSparesTheCurrentSession(t *testing.T) {
	r, mock := newTestHandler(t)

	mock.ExpectExec("UPDATE sessions SET is_active = false").
		WithArgs(int64(42), "current").
		WillReturnResult(sqlmock.NewResult(0, 2))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/end-all", nil)
	req.Header.Set(TokenHeader, "current")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
