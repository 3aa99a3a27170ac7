package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Success(c, gin.H{"balance": 80})
	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, map[string]interface{}{"balance": float64(80)}, resp.Data)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	BusinessErrorWithData(c, CodeRefundRejected, "rejected", gin.H{"refunded": false})
	assert.Equal(t, http.StatusOK, w.Code)
	resp = decode(t, w)
	assert.Equal(t, CodeRefundRejected, resp.Code)
	assert.Equal(t, map[string]interface{}{"refunded": false}, resp.Data)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	Abort(c, http.StatusUnauthorized, CodeUnauthorized, "no")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, c.IsAborted())
	assert.Nil(t, decode(t, w).Data)
}
