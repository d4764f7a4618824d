package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) UnifiedResponse {
	t.Helper()
	var resp UnifiedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Error(c, http.StatusNotFound, "Bot不存在或已停用")

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.False(t, resp.Success)
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, "Bot不存在或已停用", resp.Message)
	require.Empty(t, resp.Error)
}

func TestErrorWithDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	ErrorWithDetail(c, http.StatusInternalServerError, "流式初始化失败", errors.New("响应流不支持flush"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec)
	require.False(t, resp.Success)
	require.Equal(t, "流式初始化失败", resp.Message)
	require.Equal(t, "响应流不支持flush", resp.Error)
}
