package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"newsgrader/agent"
	"newsgrader/audit"
	"newsgrader/config"
	"newsgrader/server"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	auditor, err := audit.NewAuditor(agent.MockClient{}, audit.Options{}, nil)
	require.NoError(t, err)
	srv, err := server.New(auditor, config.Config{APIKey: "tvly-server"}, nil)
	require.NoError(t, err)
	return srv.Routes()
}

func TestHandleAudit(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/audits",
		strings.NewReader(`{"url":"https://example.com/story","depth":"mini"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Result     audit.Result `json:"result"`
		ReportHTML string       `json:"report_html"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, audit.GradeB, resp.Result.LetterGrade)
	require.Contains(t, resp.ReportHTML, "Mostly Accurate")
}

func TestHandleAuditMissingURL(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/audits", strings.NewReader(`{"depth":"mini"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAuditBadDepth(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/audits",
		strings.NewReader(`{"url":"https://example.com","depth":"turbo"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAuditStreamIgnoresQueryCredential(t *testing.T) {
	// No server-side key configured: the credential must come from the
	// Authorization header, never the query string.
	auditor, err := audit.NewAuditor(agent.MockClient{}, audit.Options{}, nil)
	require.NoError(t, err)
	srv, err := server.New(auditor, config.Config{}, nil)
	require.NoError(t, err)
	handler := srv.Routes()

	req := httptest.NewRequest(http.MethodGet,
		"/api/audits/stream?url=https://example.com/story&api_key=tvly-leaked", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Contains(t, rec.Body.String(), "event: error")

	req = httptest.NewRequest(http.MethodGet, "/api/audits/stream?url=https://example.com/story", nil)
	req.Header.Set("Authorization", "Bearer tvly-header")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Contains(t, rec.Body.String(), "event: result")
}

func TestHandleAuditStream(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/audits/stream?url=https://example.com/story", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	require.Contains(t, body, "event: result")
	require.Contains(t, body, "data: [DONE]")
}
