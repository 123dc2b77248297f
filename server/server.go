package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"newsgrader/agent"
	"newsgrader/audit"
	"newsgrader/config"
)

// Server exposes the auditor over HTTP for the presentation layer.
type Server struct {
	auditor *audit.Auditor
	cfg     config.Config
	logger  *zap.Logger
}

func New(auditor *audit.Auditor, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if auditor == nil {
		return nil, errors.New("server: auditor required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{auditor: auditor, cfg: cfg, logger: logger}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logMiddleware)
	r.Post("/api/audits", s.handleAudit)
	r.Get("/api/audits/stream", s.handleAuditStream)
	return r
}

// --- Handlers ---

type auditReq struct {
	URL    string `json:"url"`
	Depth  string `json:"depth"`
	APIKey string `json:"api_key"`
}

type progressLine struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
	Size int    `json:"size,omitempty"`
}

type auditResp struct {
	Result     audit.Result   `json:"result"`
	Progress   []progressLine `json:"progress"`
	ReportHTML string         `json:"report_html"`
}

type errorResp struct {
	Error string `json:"error"`
	// Raw carries the unparseable agent response for the diagnostic view.
	Raw string `json:"raw,omitempty"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req auditReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	auditRequest, err := s.buildRequest(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}

	var progress []progressLine
	sink := func(ev agent.ProgressEvent) {
		progress = append(progress, toLine(ev))
	}

	ctx, cancel := context.WithTimeout(r.Context(), 6*time.Minute)
	defer cancel()
	result, err := s.auditor.RunAudit(ctx, auditRequest, sink)
	if err != nil {
		s.writeAuditError(w, err)
		return
	}

	html, err := RenderHTML(result)
	if err != nil {
		s.logger.Warn("report rendering failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, auditResp{Result: result, Progress: progress, ReportHTML: html})
}

// handleAuditStream relays progress events and the final result over SSE so
// the presentation layer can show live status text.
func (s *Server) handleAuditStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Credentials never ride in the query string, where proxy and access
	// logs would retain them; only the Authorization header or the server's
	// configured key is accepted.
	auditRequest, err := s.buildRequest(auditReq{
		URL:    r.URL.Query().Get("url"),
		Depth:  r.URL.Query().Get("depth"),
		APIKey: bearerToken(r.Header.Get("Authorization")),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	writeEvent := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	sink := func(ev agent.ProgressEvent) {
		writeEvent("progress", toLine(ev))
	}

	ctx, cancel := context.WithTimeout(r.Context(), 6*time.Minute)
	defer cancel()
	result, err := s.auditor.RunAudit(ctx, auditRequest, sink)
	if err != nil {
		writeEvent("error", errorFor(err))
		return
	}
	writeEvent("result", result)
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// --- Helpers ---

func (s *Server) buildRequest(req auditReq) (audit.Request, error) {
	depth, err := audit.ParseDepth(req.Depth)
	if err != nil {
		return audit.Request{}, err
	}
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = s.cfg.APIKey
	}
	return audit.Request{URL: req.URL, APIKey: apiKey, Depth: depth}, nil
}

func (s *Server) writeAuditError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, audit.ErrMissingURL) || errors.Is(err, audit.ErrMissingCredential) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorFor(err))
}

func errorFor(err error) errorResp {
	var parseErr *audit.ParseError
	if errors.As(err, &parseErr) {
		return errorResp{Error: err.Error(), Raw: parseErr.Raw}
	}
	var transport *agent.TransportError
	if errors.As(err, &transport) {
		raw := transport.Raw
		if raw == "" {
			raw = transport.Body
		}
		if raw != "" {
			return errorResp{Error: err.Error(), Raw: raw}
		}
	}
	return errorResp{Error: err.Error()}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func toLine(ev agent.ProgressEvent) progressLine {
	switch ev.Kind {
	case agent.ProgressPlan:
		return progressLine{Kind: "plan", Text: ev.Text}
	case agent.ProgressSearching:
		return progressLine{Kind: "searching", Text: ev.Text}
	case agent.ProgressThinking:
		return progressLine{Kind: "thinking", Text: ev.Text}
	case agent.ProgressStructuredChunk:
		return progressLine{Kind: "structured_chunk"}
	default:
		return progressLine{Kind: "text_appended", Size: ev.Size}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}
