package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tracker/web/internal/authpw"
	"tracker/web/internal/model"
	"tracker/web/internal/rbac"
	"tracker/web/internal/session"
)

const maxFormMemory = 1 << 20

type HTTPServer struct {
	service    *Service
	gate       *session.Gate
	corsOrigin string
}

func NewHTTPServer(service *Service, gate *session.Gate, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, gate: gate, corsOrigin: corsOrigin}
}

// Handler runs request logging and CORS first, then the refresh gate, then
// the routes. Every route sees credentials the gate has settled.
func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(s.gate.Middleware(http.HandlerFunc(s.handle)))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		s.handleReady(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/sign-in" {
		s.handleSignIn(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/sign-up" {
		s.handleSignUp(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/auth/github" {
		redirect(w, r, s.service.GitHubLoginURL())
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/auth/callback/github" {
		s.handleGitHubCallback(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/sign-out" {
		session.Clear(w)
		redirect(w, r, "/sign-in")
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) > 0 && parts[0] == "app" {
		token := session.AccessToken(r)
		if token == "" {
			redirect(w, r, "/sign-in")
			return
		}
		s.handleApp(w, r, token, parts[1:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"refresh_cache": map[string]any{"status": "memory"},
	}
	if s.service.CacheConfigured() {
		checks["refresh_cache"] = map[string]any{"status": "ok"}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["refresh_cache"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

// Auth handlers

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var form authpw.LoginForm
	if err := decodeBody(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	pair, err := s.service.SignIn(r.Context(), form)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	session.SetPair(w, pair, s.service.Production())
	redirect(w, r, "/")
}

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var form authpw.RegisterForm
	if err := decodeBody(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if _, err := s.service.SignUp(r.Context(), form); err != nil {
		s.fail(w, r, err)
		return
	}
	redirect(w, r, "/sign-in")
}

func (s *HTTPServer) handleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		redirect(w, r, "/sign-in")
		return
	}
	pair, err := s.service.GitHubCallback(r.Context(), code)
	if err != nil {
		log.Printf("app: github login failed: %v", err)
		s.fail(w, r, err)
		return
	}
	session.SetPair(w, pair, s.service.Production())
	redirect(w, r, "/")
}

// App routes, all behind a signed-in session.

func (s *HTTPServer) handleApp(w http.ResponseWriter, r *http.Request, token string, parts []string) {
	ctx := r.Context()

	if len(parts) == 0 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		data, err := s.service.Layout(ctx, token, r.URL.Path)
		s.respond(w, r, http.StatusOK, data, err)
		return
	}

	switch parts[0] {
	case "orgs":
		s.handleOrgs(w, r, token, parts[1:])
		return
	case "invites":
		s.handleInvites(w, r, token, parts[1:])
		return
	case "board":
		s.handleBoard(w, r, token, parts[1:])
		return
	case "preferences":
		if len(parts) == 1 && r.Method == http.MethodPatch {
			var body model.UserPreferenceUpdate
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			pref, err := s.service.UpdatePreferences(ctx, token, body)
			s.respond(w, r, http.StatusOK, pref, err)
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleOrgs(w http.ResponseWriter, r *http.Request, token string, parts []string) {
	ctx := r.Context()

	if len(parts) == 0 {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		data, err := s.service.CreateOrg(ctx, token, body.Name)
		s.respond(w, r, http.StatusCreated, data, err)
		return
	}

	orgID, ok := parseID(w, parts[0])
	if !ok {
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodPatch:
		var body struct {
			Name    string  `json:"name"`
			LogoURL *string `json:"logo_url"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		data, err := s.service.UpdateOrg(ctx, token, orgID, body.Name, body.LogoURL)
		s.respond(w, r, http.StatusOK, data, err)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		data, err := s.service.DeleteOrg(ctx, token, orgID)
		s.respond(w, r, http.StatusOK, data, err)

	case len(parts) == 2 && parts[1] == "settings" && r.Method == http.MethodGet:
		data, err := s.service.OrgSettings(ctx, token, orgID)
		s.respond(w, r, http.StatusOK, data, err)

	case len(parts) == 2 && parts[1] == "members" && r.Method == http.MethodGet:
		data, err := s.service.Members(ctx, token, orgID)
		s.respond(w, r, http.StatusOK, data, err)

	case len(parts) == 2 && parts[1] == "members" && r.Method == http.MethodPost:
		var form authpw.InviteForm
		if err := decodeBody(r, &form); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		data, err := s.service.InviteMember(ctx, token, orgID, form)
		s.respond(w, r, http.StatusCreated, data, err)

	case len(parts) == 3 && parts[1] == "members" && r.Method == http.MethodPatch:
		userID, ok := parseID(w, parts[2])
		if !ok {
			return
		}
		var body struct {
			Role rbac.Role `json:"role"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		data, err := s.service.UpdateMemberRole(ctx, token, orgID, userID, body.Role)
		s.respond(w, r, http.StatusOK, data, err)

	case len(parts) == 3 && parts[1] == "members" && r.Method == http.MethodDelete:
		userID, ok := parseID(w, parts[2])
		if !ok {
			return
		}
		data, err := s.service.RemoveMember(ctx, token, orgID, userID)
		s.respond(w, r, http.StatusOK, data, err)

	case len(parts) == 3 && parts[1] == "invites" && r.Method == http.MethodDelete:
		data, err := s.service.CancelMemberInvite(ctx, token, orgID, parts[2])
		s.respond(w, r, http.StatusOK, data, err)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleInvites(w http.ResponseWriter, r *http.Request, token string, parts []string) {
	ctx := r.Context()

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		data, err := s.service.Invites(ctx, token)
		s.respond(w, r, http.StatusOK, data, err)

	case len(parts) == 2 && parts[1] == "accept" && r.Method == http.MethodPost:
		var body struct {
			OrgID string `json:"org_id"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		orgID, err := uuid.Parse(body.OrgID)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "org_id is required", nil)
			return
		}
		data, err := s.service.AcceptInvite(ctx, token, parts[0], orgID)
		s.respond(w, r, http.StatusOK, data, err)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		data, err := s.service.DeclineInvite(ctx, token, parts[0])
		s.respond(w, r, http.StatusOK, data, err)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleBoard(w http.ResponseWriter, r *http.Request, token string, parts []string) {
	ctx := r.Context()
	if len(parts) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	orgID, ok := parseID(w, parts[0])
	if !ok {
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		data, err := s.service.Board(ctx, token, orgID)
		s.respond(w, r, http.StatusOK, data, err)

	case len(parts) == 2 && parts[1] == "issues" && r.Method == http.MethodPost:
		var body model.IssueRequest
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		data, err := s.service.CreateIssue(ctx, token, orgID, body)
		s.respond(w, r, http.StatusCreated, data, err)

	case len(parts) == 3 && parts[1] == "issues" && r.Method == http.MethodPatch:
		issueID, ok := parseID(w, parts[2])
		if !ok {
			return
		}
		var body model.IssueUpdate
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		data, err := s.service.UpdateIssue(ctx, token, orgID, issueID, body)
		s.respond(w, r, http.StatusOK, data, err)

	case len(parts) == 3 && parts[1] == "issues" && r.Method == http.MethodDelete:
		issueID, ok := parseID(w, parts[2])
		if !ok {
			return
		}
		data, err := s.service.DeleteIssue(ctx, token, orgID, issueID)
		s.respond(w, r, http.StatusOK, data, err)

	case len(parts) == 4 && parts[1] == "issues" && parts[3] == "comments" && r.Method == http.MethodPost:
		issueID, ok := parseID(w, parts[2])
		if !ok {
			return
		}
		var body model.CommentRequest
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		data, err := s.service.CreateComment(ctx, token, orgID, issueID, body)
		s.respond(w, r, http.StatusCreated, data, err)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) respond(w http.ResponseWriter, r *http.Request, status int, payload any, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, status, payload)
}

// fail renders err. An API 401 means the session is gone: the cookies are
// dropped and the browser is sent to sign in again.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	if sessionExpired(err) {
		session.Clear(w)
		redirect(w, r, "/sign-in")
		return
	}
	if errors.Is(err, errNoOrgs) {
		redirect(w, r, "/orgs")
		return
	}
	var formErr *FormError
	if errors.As(err, &formErr) {
		writeJSON(w, formErr.Status, map[string]any{
			"form": map[string]any{"errors": formErr.Errors},
		})
		return
	}
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("app: %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	if corsOrigin != "*" {
		header.Set("Access-Control-Allow-Credentials", "true")
	}
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

// decodeBody reads JSON, or an HTML form post, into target. Form fields are
// matched to target's JSON names.
func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		return decodeForm(r, mediaType, target)
	}

	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func decodeForm(r *http.Request, mediaType string, target any) error {
	var err error
	if mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(maxFormMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return fmt.Errorf("invalid form body")
	}
	fields := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("invalid form body")
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("invalid form body")
	}
	return nil
}

func parseID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return uuid.Nil, false
	}
	return id, true
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
