package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"guidance/api/internal/search"
	"guidance/api/internal/store"

	"github.com/rs/zerolog/log"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := s.service.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":     false,
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": "ready"})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) == 0 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "Invalid URL")
		return
	}

	if len(parts) == 1 {
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, map[string]string{
				"msg": "Welcome to the Clinical Guideline Authoring App: API",
			})
			return
		}
		writeError(w, http.StatusNotFound, "Invalid URL")
		return
	}

	if r.Method == http.MethodGet && len(parts) == 2 && parts[1] == "search" {
		s.handleSearch(w, r)
		return
	}

	switch parts[1] {
	case "guidelines":
		s.handleGuidelines(w, r, parts)
	case "users":
		s.handleUsers(w, r, parts)
	case "branches":
		s.handleBranches(w, r, parts)
	case "approvals":
		s.handleApprovals(w, r, parts)
	default:
		writeError(w, http.StatusNotFound, "Invalid URL")
	}
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := search.Query{Text: strings.TrimSpace(r.URL.Query().Get("q"))}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Bad Request")
			return
		}
		q.Limit = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Bad Request")
			return
		}
		q.Offset = parsed
	}
	writeJSON(w, http.StatusOK, s.service.SearchGuidelines(q))
}

func (s *HTTPServer) handleGuidelines(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			guidelines, err := s.service.ListGuidelines(r.Context(), strings.TrimSpace(r.URL.Query().Get("search")))
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"guidelines": guidelines})
			return
		case http.MethodPost:
			var body store.Guideline
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "Bad Request")
				return
			}
			guideline, err := s.service.CreateGuideline(r.Context(), body)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"guideline": guideline})
			return
		}
	}

	if len(parts) == 3 {
		guidelineID := parts[2]
		switch r.Method {
		case http.MethodGet:
			guideline, err := s.service.GetGuideline(r.Context(), guidelineID)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"guideline": guideline})
			return
		case http.MethodPatch:
			var body struct {
				PatchedGuideline store.Guideline    `json:"patchedGuideline"`
				SubmissionInfo   store.ChangeRecord `json:"submissionInfo"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "Bad Request")
				return
			}
			guideline, err := s.service.MergeGuideline(r.Context(), guidelineID, body.PatchedGuideline, body.SubmissionInfo)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"guideline": guideline})
			return
		case http.MethodDelete:
			if err := s.service.DeleteGuideline(r.Context(), guidelineID); err != nil {
				s.respondError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	if r.Method == http.MethodGet && len(parts) == 4 && parts[3] == "history" {
		limit := 0
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Bad Request")
				return
			}
			limit = parsed
		}
		history, err := s.service.GuidelineHistory(r.Context(), parts[2], limit)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"history": history})
		return
	}

	writeError(w, http.StatusNotFound, "Invalid URL")
}

func (s *HTTPServer) handleUsers(w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method == http.MethodGet && len(parts) == 2 {
		users, err := s.service.ListUsers(r.Context())
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
		return
	}

	if r.Method == http.MethodGet && len(parts) == 3 {
		user, err := s.service.GetUser(r.Context(), parts[2])
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": user})
		return
	}

	writeError(w, http.StatusNotFound, "Invalid URL")
}

func (s *HTTPServer) handleBranches(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			branches, err := s.service.ListBranches(r.Context())
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"branches": branches})
			return
		case http.MethodPost:
			branchType, ok := requireTypeParam(w, r, "edit", "create")
			if !ok {
				return
			}
			var body CreateBranchInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "Bad Request")
				return
			}

			var branch store.Branch
			var err error
			if branchType == "edit" {
				branch, err = s.service.CreateEditBranch(r.Context(), body)
			} else {
				branch, err = s.service.CreateTemplateBranch(r.Context(), body)
			}
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"branch": branch})
			return
		}
	}

	if len(parts) == 3 {
		branchName := parts[2]
		switch r.Method {
		case http.MethodGet:
			branch, err := s.service.GetBranch(r.Context(), branchName)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"branch": branch})
			return
		case http.MethodPatch:
			var body PatchSectionInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "Bad Request")
				return
			}
			branch, err := s.service.PatchBranchSection(r.Context(), branchName, body)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"branch": branch})
			return
		case http.MethodDelete:
			if err := s.service.DeleteBranch(r.Context(), branchName); err != nil {
				s.respondError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	if len(parts) == 4 {
		branchName := parts[2]
		switch {
		case r.Method == http.MethodPatch && parts[3] == "addusers":
			var body struct {
				UserToAdd string `json:"userToAdd"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "Bad Request")
				return
			}
			branch, err := s.service.AddAllowedUser(r.Context(), branchName, body.UserToAdd)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"branch": branch})
			return
		case r.Method == http.MethodPatch && parts[3] == "lockbranch":
			branch, err := s.service.SetBranchLock(r.Context(), branchName, true)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"branch": branch})
			return
		case r.Method == http.MethodPatch && parts[3] == "unlockbranch":
			branch, err := s.service.SetBranchLock(r.Context(), branchName, false)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"branch": branch})
			return
		case r.Method == http.MethodGet && parts[3] == "comments":
			comments, err := s.service.ListComments(r.Context(), branchName)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
			return
		case r.Method == http.MethodPost && parts[3] == "comments":
			var body struct {
				NewComment store.Comment `json:"newComment"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "Bad Request")
				return
			}
			comment, err := s.service.AddComment(r.Context(), branchName, body.NewComment)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"comment": comment})
			return
		}
	}

	writeError(w, http.StatusNotFound, "Invalid URL")
}

func (s *HTTPServer) handleApprovals(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			approvals, err := s.service.ListApprovals(r.Context())
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"approvals": approvals})
			return
		case http.MethodPost:
			if _, ok := requireTypeParam(w, r, "edit"); !ok {
				return
			}
			var body store.Approval
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "Bad Request")
				return
			}
			approval, err := s.service.CreateApproval(r.Context(), body)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"approval": approval})
			return
		}
	}

	if len(parts) == 3 {
		approvalName := parts[2]
		switch r.Method {
		case http.MethodGet:
			approval, err := s.service.GetApproval(r.Context(), approvalName)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"approval": approval})
			return
		case http.MethodDelete:
			if err := s.service.DeleteApproval(r.Context(), approvalName); err != nil {
				s.respondError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	writeError(w, http.StatusNotFound, "Invalid URL")
}

// requireTypeParam validates the ?type= query parameter against the allowed
// values. Missing and unrecognised values are both client errors.
func requireTypeParam(w http.ResponseWriter, r *http.Request, allowed ...string) (string, bool) {
	value := strings.TrimSpace(r.URL.Query().Get("type"))
	if value == "" {
		writeError(w, http.StatusBadRequest, "Bad Request: Specify type parameter")
		return "", false
	}
	for _, candidate := range allowed {
		if value == candidate {
			return value, true
		}
	}
	writeError(w, http.StatusBadRequest, "Invalid type parameter")
	return "", false
}

func (s *HTTPServer) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapError(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", requestIDFromContext(r.Context())).Msg("request failed")
	}
	writeError(w, status, msg)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("request")
	})
}

type requestIDKey struct{}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (int, string) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Msg
	}
	return http.StatusInternalServerError, "Internal server error"
}
