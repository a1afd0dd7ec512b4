package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"booru/api/internal/search"
	"booru/api/internal/store"
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
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	viewer := viewerFromRequest(r)

	if r.Method == http.MethodGet && r.URL.Path == "/api/counts" {
		count, err := s.service.CountPosts(r.Context(), viewer, r.URL.Query().Get("tags"))
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tags": r.URL.Query().Get("tags"), "count": count})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/moderation/queue" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		posts, err := s.service.ModerationQueue(r.Context(), viewer, limit)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		payload := make([]map[string]any, 0, len(posts))
		for _, post := range posts {
			payload = append(payload, postPayload(post))
		}
		writeJSON(w, http.StatusOK, map[string]any{"posts": payload})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/posts" {
		var body struct {
			MD5       string `json:"md5"`
			FileExt   string `json:"fileExt"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
			FileSize  int64  `json:"fileSize"`
			TagString string `json:"tagString"`
			Rating    string `json:"rating"`
			Source    string `json:"source"`
			ParentID  *int64 `json:"parentId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		post, err := s.service.CreatePost(r.Context(), viewer, CreatePostInput{
			MD5:       body.MD5,
			FileExt:   body.FileExt,
			Width:     body.Width,
			Height:    body.Height,
			FileSize:  body.FileSize,
			TagString: body.TagString,
			Rating:    body.Rating,
			Source:    body.Source,
			ParentID:  body.ParentID,
		})
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, postPayload(post))
		return
	}

	if r.Method == http.MethodPut && r.URL.Path == "/api/tags/category" {
		var body struct {
			Name     string `json:"name"`
			Category string `json:"category"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.SetTagCategory(r.Context(), viewer, body.Name, body.Category); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && (r.URL.Path == "/api/tag-aliases" || r.URL.Path == "/api/tag-implications") {
		var body struct {
			Antecedent string `json:"antecedent"`
			Consequent string `json:"consequent"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		var payload map[string]any
		if r.URL.Path == "/api/tag-aliases" {
			alias, err := s.service.CreateTagAlias(r.Context(), viewer, body.Antecedent, body.Consequent)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			payload = map[string]any{"id": alias.ID, "antecedent": alias.AntecedentName, "consequent": alias.ConsequentName}
		} else {
			imp, err := s.service.CreateTagImplication(r.Context(), viewer, body.Antecedent, body.Consequent)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			payload = map[string]any{"id": imp.ID, "antecedent": imp.AntecedentName, "consequent": imp.ConsequentName}
		}
		writeJSON(w, http.StatusCreated, payload)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "posts" {
		postID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		s.handlePost(w, r, viewer, postID, parts[3:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handlePost(w http.ResponseWriter, r *http.Request, viewer Viewer, postID int64, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			post, err := s.service.GetPost(r.Context(), viewer, postID)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, postPayload(post))
		case http.MethodPut:
			var body struct {
				TagString    string  `json:"tagString"`
				OldTagString string  `json:"oldTagString"`
				Rating       string  `json:"rating"`
				OldRating    string  `json:"oldRating"`
				Source       *string `json:"source"`
				OldSource    *string `json:"oldSource"`
				ParentID     *int64  `json:"parentId"`
				OldParentID  *int64  `json:"oldParentId"`
				ClearParent  bool    `json:"clearParent"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			post, err := s.service.UpdatePost(r.Context(), viewer, postID, UpdatePostInput{
				TagString:    body.TagString,
				OldTagString: body.OldTagString,
				Rating:       body.Rating,
				OldRating:    body.OldRating,
				Source:       body.Source,
				OldSource:    body.OldSource,
				ParentID:     body.ParentID,
				OldParentID:  body.OldParentID,
				ClearParent:  body.ClearParent,
			})
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, postPayload(post))
		case http.MethodDelete:
			var body struct {
				Reason        string `json:"reason"`
				Ban           bool   `json:"ban"`
				MoveFavorites bool   `json:"moveFavorites"`
			}
			_ = decodeBody(r, &body)
			if err := s.service.Delete(r.Context(), viewer, postID, DeleteInput{
				Reason:        body.Reason,
				Ban:           body.Ban,
				MoveFavorites: body.MoveFavorites,
			}); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	action := rest[0]

	if r.Method == http.MethodGet && action == "versions" {
		versions, err := s.service.ListVersions(r.Context(), viewer, postID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		payload := make([]map[string]any, 0, len(versions))
		for _, version := range versions {
			payload = append(payload, versionPayload(version))
		}
		writeJSON(w, http.StatusOK, map[string]any{"versions": payload})
		return
	}

	if r.Method == http.MethodDelete && action == "votes" {
		if err := s.service.Unvote(r.Context(), viewer, postID); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodDelete && action == "favorites" {
		if err := s.service.RemoveFavorite(r.Context(), viewer, postID); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	switch action {
	case "flag":
		var body struct {
			Reason string `json:"reason"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, s.service.Flag(r.Context(), viewer, postID, body.Reason))
	case "appeal":
		var body struct {
			Reason string `json:"reason"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, s.service.Appeal(r.Context(), viewer, postID, body.Reason))
	case "approve":
		s.respond(w, s.service.Approve(r.Context(), viewer, postID))
	case "disapprove":
		s.respond(w, s.service.Disapprove(r.Context(), viewer, postID))
	case "undelete":
		s.respond(w, s.service.Undelete(r.Context(), viewer, postID))
	case "expunge":
		s.respond(w, s.service.Expunge(r.Context(), viewer, postID))
	case "ban":
		s.respond(w, s.service.Ban(r.Context(), viewer, postID))
	case "unban":
		s.respond(w, s.service.Unban(r.Context(), viewer, postID))
	case "votes":
		var body struct {
			Direction string `json:"direction"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, s.service.Vote(r.Context(), viewer, postID, body.Direction))
	case "favorites":
		s.respond(w, s.service.AddFavorite(r.Context(), viewer, postID))
	case "revert":
		var body struct {
			VersionID int64 `json:"versionId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		post, err := s.service.Revert(r.Context(), viewer, postID, body.VersionID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, postPayload(post))
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) respond(w http.ResponseWriter, err error) {
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// viewerFromRequest trusts identity headers set by the gateway in front of
// this service.
func viewerFromRequest(r *http.Request) Viewer {
	viewer := Viewer{}
	if id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64); err == nil && id > 0 {
		viewer.ID = id
	}
	switch strings.ToLower(r.Header.Get("X-User-Role")) {
	case "admin":
		viewer.IsAdmin = true
		viewer.IsModerator = true
	case "moderator":
		viewer.IsModerator = true
	}
	viewer.SafeMode = r.Header.Get("X-Safe-Mode") == "1"
	viewer.HideDeleted = r.Header.Get("X-Hide-Deleted") == "1"
	return viewer
}

func postPayload(p store.Post) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"md5":         p.MD5,
		"fileExt":     p.FileExt,
		"width":       p.ImageWidth,
		"height":      p.ImageHeight,
		"fileSize":    p.FileSize,
		"tagString":   p.TagString,
		"tagCount":    p.TagCount,
		"rating":      p.Rating,
		"source":      p.Source,
		"parentId":    p.ParentID,
		"hasChildren": p.HasChildren,
		"status":      search.StatusOf(p),
		"uploaderId":  p.UploaderID,
		"approverId":  p.ApproverID,
		"score":       p.Score,
		"favCount":    p.FavCount,
		"createdAt":   p.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":   p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func versionPayload(v store.PostVersion) map[string]any {
	return map[string]any{
		"id":        v.ID,
		"postId":    v.PostID,
		"tags":      v.Tags,
		"rating":    v.Rating,
		"source":    v.Source,
		"parentId":  v.ParentID,
		"updaterId": v.UpdaterID,
		"updatedAt": v.UpdatedAt.UTC().Format(time.RFC3339),
	}
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

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-User-ID, X-User-Role, X-Safe-Mode, X-Hide-Deleted")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
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

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
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

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
