package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"booru/api/internal/store"
)

func newTestServer(st *fakeStore) *httptest.Server {
	svc, _, _ := newTestService(st)
	return httptest.NewServer(NewHTTPServer(svc, "*").Handler())
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(&fakeStore{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestGetPostEndpoint(t *testing.T) {
	st := &fakeStore{
		GetPostFn: func(ctx context.Context, id int64) (store.Post, error) {
			return store.Post{ID: id, TagString: "cat dog", Rating: "q", UploaderID: 1, IsPending: true}, nil
		},
	}
	server := newTestServer(st)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/posts/5")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["tagString"] != "cat dog" {
		t.Fatalf("tagString = %v", body["tagString"])
	}
	if body["status"] != "pending" {
		t.Fatalf("status = %v", body["status"])
	}
}

func TestDeleteForbiddenWithoutModeratorRole(t *testing.T) {
	server := newTestServer(&fakeStore{})
	defer server.Close()

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/posts/5", strings.NewReader(`{"reason":"dupe"}`))
	req.Header.Set("X-User-ID", "2")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestApproveEndpointWithModeratorHeader(t *testing.T) {
	approved := false
	st := &fakeStore{
		GetPostFn: func(ctx context.Context, id int64) (store.Post, error) {
			return store.Post{ID: id, UploaderID: 1, IsPending: true, Rating: "q"}, nil
		},
		ApprovePostFn: func(ctx context.Context, id, approverID int64) error {
			if approverID != 9 {
				t.Errorf("approver = %d", approverID)
			}
			approved = true
			return nil
		},
	}
	server := newTestServer(st)
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/posts/5/approve", nil)
	req.Header.Set("X-User-ID", "9")
	req.Header.Set("X-User-Role", "moderator")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !approved {
		t.Fatal("store approve not called")
	}
}

func TestVoteEndpointConflict(t *testing.T) {
	st := &fakeStore{
		VotePostFn: func(ctx context.Context, postID, userID int64, score int) error {
			return store.ErrVoteExists
		},
	}
	server := newTestServer(st)
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/posts/5/votes", strings.NewReader(`{"direction":"up"}`))
	req.Header.Set("X-User-ID", "2")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != "ALREADY_VOTED" {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	server := newTestServer(&fakeStore{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
