package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"tracker/web/internal/model"
	"tracker/web/internal/rbac"
)

func noBackoff(int) time.Duration { return 0 }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL+"/v1", WithRetryBackoff(noBackoff))
}

func TestAuthenticatedClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-1" {
			t.Errorf("expected bearer header, got %q", got)
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode([]model.Org{{Name: "Acme"}})
	}).WithToken("access-1")

	orgs, err := client.ListOrgs(context.Background())
	if err != nil {
		t.Fatalf("ListOrgs() error = %v", err)
	}
	if len(orgs) != 1 || orgs[0].Name != "Acme" {
		t.Fatalf("unexpected orgs %+v", orgs)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestAuthenticatedClientGivesUpAfterRetryLimit(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream","code":"BAD_GATEWAY","message":"down"}`))
	}).WithToken("access-1")

	body, _ := json.Marshal(model.IssueRequest{Title: "x"})
	err := client.Post(context.Background(), "issues/"+uuid.NewString(), json.RawMessage(body), nil)
	if KindOf(err) != KindHTTP {
		t.Fatalf("expected http failure, got %v", err)
	}
	if StatusOf(err) != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", StatusOf(err))
	}
	if b := BodyOf(err); b == nil || b.Code != "BAD_GATEWAY" {
		t.Fatalf("expected structured body, got %+v", b)
	}
	if calls.Load() != 1+RetryLimit {
		t.Fatalf("expected %d attempts, got %d", 1+RetryLimit, calls.Load())
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound} {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
		}).WithToken("access-1")

		err := client.Delete(context.Background(), "org/"+uuid.NewString(), nil)
		if StatusOf(err) != status {
			t.Fatalf("expected status %d, got %v", status, err)
		}
		if calls.Load() != 1 {
			t.Fatalf("status %d: expected single attempt, got %d", status, calls.Load())
		}
	}
}

func TestUnauthenticatedClientDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no authorization header")
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Login(context.Background(), model.LoginRequest{Email: "a@b.co", Password: "x"})
	if StatusOf(err) != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one attempt, got %d", calls.Load())
	}
}

func TestRetriedRequestResendsBody(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var req model.CreateOrgRequest
		if err := json.Unmarshal(data, &req); err != nil || req.Name != "Acme" {
			t.Errorf("attempt %d: unexpected body %q", calls.Load()+1, data)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(model.Org{Name: req.Name})
	}).WithToken("access-1")

	org, err := client.CreateOrg(context.Background(), model.CreateOrgRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("CreateOrg() error = %v", err)
	}
	if org.Name != "Acme" {
		t.Fatalf("unexpected org %+v", org)
	}
}

func TestRefreshSendsTokenInHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/auth/refresh" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get(RefreshHeader); got != "refresh-1" {
			t.Errorf("expected refresh header, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(model.TokenPair{AccessToken: "a2", RefreshToken: "r2", ExpiresInAccess: 900, ExpiresInRefresh: 86400})
	})

	pair, err := client.Refresh(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if pair.AccessToken != "a2" || pair.ExpiresInRefresh != 86400 {
		t.Fatalf("unexpected pair %+v", pair)
	}
}

func TestEndpointPaths(t *testing.T) {
	orgID := uuid.New()
	userID := uuid.New()
	issueID := uuid.New()

	cases := []struct {
		name   string
		method string
		path   string
		call   func(*Client) error
	}{
		{"session role", http.MethodGet, "/v1/org/" + orgID.String() + "/session-role", func(c *Client) error {
			_, err := c.SessionRole(context.Background(), orgID)
			return err
		}},
		{"update role", http.MethodPatch, "/v1/org/" + orgID.String() + "/member/" + userID.String(), func(c *Client) error {
			return c.UpdateMemberRole(context.Background(), orgID, userID, rbac.RoleAdmin)
		}},
		{"accept invite", http.MethodPost, "/v1/invites/tok-1/" + orgID.String() + "/accept", func(c *Client) error {
			return c.AcceptInvite(context.Background(), "tok-1", orgID)
		}},
		{"cancel invite", http.MethodDelete, "/v1/invites/tok-1", func(c *Client) error {
			return c.CancelInvite(context.Background(), "tok-1")
		}},
		{"update issue", http.MethodPatch, "/v1/issues/" + orgID.String() + "/" + issueID.String(), func(c *Client) error {
			_, err := c.UpdateIssue(context.Background(), orgID, issueID, model.IssueUpdate{})
			return err
		}},
		{"list comments", http.MethodGet, "/v1/comments/" + orgID.String() + "/all/" + issueID.String(), func(c *Client) error {
			_, err := c.ListComments(context.Background(), orgID, issueID)
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != tc.method || r.URL.Path != tc.path {
					t.Errorf("expected %s %s, got %s %s", tc.method, tc.path, r.Method, r.URL.Path)
				}
				w.WriteHeader(http.StatusNoContent)
			}).WithToken("access-1")
			if err := tc.call(client); err != nil {
				t.Fatalf("call error = %v", err)
			}
		})
	}
}

func TestTransportErrorIsClassified(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(url).WithToken("access-1")
	_, err := client.CurrentUser(context.Background())
	if KindOf(err) != KindTransport {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if StatusOf(err) != 0 {
		t.Fatalf("expected no status, got %d", StatusOf(err))
	}
}

func TestDecodeErrorIsClassified(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":`))
	})
	_, err := client.CurrentUser(context.Background())
	if KindOf(err) != KindDecode {
		t.Fatalf("expected decode failure, got %v", err)
	}
}
