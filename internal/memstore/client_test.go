package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MikeSquared-Agency/scribe/internal/sanitize"
)

func testMessages() []sanitize.Message {
	return []sanitize.Message{
		{Author: "user", Content: "How do I deploy?"},
		{Author: "assistant", Content: "Run the release script."},
	}
}

func TestUpload(t *testing.T) {
	var gotAuth, gotContentType, gotPath string
	var gotReq UploadRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(UploadResult{
			Success:       true,
			SessionID:     gotReq.SessionID,
			MessagesCount: len(gotReq.Messages),
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret-token")
	result, err := c.Upload(context.Background(), UploadRequest{
		SessionID: "deploy-chat-1700000000",
		Messages:  testMessages(),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if gotPath != "/api/v1/memories" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("content-type = %q", gotContentType)
	}
	if gotReq.SessionID != "deploy-chat-1700000000" {
		t.Errorf("sessionID = %q", gotReq.SessionID)
	}
	if !result.Success || result.MessagesCount != 2 {
		t.Errorf("result = %+v", result)
	}
}

func TestUpload_NoTokenOmitsHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(UploadResult{Success: true})
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	if _, err := c.Upload(context.Background(), UploadRequest{SessionID: "s", Messages: testMessages()}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("authorization = %q, want empty", gotAuth)
	}
}

func TestUpload_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrUnauthorized) {
					t.Errorf("got %v, want ErrUnauthorized", err)
				}
			},
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrRateLimited) {
					t.Errorf("got %v, want ErrRateLimited", err)
				}
			},
		},
		{
			name:   "server error",
			status: http.StatusServiceUnavailable,
			check: func(t *testing.T, err error) {
				var se *ServerError
				if !errors.As(err, &se) {
					t.Fatalf("got %v, want *ServerError", err)
				}
				if se.StatusCode != http.StatusServiceUnavailable {
					t.Errorf("statusCode = %d", se.StatusCode)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			c := NewClient(server.URL, "token")
			_, err := c.Upload(context.Background(), UploadRequest{SessionID: "s", Messages: testMessages()})
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
		})
	}
}

func TestUpload_RejectedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(UploadResult{Success: false, Message: "session malformed"})
	}))
	defer server.Close()

	c := NewClient(server.URL, "token")
	_, err := c.Upload(context.Background(), UploadRequest{SessionID: "s", Messages: testMessages()})
	if err == nil {
		t.Fatal("expected error for success=false response")
	}
}

func TestUpload_SkippedIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(UploadResult{Skipped: true, Message: "session exists"})
	}))
	defer server.Close()

	c := NewClient(server.URL, "token")
	result, err := c.Upload(context.Background(), UploadRequest{SessionID: "s", Messages: testMessages()})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !result.Skipped {
		t.Error("skipped flag lost")
	}
}

func TestStatus(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/queue" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(QueueStatus{
			TotalWorkUnits:     10,
			CompletedWorkUnits: 7,
			PendingWorkUnits:   3,
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "token")
	status, err := c.Status(context.Background(), "conversation import")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if gotQuery != "filter=conversation+import" {
		t.Errorf("query = %q", gotQuery)
	}
	if status.TotalWorkUnits != 10 || status.PendingWorkUnits != 3 {
		t.Errorf("status = %+v", status)
	}
}

func TestStatus_NoFilter(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(QueueStatus{})
	}))
	defer server.Close()

	c := NewClient(server.URL, "token")
	if _, err := c.Status(context.Background(), ""); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if gotQuery != "" {
		t.Errorf("query = %q, want empty", gotQuery)
	}
}
