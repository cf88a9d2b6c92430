package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, token string, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(token, "noreply@example.com", "https://church.test/", WithChurchName("Assembleia Central"))
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}
	return client
}

func TestSendResetCode(t *testing.T) {
	var received postmarkEmail
	var gotToken, gotPath string

	client := newTestClient(t, "test-token", func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	})

	if err := client.SendResetCode(context.Background(), "alice@example.com", "482913"); err != nil {
		t.Fatalf("send reset code: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if gotPath != "/email" {
		t.Errorf("path = %q, want /email", gotPath)
	}
	if received.To != "alice@example.com" {
		t.Errorf("To = %q, want %q", received.To, "alice@example.com")
	}
	if received.From != "noreply@example.com" {
		t.Errorf("From = %q, want %q", received.From, "noreply@example.com")
	}
	if received.Subject != "Your Assembleia Central password reset code" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.TextBody, "482913") || !strings.Contains(received.HtmlBody, "482913") {
		t.Error("bodies should contain the code")
	}
}

func TestSendWelcome(t *testing.T) {
	var received postmarkEmail

	client := newTestClient(t, "test-token", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	})

	if err := client.SendWelcome(context.Background(), "bob@example.com", "Bob", "treasurer"); err != nil {
		t.Fatalf("send welcome: %v", err)
	}

	if received.Subject != "Welcome to Assembleia Central" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.TextBody, "https://church.test/login") {
		t.Errorf("text body missing login link: %q", received.TextBody)
	}
	if !strings.Contains(received.TextBody, "treasurer") {
		t.Error("text body should mention the role")
	}
}

func TestChurchNameFollowsProfile(t *testing.T) {
	var subjects []string
	client := newTestClient(t, "test-token", func(w http.ResponseWriter, r *http.Request) {
		var e postmarkEmail
		json.NewDecoder(r.Body).Decode(&e)
		subjects = append(subjects, e.Subject)
		w.WriteHeader(http.StatusOK)
	})

	name := ""
	WithChurchNameFunc(func() string { return name })(client)

	ctx := context.Background()
	client.SendWelcome(ctx, "bob@example.com", "Bob", "secretary")
	name = "Igreja Plenitude"
	client.SendWelcome(ctx, "bob@example.com", "Bob", "secretary")

	want := []string{"Welcome to Ekklesia", "Welcome to Igreja Plenitude"}
	if len(subjects) != 2 || subjects[0] != want[0] || subjects[1] != want[1] {
		t.Errorf("subjects = %q, want %q", subjects, want)
	}
}

func TestSendAPIError(t *testing.T) {
	client := newTestClient(t, "test-token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	if err := client.SendResetCode(context.Background(), "alice@example.com", "123456"); err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestSendNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com", "https://church.test")

	err := client.SendResetCode(context.Background(), "alice@example.com", "123456")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestConfigured(t *testing.T) {
	c1 := NewClient("token", "from@test.com", "https://test.com")
	if !c1.Configured() {
		t.Error("expected Configured() = true")
	}

	c2 := NewClient("", "from@test.com", "https://test.com")
	if c2.Configured() {
		t.Error("expected Configured() = false")
	}
}

// rewriteTransport redirects all requests to a test server URL.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.target[len("http://"):]
	return t.base.RoundTrip(req)
}
