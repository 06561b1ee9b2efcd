package mailgun

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotForm map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"from":    r.PostForm.Get("from"),
			"to":      r.PostForm.Get("to"),
			"subject": r.PostForm.Get("subject"),
			"html":    r.PostForm.Get("html"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient("mg.example.com", "key-secret")
	client.SetBaseURL(server.URL)

	err := client.Send(context.Background(), "digest@mg.example.com",
		[]string{"a@example.com", "b@example.com"}, "Weekly digest", "<h1>Ideas</h1>")

	require.NoError(t, err)
	assert.Equal(t, "/v3/mg.example.com/messages", gotPath)
	assert.Equal(t, "api", gotUser)
	assert.Equal(t, "key-secret", gotPass)
	assert.Equal(t, "digest@mg.example.com", gotForm["from"])
	assert.Equal(t, "a@example.com,b@example.com", gotForm["to"])
	assert.Equal(t, "Weekly digest", gotForm["subject"])
	assert.Equal(t, "<h1>Ideas</h1>", gotForm["html"])
}

func TestSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Forbidden"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("mg.example.com", "bad-key")
	client.SetBaseURL(server.URL)

	err := client.Send(context.Background(), "digest@mg.example.com", []string{"a@example.com"}, "s", "b")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
