package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"Noesis/internal/domain/models"
	httpclient "Noesis/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastIncident(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(httpclient.NewClient(), srv.URL, "secret-token", "-100123")
	err := tg.BroadcastIncident(context.Background(), models.Incident{
		Title:           "Protest escalating downtown",
		Location:        "Downtown Area",
		Severity:        models.SeverityHigh,
		Status:          models.StatusVerified,
		ConfidenceScore: 80,
		SourceCount:     3,
		Sources:         []string{"https://example.com/a"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/botsecret-token/sendMessage", gotPath)
	assert.Equal(t, "-100123", gotBody["chat_id"])
	text, _ := gotBody["text"].(string)
	assert.Contains(t, text, "[HIGH] Protest escalating downtown")
	assert.Contains(t, text, "Location: Downtown Area")
	assert.Contains(t, text, "https://example.com/a")
}

func TestBroadcastIncidentRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	tg := NewTelegram(httpclient.NewClient(), srv.URL, "tok", "42")
	err := tg.BroadcastIncident(context.Background(), models.Incident{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
