package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/97woo/tgbot/internal/state"
	"github.com/97woo/tgbot/internal/store"
	"github.com/97woo/tgbot/internal/telegram"
)

// newCommandFixture wires a bot whose replies land in a recorder instead of
// the Telegram API.
func newCommandFixture(t *testing.T, adminID string) (*Bot, *state.Blacklist, func() []string) {
	t.Helper()

	var mu sync.Mutex
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if s, ok := body["text"].(string); ok {
			mu.Lock()
			texts = append(texts, s)
			mu.Unlock()
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	t.Cleanup(srv.Close)

	client := telegram.NewClient("test-token")
	client.SetBaseURL(srv.URL)

	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "dropbot.json"))
	require.NoError(t, err)
	blacklist, err := state.NewBlacklist(context.Background(), st, nil)
	require.NoError(t, err)

	b := New(client, nil, nil, nil, nil, blacklist, nil, nil, Config{AdminUserID: adminID})
	sent := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), texts...)
	}
	return b, blacklist, sent
}

func adminMessage(userID int64) *telegram.Message {
	return &telegram.Message{
		From: &telegram.User{ID: userID},
		Chat: telegram.Chat{ID: 10, Type: "private"},
	}
}

func TestBanCommandRequiresAdmin(t *testing.T) {
	b, blacklist, sent := newCommandFixture(t, "1")
	ctx := context.Background()

	// A non-admin gets silence, the same as an unknown command.
	b.handleCommand(ctx, adminMessage(42), "ban", "99")
	assert.False(t, blacklist.Contains("99"))
	assert.Empty(t, sent())

	// No admin configured disables the command entirely.
	b2, blacklist2, sent2 := newCommandFixture(t, "")
	b2.handleCommand(ctx, adminMessage(1), "ban", "99")
	assert.False(t, blacklist2.Contains("99"))
	assert.Empty(t, sent2())
}

func TestBanAndUnban(t *testing.T) {
	b, blacklist, sent := newCommandFixture(t, "1")
	ctx := context.Background()

	b.handleCommand(ctx, adminMessage(1), "ban", "99")
	assert.True(t, blacklist.Contains("99"))

	b.handleCommand(ctx, adminMessage(1), "unban", "99")
	assert.False(t, blacklist.Contains("99"))

	msgs := sent()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "blacklisted")
	assert.Contains(t, msgs[1], "removed")
}

func TestBanRejectsMalformedArgs(t *testing.T) {
	b, blacklist, sent := newCommandFixture(t, "1")
	ctx := context.Background()

	b.handleCommand(ctx, adminMessage(1), "ban", "")
	assert.False(t, blacklist.Contains(""))

	msgs := sent()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Usage")
}
