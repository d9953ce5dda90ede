package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/citysync/internal/ports/secondary"
)

type fakeAPI struct {
	member tgbotapi.ChatMember
	err    error
	block  chan struct{}
	got    tgbotapi.GetChatMemberConfig
}

func (f *fakeAPI) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.got = cfg
	if f.block != nil {
		<-f.block
	}
	return f.member, f.err
}

func TestGetMemberStatus_PassesIDsAndStatus(t *testing.T) {
	api := &fakeAPI{member: tgbotapi.ChatMember{Status: "administrator"}}
	client := &MembershipClient{api: api}

	status, err := client.GetMemberStatus(context.Background(), -100123, 42)
	require.NoError(t, err)
	assert.Equal(t, "administrator", status)
	assert.Equal(t, int64(-100123), api.got.ChatID)
	assert.Equal(t, int64(42), api.got.UserID)
}

func TestGetMemberStatus_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rate limit", &tgbotapi.Error{Code: 429, Message: "Too Many Requests: retry after 5", ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 5}}, secondary.ErrRateLimited},
		{"user not found", &tgbotapi.Error{Code: 400, Message: "Bad Request: user not found"}, secondary.ErrNotFound},
		{"chat not found", tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, secondary.ErrNotFound},
		{"forbidden", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was kicked from the supergroup chat"}, secondary.ErrForbidden},
		{"inaccessible list", &tgbotapi.Error{Code: 400, Message: "Bad Request: member list is inaccessible"}, secondary.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MembershipClient{api: &fakeAPI{err: tt.err}}
			_, err := client.GetMemberStatus(context.Background(), 1, 2)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestGetMemberStatus_TransportErrorPassesThrough(t *testing.T) {
	netErr := errors.New("dial tcp: connection refused")
	client := &MembershipClient{api: &fakeAPI{err: netErr}}

	_, err := client.GetMemberStatus(context.Background(), 1, 2)
	assert.ErrorIs(t, err, netErr)
	assert.NotErrorIs(t, err, secondary.ErrNotFound)
}

func TestGetMemberStatus_AbandonsCallOnCancel(t *testing.T) {
	api := &fakeAPI{block: make(chan struct{}), member: tgbotapi.ChatMember{Status: "member"}}
	client := &MembershipClient{api: api}
	defer close(api.block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetMemberStatus(ctx, 1, 2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewMembershipClient_AgainstFakeBotAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":     true,
				"result": map[string]any{"id": 1, "is_bot": true, "first_name": "sync", "username": "sync_bot"},
			})
		case strings.HasSuffix(r.URL.Path, "/getChatMember"):
			_ = r.ParseForm()
			if r.FormValue("user_id") == "7" {
				_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": 400, "description": "Bad Request: user not found"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":     true,
				"result": map[string]any{"status": "member", "user": map[string]any{"id": 42, "is_bot": false, "first_name": "U"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := NewMembershipClient("123:abc", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)

	status, err := client.GetMemberStatus(context.Background(), -100, 42)
	require.NoError(t, err)
	assert.Equal(t, "member", status)

	_, err = client.GetMemberStatus(context.Background(), -100, 7)
	assert.ErrorIs(t, err, secondary.ErrNotFound)
}

func TestNewMembershipClient_RequiresToken(t *testing.T) {
	_, err := NewMembershipClient("", "", nil)
	assert.Error(t, err)
}
