// Package telegram implements the membership port on top of the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/citysync/internal/ports/secondary"
)

// chatMemberGetter is the slice of *tgbotapi.BotAPI the client needs.
type chatMemberGetter interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// MembershipClient implements secondary.MembershipClient with getChatMember.
type MembershipClient struct {
	api chatMemberGetter
}

// NewMembershipClient authorizes the bot and returns a client.
// endpoint may be empty to use the public Bot API.
func NewMembershipClient(token, endpoint string, httpClient *http.Client) (*MembershipClient, error) {
	if token == "" {
		return nil, errors.New("telegram bot token is not set (TELEGRAM_BOT_TOKEN)")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize bot: %w", err)
	}
	return &MembershipClient{api: bot}, nil
}

// GetMemberStatus returns the raw status of userID in chatID.
// The Bot API call cannot be interrupted, so when ctx ends first the call is
// abandoned and its result dropped.
func (c *MembershipClient) GetMemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		status string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
		})
		done <- result{status: member.Status, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", classify(r.err)
		}
		return r.status, nil
	}
}

// classify maps Bot API failures onto the port's sentinel errors.
func classify(err error) error {
	code, msg, retryAfter, ok := apiError(err)
	if !ok {
		return err
	}

	lower := strings.ToLower(msg)
	switch {
	case code == http.StatusTooManyRequests || retryAfter > 0:
		return fmt.Errorf("%w (retry after %ds): %s", secondary.ErrRateLimited, retryAfter, msg)
	case code == http.StatusForbidden,
		strings.Contains(lower, "not enough rights"),
		strings.Contains(lower, "member list is inaccessible"),
		strings.Contains(lower, "bot is not a member"):
		return fmt.Errorf("%w: %s", secondary.ErrForbidden, msg)
	case strings.Contains(lower, "not found"),
		strings.Contains(lower, "participant_id_invalid"),
		strings.Contains(lower, "user_id_invalid"):
		return fmt.Errorf("%w: %s", secondary.ErrNotFound, msg)
	}
	return err
}

func apiError(err error) (code int, msg string, retryAfter int, ok bool) {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) {
		return ptr.Code, ptr.Message, ptr.RetryAfter, true
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return val.Code, val.Message, val.RetryAfter, true
	}
	return 0, "", 0, false
}

var _ secondary.MembershipClient = (*MembershipClient)(nil)
