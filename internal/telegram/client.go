// Package telegram implements a minimal Telegram Bot API client: long-poll
// update fetching, message sending, and chat member counts. Only the methods
// the bot needs are wrapped.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.telegram.org"

// Client talks to the Telegram Bot API. All calls go through a rate limiter
// to stay under the API's request ceiling.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
}

// NewClient creates a Bot API client for the given bot token.
func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 65 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
		// Telegram allows ~30 messages/second overall.
		limiter: rate.NewLimiter(rate.Limit(25), 5),
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// User is a Telegram account.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// DisplayName returns the handle or first name used in notifications.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return strconv.FormatInt(u.ID, 10)
}

// Chat is a Telegram conversation.
type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"` // private, group, supergroup, channel
	Title string `json:"title"`
}

// Message is one chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
	Date      int64  `json:"date"`
}

// Update is one long-poll result entry.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// APIError is a non-OK response from the Bot API.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s failed: %d %s", e.Method, e.Code, e.Description)
}

func (c *Client) call(ctx context.Context, method string, params interface{}, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode %s params: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !apiResp.OK {
		return &APIError{Method: method, Code: apiResp.ErrorCode, Description: apiResp.Description}
	}
	if result != nil {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// GetUpdates long-polls for updates after offset. timeout is the server-side
// hold in seconds.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	params := map[string]interface{}{
		"offset":          offset,
		"timeout":         timeout,
		"allowed_updates": []string{"message"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends text to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	return c.call(ctx, "sendMessage", params, nil)
}

// GetChatMemberCount returns the member count of a chat.
func (c *Client) GetChatMemberCount(ctx context.Context, chatID int64) (int, error) {
	params := map[string]interface{}{"chat_id": chatID}
	var count int
	if err := c.call(ctx, "getChatMemberCount", params, &count); err != nil {
		return 0, err
	}
	return count, nil
}
