package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	telegramAPIBase = "https://api.telegram.org"

	// telegramMaxMessage is Telegram's hard sendMessage text limit.
	telegramMaxMessage = 4096
)

// retrySchedule is the fixed backoff between delivery attempts.
var retrySchedule = []time.Duration{time.Second, 2 * time.Second, 5 * time.Second}

// Telegram delivers alerts through the Bot API. Two token buckets keep the
// bot inside Telegram's published limits: one message a second, twenty a
// minute to the same chat.
type Telegram struct {
	client  *http.Client
	baseURL string
	token   string
	chatID  string

	perSecond *rate.Limiter
	perMinute *rate.Limiter
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewTelegram builds a transport for one bot and chat.
func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		client:    &http.Client{Timeout: 10 * time.Second},
		baseURL:   telegramAPIBase,
		token:     token,
		chatID:    chatID,
		perSecond: rate.NewLimiter(rate.Every(time.Second), 1),
		perMinute: rate.NewLimiter(rate.Every(3*time.Second), 20),
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send delivers one message, truncating to the API limit and retrying
// transient failures. A 429 honours Telegram's retry_after before the next
// attempt.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := t.perSecond.Wait(ctx); err != nil {
		return err
	}
	if err := t.perMinute.Wait(ctx); err != nil {
		return err
	}

	text = Truncate(text, telegramMaxMessage)
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)

	var lastErr error
	for attempt := 0; attempt <= len(retrySchedule); attempt++ {
		if attempt > 0 {
			if err := t.sleep(ctx, retrySchedule[attempt-1]); err != nil {
				return err
			}
		}

		retryable, err := t.attempt(ctx, url, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("telegram delivery failed")
	}
	return lastErr
}

// attempt makes one API call. The boolean reports whether retrying can help.
func (t *Telegram) attempt(ctx context.Context, url string, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var parsed sendMessageResponse
	_ = json.Unmarshal(raw, &parsed)

	switch {
	case resp.StatusCode == http.StatusOK && parsed.OK:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := time.Duration(parsed.Parameters.RetryAfter) * time.Second
		if wait > 0 {
			if err := t.sleep(ctx, wait); err != nil {
				return false, err
			}
		}
		return true, fmt.Errorf("telegram: throttled, retry after %s", wait)
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("telegram: HTTP %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("telegram: HTTP %d: %s", resp.StatusCode, parsed.Description)
	}
}

// Truncate cuts text to max runes, marking the cut with an ellipsis.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-1]) + "…"
}
