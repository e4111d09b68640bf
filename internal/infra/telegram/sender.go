// internal/infra/telegram/sender.go
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"habit_reminder_bot/internal/infra/metrics"

	"github.com/google/go-querystring/query"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const maxErrorBody = 4 << 10

// SenderConfig configures HTTPSender.
type SenderConfig struct {
	// BaseURL is the Bot API prefix the token is appended to, e.g. "https://api.telegram.org/bot".
	BaseURL string
	Token   string
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a temporary failure.
	MaxRetries int
	// RetryDelays are used in order; the last one repeats.
	RetryDelays []time.Duration
	// RatePerSecond limits outgoing requests; 0 disables limiting.
	RatePerSecond float64
	Burst         int
}

// DefaultRetryDelays are used when SenderConfig.RetryDelays is empty.
var DefaultRetryDelays = []time.Duration{1 * time.Second, 3 * time.Second}

// APIError is a non-200 answer from the Bot API.
type APIError struct {
	StatusCode  int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram api error %d", e.StatusCode)
	}
	return fmt.Sprintf("telegram api error %d: %s", e.StatusCode, e.Description)
}

// Temporary reports whether repeating the request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type sendMessageParams struct {
	ChatID int64  `url:"chat_id"`
	Text   string `url:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// HTTPSender posts messages to the Bot API sendMessage method.
type HTTPSender struct {
	client   *http.Client
	endpoint string
	cfg      SenderConfig
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
	logger   *logrus.Entry
}

func NewHTTPSender(cfg SenderConfig, m *metrics.Metrics, logger *logrus.Entry) *HTTPSender {
	if len(cfg.RetryDelays) == 0 {
		cfg.RetryDelays = DefaultRetryDelays
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return &HTTPSender{
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: cfg.BaseURL + cfg.Token + "/sendMessage",
		cfg:      cfg,
		limiter:  limiter,
		metrics:  m,
		logger:   logger.WithField("component", "telegram_sender"),
	}
}

// Send delivers text to chatID. Failures are logged and counted, never returned.
func (s *HTTPSender) Send(ctx context.Context, chatID int64, text string) {
	start := time.Now()
	err := s.Deliver(ctx, chatID, text)
	s.metrics.ObserveSendDuration(time.Since(start).Seconds())

	logCtx := s.logger.WithField("chat_id", chatID)
	if err != nil {
		s.metrics.IncDelivery("failed")
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			logCtx = logCtx.WithField("status_code", apiErr.StatusCode)
		}
		logCtx.WithError(err).Error("Failed to deliver Telegram message")
		return
	}
	s.metrics.IncDelivery("sent")
	logCtx.Info("Telegram message sent")
}

// Deliver performs the request, retrying temporary failures up to MaxRetries
// times. It returns the last error, an *APIError for non-200 responses.
func (s *HTTPSender) Deliver(ctx context.Context, chatID int64, text string) error {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := s.retryDelay(attempt-1, lastErr)
			s.metrics.IncRetries()
			s.logger.WithFields(logrus.Fields{
				"chat_id": chatID,
				"attempt": attempt,
				"delay":   wait.String(),
			}).WithError(lastErr).Warn("Retrying Telegram message")

			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return fmt.Errorf("gave up after %d attempts: %w", attempt, lastErr)
			}
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
		}

		lastErr = s.post(ctx, chatID, text)
		if lastErr == nil {
			return nil
		}
		if !s.retryable(ctx, lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (s *HTTPSender) post(ctx context.Context, chatID int64, text string) error {
	params, err := query.Values(sendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("unable to encode sendMessage params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("unable to create sendMessage request: %w", redactURL(err))
	}
	req.URL.RawQuery = params.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("error calling sendMessage: %w", redactURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body); err == nil {
		apiErr.Description = body.Description
		if body.Parameters != nil {
			apiErr.RetryAfter = time.Duration(body.Parameters.RetryAfter) * time.Second
		}
	}
	return apiErr
}

func (s *HTTPSender) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	// Transport failures such as timeouts and refused connections.
	return true
}

func (s *HTTPSender) retryDelay(i int, lastErr error) time.Duration {
	var apiErr *APIError
	if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}
	if i >= len(s.cfg.RetryDelays) {
		i = len(s.cfg.RetryDelays) - 1
	}
	return s.cfg.RetryDelays[i]
}

// redactURL drops the request URL from transport errors; it contains the bot token.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
