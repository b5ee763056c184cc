// Package backend submits composed questions to the inference backend over
// HTTP. The retry policy and request/response shape are pinned to the
// original daemon's requests adapter: three retries with a 0.1s backoff
// factor, retried only on 502/503/504, POST only.
package backend

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rhel-lightspeed/command-line-assistant/internal/apperrors"
	"github.com/rhel-lightspeed/command-line-assistant/internal/config"
	"github.com/rhel-lightspeed/command-line-assistant/internal/models"
)

const (
	maxRetries       = 3
	backoffFactor    = 100 * time.Millisecond
	requestTimeout   = 30 * time.Second
	retryWaitMinimum = backoffFactor
)

var insecureWarnOnce sync.Once

// Client submits questions to the configured backend endpoint.
type Client struct {
	http   *resty.Client
	logger Logger
}

// Logger is the minimal structured-logging surface the client needs; it is
// satisfied by *slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
}

// New builds a Client configured from cfg, applying the same retry/backoff
// shape as the original Python adapter: retries only POST requests that
// come back 502, 503, or 504 (or fail at the transport level), waiting
// between attempts with resty's exponential backoff, bounded below by
// backoffFactor and above by 4 * backoffFactor.
func New(cfg config.BackendConfig, logger Logger) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.Endpoint)
	client.SetTimeout(requestTimeout)
	client.SetRetryCount(maxRetries)
	client.SetRetryWaitTime(retryWaitMinimum)
	client.SetRetryMaxWaitTime(4 * backoffFactor)
	client.AddRetryCondition(func(resp *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		switch resp.StatusCode() {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	})

	if !cfg.VerifySSL {
		insecureWarnOnce.Do(func() {
			logger.Warn("backend.verify_ssl is disabled; TLS certificate verification is skipped")
		})
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // operator opt-in via config
	}

	return &Client{http: client, logger: logger}
}

type submitContext struct {
	Stdin       string            `json:"stdin"`
	Attachments submitAttachments `json:"attachments"`
}

type submitAttachments struct {
	Contents string `json:"contents"`
	Mimetype string `json:"mimetype"`
}

type submitPayload struct {
	Question string        `json:"question"`
	Context  submitContext `json:"context"`
}

type submitResult struct {
	Data struct {
		Text string `json:"text"`
	} `json:"data"`
}

// Submit posts a composed question to the backend's /infer endpoint and
// returns the response text. Any transport or decoding failure is reported
// as apperrors.CodeRequestFailed with the fixed user-facing message used by
// the original daemon, since the underlying cause is not actionable by the
// caller.
func (c *Client) Submit(ctx context.Context, question models.Question) (string, error) {
	payload := submitPayload{
		Question: question.Message,
		Context: submitContext{
			Stdin: question.Stdin.Stdin,
			Attachments: submitAttachments{
				Contents: question.Attachment.Contents,
				Mimetype: question.Attachment.Mimetype,
			},
		},
	}

	var result submitResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post("/infer")

	if err != nil || resp.IsError() {
		return "", apperrors.New(apperrors.CodeRequestFailed, apperrors.RequestFailedMessage)
	}

	return result.Data.Text, nil
}
