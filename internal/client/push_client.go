package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"smsglue/internal/models"
	"smsglue/internal/util"
)

var ErrPushRejected = errors.New("push endpoint rejected notification")

// PushClient posts NotifyTextMessage wake-ups to the softphone push endpoint.
type PushClient struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewPushClient(endpoint string, timeout time.Duration, httpClient *http.Client, logger *zap.Logger) *PushClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = util.Get()
	}
	return &PushClient{
		url:        endpoint,
		httpClient: httpClient,
		logger:     logger.Named("push"),
	}
}

// Notify delivers one push. Transport errors and non-2xx replies are failures.
func (c *PushClient) Notify(ctx context.Context, device models.DeviceRegistration) error {
	form := url.Values{
		"verb":        {"NotifyTextMessage"},
		"AppId":       {device.AppID},
		"DeviceToken": {device.DeviceToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrPushRejected, resp.StatusCode)
	}
	return nil
}
