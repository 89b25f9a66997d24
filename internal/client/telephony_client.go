package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"smsglue/internal/metrics"
	"smsglue/internal/models"
	"smsglue/internal/util"
)

var ErrTelephonyStatus = errors.New("telephony api returned a non-success status")

const (
	telephonyDateLayout = "2006-01-02"
	maxResponseBytes    = 8 << 20
)

// InboundSMS is a message as returned by getSMS.
type InboundSMS struct {
	ID      FlexString `json:"id"`
	Date    string     `json:"date"`
	Type    FlexString `json:"type"`
	DID     FlexString `json:"did"`
	Contact FlexString `json:"contact"`
	Message string     `json:"message"`
}

// FlexString accepts either a JSON string or a JSON number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

type telephonyResponse struct {
	Status  string       `json:"status"`
	SMS     []InboundSMS `json:"sms"`
	Balance struct {
		CurrentBalance FlexString `json:"current_balance"`
	} `json:"balance"`
}

// TelephonyClient calls the voip.ms REST API. Every call is a GET carrying the
// account credentials; only a JSON body with status "success" counts as success.
type TelephonyClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewTelephonyClient(baseURL string, timeout time.Duration, httpClient *http.Client, logger *zap.Logger) *TelephonyClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = util.Get()
	}
	return &TelephonyClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger.Named("telephony"),
	}
}

func (c *TelephonyClient) call(ctx context.Context, creds models.AccountCredentials, method string, params url.Values) (*telephonyResponse, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid telephony api url: %w", err)
	}

	q := u.Query()
	q.Set("api_username", creds.Username)
	q.Set("api_password", creds.Password)
	q.Set("did", creds.DID)
	q.Set("method", method)
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build telephony request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.TelephonyRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("Telephony request failed",
			zap.String("method", method),
			zap.Error(err))
		return nil, fmt.Errorf("telephony %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read telephony %s response: %w", method, err)
	}

	var parsed telephonyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Warn("Telephony response is not JSON",
			zap.String("method", method),
			zap.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("%w: %s returned unparseable body", ErrTelephonyStatus, method)
	}
	if parsed.Status != "success" {
		c.logger.Info("Telephony call rejected",
			zap.String("method", method),
			zap.String("status", parsed.Status),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %s returned %q", ErrTelephonyStatus, method, parsed.Status)
	}

	c.logger.Debug("Telephony call succeeded",
		zap.String("method", method),
		zap.Duration("duration", time.Since(start)))
	return &parsed, nil
}

// SetSMS enables SMS on the DID and points its URL callback at callbackURL.
func (c *TelephonyClient) SetSMS(ctx context.Context, creds models.AccountCredentials, callbackURL string) error {
	_, err := c.call(ctx, creds, "setSMS", url.Values{
		"enable":              {"1"},
		"url_callback_enable": {"1"},
		"url_callback":        {callbackURL},
		"url_callback_retry":  {"1"},
	})
	return err
}

// SendSMS sends one message segment to dst.
func (c *TelephonyClient) SendSMS(ctx context.Context, creds models.AccountCredentials, dst, message string) error {
	_, err := c.call(ctx, creds, "sendSMS", url.Values{
		"dst":     {dst},
		"message": {message},
	})
	return err
}

// GetSMS returns received messages dated between from and to (inclusive days).
func (c *TelephonyClient) GetSMS(ctx context.Context, creds models.AccountCredentials, from, to time.Time) ([]InboundSMS, error) {
	resp, err := c.call(ctx, creds, "getSMS", url.Values{
		"from":     {from.UTC().Format(telephonyDateLayout)},
		"to":       {to.UTC().Format(telephonyDateLayout)},
		"limit":    {"9999"},
		"type":     {"1"},
		"timezone": {"-1"},
	})
	if err != nil {
		return nil, err
	}
	return resp.SMS, nil
}

// GetBalance returns the current account balance in USD.
func (c *TelephonyClient) GetBalance(ctx context.Context, creds models.AccountCredentials) (float64, error) {
	resp, err := c.call(ctx, creds, "getBalance", nil)
	if err != nil {
		return 0, err
	}
	amount, err := strconv.ParseFloat(string(resp.Balance.CurrentBalance), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unreadable balance %q", ErrTelephonyStatus, resp.Balance.CurrentBalance)
	}
	return amount, nil
}
