package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatrelay/infrastructure/carrier"
	"chatrelay/pkg/metrics"
)

const DefaultAPIBase = "https://api.twilio.com"

// Twilio error codes that mean the destination address is unusable.
var invalidAddressCodes = map[int]bool{
	21211: true, // invalid 'To' number
	21212: true, // invalid 'From' number
	21408: true, // region not enabled
	21610: true, // recipient unsubscribed
	21614: true, // not a mobile number
	63003: true, // channel could not find To address
}

type Config struct {
	AccountSID string
	AuthToken  string
	APIBase    string
	Timeout    time.Duration
}

// Client is a minimal Messages API client.
type Client struct {
	accountSID string
	authToken  string
	apiBase    string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		apiBase:    strings.TrimRight(cfg.APIBase, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type messageResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type errorResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// Send creates one message. Failures are *carrier.Error.
func (c *Client) Send(ctx context.Context, from, to, body string) (carrier.SendResult, error) {
	start := time.Now()
	res, err := c.send(ctx, from, to, body)

	result := "success"
	if err != nil {
		result = string(carrier.KindOf(err))
	}
	metrics.RecordCarrierSend(result, time.Since(start).Seconds())

	return res, err
}

func (c *Client) send(ctx context.Context, from, to, body string) (carrier.SendResult, error) {
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.apiBase, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return carrier.SendResult{}, &carrier.Error{Kind: carrier.KindProvider, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return carrier.SendResult{}, &carrier.Error{Kind: carrier.KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return carrier.SendResult{}, &carrier.Error{Kind: carrier.KindNetwork, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return carrier.SendResult{}, classify(resp.StatusCode, raw)
	}

	var msg messageResponse
	if err := json.Unmarshal(raw, &msg); err != nil {
		return carrier.SendResult{}, &carrier.Error{
			Kind:       carrier.KindProvider,
			StatusCode: resp.StatusCode,
			Message:    "failed to parse message response",
			Err:        err,
		}
	}
	if msg.SID == "" {
		return carrier.SendResult{}, &carrier.Error{
			Kind:       carrier.KindProvider,
			StatusCode: resp.StatusCode,
			Err:        errors.New("response carried no message sid"),
		}
	}

	return carrier.SendResult{ProviderMessageID: msg.SID}, nil
}

func classify(status int, raw []byte) *carrier.Error {
	var eresp errorResponse
	_ = json.Unmarshal(raw, &eresp)

	cerr := &carrier.Error{
		Kind:         carrier.KindProvider,
		StatusCode:   status,
		ProviderCode: eresp.Code,
		Message:      eresp.Message,
	}
	if cerr.Message == "" {
		cerr.Message = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden || eresp.Code == 20003:
		cerr.Kind = carrier.KindAuth
	case status == http.StatusTooManyRequests || eresp.Code == 20429:
		cerr.Kind = carrier.KindRateLimited
	case invalidAddressCodes[eresp.Code]:
		cerr.Kind = carrier.KindInvalidAddress
	}
	return cerr
}
