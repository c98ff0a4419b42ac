package verification

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
)

var (
	ErrBadSignature = errors.New("verification: webhook signature mismatch")
	ErrNoSecret     = errors.New("verification: no webhook secret configured")
)

// Veriff creates sessions against the vendor's station API.
type Veriff struct {
	*hub
	client  *fasthttp.Client
	timeout time.Duration
}

func NewVeriff(timeout time.Duration) *Veriff {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Veriff{
		hub:     newHub(),
		client:  &fasthttp.Client{Name: "naughtyden-verify", ReadTimeout: timeout, WriteTimeout: timeout},
		timeout: timeout,
	}
}

type sessionRequest struct {
	Verification struct {
		Person     Person `json:"person,omitempty"`
		VendorData string `json:"vendorData,omitempty"`
	} `json:"verification"`
}

func (v *Veriff) StartVerification(ctx context.Context, cfg SessionConfig) (<-chan Event, error) {
	if cfg.Host == "" || cfg.APIKey == "" {
		return nil, errors.New("verification: host and api key are required")
	}
	var body sessionRequest
	body.Verification.Person = cfg.Person
	body.Verification.VendorData = cfg.VendorData
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(strings.TrimRight(cfg.Host, "/") + "/v1/sessions")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("X-AUTH-CLIENT", cfg.APIKey)
	req.SetBody(payload)

	deadline, ok := ctx.Deadline()
	if !ok || time.Until(deadline) > v.timeout {
		deadline = time.Now().Add(v.timeout)
	}
	if err := v.client.DoDeadline(req, resp, deadline); err != nil {
		logger.Error("verification_session_failed", "error", err)
		return failed(fmt.Errorf("create session: %w", err)), nil
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		msg := gjson.GetBytes(resp.Body(), "message").String()
		logger.Error("verification_session_rejected", "status", resp.StatusCode(), "message", msg)
		return failed(fmt.Errorf("create session: status %d %s", resp.StatusCode(), msg)), nil
	}

	id := gjson.GetBytes(resp.Body(), "verification.id").String()
	url := gjson.GetBytes(resp.Body(), "verification.url").String()
	if id == "" || url == "" {
		return failed(errors.New("Failed to get verification URL. Please try again.")), nil
	}
	logger.Info("verification_session_created", "session_id", id)
	return v.open(id, Event{Kind: EventSession, SessionID: id, URL: url}), nil
}

func (v *Veriff) Complete(sessionID string, err error, code string, person json.RawMessage) error {
	return v.complete(sessionID, Event{Kind: EventFinished, SessionID: sessionID, Err: err, Code: code, Person: person})
}

// Decision is the useful part of a vendor decision webhook.
type Decision struct {
	SessionID string
	Code      string
	Person    json.RawMessage
}

// ParseDecision reads a decision webhook body. An approved status maps to
// CodeSuccess, anything else to its upper-cased status.
func ParseDecision(body []byte) (Decision, error) {
	if !gjson.ValidBytes(body) {
		return Decision{}, errors.New("verification: webhook body is not JSON")
	}
	v := gjson.GetBytes(body, "verification")
	id := v.Get("id").String()
	if id == "" {
		return Decision{}, errors.New("verification: webhook has no session id")
	}
	status := strings.ToLower(v.Get("status").String())
	code := strings.ToUpper(status)
	if status == "approved" {
		code = CodeSuccess
	}
	d := Decision{SessionID: id, Code: code}
	if p := v.Get("person"); p.Exists() {
		d.Person = json.RawMessage(p.Raw)
	}
	return d, nil
}

// VerifySignature checks the hex HMAC-SHA256 of body. Without a secret
// nothing can be trusted, so every body is rejected.
func VerifySignature(body []byte, signature, secret string) error {
	if secret == "" {
		return ErrNoSecret
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := mac.Sum(nil)
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || !hmac.Equal(want, got) {
		return ErrBadSignature
	}
	return nil
}

// Sign returns the signature VerifySignature expects.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
