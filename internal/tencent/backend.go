package tencent

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Credentials holds a Tencent Cloud API key pair.
type Credentials struct {
	SecretID  string
	SecretKey string
}

// Backend executes actions against a Tencent Cloud API. It exists as an
// interface so the recognition client can be tested without the network.
type Backend interface {
	Call(ctx context.Context, action string, params any, out any) error
}

// BackendConfiguration is the HTTP implementation of Backend. Requests are
// signed with TC3-HMAC-SHA256 and retried with exponential backoff on
// transport failures and 5xx responses.
type BackendConfiguration struct {
	HTTPClient  *http.Client
	Credentials Credentials
	Region      string

	// BaseURL, Service, and Version identify the product API. Tests point
	// BaseURL at a local server.
	BaseURL string
	Service string
	Version string
}

type apiError struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("tencentcloud: %s: %s", e.Code, e.Message)
}

type responseEnvelope struct {
	Response json.RawMessage `json:"Response"`
}

func (b *BackendConfiguration) Call(ctx context.Context, action string, params any, out any) error {
	payload, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", action, err)
	}

	var body []byte
	op := func() error {
		req, err := b.newRequest(ctx, action, payload)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := b.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%s: server error %d: %s", action, resp.StatusCode, body)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("%s: status %d: %s", action, resp.StatusCode, body))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 15 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return err
	}

	var envelope responseEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w body=%s", action, err, body)
	}
	var errCheck struct {
		Error *apiError `json:"Error"`
	}
	if err := json.Unmarshal(envelope.Response, &errCheck); err == nil && errCheck.Error != nil {
		return errCheck.Error
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Response, out); err != nil {
			return fmt.Errorf("%s: decode response body: %w", action, err)
		}
	}
	return nil
}

func (b *BackendConfiguration) newRequest(ctx context.Context, action string, payload []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("X-TC-Action", action)
	req.Header.Set("X-TC-Version", b.Version)
	req.Header.Set("X-TC-Timestamp", strconv.FormatInt(now.Unix(), 10))
	req.Header.Set("X-TC-Region", b.Region)
	req.Header.Set("Authorization", b.authorization(req.URL, payload, now))
	return req, nil
}

// authorization computes the TC3-HMAC-SHA256 signature header.
func (b *BackendConfiguration) authorization(u *url.URL, payload []byte, now time.Time) string {
	const algorithm = "TC3-HMAC-SHA256"
	const signedHeaders = "content-type;host"

	canonicalHeaders := "content-type:application/json; charset=utf-8\nhost:" + u.Host + "\n"
	canonicalRequest := "POST\n/\n\n" +
		canonicalHeaders + "\n" +
		signedHeaders + "\n" +
		sha256hex(payload)

	date := now.UTC().Format("2006-01-02")
	scope := date + "/" + b.Service + "/tc3_request"
	stringToSign := algorithm + "\n" +
		strconv.FormatInt(now.Unix(), 10) + "\n" +
		scope + "\n" +
		sha256hex([]byte(canonicalRequest))

	secretDate := hmacSHA256([]byte("TC3"+b.Credentials.SecretKey), date)
	secretService := hmacSHA256(secretDate, b.Service)
	secretSigning := hmacSHA256(secretService, "tc3_request")
	signature := hex.EncodeToString(hmacSHA256(secretSigning, stringToSign))

	return fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		algorithm, b.Credentials.SecretID, scope, signedHeaders, signature)
}

func sha256hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, msg string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(msg))
	return h.Sum(nil)
}
