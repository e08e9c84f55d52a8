package tencent

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ObjectStorageClient uploads local files to a COS bucket and returns the
// public object URL. Implements asr.Storage.
type ObjectStorageClient struct {
	HTTPClient  *http.Client
	Credentials Credentials
	Bucket      string
	Region      string

	// BaseURL overrides the bucket endpoint in tests. Empty means the
	// standard https://<bucket>.cos.<region>.myqcloud.com.
	BaseURL string
}

func NewObjectStorageClient(creds Credentials, bucket, region string) *ObjectStorageClient {
	return &ObjectStorageClient{
		HTTPClient:  &http.Client{Timeout: 5 * time.Minute},
		Credentials: creds,
		Bucket:      bucket,
		Region:      region,
	}
}

func (c *ObjectStorageClient) endpoint() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf("https://%s.cos.%s.myqcloud.com", c.Bucket, c.Region)
}

// Upload puts the file into the bucket under its base name, then verifies the
// resulting URL is reachable before handing it to the recognition API.
func (c *ObjectStorageClient) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	key := "/" + filepath.Base(localPath)
	objectURL := c.endpoint() + key

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, objectURL, f)
	if err != nil {
		return "", err
	}
	req.ContentLength = stat.Size()
	req.Header.Set("Authorization", c.signature(http.MethodPut, key, req.URL, time.Now()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("cos put %s: status %d: %s", key, resp.StatusCode, body)
	}

	headReq, err := http.NewRequestWithContext(ctx, http.MethodHead, objectURL, nil)
	if err != nil {
		return "", err
	}
	headResp, err := c.HTTPClient.Do(headReq)
	if err != nil {
		return "", fmt.Errorf("verify %s: %w", objectURL, err)
	}
	headResp.Body.Close()
	if headResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("uploaded object not reachable at %s: status %d", objectURL, headResp.StatusCode)
	}

	return objectURL, nil
}

// signature builds the COS q-sign-algorithm=sha1 authorization string, valid
// for ten minutes from now.
func (c *ObjectStorageClient) signature(method, key string, u *url.URL, now time.Time) string {
	keyTime := fmt.Sprintf("%d;%d", now.Unix(), now.Add(10*time.Minute).Unix())
	signKey := hmacSHA1hex(c.Credentials.SecretKey, keyTime)

	httpString := strings.ToLower(method) + "\n" + key + "\n\nhost=" + u.Host + "\n"
	stringToSign := "sha1\n" + keyTime + "\n" + sha1hex(httpString) + "\n"
	sig := hmacSHA1hex(signKey, stringToSign)

	return strings.Join([]string{
		"q-sign-algorithm=sha1",
		"q-ak=" + c.Credentials.SecretID,
		"q-sign-time=" + keyTime,
		"q-key-time=" + keyTime,
		"q-header-list=host",
		"q-url-param-list=",
		"q-signature=" + sig,
	}, "&")
}

func sha1hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func hmacSHA1hex(key, msg string) string {
	h := hmac.New(sha1.New, []byte(key))
	h.Write([]byte(msg))
	return hex.EncodeToString(h.Sum(nil))
}
