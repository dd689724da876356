package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// GatewaySigner signs URLs served by the download gateway. The gateway
// recomputes the HMAC over bucket, key and expiry before streaming the object.
type GatewaySigner struct {
	baseURL string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewGatewaySigner constructs a signer with the provided base URL, secret and TTL.
func NewGatewaySigner(baseURL, secret string, ttl time.Duration) *GatewaySigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &GatewaySigner{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SignURL returns base/bucket/key?expires=<unix>&signature=<hex>.
func (s *GatewaySigner) SignURL(_ context.Context, bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", fmt.Errorf("bucket and key required")
	}
	if len(s.secret) == 0 {
		return "", fmt.Errorf("signing secret missing")
	}
	expires := s.now().Add(s.ttl).Unix()
	signature := s.sign(bucket, key, expires)

	query := url.Values{}
	query.Set("expires", strconv.FormatInt(expires, 10))
	query.Set("signature", signature)
	return fmt.Sprintf("%s/%s/%s?%s", s.baseURL, url.PathEscape(bucket), escapeKey(key), query.Encode()), nil
}

// Verify validates a signature produced by SignURL.
func (s *GatewaySigner) Verify(bucket, key, expires, signature string) error {
	expUnix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid expiry")
	}
	expected := s.sign(bucket, key, expUnix)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("invalid signature")
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return fmt.Errorf("signature expired")
	}
	return nil
}

func (s *GatewaySigner) sign(bucket, key string, expires int64) string {
	payload := fmt.Sprintf("%s|%s|%d", bucket, key, expires)
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
