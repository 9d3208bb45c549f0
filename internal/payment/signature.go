package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Signature verification errors.
var (
	ErrNoSignature        = errors.New("missing signature header")
	ErrInvalidSignature   = errors.New("signature verification failed")
	ErrTimestampTooOld    = errors.New("signature timestamp outside tolerance")
	ErrMalformedSignature = errors.New("malformed signature header")
)

// ComputeSignature computes the Stripe v1 HMAC-SHA256 signature over
// "{timestamp}.{payload}".
func ComputeSignature(timestamp int64, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader produces a Stripe-Signature header value for the given
// payload. Used by tests and the test payment provider.
func SignatureHeader(timestamp int64, payload []byte, secret string) string {
	return "t=" + strconv.FormatInt(timestamp, 10) + ",v1=" + ComputeSignature(timestamp, payload, secret)
}

// VerifySignature checks a Stripe-Signature header against the raw request
// body. The payload must be the exact bytes as sent by the provider; any
// re-serialization before this point invalidates the signature.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return ErrNoSignature
	}

	var timestamp int64 = -1
	var signatures []string
	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "t":
			ts, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return ErrMalformedSignature
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, parts[1])
		}
	}

	if timestamp < 0 || len(signatures) == 0 {
		return ErrMalformedSignature
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return ErrTimestampTooOld
		}
	}

	expected := ComputeSignature(timestamp, payload, secret)
	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrInvalidSignature
}
