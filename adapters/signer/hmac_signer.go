package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/layer-3/tradeclient/ports"
)

// HMACSigner signs private requests with HMAC-SHA256.
// The HMAC key is the base64 text of the raw secret, not the raw secret itself.
type HMACSigner struct{}

// NewHMACSigner creates a new HMAC request signer
func NewHMACSigner() ports.RequestSigner {
	return HMACSigner{}
}

// CanonicalString is the exact message that gets signed: no delimiters, order matters
func CanonicalString(domain, path, body string) string {
	return domain + path + body
}

// Sign returns base64(HMAC_SHA256(base64(secretRaw), domain+path+body))
func (HMACSigner) Sign(secretRaw []byte, domain, path, body string) string {
	key := base64.StdEncoding.EncodeToString(secretRaw)
	return computeHmacSha256([]byte(key), CanonicalString(domain, path, body))
}

func computeHmacSha256(key []byte, payload string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
