package core

import (
	"encoding/base64"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Credentials are the API key pair owned by a logged-in session
type Credentials struct {
	APIKey       string `json:"api_key"`
	APISecretRaw string `json:"api_secret"`
}

// IsZero reports whether the credentials carry no usable key pair
func (c Credentials) IsZero() bool {
	return c.APIKey == "" || c.APISecretRaw == ""
}

// SecretBase64 returns the derived signing key text. It is never stored.
func (c Credentials) SecretBase64() string {
	return base64.StdEncoding.EncodeToString([]byte(c.APISecretRaw))
}

// SignedRequest describes one private call after signing. It lives for a single exchange.
type SignedRequest struct {
	Method          string
	Path            string
	CanonicalString string
	Signature       string
	Headers         map[string]string
	Body            string
}

// Result is a successfully classified response
type Result struct {
	StatusCode int
	Body       json.RawMessage
}

// Get reads a value from the response body using gjson path syntax
func (r Result) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

// Decode unmarshals the response body into target
func (r Result) Decode(target interface{}) error {
	return json.Unmarshal(r.Body, target)
}
