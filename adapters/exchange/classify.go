package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/layer-3/tradeclient/core"
	"github.com/tidwall/gjson"
)

// classify turns a raw HTTP response into a result or one of the core error types
func classify(status int, raw []byte) (core.Result, error) {
	if !gjson.ValidBytes(raw) {
		return core.Result{}, &core.NetworkError{
			Op:  "decode",
			Err: fmt.Errorf("response is not valid JSON (status %d)", status),
		}
	}

	if e := gjson.GetBytes(raw, "error"); isErrorPayload(e) {
		return core.Result{}, &core.APIError{
			StatusCode: status,
			Payload:    json.RawMessage(e.Raw),
			Message:    errorMessage(e),
		}
	}

	if status < 200 || status >= 300 {
		return core.Result{}, &core.APIError{
			StatusCode: status,
			Payload:    json.RawMessage(raw),
			Message:    http.StatusText(status),
		}
	}

	return core.Result{StatusCode: status, Body: json.RawMessage(raw)}, nil
}

// isErrorPayload follows truthiness: null, false, "" and 0 are not errors
func isErrorPayload(e gjson.Result) bool {
	if !e.Exists() {
		return false
	}
	switch e.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return e.Str != ""
	case gjson.Number:
		return e.Num != 0
	default:
		return true
	}
}

func errorMessage(e gjson.Result) string {
	if e.Type == gjson.String {
		return e.Str
	}
	if msg := e.Get("message"); msg.Exists() {
		return msg.String()
	}
	return e.Raw
}

func resultClass(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return "api_error"
	}
	return "network"
}
