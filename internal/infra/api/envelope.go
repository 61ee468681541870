package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// envelope is the backend's response wrapper. Successful responses carry
// code 0 and data. Failures carry a non-zero code, or a FastAPI style
// detail that is an object, a string or a list of validation issues.
type envelope struct {
	Code    *int            `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Detail  json.RawMessage `json:"detail"`
}

type errorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Msg     string `json:"msg"`
}

// decodeEnvelope decodes body into out, or returns an *APIError.
// out may be nil when the caller does not need the payload.
func decodeEnvelope(status int, header http.Header, body []byte, out any) error {
	var env envelope
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &env); err != nil {
			if status >= 200 && status < 300 {
				return fmt.Errorf("decode response: %w", err)
			}
			return newAPIError(status, 0, truncate(string(trimmed), 200), header)
		}
	}

	hasDetail := len(env.Detail) > 0 && string(env.Detail) != "null"
	if status < 200 || status >= 300 || hasDetail || (env.Code != nil && *env.Code != codeOK) {
		code, msg := 0, env.Message
		if env.Code != nil {
			code = *env.Code
		}
		if hasDetail {
			dc, dm := parseDetail(env.Detail)
			if dc != 0 {
				code = dc
			}
			if dm != "" {
				msg = dm
			}
		}
		if msg == "" {
			msg = http.StatusText(status)
		}
		return newAPIError(status, code, msg, header)
	}

	if out == nil {
		return nil
	}
	payload := env.Data
	if env.Code == nil {
		// Not enveloped: the body is the payload.
		payload = trimmed
	}
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func parseDetail(raw json.RawMessage) (int, string) {
	switch raw[0] {
	case '{':
		var d errorDetail
		if err := json.Unmarshal(raw, &d); err == nil {
			if d.Message == "" {
				d.Message = d.Msg
			}
			return d.Code, d.Message
		}
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return 0, s
		}
	case '[':
		var list []errorDetail
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return 0, list[0].Msg
		}
	}
	return 0, ""
}

func newAPIError(status, code int, msg string, header http.Header) *APIError {
	return &APIError{
		Status:     status,
		Code:       code,
		Message:    msg,
		RequestID:  header.Get("X-Request-ID"),
		retryAfter: parseRetryAfter(header.Get("Retry-After")),
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
