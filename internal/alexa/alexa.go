// Package alexa holds the wire types of the Alexa skill request and response envelopes.
package alexa

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedRequest   = errors.New("malformed skill request")
	ErrInvalidApplication = errors.New("invalid application ID")
)

// WarmupDetailType marks a scheduled keep-warm invocation rather than a user request.
const WarmupDetailType = "Scheduled Event"

type Application struct {
	ApplicationID string `json:"applicationId"`
}

type Session struct {
	SessionID   string      `json:"sessionId,omitempty"`
	New         bool        `json:"new,omitempty"`
	Application Application `json:"application"`
}

type Device struct {
	DeviceID string `json:"deviceId"`
}

type System struct {
	Application    Application `json:"application"`
	Device         Device      `json:"device"`
	APIEndpoint    string      `json:"apiEndpoint"`
	APIAccessToken string      `json:"apiAccessToken"`
}

type Context struct {
	System System `json:"System"`
}

type RequestBody struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
	Locale    string `json:"locale,omitempty"`
}

// Request is an incoming skill invocation. Warmup triggers carry only DetailType.
type Request struct {
	Version    string       `json:"version,omitempty"`
	DetailType string       `json:"detail-type,omitempty"`
	Session    *Session     `json:"session,omitempty"`
	Context    *Context     `json:"context,omitempty"`
	Request    *RequestBody `json:"request,omitempty"`
}

// Parse decodes a skill request body.
func Parse(raw []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return &req, nil
}

// IsWarmup reports whether r is a scheduled keep-warm trigger that must not reach any upstream.
func (r *Request) IsWarmup() bool {
	return r != nil && r.DetailType == WarmupDetailType
}

// ApplicationID returns the skill ID the request was addressed to, preferring the session copy.
func (r *Request) ApplicationID() string {
	if r == nil {
		return ""
	}
	if r.Session != nil && r.Session.Application.ApplicationID != "" {
		return r.Session.Application.ApplicationID
	}
	if r.Context != nil {
		return r.Context.System.Application.ApplicationID
	}
	return ""
}

// VerifyApplication fails with ErrInvalidApplication unless the request targets skillID. An empty
// skillID disables the check.
func (r *Request) VerifyApplication(skillID string) error {
	if skillID == "" {
		return nil
	}
	if got := r.ApplicationID(); got != skillID {
		return fmt.Errorf("%w: %q", ErrInvalidApplication, got)
	}
	return nil
}

// DeviceInfo returns the device ID, API endpoint and access token needed to look up the device's
// registered address. Fields are empty when the request carries no context.
func (r *Request) DeviceInfo() (deviceID, apiEndpoint, accessToken string) {
	if r == nil || r.Context == nil {
		return "", "", ""
	}
	sys := r.Context.System
	return sys.Device.DeviceID, sys.APIEndpoint, sys.APIAccessToken
}

type OutputSpeech struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ResponseBody struct {
	OutputSpeech OutputSpeech `json:"outputSpeech"`
}

type Response struct {
	Version  string       `json:"version"`
	Response ResponseBody `json:"response"`
}

// NewSpeechResponse wraps text in a plain-text speech response.
func NewSpeechResponse(text string) *Response {
	return &Response{
		Version: "1.0",
		Response: ResponseBody{
			OutputSpeech: OutputSpeech{Type: "PlainText", Text: text},
		},
	}
}
