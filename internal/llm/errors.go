package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrorKind classifies a failed completion call by cause.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuth
	KindRateLimit
	KindQuota
	KindConnectivity
)

// User-facing messages, one distinct string per kind. These end up as
// synthesized assistant messages, so they are written for humans.
var kindMessages = map[ErrorKind]string{
	KindAuth:         "Authentication failed. Please check your API key.",
	KindRateLimit:    "Rate limit exceeded. Please wait a moment before sending another message.",
	KindQuota:        "API quota exhausted. Please check your plan and billing details.",
	KindConnectivity: "Could not reach the completion service. Please check your connection and try again.",
	KindUnknown:      "Something went wrong while generating a response. Please try again.",
}

// String returns a stable label for the kind, used in logs and metric
// attributes.
func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindQuota:
		return "quota"
	case KindConnectivity:
		return "connectivity"
	default:
		return "unknown"
	}
}

// Error is a classified completion failure. It keeps the transport
// cause for logs while exposing a stable user-facing message.
type Error struct {
	Kind  ErrorKind
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage(), e.cause)
	}
	return e.UserMessage()
}

func (e *Error) Unwrap() error { return e.cause }

// UserMessage returns the human-readable string for this error's kind.
func (e *Error) UserMessage() string {
	if msg, ok := kindMessages[e.Kind]; ok {
		return msg
	}
	return kindMessages[KindUnknown]
}

// Classify maps a transport or API error to an Error with a kind.
func Classify(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return &Error{Kind: KindAuth, cause: err}
		case 429:
			if code, ok := apiErr.Code.(string); ok && strings.Contains(code, "insufficient_quota") {
				return &Error{Kind: KindQuota, cause: err}
			}
			if strings.Contains(apiErr.Type, "insufficient_quota") {
				return &Error{Kind: KindQuota, cause: err}
			}
			return &Error{Kind: KindRateLimit, cause: err}
		}
		if apiErr.HTTPStatusCode >= 500 {
			return &Error{Kind: KindConnectivity, cause: err}
		}
		return &Error{Kind: KindUnknown, cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindConnectivity, cause: err}
	}

	return &Error{Kind: KindUnknown, cause: err}
}
