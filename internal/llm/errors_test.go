package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"unauthorized", &openai.APIError{HTTPStatusCode: 401}, KindAuth},
		{"forbidden", &openai.APIError{HTTPStatusCode: 403}, KindAuth},
		{"rate limited", &openai.APIError{HTTPStatusCode: 429}, KindRateLimit},
		{"quota by code", &openai.APIError{HTTPStatusCode: 429, Code: "insufficient_quota"}, KindQuota},
		{"quota by type", &openai.APIError{HTTPStatusCode: 429, Type: "insufficient_quota"}, KindQuota},
		{"server error", &openai.APIError{HTTPStatusCode: 503}, KindConnectivity},
		{"bad request", &openai.APIError{HTTPStatusCode: 400}, KindUnknown},
		{"timeout", context.DeadlineExceeded, KindConnectivity},
		{"opaque", errors.New("boom"), KindUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			require.Equal(t, tc.kind, got.Kind)
		})
	}
}

func TestUserMessages_Distinct(t *testing.T) {
	kinds := []ErrorKind{KindAuth, KindRateLimit, KindQuota, KindConnectivity, KindUnknown}
	seen := map[string]ErrorKind{}
	for _, k := range kinds {
		msg := (&Error{Kind: k}).UserMessage()
		require.NotEmpty(t, msg)
		if prev, dup := seen[msg]; dup {
			t.Fatalf("kinds %v and %v share the message %q", prev, k, msg)
		}
		seen[msg] = k
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := &openai.APIError{HTTPStatusCode: 401}
	cerr := Classify(cause)
	var apiErr *openai.APIError
	require.ErrorAs(t, cerr, &apiErr)
}
