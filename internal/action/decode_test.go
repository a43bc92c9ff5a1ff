package action

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeBody_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    map[string]any
	}{
		{
			name:    "string body in content",
			payload: `{"response":{"responseBody":{"application/json":{"body":"{\"archetype\":\"The Sage\"}"}}}}`,
			want:    map[string]any{"archetype": "The Sage"},
		},
		{
			name:    "object body in content",
			payload: `{"response":{"responseBody":{"application/json":{"body":{"archetype":"The Sage"}}}}}`,
			want:    map[string]any{"archetype": "The Sage"},
		},
		{
			name:    "bare responseBody",
			payload: `{"response":{"responseBody":{"recommendations":["Linen shirt"]}}}`,
			want:    map[string]any{"recommendations": []any{"Linen shirt"}},
		},
		{
			name:    "payload is the body",
			payload: `{"collage_url":"https://x/c.png"}`,
			want:    map[string]any{"collage_url": "https://x/c.png"},
		},
		{
			name:    "error false is not an error",
			payload: `{"ok":true,"error":false}`,
			want:    map[string]any{"ok": true, "error": false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := DecodeBody([]byte(tt.payload))
			if err != nil {
				t.Fatalf("DecodeBody: %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(body, &got); err != nil {
				t.Fatalf("body is not an object: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeBody_ApplicationError(t *testing.T) {
	_, err := DecodeBody([]byte(`{"response":{"responseBody":{"error":"model unavailable"}}}`))
	var appErr *ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("err = %v, want *ApplicationError", err)
	}
	if appErr.Message != "model unavailable" {
		t.Errorf("Message = %q", appErr.Message)
	}
	if errors.Is(err, ErrInvocation) {
		t.Error("application error must not match ErrInvocation")
	}
}

func TestDecodeBody_InvocationErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `<html>`},
		{"json array", `[1,2]`},
		{"errorMessage", `{"errorMessage":"Task timed out after 30.00 seconds"}`},
		{"errorType", `{"errorType":"Runtime.ImportModuleError"}`},
		{"missing body", `{"response":{"responseBody":{"application/json":{}}}}`},
		{"body not object", `{"response":{"responseBody":{"application/json":{"body":"plain text"}}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBody([]byte(tt.payload))
			if !errors.Is(err, ErrInvocation) {
				t.Errorf("err = %v, want ErrInvocation", err)
			}
		})
	}
}

func TestDecodeBody_RemoteErrorText(t *testing.T) {
	_, err := DecodeBody([]byte(`{"errorType":"ValueError","errorMessage":"bad image"}`))
	if err == nil || err.Error() != "action invocation failed: function raised ValueError: bad image" {
		t.Errorf("err = %v", err)
	}
}
