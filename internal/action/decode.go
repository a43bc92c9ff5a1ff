package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type object = map[string]json.RawMessage

// shapeMatcher extracts the body object from one historical payload shape.
// ok=false means the shape does not apply; err means it applies but is broken.
type shapeMatcher struct {
	name  string
	match func(payload object) (body object, ok bool, err error)
}

// bodyShapes are tried in order; the first that applies wins.
var bodyShapes = []shapeMatcher{
	{"responseBody.application/json.body", matchContentBody},
	{"responseBody", matchResponseBody},
	{"payload", func(payload object) (object, bool, error) { return payload, true, nil }},
}

func responseBodyOf(payload object) (object, bool) {
	var response object
	if err := json.Unmarshal(payload["response"], &response); err != nil || response == nil {
		return nil, false
	}
	var rb object
	if err := json.Unmarshal(response["responseBody"], &rb); err != nil || rb == nil {
		return nil, false
	}
	return rb, true
}

func matchContentBody(payload object) (object, bool, error) {
	rb, ok := responseBodyOf(payload)
	if !ok {
		return nil, false, nil
	}
	var content object
	if err := json.Unmarshal(rb[jsonMediaType], &content); err != nil || content == nil {
		return nil, false, nil
	}
	raw := bytes.TrimSpace(content["body"])
	if len(raw) == 0 {
		return nil, true, fmt.Errorf("%s has no body", jsonMediaType)
	}

	// The body is normally a JSON document encoded as a string.
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, true, err
		}
		raw = []byte(text)
	}
	var body object
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, true, fmt.Errorf("body is not a JSON object: %w", err)
	}
	return body, true, nil
}

func matchResponseBody(payload object) (object, bool, error) {
	rb, ok := responseBodyOf(payload)
	if !ok {
		return nil, false, nil
	}
	return rb, true, nil
}

// DecodeBody unwraps a function payload into its body object. A top-level
// errorMessage/errorType yields an *InvocationError; an "error" key in the
// body yields an *ApplicationError.
func DecodeBody(payload []byte) (json.RawMessage, error) {
	var top object
	if err := json.Unmarshal(payload, &top); err != nil || top == nil {
		return nil, &InvocationError{Reason: "malformed payload", Err: err}
	}

	if _, ok := top["errorMessage"]; ok {
		return nil, &InvocationError{Reason: "function raised " + remoteError(top)}
	}
	if _, ok := top["errorType"]; ok {
		return nil, &InvocationError{Reason: "function raised " + remoteError(top)}
	}

	for _, shape := range bodyShapes {
		body, ok, err := shape.match(top)
		if !ok {
			continue
		}
		if err != nil {
			return nil, &InvocationError{Reason: "malformed " + shape.name, Err: err}
		}
		if msg, isErr := bodyError(body); isErr {
			return nil, &ApplicationError{Message: msg}
		}
		out, err := json.Marshal(body)
		if err != nil {
			return nil, &InvocationError{Reason: "re-encode body", Err: err}
		}
		return out, nil
	}
	return nil, &InvocationError{Reason: "no body shape matched"}
}

func remoteError(top object) string {
	var typ, msg string
	_ = json.Unmarshal(top["errorType"], &typ)
	_ = json.Unmarshal(top["errorMessage"], &msg)
	switch {
	case typ != "" && msg != "":
		return typ + ": " + msg
	case msg != "":
		return msg
	case typ != "":
		return typ
	}
	return "unknown error"
}

// bodyError reports a non-empty "error" key. Non-string values are rendered as JSON.
func bodyError(body object) (string, bool) {
	raw, ok := body["error"]
	if !ok {
		return "", false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "false" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return "", false
		}
		return s, true
	}
	return string(raw), true
}
