package action

import (
	"encoding/json"
	"fmt"
	"sort"
)

const (
	messageVersion = "1.0"
	httpMethod     = "POST"
	jsonMediaType  = "application/json"
)

// Envelope is the action-group event the remote function expects.
type Envelope struct {
	MessageVersion string      `json:"messageVersion"`
	SessionID      string      `json:"sessionId"`
	ActionGroup    string      `json:"actionGroup"`
	HTTPMethod     string      `json:"httpMethod"`
	APIPath        string      `json:"apiPath"`
	RequestBody    RequestBody `json:"requestBody"`
}

type RequestBody struct {
	Content map[string]PropertyList `json:"content"`
}

type PropertyList struct {
	Properties []Property `json:"properties"`
}

type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BuildEnvelope renders props sorted by name. Strings are sent verbatim;
// any other value is sent as its JSON encoding.
func BuildEnvelope(actionGroup, apiPath, sessionID string, props map[string]any) (Envelope, error) {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]Property, 0, len(names))
	for _, name := range names {
		value, err := propertyValue(props[name])
		if err != nil {
			return Envelope{}, fmt.Errorf("property %s: %w", name, err)
		}
		list = append(list, Property{Name: name, Value: value})
	}

	return Envelope{
		MessageVersion: messageVersion,
		SessionID:      sessionID,
		ActionGroup:    actionGroup,
		HTTPMethod:     httpMethod,
		APIPath:        apiPath,
		RequestBody: RequestBody{
			Content: map[string]PropertyList{jsonMediaType: {Properties: list}},
		},
	}, nil
}

func propertyValue(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.RawMessage:
		return string(t), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
