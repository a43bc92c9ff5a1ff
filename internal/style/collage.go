package style

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Collage is a generated style mood board. At least one of URL or Base64 is set.
type Collage struct {
	URL    string `json:"collage_url,omitempty"`
	Base64 string `json:"collage_base64,omitempty"`
	Prompt string `json:"prompt_used,omitempty"`
	Focus  string `json:"style_focus,omitempty"`
}

func (c Collage) Empty() bool {
	return c.URL == "" && c.Base64 == ""
}

// Image decodes the inline payload. A data-URL prefix is tolerated.
func (c Collage) Image() ([]byte, error) {
	if c.Base64 == "" {
		return nil, fmt.Errorf("collage has no inline image")
	}
	payload := c.Base64
	if i := strings.Index(payload, ";base64,"); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode collage image: %w", err)
	}
	return data, nil
}
