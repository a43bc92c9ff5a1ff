package style

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PricedOption is one purchasable suggestion at a price tier.
type PricedOption struct {
	Brand     string `json:"brand,omitempty"`
	Product   string `json:"product,omitempty"`
	Price     string `json:"price,omitempty"`
	Source    string `json:"source,omitempty"`
	Rationale string `json:"rationale,omitempty"`
}

// UnmarshalJSON accepts a numeric price as well as a string one.
func (o *PricedOption) UnmarshalJSON(data []byte) error {
	var raw struct {
		Brand     string          `json:"brand"`
		Product   string          `json:"product"`
		Price     json.RawMessage `json:"price"`
		Source    string          `json:"source"`
		Rationale string          `json:"rationale"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = PricedOption{Brand: raw.Brand, Product: raw.Product, Source: raw.Source, Rationale: raw.Rationale}
	o.Price = rawScalar(raw.Price)
	return nil
}

func rawScalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Recommendation is either a flat label or a structured record with a
// category and up to three priced options.
type Recommendation struct {
	Label string `json:"-"`

	Category  string        `json:"category,omitempty"`
	Text      string        `json:"recommendation,omitempty"`
	Rationale string        `json:"rationale,omitempty"`
	Budget    *PricedOption `json:"budget,omitempty"`
	MidRange  *PricedOption `json:"mid_range,omitempty"`
	Premium   *PricedOption `json:"premium,omitempty"`
}

// Structured reports whether the item is a record rather than a flat label.
func (r Recommendation) Structured() bool {
	return r.Label == ""
}

// Summary is a one-line rendering used in prompts.
func (r Recommendation) Summary() string {
	if !r.Structured() {
		return r.Label
	}
	switch {
	case r.Text != "":
		return r.Text
	case r.Category != "":
		return r.Category
	}
	for _, o := range r.Options() {
		if o.Product != "" {
			return o.Product
		}
	}
	return ""
}

// Options returns the present price tiers in budget, mid-range, premium order.
func (r Recommendation) Options() []PricedOption {
	var out []PricedOption
	for _, o := range []*PricedOption{r.Budget, r.MidRange, r.Premium} {
		if o != nil {
			out = append(out, *o)
		}
	}
	return out
}

type structuredRecommendation struct {
	Category  string        `json:"category,omitempty"`
	Text      string        `json:"recommendation,omitempty"`
	Rationale string        `json:"rationale,omitempty"`
	Budget    *PricedOption `json:"budget,omitempty"`
	MidRange  *PricedOption `json:"mid_range,omitempty"`
	Premium   *PricedOption `json:"premium,omitempty"`
}

func (r Recommendation) MarshalJSON() ([]byte, error) {
	if !r.Structured() {
		return json.Marshal(r.Label)
	}
	return json.Marshal(structuredRecommendation{
		Category: r.Category, Text: r.Text, Rationale: r.Rationale,
		Budget: r.Budget, MidRange: r.MidRange, Premium: r.Premium,
	})
}

// UnmarshalJSON accepts a string label or an object. Object price tiers may
// be named budget/mid_range/premium or carry an _option suffix.
func (r *Recommendation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var label string
		if err := json.Unmarshal(data, &label); err != nil {
			return err
		}
		*r = Recommendation{Label: label}
		return nil
	}

	var raw struct {
		structuredRecommendation
		BudgetOption   *PricedOption `json:"budget_option"`
		MidRangeOption *PricedOption `json:"mid_range_option"`
		PremiumOption  *PricedOption `json:"premium_option"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("recommendation: %w", err)
	}
	*r = Recommendation{
		Category:  raw.Category,
		Text:      raw.Text,
		Rationale: raw.Rationale,
		Budget:    firstOption(raw.Budget, raw.BudgetOption),
		MidRange:  firstOption(raw.MidRange, raw.MidRangeOption),
		Premium:   firstOption(raw.Premium, raw.PremiumOption),
	}
	return nil
}

func firstOption(opts ...*PricedOption) *PricedOption {
	for _, o := range opts {
		if o != nil {
			return o
		}
	}
	return nil
}

// RecommendationSet is an ordered list of recommendations. It is replaced
// whole on regeneration.
type RecommendationSet struct {
	Items []Recommendation `json:"recommendations"`
	Focus string           `json:"lifestyle_focus,omitempty"`
}

// Summaries returns the non-empty one-line renderings of every item.
func (s RecommendationSet) Summaries() []string {
	out := make([]string, 0, len(s.Items))
	for _, r := range s.Items {
		if sum := r.Summary(); sum != "" {
			out = append(out, sum)
		}
	}
	return out
}

// ParseRecommendations decodes the remote "recommendations" value, which is
// either a list of items or a single block of text.
func ParseRecommendations(raw json.RawMessage) ([]Recommendation, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("recommendations text: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		return []Recommendation{{Label: text}}, nil
	}
	var items []Recommendation
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("recommendations list: %w", err)
	}
	return items, nil
}
