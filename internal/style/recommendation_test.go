package style

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseRecommendations_Mixed(t *testing.T) {
	raw := json.RawMessage(`[
		"Try earth tones",
		{
			"category": "Wardrobe",
			"recommendation": "A structured camel coat",
			"rationale": "Balances your relaxed pieces",
			"budget_option": {"brand": "Uniqlo", "product": "Wool blend coat", "price": 89.9, "source": "uniqlo.com"},
			"mid_range": {"brand": "COS", "product": "Tailored coat", "price": "$250"},
			"premium_option": {"brand": "Max Mara", "product": "101801 coat", "price": "$2,990"}
		}
	]`)

	got, err := ParseRecommendations(raw)
	if err != nil {
		t.Fatalf("ParseRecommendations: %v", err)
	}
	want := []Recommendation{
		{Label: "Try earth tones"},
		{
			Category:  "Wardrobe",
			Text:      "A structured camel coat",
			Rationale: "Balances your relaxed pieces",
			Budget:    &PricedOption{Brand: "Uniqlo", Product: "Wool blend coat", Price: "89.9", Source: "uniqlo.com"},
			MidRange:  &PricedOption{Brand: "COS", Product: "Tailored coat", Price: "$250"},
			Premium:   &PricedOption{Brand: "Max Mara", Product: "101801 coat", Price: "$2,990"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if !got[1].Structured() || got[0].Structured() {
		t.Error("Structured() misclassified items")
	}
	if n := len(got[1].Options()); n != 3 {
		t.Errorf("Options() = %d, want 3", n)
	}
}

func TestParseRecommendations_Text(t *testing.T) {
	got, err := ParseRecommendations(json.RawMessage(`"Wear more navy."`))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Label != "Wear more navy." {
		t.Errorf("got %+v", got)
	}

	if got, _ := ParseRecommendations(json.RawMessage(`null`)); got != nil {
		t.Errorf("null = %+v, want nil", got)
	}
}

func TestRecommendation_MarshalRoundTrip(t *testing.T) {
	set := RecommendationSet{Items: []Recommendation{
		{Label: "Layer neutrals"},
		{Category: "Accessories", Text: "Silver watch", Premium: &PricedOption{Brand: "Tissot"}},
	}}
	data, err := json.Marshal(set)
	if err != nil {
		t.Fatal(err)
	}
	var back RecommendationSet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(set, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Layer neutrals", "Silver watch"}, back.Summaries()); diff != "" {
		t.Errorf("Summaries mismatch:\n%s", diff)
	}
}

func TestCollage_Image(t *testing.T) {
	c := Collage{Base64: "data:image/png;base64,aGVsbG8="}
	data, err := c.Image()
	if err != nil || string(data) != "hello" {
		t.Errorf("Image() = %q, %v", data, err)
	}
	if _, err := (Collage{URL: "https://x"}).Image(); err == nil {
		t.Error("expected error without inline payload")
	}
	if !(Collage{}).Empty() {
		t.Error("zero collage should be empty")
	}
}
