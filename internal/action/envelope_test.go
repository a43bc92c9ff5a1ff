package action

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kirubel/essence-mirror/internal/style"
)

func TestBuildEnvelope_SortedProperties(t *testing.T) {
	env, err := BuildEnvelope("EssenceMirrorActions", PathGenerateStyleReel, "sess-9", map[string]any{
		"use_original_image": true,
		"style_focus":        "travel",
		"duration_seconds":   6,
		"raw":                json.RawMessage(`{"a":1}`),
	})
	if err != nil {
		t.Fatalf("BuildEnvelope: %v", err)
	}

	want := Envelope{
		MessageVersion: "1.0",
		SessionID:      "sess-9",
		ActionGroup:    "EssenceMirrorActions",
		HTTPMethod:     "POST",
		APIPath:        PathGenerateStyleReel,
		RequestBody: RequestBody{Content: map[string]PropertyList{
			"application/json": {Properties: []Property{
				{Name: "duration_seconds", Value: "6"},
				{Name: "raw", Value: `{"a":1}`},
				{Name: "style_focus", Value: "travel"},
				{Name: "use_original_image", Value: "true"},
			}},
		}},
	}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Errorf("envelope mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildEnvelope_StructValueIsJSON(t *testing.T) {
	profile := style.Profile{Archetype: "The Explorer", VisualStyle: []string{"Rugged"}, EnergeticEssence: []string{"Curious"}}
	env, err := BuildEnvelope("g", PathGenerateRecommendations, "s", map[string]any{"profile": profile})
	if err != nil {
		t.Fatalf("BuildEnvelope: %v", err)
	}
	props := env.RequestBody.Content["application/json"].Properties
	if len(props) != 1 {
		t.Fatalf("got %d properties", len(props))
	}
	var got style.Profile
	if err := json.Unmarshal([]byte(props[0].Value), &got); err != nil {
		t.Fatalf("profile value is not JSON: %v", err)
	}
	if diff := cmp.Diff(profile, got); diff != "" {
		t.Errorf("profile round trip (-want +got):\n%s", diff)
	}
}

func TestBuildEnvelope_EmptyProps(t *testing.T) {
	env, err := BuildEnvelope("g", PathAnalyzeImage, "s", nil)
	if err != nil {
		t.Fatalf("BuildEnvelope: %v", err)
	}
	data, _ := json.Marshal(env)
	var raw map[string]any
	_ = json.Unmarshal(data, &raw)
	props := raw["requestBody"].(map[string]any)["content"].(map[string]any)["application/json"].(map[string]any)["properties"]
	if list, ok := props.([]any); !ok || len(list) != 0 {
		t.Errorf("properties = %v, want empty list", props)
	}
}

func TestBuildEnvelope_UnencodableValue(t *testing.T) {
	if _, err := BuildEnvelope("g", "/x", "s", map[string]any{"ch": make(chan int)}); err == nil {
		t.Error("expected error for channel value")
	}
}
