package jsonutil

import (
	"errors"
	"testing"
)

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `  {"a":1} `, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence with prose", "Here you go:\n```\n[1,2]\n```\nEnjoy!", `[1,2]`},
		{"unterminated", "```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdownFences(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"object in prose", `Your profile: {"archetype":"The Sage"} Hope that helps {smile}`, `{"archetype":"The Sage"}`, false},
		{"brace in string", `{"note":"use } carefully","n":1}`, `{"note":"use } carefully","n":1}`, false},
		{"escaped quote", `{"q":"say \"hi\" {"}`, `{"q":"say \"hi\" {"}`, false},
		{"array first", `tags: ["Bold","Warm"] and {"x":1}`, `["Bold","Warm"]`, false},
		{"skips stray bracket", `a { b then {"ok":true}`, `{"ok":true}`, false},
		{"nothing", `You radiate calm confidence.`, "", true},
		{"unbalanced", `{"a":1`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if err != nil && !errors.Is(err, ErrNoJSON) {
				t.Errorf("err = %v, want ErrNoJSON", err)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	type profile struct {
		Archetype   string   `json:"archetype"`
		VisualStyle []string `json:"visual_style"`
	}
	got, err := ParseJSON[profile]("```json\n{\"archetype\":\"The Explorer\",\"visual_style\":[\"Rugged\"]}\n```")
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if got.Archetype != "The Explorer" || len(got.VisualStyle) != 1 {
		t.Errorf("got %+v", got)
	}

	if _, err := ParseJSON[profile](`{"archetype": 7}`); err == nil {
		t.Error("expected type error")
	}
	if _, err := ParseJSON[profile]("plain prose"); !errors.Is(err, ErrNoJSON) {
		t.Errorf("err = %v, want ErrNoJSON", err)
	}
}
