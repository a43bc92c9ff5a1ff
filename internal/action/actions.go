package action

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kirubel/essence-mirror/internal/media"
	"github.com/kirubel/essence-mirror/internal/style"
)

// AnalyzeImage asks the function to analyze an uploaded image. The returned
// profile may be empty or carry the "unknown" archetype; callers check
// Profile.Usable. A narrative in the body is kept on the profile.
func (inv *Invoker) AnalyzeImage(ctx context.Context, sessionID string, ref media.Ref) (style.Profile, error) {
	body, err := inv.Invoke(ctx, PathAnalyzeImage, map[string]any{
		"bucket_name": ref.Bucket,
		"object_key":  ref.Key,
	}, sessionID)
	if err != nil {
		return style.Profile{}, err
	}

	var fields struct {
		Profile   *style.Profile `json:"profile"`
		Analysis  string         `json:"analysis"`
		Narrative string         `json:"narrative"`
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return style.Profile{}, &InvocationError{APIPath: PathAnalyzeImage, Reason: "decode analysis", Err: err}
	}

	var profile style.Profile
	if fields.Profile != nil {
		profile = *fields.Profile
	} else if err := json.Unmarshal(body, &profile); err != nil {
		return style.Profile{}, &InvocationError{APIPath: PathAnalyzeImage, Reason: "decode profile", Err: err}
	}
	if profile.Narrative == "" {
		profile.Narrative = firstNonEmpty(fields.Narrative, fields.Analysis)
	}
	return profile, nil
}

// GenerateRecommendations sends the profile when one is given, otherwise the
// lifestyle focus alone.
func (inv *Invoker) GenerateRecommendations(ctx context.Context, sessionID string, profile *style.Profile, focus string) (style.RecommendationSet, error) {
	props := map[string]any{}
	if profile != nil {
		props["profile"] = profile
	} else {
		if focus == "" {
			focus = "general"
		}
		props["lifestyle_focus"] = focus
	}

	body, err := inv.Invoke(ctx, PathGenerateRecommendations, props, sessionID)
	if err != nil {
		return style.RecommendationSet{}, err
	}

	var fields struct {
		Recommendations json.RawMessage `json:"recommendations"`
	}
	if err := json.Unmarshal(body, &fields); err != nil || fields.Recommendations == nil {
		return style.RecommendationSet{}, &InvocationError{APIPath: PathGenerateRecommendations, Reason: "body has no recommendations", Err: err}
	}
	items, err := style.ParseRecommendations(fields.Recommendations)
	if err != nil {
		return style.RecommendationSet{}, &InvocationError{APIPath: PathGenerateRecommendations, Reason: "decode recommendations", Err: err}
	}
	return style.RecommendationSet{Items: items, Focus: focus}, nil
}

// CollageRequest parameterises a mood board generation.
type CollageRequest struct {
	StyleFocus      string
	ColorPreference string
	GenderContext   string
	Profile         *style.Profile
	Recommendations *style.RecommendationSet
}

func (inv *Invoker) GenerateStyleCollage(ctx context.Context, sessionID string, req CollageRequest) (style.Collage, error) {
	props := map[string]any{
		"style_focus":      firstNonEmpty(req.StyleFocus, "lifestyle"),
		"color_preference": firstNonEmpty(req.ColorPreference, "personalized"),
	}
	if req.GenderContext != "" {
		props["gender_context"] = req.GenderContext
	}
	if req.Profile != nil {
		props["profile_data"] = req.Profile
	}
	if req.Recommendations != nil && len(req.Recommendations.Items) > 0 {
		props["recommendations_data"] = req.Recommendations.Items
	}

	body, err := inv.Invoke(ctx, PathGenerateStyleCollage, props, sessionID)
	if err != nil {
		return style.Collage{}, err
	}

	var c style.Collage
	if err := json.Unmarshal(body, &c); err != nil {
		return style.Collage{}, &InvocationError{APIPath: PathGenerateStyleCollage, Reason: "decode collage", Err: err}
	}
	if c.Empty() {
		return style.Collage{}, &InvocationError{APIPath: PathGenerateStyleCollage, Reason: "body has no collage image"}
	}
	c.Focus = props["style_focus"].(string)
	return c, nil
}

// ReelRequest parameterises a function-side reel generation.
type ReelRequest struct {
	StyleFocus       string
	UseOriginalImage bool
	DurationSeconds  int
}

// ReelResult is the function's answer: a job reference, an inline video, or both.
type ReelResult struct {
	JobID       string `json:"job_id,omitempty"`
	Status      string `json:"status,omitempty"`
	VideoURL    string `json:"video_url,omitempty"`
	VideoBase64 string `json:"video_base64,omitempty"`
	Prompt      string `json:"prompt_used,omitempty"`
}

func (inv *Invoker) GenerateStyleReel(ctx context.Context, sessionID string, req ReelRequest) (ReelResult, error) {
	duration := req.DurationSeconds
	if duration <= 0 {
		duration = 6
	}
	body, err := inv.Invoke(ctx, PathGenerateStyleReel, map[string]any{
		"style_focus":        firstNonEmpty(req.StyleFocus, "lifestyle"),
		"use_original_image": req.UseOriginalImage,
		"duration_seconds":   duration,
	}, sessionID)
	if err != nil {
		return ReelResult{}, err
	}

	var fields struct {
		ReelResult
		InvocationArn string `json:"invocation_arn"`
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return ReelResult{}, &InvocationError{APIPath: PathGenerateStyleReel, Reason: "decode reel", Err: err}
	}
	res := fields.ReelResult
	res.JobID = firstNonEmpty(res.JobID, fields.InvocationArn)
	if res.JobID == "" && res.VideoURL == "" && res.VideoBase64 == "" {
		return ReelResult{}, &InvocationError{APIPath: PathGenerateStyleReel, Reason: "body has no job or video"}
	}
	return res, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
