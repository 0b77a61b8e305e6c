package content

import (
	"campaign-engine/internal/common/validation"
)

// Descriptor is one row of the content-type table: which preference
// fields a type requires, which it accepts, and the field-level rules.
type Descriptor struct {
	Type           ContentType
	DisplayName    string
	RequiredFields []string
	OptionalFields []string
	Schema         validation.Schema
}

// Lookup returns the descriptor for a content type.
func Lookup(t ContentType) (*Descriptor, bool) {
	d, ok := registry[t]
	return d, ok
}

func fptr(f float64) *float64 { return &f }
func iptr(i int) *int         { return &i }

// commonProps are preference fields every content type accepts. Tone
// defaults to "conversational"; audience is filled from the campaign's
// target audience when absent.
func commonProps() map[string]validation.Property {
	return map[string]validation.Property{
		"tone": {
			Type: "string",
			Enum: []string{"conversational", "professional", "urgent", "friendly", "authoritative"},
		},
		"audience": {Type: "string"},
		"style":    {Type: "string"},
	}
}

func withCommon(props map[string]validation.Property) map[string]validation.Property {
	out := commonProps()
	for k, v := range props {
		out[k] = v
	}
	return out
}

var registry = map[ContentType]*Descriptor{
	TypeEmailSequence: {
		Type:           TypeEmailSequence,
		DisplayName:    "Email Sequence",
		RequiredFields: []string{"email_count"},
		OptionalFields: []string{"sequence_focus", "tone", "audience", "style"},
		Schema: validation.Schema{
			Required: []string{"email_count"},
			Properties: withCommon(map[string]validation.Property{
				"email_count": {Type: "integer", Minimum: fptr(3), Maximum: fptr(10)},
				"sequence_focus": {
					Type: "string",
					Enum: []string{"nurture", "launch", "re_engagement", "onboarding"},
				},
			}),
		},
	},
	TypeAdCopy: {
		Type:           TypeAdCopy,
		DisplayName:    "Ad Copy",
		RequiredFields: []string{"platform", "ad_format", "variation_count"},
		OptionalFields: []string{"headline_focus", "tone", "audience", "style"},
		Schema: validation.Schema{
			Required: []string{"platform", "ad_format", "variation_count"},
			Properties: withCommon(map[string]validation.Property{
				"platform":        {Type: "string", Enum: AdPlatforms()},
				"ad_format":       {Type: "string"},
				"variation_count": {Type: "integer", Minimum: fptr(1), Maximum: fptr(10)},
				"headline_focus":  {Type: "string"},
			}),
		},
	},
	TypeSocialPost: {
		Type:           TypeSocialPost,
		DisplayName:    "Social Media Posts",
		RequiredFields: []string{"platform", "post_count"},
		OptionalFields: []string{"hashtag_style", "tone", "audience", "style"},
		Schema: validation.Schema{
			Required: []string{"platform", "post_count"},
			Properties: withCommon(map[string]validation.Property{
				"platform": {
					Type: "string",
					Enum: []string{"facebook", "instagram", "linkedin", "twitter", "tiktok"},
				},
				"post_count":    {Type: "integer", Minimum: fptr(3), Maximum: fptr(10)},
				"hashtag_style": {Type: "string", Enum: []string{"none", "minimal", "heavy"}},
			}),
		},
	},
	TypeBlogArticle: {
		Type:           TypeBlogArticle,
		DisplayName:    "Blog Article",
		RequiredFields: []string{"word_count"},
		OptionalFields: []string{"seo_keywords", "tone", "audience", "style"},
		Schema: validation.Schema{
			Required: []string{"word_count"},
			Properties: withCommon(map[string]validation.Property{
				"word_count":   {Type: "integer", Minimum: fptr(500), Maximum: fptr(3000)},
				"seo_keywords": {Type: "array", Items: &validation.Property{Type: "string"}, MaxItems: iptr(10)},
			}),
		},
	},
	TypeLongFormArticle: {
		Type:           TypeLongFormArticle,
		DisplayName:    "Long-Form Article",
		RequiredFields: []string{"word_count", "article_type"},
		OptionalFields: []string{"outline_depth", "seo_keywords", "tone", "audience", "style"},
		Schema: validation.Schema{
			Required: []string{"word_count", "article_type"},
			Properties: withCommon(map[string]validation.Property{
				"word_count": {Type: "integer", Minimum: fptr(2000), Maximum: fptr(10000)},
				"article_type": {
					Type: "string",
					Enum: []string{"guide", "listicle", "case_study", "comparison"},
				},
				"outline_depth": {Type: "integer", Minimum: fptr(1), Maximum: fptr(4)},
				"seo_keywords":  {Type: "array", Items: &validation.Property{Type: "string"}, MaxItems: iptr(10)},
			}),
		},
	},
	TypePlatformImage: {
		Type:           TypePlatformImage,
		DisplayName:    "Platform Image",
		RequiredFields: []string{"platforms", "image_type"},
		OptionalFields: []string{"style_preferences", "tone", "audience", "style"},
		Schema: validation.Schema{
			Required: []string{"platforms", "image_type"},
			Properties: withCommon(map[string]validation.Property{
				"platforms": {
					Type:     "array",
					Items:    &validation.Property{Type: "string"},
					MinItems: iptr(1),
					MaxItems: iptr(1),
				},
				"image_type": {
					Type: "string",
					Enum: []string{"product_showcase", "lifestyle", "quote_card", "announcement"},
				},
				"style_preferences": {Type: "object"},
			}),
		},
	},
	TypeMultiPlatformImage: {
		Type:           TypeMultiPlatformImage,
		DisplayName:    "Multi-Platform Images",
		RequiredFields: []string{"platforms", "image_type"},
		OptionalFields: []string{"style_preferences", "tone", "audience", "style"},
		Schema: validation.Schema{
			Required: []string{"platforms", "image_type"},
			Properties: withCommon(map[string]validation.Property{
				"platforms": {
					Type:     "array",
					Items:    &validation.Property{Type: "string"},
					MinItems: iptr(1),
				},
				"image_type": {
					Type: "string",
					Enum: []string{"product_showcase", "lifestyle", "quote_card", "announcement"},
				},
				"style_preferences": {Type: "object"},
			}),
		},
	},
	TypeVideoScript: {
		Type:           TypeVideoScript,
		DisplayName:    "Video Script",
		RequiredFields: []string{"duration_seconds", "script_style"},
		OptionalFields: []string{"hook_style", "tone", "audience", "style"},
		Schema: validation.Schema{
			Required: []string{"duration_seconds", "script_style"},
			Properties: withCommon(map[string]validation.Property{
				"duration_seconds": {Type: "integer", Minimum: fptr(15), Maximum: fptr(600)},
				"script_style": {
					Type: "string",
					Enum: []string{"talking_head", "voiceover", "tutorial", "testimonial"},
				},
				"hook_style": {Type: "string"},
			}),
		},
	},
}
