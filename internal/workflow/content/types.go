// Package content holds the content-type descriptor registry and the
// generation request composer. Every supported content type is a row
// in a closed table; adding a type means adding one descriptor.
package content

import (
	"fmt"
	"sort"
)

// ContentType identifies one kind of generated marketing artifact.
type ContentType string

const (
	TypeEmailSequence      ContentType = "email_sequence"
	TypeAdCopy             ContentType = "ad_copy"
	TypeSocialPost         ContentType = "social_post"
	TypeBlogArticle        ContentType = "blog_article"
	TypeLongFormArticle    ContentType = "long_form_article"
	TypePlatformImage      ContentType = "platform_image"
	TypeMultiPlatformImage ContentType = "multi_platform_image"
	TypeVideoScript        ContentType = "video_script"
)

// AllContentTypes returns the closed set, in display order.
func AllContentTypes() []ContentType {
	return []ContentType{
		TypeEmailSequence,
		TypeAdCopy,
		TypeSocialPost,
		TypeBlogArticle,
		TypeLongFormArticle,
		TypePlatformImage,
		TypeMultiPlatformImage,
		TypeVideoScript,
	}
}

// ParseContentType maps a wire identifier onto the closed enum.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(s) {
	case TypeEmailSequence, TypeAdCopy, TypeSocialPost, TypeBlogArticle,
		TypeLongFormArticle, TypePlatformImage, TypeMultiPlatformImage,
		TypeVideoScript:
		return ContentType(s), nil
	default:
		return "", fmt.Errorf("unknown content type %q", s)
	}
}

// IsImageType reports whether the type produces AI images and is
// therefore subject to cost estimation.
func (t ContentType) IsImageType() bool {
	return t == TypePlatformImage || t == TypeMultiPlatformImage
}

// AdPlatform identifies an advertising platform for ad_copy.
type AdPlatform string

const (
	AdPlatformFacebook  AdPlatform = "facebook"
	AdPlatformGoogle    AdPlatform = "google"
	AdPlatformInstagram AdPlatform = "instagram"
	AdPlatformLinkedIn  AdPlatform = "linkedin"
	AdPlatformTikTok    AdPlatform = "tiktok"
)

// adFormatsByPlatform constrains valid ad_format values per platform.
// The first entry is the platform's default format.
var adFormatsByPlatform = map[AdPlatform][]string{
	AdPlatformFacebook:  {"single_image", "carousel", "video", "collection"},
	AdPlatformGoogle:    {"responsive_search", "display_banner", "performance_max"},
	AdPlatformInstagram: {"feed_ad", "story_ad", "reel_ad"},
	AdPlatformLinkedIn:  {"sponsored_content", "message_ad", "text_ad"},
	AdPlatformTikTok:    {"in_feed", "topview", "spark_ad"},
}

// AdFormatsFor returns the valid ad formats for a platform, or false
// for an unknown platform.
func AdFormatsFor(platform string) ([]string, bool) {
	formats, ok := adFormatsByPlatform[AdPlatform(platform)]
	return formats, ok
}

// DefaultAdFormat returns the format a platform change resets to.
func DefaultAdFormat(platform string) (string, bool) {
	formats, ok := adFormatsByPlatform[AdPlatform(platform)]
	if !ok || len(formats) == 0 {
		return "", false
	}
	return formats[0], true
}

// AdPlatforms lists the supported ad platforms, sorted.
func AdPlatforms() []string {
	out := make([]string, 0, len(adFormatsByPlatform))
	for p := range adFormatsByPlatform {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// imagePlatformCategories groups image platforms for the
// select-whole-category toggle. Dimensions and display names come from
// the backend's platform specs; this table only fixes membership.
var imagePlatformCategories = map[string][]string{
	"instagram": {"instagram_feed", "instagram_story", "instagram_reel_cover"},
	"facebook":  {"facebook_post", "facebook_cover"},
	"linkedin":  {"linkedin_post", "linkedin_banner"},
	"twitter":   {"twitter_post", "twitter_header"},
	"pinterest": {"pinterest_pin"},
	"youtube":   {"youtube_thumbnail"},
}

// ImagePlatformsIn returns the members of a category, or false for an
// unknown category.
func ImagePlatformsIn(category string) ([]string, bool) {
	platforms, ok := imagePlatformCategories[category]
	return platforms, ok
}

// KnownImagePlatform reports whether key belongs to any category.
func KnownImagePlatform(key string) bool {
	for _, members := range imagePlatformCategories {
		for _, m := range members {
			if m == key {
				return true
			}
		}
	}
	return false
}

// ImageCategories lists the platform categories, sorted.
func ImageCategories() []string {
	out := make([]string, 0, len(imagePlatformCategories))
	for c := range imagePlatformCategories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
