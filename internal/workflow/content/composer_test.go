package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enginerrors "campaign-engine/internal/common/errors"
	"campaign-engine/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func testContext() Context {
	return Context{
		CampaignID:     "camp-123",
		IntelligenceID: "intel-456",
		TargetAudience: "affiliate marketers",
	}
}

func validPrefsFor(t ContentType) map[string]interface{} {
	switch t {
	case TypeEmailSequence:
		return map[string]interface{}{"email_count": 5}
	case TypeAdCopy:
		return map[string]interface{}{"platform": "facebook", "ad_format": "carousel", "variation_count": 3}
	case TypeSocialPost:
		return map[string]interface{}{"platform": "instagram", "post_count": 5}
	case TypeBlogArticle:
		return map[string]interface{}{"word_count": 1200}
	case TypeLongFormArticle:
		return map[string]interface{}{"word_count": 4000, "article_type": "guide"}
	case TypePlatformImage:
		return map[string]interface{}{"platforms": []string{"instagram_feed"}, "image_type": "product_showcase"}
	case TypeMultiPlatformImage:
		return map[string]interface{}{"platforms": []string{"instagram_feed", "facebook_post"}, "image_type": "lifestyle"}
	case TypeVideoScript:
		return map[string]interface{}{"duration_seconds": 60, "script_style": "voiceover"}
	default:
		return map[string]interface{}{}
	}
}

// ==========================
// BuildRequest
// ==========================

func TestBuildRequest_AllTypes_ValidPreferences(t *testing.T) {
	for _, ct := range AllContentTypes() {
		t.Run(string(ct), func(t *testing.T) {
			req, err := BuildRequest(string(ct), validPrefsFor(ct), testContext())
			require.NoError(t, err)
			assert.Equal(t, "camp-123", req.CampaignID)
			assert.Equal(t, string(ct), req.ContentType)
			assert.Equal(t, "intel-456", req.IntelligenceID)
		})
	}
}

func TestBuildRequest_AllTypes_MissingRequiredFieldNamesField(t *testing.T) {
	for _, ct := range AllContentTypes() {
		desc, ok := Lookup(ct)
		require.True(t, ok)

		for _, missing := range desc.RequiredFields {
			if ct == TypeAdCopy && missing == "ad_format" {
				// Filled from the platform when omitted, tested separately.
				continue
			}
			t.Run(string(ct)+"/"+missing, func(t *testing.T) {
				prefs := validPrefsFor(ct)
				delete(prefs, missing)

				_, err := BuildRequest(string(ct), prefs, testContext())
				require.Error(t, err)

				var ve *enginerrors.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, missing, ve.Field)
				assert.Equal(t, string(ct), ve.ContentType)
			})
		}
	}
}

func TestBuildRequest_MergesDefaultsAndContext(t *testing.T) {
	req, err := BuildRequest(string(TypeBlogArticle), map[string]interface{}{"word_count": 800}, testContext())
	require.NoError(t, err)

	assert.Equal(t, "conversational", req.Preferences["tone"])
	assert.Equal(t, "affiliate marketers", req.Preferences["audience"])
	assert.Equal(t, 800, req.Preferences["word_count"])
}

func TestBuildRequest_RawPreferencesWinOverDefaults(t *testing.T) {
	prefs := map[string]interface{}{"word_count": 800, "tone": "urgent", "audience": "retirees"}
	req, err := BuildRequest(string(TypeBlogArticle), prefs, testContext())
	require.NoError(t, err)

	assert.Equal(t, "urgent", req.Preferences["tone"])
	assert.Equal(t, "retirees", req.Preferences["audience"])
}

func TestBuildRequest_UnknownContentType(t *testing.T) {
	_, err := BuildRequest("newsletter", map[string]interface{}{}, testContext())
	require.Error(t, err)

	var ve *enginerrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "content_type", ve.Field)
}

func TestBuildRequest_MissingIntelligenceSource(t *testing.T) {
	ctx := testContext()
	ctx.IntelligenceID = ""

	_, err := BuildRequest(string(TypeAdCopy), validPrefsFor(TypeAdCopy), ctx)
	require.Error(t, err)

	var ve *enginerrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "intelligence_id", ve.Field)
}

// ==========================
// Type-Specific Rules
// ==========================

func TestBuildRequest_AdCopy_FormatConstrainedByPlatform(t *testing.T) {
	tests := []struct {
		name     string
		platform string
		format   string
		wantErr  bool
	}{
		{"facebook carousel valid", "facebook", "carousel", false},
		{"google display valid", "google", "display_banner", false},
		{"story ad invalid on facebook", "facebook", "story_ad", true},
		{"carousel invalid on tiktok", "tiktok", "carousel", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := map[string]interface{}{
				"platform":        tt.platform,
				"ad_format":       tt.format,
				"variation_count": 2,
			}
			_, err := BuildRequest(string(TypeAdCopy), prefs, testContext())
			if tt.wantErr {
				var ve *enginerrors.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "ad_format", ve.Field)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildRequest_AdCopy_OmittedFormatDefaultsFromPlatform(t *testing.T) {
	tests := []struct {
		platform   string
		wantFormat string
	}{
		{"facebook", "single_image"},
		{"google", "responsive_search"},
		{"tiktok", "in_feed"},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			prefs := map[string]interface{}{
				"platform":        tt.platform,
				"variation_count": 2,
			}
			req, err := BuildRequest(string(TypeAdCopy), prefs, testContext())
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, req.Preferences["ad_format"])
		})
	}
}

func TestBuildRequest_AdCopy_EmptyFormatDefaultsFromPlatform(t *testing.T) {
	prefs := map[string]interface{}{
		"platform":        "linkedin",
		"ad_format":       "",
		"variation_count": 1,
	}
	req, err := BuildRequest(string(TypeAdCopy), prefs, testContext())
	require.NoError(t, err)
	assert.Equal(t, "sponsored_content", req.Preferences["ad_format"])
}

func TestBuildRequest_AdCopy_NoDefaultForUnknownPlatform(t *testing.T) {
	prefs := map[string]interface{}{
		"platform":        "myspace",
		"variation_count": 1,
	}
	_, err := BuildRequest(string(TypeAdCopy), prefs, testContext())

	var ve *enginerrors.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestDefaultAdFormat_FirstOptionPerPlatform(t *testing.T) {
	format, ok := DefaultAdFormat("facebook")
	require.True(t, ok)
	assert.Equal(t, "single_image", format)

	format, ok = DefaultAdFormat("linkedin")
	require.True(t, ok)
	assert.Equal(t, "sponsored_content", format)

	_, ok = DefaultAdFormat("myspace")
	assert.False(t, ok)
}

func TestBuildRequest_SocialPost_PostCountBounds(t *testing.T) {
	for _, count := range []int{2, 11} {
		prefs := map[string]interface{}{"platform": "twitter", "post_count": count}
		_, err := BuildRequest(string(TypeSocialPost), prefs, testContext())

		var ve *enginerrors.ValidationError
		require.ErrorAs(t, err, &ve, "post_count %d should be rejected", count)
		assert.Equal(t, "post_count", ve.Field)
	}

	for _, count := range []int{3, 10} {
		prefs := map[string]interface{}{"platform": "twitter", "post_count": count}
		_, err := BuildRequest(string(TypeSocialPost), prefs, testContext())
		assert.NoError(t, err, "post_count %d should be accepted", count)
	}
}

func TestBuildRequest_ArticleWordCountRanges(t *testing.T) {
	tests := []struct {
		name    string
		ct      ContentType
		prefs   map[string]interface{}
		wantErr bool
	}{
		{"blog lower bound", TypeBlogArticle, map[string]interface{}{"word_count": 500}, false},
		{"blog below range", TypeBlogArticle, map[string]interface{}{"word_count": 400}, true},
		{"blog above range", TypeBlogArticle, map[string]interface{}{"word_count": 3500}, true},
		{"long form upper bound", TypeLongFormArticle, map[string]interface{}{"word_count": 10000, "article_type": "case_study"}, false},
		{"long form below range", TypeLongFormArticle, map[string]interface{}{"word_count": 1500, "article_type": "guide"}, true},
		{"long form bad article type", TypeLongFormArticle, map[string]interface{}{"word_count": 4000, "article_type": "poem"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildRequest(string(tt.ct), tt.prefs, testContext())
			if tt.wantErr {
				assert.True(t, enginerrors.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildRequest_PlatformImage_ExactlyOnePlatform(t *testing.T) {
	_, err := BuildRequest(string(TypePlatformImage), map[string]interface{}{
		"platforms":  []string{},
		"image_type": "lifestyle",
	}, testContext())
	var ve *enginerrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "platforms", ve.Field)

	_, err = BuildRequest(string(TypePlatformImage), map[string]interface{}{
		"platforms":  []string{"instagram_feed", "facebook_post"},
		"image_type": "lifestyle",
	}, testContext())
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "platforms", ve.Field)
}

func TestBuildRequest_MultiPlatformImage_RejectsUnknownPlatform(t *testing.T) {
	_, err := BuildRequest(string(TypeMultiPlatformImage), map[string]interface{}{
		"platforms":  []string{"instagram_feed", "friendster_post"},
		"image_type": "lifestyle",
	}, testContext())

	var ve *enginerrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "platforms", ve.Field)
}

// ==========================
// Validate
// ==========================

func TestValidate_PureAndRepeatable(t *testing.T) {
	req := models.GenerationRequest{
		CampaignID:     "camp-1",
		ContentType:    string(TypeSocialPost),
		IntelligenceID: "intel-1",
		Preferences: map[string]interface{}{
			"platform":   "facebook",
			"post_count": 4,
			"tone":       "friendly",
		},
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, Validate(req))
	}
	// The request is untouched by validation.
	assert.Equal(t, 4, req.Preferences["post_count"])
	assert.Len(t, req.Preferences, 3)
}

func TestValidate_ReportsInvalidRequest(t *testing.T) {
	req := models.GenerationRequest{
		CampaignID:     "camp-1",
		ContentType:    string(TypeVideoScript),
		IntelligenceID: "intel-1",
		Preferences:    map[string]interface{}{"duration_seconds": 5, "script_style": "voiceover"},
	}
	err := Validate(req)
	assert.True(t, enginerrors.IsValidation(err))
}
