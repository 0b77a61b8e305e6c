package content

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/common/validation"
	"campaign-engine/internal/models"
)

// Context carries the session values merged into every request.
type Context struct {
	CampaignID     string
	IntelligenceID string
	TargetAudience string
}

// requestSchema is the wire contract for a composed request. Composed
// payloads are re-checked against it before they leave the engine.
const requestSchema = `{
	"type": "object",
	"required": ["campaign_id", "content_type", "intelligence_id", "preferences"],
	"properties": {
		"campaign_id":     {"type": "string", "minLength": 1},
		"content_type":    {"type": "string", "minLength": 1},
		"intelligence_id": {"type": "string", "minLength": 1},
		"preferences":     {"type": "object"}
	}
}`

var compiledRequestSchema = gojsonschema.NewStringLoader(requestSchema)

// BuildRequest transforms a content-type choice and raw preference
// inputs into the normalized payload the generation backend expects.
// Any missing or invalid required field yields a ValidationError
// naming the field and content type; the backend is never called on a
// request that did not pass through here.
func BuildRequest(contentType string, rawPrefs map[string]interface{}, reqCtx Context) (*models.GenerationRequest, error) {
	ct, err := ParseContentType(contentType)
	if err != nil {
		return nil, errors.NewValidationError("content_type", err.Error())
	}

	if reqCtx.CampaignID == "" {
		return nil, errors.NewContentValidationError(string(ct), "campaign_id", "is required")
	}
	if reqCtx.IntelligenceID == "" {
		return nil, errors.NewContentValidationError(string(ct), "intelligence_id", "no intelligence source selected")
	}

	desc, ok := Lookup(ct)
	if !ok {
		return nil, errors.NewValidationError("content_type", fmt.Sprintf("no descriptor for %q", ct))
	}

	prefs := mergePreferences(rawPrefs, reqCtx)
	applyTypeDefaults(ct, prefs)

	if err := checkPreferences(desc, prefs); err != nil {
		return nil, err
	}

	req := &models.GenerationRequest{
		CampaignID:     reqCtx.CampaignID,
		ContentType:    string(ct),
		IntelligenceID: reqCtx.IntelligenceID,
		Preferences:    prefs,
	}

	if err := checkRequestShape(req); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate re-checks an already composed request. It is pure and
// side-effect-free so the UI can call it reactively for
// submit-enablement.
func Validate(req models.GenerationRequest) error {
	ct, err := ParseContentType(req.ContentType)
	if err != nil {
		return errors.NewValidationError("content_type", err.Error())
	}
	if req.CampaignID == "" {
		return errors.NewContentValidationError(string(ct), "campaign_id", "is required")
	}
	if req.IntelligenceID == "" {
		return errors.NewContentValidationError(string(ct), "intelligence_id", "no intelligence source selected")
	}
	desc, ok := Lookup(ct)
	if !ok {
		return errors.NewValidationError("content_type", fmt.Sprintf("no descriptor for %q", ct))
	}
	return checkPreferences(desc, req.Preferences)
}

// mergePreferences layers global defaults, context values, and the
// caller's raw inputs. Raw inputs win.
func mergePreferences(raw map[string]interface{}, reqCtx Context) map[string]interface{} {
	prefs := map[string]interface{}{
		"tone": "conversational",
	}
	if reqCtx.TargetAudience != "" {
		prefs["audience"] = reqCtx.TargetAudience
	}
	for k, v := range raw {
		prefs[k] = normalizeValue(v)
	}
	return prefs
}

// applyTypeDefaults fills per-type preferences the UI resets
// implicitly. A platform change resets ad_format, so a request that
// arrives without one gets the platform's first valid option.
func applyTypeDefaults(ct ContentType, prefs map[string]interface{}) {
	if ct != TypeAdCopy {
		return
	}
	if format, _ := prefs["ad_format"].(string); format != "" {
		return
	}
	platform, _ := prefs["platform"].(string)
	if def, ok := DefaultAdFormat(platform); ok {
		prefs["ad_format"] = def
	}
}

// normalizeValue flattens []interface{} string slices so downstream
// consumers see one representation.
func normalizeValue(v interface{}) interface{} {
	items, ok := v.([]interface{})
	if !ok {
		return v
	}
	strs := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return v
		}
		strs = append(strs, s)
	}
	return strs
}

func checkPreferences(desc *Descriptor, prefs map[string]interface{}) error {
	result := validation.Validate(prefs, desc.Schema)
	if !result.Valid {
		first := result.Errors[0]
		return errors.NewContentValidationError(string(desc.Type), first.Field, first.Message)
	}
	return crossFieldRules(desc.Type, prefs)
}

// crossFieldRules enforces constraints the field-level schema cannot
// express.
func crossFieldRules(ct ContentType, prefs map[string]interface{}) error {
	switch ct {
	case TypeAdCopy:
		platform, _ := prefs["platform"].(string)
		format, _ := prefs["ad_format"].(string)
		valid, ok := AdFormatsFor(platform)
		if !ok {
			return errors.NewContentValidationError(string(ct), "platform", fmt.Sprintf("unsupported ad platform %q", platform))
		}
		if !containsString(valid, format) {
			return errors.NewContentValidationError(string(ct), "ad_format",
				fmt.Sprintf("%q is not valid for platform %q (valid: %v)", format, platform, valid))
		}
	case TypePlatformImage, TypeMultiPlatformImage:
		platforms := stringSlice(prefs["platforms"])
		for _, p := range platforms {
			if !KnownImagePlatform(p) {
				return errors.NewContentValidationError(string(ct), "platforms", fmt.Sprintf("unknown platform %q", p))
			}
		}
	}
	return nil
}

func checkRequestShape(req *models.GenerationRequest) error {
	doc := gojsonschema.NewGoLoader(map[string]interface{}{
		"campaign_id":     req.CampaignID,
		"content_type":    req.ContentType,
		"intelligence_id": req.IntelligenceID,
		"preferences":     req.Preferences,
	})
	result, err := gojsonschema.Validate(compiledRequestSchema, doc)
	if err != nil {
		return errors.NewValidationError("request", err.Error())
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return errors.NewContentValidationError(req.ContentType, first.Field(), first.Description())
	}
	return nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func stringSlice(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
