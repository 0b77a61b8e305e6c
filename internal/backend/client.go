package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/common/httpclient"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/models"
)

// TokenProvider supplies the bearer token attached to every request.
type TokenProvider func(ctx context.Context) (string, error)

// Client is the HTTP implementation of Service.
type Client struct {
	baseURL string
	http    *httpclient.Client
	token   TokenProvider
	logger  logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, token TokenProvider, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.NewClient(timeout),
		token:   token,
		logger:  log,
	}
}

func (c *Client) CreateCampaign(ctx context.Context, data models.CampaignSetupData) (*models.Campaign, error) {
	body := map[string]interface{}{
		"title":           data.Title,
		"description":     data.Description,
		"keywords":        data.Keywords,
		"target_audience": data.TargetAudience,
		"campaign_type":   "universal",
		"settings": map[string]interface{}{
			"workflow_type":         "streamlined_auto_analysis",
			"step_1_completed":      true,
			"locked_after_step_1":   true,
			"product_name":          data.ProductName,
			"salespage_url":         data.SalespageURL,
			"affiliate_link":        data.AffiliateLink,
			"auto_analysis_enabled": true,
		},
	}

	var out models.Campaign
	if err := c.doJSON(ctx, "createCampaign", http.MethodPost, "/campaigns", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RunAnalysis(ctx context.Context, campaignID string, params models.AnalysisParams, progress ProgressFunc) (*models.AnalysisResult, error) {
	report := func(percent float64, phase string) {
		if progress != nil {
			progress(percent, phase)
		}
	}

	report(10, "Analyzing salespage content")

	// The backend exposes analyze-store-enhance as a single call with
	// no progress stream, so the analyze phase ramps on a timer while
	// the request is in flight. The ramp stops short of the storing
	// phase to keep percent non-decreasing.
	stopRamp := startProgressRamp(report, 10, 60, 2*time.Second)

	body := map[string]interface{}{
		"salespage_url": params.SalespageURL,
		"product_name":  params.ProductName,
		"auto_enhance":  params.AutoEnhance,
	}

	var out struct {
		IntelligenceID  string  `json:"intelligence_id"`
		ConfidenceScore float64 `json:"confidence_score"`
		Enhanced        bool    `json:"enhanced"`
	}
	err := c.doJSON(ctx, "runAnalysis", http.MethodPost,
		fmt.Sprintf("/intelligence/analysis/campaigns/%s/analyze-and-store", url.PathEscape(campaignID)),
		body, &out)
	stopRamp()
	if err != nil {
		return nil, err
	}

	report(75, "Storing intelligence")
	if out.Enhanced {
		report(90, "Applying AI enhancement")
	}

	return &models.AnalysisResult{
		IntelligenceID:  out.IntelligenceID,
		ConfidenceScore: out.ConfidenceScore,
		Enhanced:        out.Enhanced,
	}, nil
}

func (c *Client) GetWorkflowState(ctx context.Context, campaignID string) (*models.WorkflowStateView, error) {
	var out models.WorkflowStateView
	path := fmt.Sprintf("/intelligence/campaigns/%s/workflow-status", url.PathEscape(campaignID))
	if err := c.doJSON(ctx, "getWorkflowState", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SaveProgress(ctx context.Context, campaignID string, snapshot models.ProgressSnapshot) error {
	path := fmt.Sprintf("/campaigns/%s/progress", url.PathEscape(campaignID))
	return c.doJSON(ctx, "saveProgress", http.MethodPut, path, snapshot, nil)
}

func (c *Client) SetWorkflowPreference(ctx context.Context, campaignID, mode string) error {
	path := fmt.Sprintf("/campaigns/%s/workflow-preference", url.PathEscape(campaignID))
	return c.doJSON(ctx, "setWorkflowPreference", http.MethodPut, path, map[string]string{"mode": mode}, nil)
}

func (c *Client) GenerateContent(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	var out models.GenerationResult
	if err := c.doJSON(ctx, "generateContent", http.MethodPost, "/intelligence/generate-content", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPlatformSpecs(ctx context.Context) (map[string]models.PlatformSpec, error) {
	var out map[string]models.PlatformSpec
	if err := c.doJSON(ctx, "getPlatformSpecs", http.MethodGet, "/images/platform-specs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) EstimateCost(ctx context.Context, platforms []string, tier string) (float64, error) {
	body := map[string]interface{}{
		"platforms": platforms,
		"tier":      tier,
	}
	var out struct {
		Amount float64 `json:"amount"`
	}
	if err := c.doJSON(ctx, "estimateCost", http.MethodPost, "/images/estimate-cost", body, &out); err != nil {
		return 0, err
	}
	return out.Amount, nil
}

func (c *Client) GetCampaignIntelligence(ctx context.Context, campaignID string) ([]models.IntelligenceSource, error) {
	var out struct {
		Sources []models.IntelligenceSource `json:"sources"`
	}
	path := fmt.Sprintf("/intelligence/campaigns/%s/sources", url.PathEscape(campaignID))
	if err := c.doJSON(ctx, "getCampaignIntelligence", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Sources, nil
}

// doJSON performs one request/response cycle and maps every failure
// mode into a TransportError for the named operation.
func (c *Client) doJSON(ctx context.Context, operation, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.NewTransportError(operation, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return errors.NewTransportError(operation, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return errors.NewTransportError(operation, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return errors.NewTransportError(operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Backend call failed", map[string]interface{}{
			"operation": operation,
			"status":    resp.StatusCode,
			"path":      path,
		})
		return errors.NewTransportStatusError(operation, resp.StatusCode, string(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewTransportError(operation, fmt.Errorf("malformed response: %w", err))
	}
	return nil
}

// startProgressRamp advances progress from lo toward hi on a fixed
// interval until the returned stop function is called.
func startProgressRamp(report func(float64, string), lo, hi float64, every time.Duration) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		current := lo
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if current+5 >= hi {
					continue
				}
				current += 5
				report(current, "Analyzing salespage content")
			}
		}
	}()
	var once func()
	closed := false
	once = func() {
		if !closed {
			closed = true
			close(done)
		}
	}
	return once
}
