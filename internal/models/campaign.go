package models

import "time"

// CampaignSetupData is everything collected in step 1. It becomes
// immutable once the campaign is created and step 1 is locked;
// changing it afterwards requires a new campaign.
type CampaignSetupData struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	ProductName    string   `json:"product_name"`
	SalespageURL   string   `json:"salespage_url"`
	AffiliateLink  string   `json:"affiliate_link"`
	TargetAudience string   `json:"target_audience"`
	Keywords       []string `json:"keywords"`
}

// Campaign is the durable record created by the backend at step-1
// completion.
type Campaign struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// GeneratedContentItem is one produced artifact. Items are appended on
// success and never mutated in place.
type GeneratedContentItem struct {
	ID          string    `json:"id"`
	ContentType string    `json:"content_type"`
	Title       string    `json:"title"`
	Preview     string    `json:"preview"`
	CreatedAt   time.Time `json:"created_at"`
}

// IntelligenceSource is a previously analyzed input whose extracted
// insights back a generation request.
type IntelligenceSource struct {
	ID              string  `json:"id"`
	SourceURL       string  `json:"source_url"`
	SourceType      string  `json:"source_type"`
	ConfidenceScore float64 `json:"confidence_score"`
	Enhanced        bool    `json:"enhanced"`
}
