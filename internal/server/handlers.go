package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/models"
	"campaign-engine/internal/workflow/session"
	"campaign-engine/internal/workflow/steps"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserTier string `json:"user_tier"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	sess := s.manager.Create()
	sess.SetUserTier(req.UserTier)
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CampaignID string `json:"campaign_id"`
		UserTier   string `json:"user_tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CampaignID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "BAD_REQUEST", Message: "campaign_id is required"})
		return
	}

	sess, err := s.manager.Resume(r.Context(), req.CampaignID)
	if err != nil {
		writeError(w, err)
		return
	}
	sess.SetUserTier(req.UserTier)
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// lookup resolves the {id} route variable to a live session, writing
// the 404 itself when the session is gone.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.manager.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDestroySession(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Destroy(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "destroyed"})
}

func (s *Server) handleCompleteStep1(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var data models.CampaignSetupData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "BAD_REQUEST", Message: "invalid JSON body"})
		return
	}

	if err := sess.CompleteStep1(r.Context(), data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Target int `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "BAD_REQUEST", Message: "invalid JSON body"})
		return
	}

	if err := sess.Advance(req.Target); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "BAD_REQUEST", Message: "invalid JSON body"})
		return
	}

	mode, err := steps.ParseMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Code: "VALIDATION_FAILED", Message: err.Error(), Field: "mode"})
		return
	}
	if err := sess.SetMode(r.Context(), mode); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// handleManualSave schedules a snapshot persist on the user's behalf.
// The save itself runs asynchronously on the auto-save controller.
func (s *Server) handleManualSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.Save(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "save_scheduled"})
}

func (s *Server) handleAnalysisStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.AnalysisStatus())
}

func (s *Server) handleRetryAnalysis(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.RetryAnalysis(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sess.AnalysisStatus())
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot().Sources)
}

func (s *Server) handleSelectSource(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		IntelligenceID string `json:"intelligence_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "BAD_REQUEST", Message: "invalid JSON body"})
		return
	}

	if err := sess.SelectIntelligenceSource(req.IntelligenceID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

type composeRequest struct {
	ContentType string                 `json:"content_type"`
	Preferences map[string]interface{} `json:"preferences"`
}

// handleBuildRequest composes and validates a request without sending
// it, for reactive submit-enablement.
func (s *Server) handleBuildRequest(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "BAD_REQUEST", Message: "invalid JSON body"})
		return
	}

	built, err := sess.BuildRequest(req.ContentType, req.Preferences)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, built)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "BAD_REQUEST", Message: "invalid JSON body"})
		return
	}

	item, err := sess.Generate(r.Context(), req.ContentType, req.Preferences)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type batchOutcomeBody struct {
	ContentType string                       `json:"content_type"`
	Item        *models.GeneratedContentItem `json:"item,omitempty"`
	Error       *errorBody                   `json:"error,omitempty"`
}

// handleGenerateBatch runs every item independently and reports each
// outcome. Partial failure answers 207 with per-item details.
func (s *Server) handleGenerateBatch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Items []session.BatchItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "BAD_REQUEST", Message: "items is required"})
		return
	}

	outcomes, err := sess.GenerateBatch(r.Context(), req.Items)

	body := make([]batchOutcomeBody, len(outcomes))
	for i, o := range outcomes {
		body[i] = batchOutcomeBody{ContentType: o.ContentType, Item: o.Item}
		if o.Err != nil {
			body[i].Error = &errorBody{Code: errors.CodeOf(o.Err), Message: o.Err.Error()}
		}
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, map[string]interface{}{"outcomes": body})
}

func (s *Server) handleTogglePlatform(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Platform string `json:"platform"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "BAD_REQUEST", Message: "invalid JSON body"})
		return
	}

	var selected []string
	switch {
	case req.Category != "":
		selected = sess.ToggleCategory(req.Category)
	case req.Platform != "":
		selected = sess.TogglePlatform(req.Platform)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "BAD_REQUEST", Message: "platform or category is required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"selected_platforms": selected})
}

func (s *Server) handleCostEstimate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		ContentType string `json:"content_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "BAD_REQUEST", Message: "invalid JSON body"})
		return
	}

	if err := sess.RefreshCostEstimate(r.Context(), req.ContentType); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cost_estimate": sess.CostEstimate()})
}

func (s *Server) handlePlatformSpecs(w http.ResponseWriter, r *http.Request) {
	specs, err := s.backend.GetPlatformSpecs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, specs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
