package session

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/google/uuid"

	"campaign-engine/internal/backend"
	"campaign-engine/internal/common/config"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/common/metrics"
	"campaign-engine/internal/models"
	"campaign-engine/internal/workflow/steps"
)

// ErrSessionNotFound is returned for lookups of unknown or destroyed
// sessions.
var ErrSessionNotFound = stderrors.New("session not found")

// Manager owns every open workflow session, keyed by session id.
type Manager struct {
	backend backend.Service
	logger  logger.Logger
	cfg     config.SessionConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(svc backend.Service, log logger.Logger, cfg config.SessionConfig) *Manager {
	return &Manager{
		backend:  svc,
		logger:   log,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Create opens a fresh session at step 1.
func (m *Manager) Create() *Session {
	s := newSession(uuid.NewString(), m.backend, m.logger, m.cfg)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	metrics.SessionsActive.Inc()
	m.logger.Info("session created", map[string]interface{}{"session_id": s.id})
	return s
}

// Resume opens a session for an existing campaign, hydrated from the
// backend's persisted workflow state.
func (m *Manager) Resume(ctx context.Context, campaignID string) (*Session, error) {
	state, err := m.backend.GetWorkflowState(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	s := newSession(uuid.NewString(), m.backend, m.logger, m.cfg)
	s.hydrate(campaignID, state)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	metrics.SessionsActive.Inc()
	m.logger.Info("session resumed", map[string]interface{}{
		"session_id":  s.id,
		"campaign_id": campaignID,
		"step":        state.SuggestedStep,
	})
	return s, nil
}

// Get looks up a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Destroy tears a session down and forgets it.
func (m *Manager) Destroy(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Teardown()
	metrics.SessionsActive.Dec()
	return nil
}

// TeardownAll destroys every live session. Called on shutdown.
func (m *Manager) TeardownAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Teardown()
		metrics.SessionsActive.Dec()
	}
}

// hydrate restores session state from the backend's persisted view.
// A campaign that exists remotely always has a locked step 1.
func (s *Session) hydrate(campaignID string, state *models.WorkflowStateView) {
	mode := steps.ModeFlexible
	if parsed, err := steps.ParseMode(state.WorkflowPreference); err == nil {
		mode = parsed
	}

	analysisSucceeded := state.AnalysisStatus == string(models.AnalysisSucceeded)

	s.mu.Lock()
	s.campaign = &models.Campaign{ID: campaignID}
	s.intelligence = state.IntelligenceID
	s.machine.Hydrate(state.SuggestedStep, true, analysisSucceeded, mode)
	s.startAutoSaveLocked()
	s.mu.Unlock()

	task := models.AnalysisTask{Status: models.AnalysisStatus(state.AnalysisStatus)}
	switch task.Status {
	case models.AnalysisSucceeded:
		task.ProgressPercent = 100
		task.IntelligenceID = state.IntelligenceID
	case models.AnalysisFailed, models.AnalysisIdle, models.AnalysisRunning:
		// A run that was in flight when the previous session died is
		// not resumable; treat it as idle.
		if task.Status == models.AnalysisRunning {
			task.Status = models.AnalysisIdle
		}
	default:
		task.Status = models.AnalysisIdle
	}
	s.analysis.Hydrate(task, campaignID)

	s.refreshSources(context.Background(), campaignID)
}
