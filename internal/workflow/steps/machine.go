// Package steps implements the wizard's step state machine: which of
// the four steps is current, which are reachable, and when the session
// should auto-advance. The machine holds no locks; the owning session
// serializes access.
package steps

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/common/metrics"
	"campaign-engine/internal/models"
)

// State is the campaign workflow lifecycle.
type State string

const (
	StateSetup                 State = "setup"
	StateLockedPendingAnalysis State = "locked_pending_analysis"
	StateAnalyzing             State = "analyzing"
	StateAnalysisFailed        State = "analysis_failed"
	StateAnalyzed              State = "analyzed"
	StateGenerating            State = "generating"
	StateComplete              State = "complete"
)

// Mode controls auto-advance behavior. Changing mode mid-session only
// affects the advisory suggested step, never forces navigation.
type Mode string

const (
	ModeQuick      Mode = "quick"
	ModeMethodical Mode = "methodical"
	ModeFlexible   Mode = "flexible"
)

// ParseMode maps a wire value onto the closed enum.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeQuick, ModeMethodical, ModeFlexible:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown workflow mode %q", s)
	}
}

// Event is a sub-action completion the machine may auto-advance on.
type Event string

const (
	EventSourceAdded       Event = "source_added"
	EventAnalysisCompleted Event = "analysis_completed"
	EventContentGenerated  Event = "content_generated"
)

const (
	StepSetup      = 1
	StepAnalysis   = 2
	StepGeneration = 3
	StepReview     = 4
)

// Machine tracks the current step, the step-1 lock, and the analysis
// outcome that gates later steps.
type Machine struct {
	currentStep      int
	state            State
	mode             Mode
	step1Locked      bool
	analysisSucceeded bool

	quickAdvanceDelay time.Duration
	autoAdvanceDelay  time.Duration
}

// NewMachine starts at step 1 in flexible mode.
func NewMachine(quickAdvanceDelay, autoAdvanceDelay time.Duration) *Machine {
	return &Machine{
		currentStep:       StepSetup,
		state:             StateSetup,
		mode:              ModeFlexible,
		quickAdvanceDelay: quickAdvanceDelay,
		autoAdvanceDelay:  autoAdvanceDelay,
	}
}

func (m *Machine) CurrentStep() int  { return m.currentStep }
func (m *Machine) State() State      { return m.state }
func (m *Machine) Mode() Mode        { return m.mode }
func (m *Machine) Step1Locked() bool { return m.step1Locked }

// SetMode switches the auto-advance mode. Advisory only.
func (m *Machine) SetMode(mode Mode) {
	m.mode = mode
}

// ValidateSetup checks the campaign setup form. Required fields must
// be non-empty and both URLs must be syntactically valid absolute
// http(s) URLs.
func (m *Machine) ValidateSetup(data models.CampaignSetupData) error {
	if strings.TrimSpace(data.Title) == "" {
		return errors.NewValidationError("title", "is required")
	}
	if strings.TrimSpace(data.ProductName) == "" {
		return errors.NewValidationError("product_name", "is required")
	}
	if err := checkAbsoluteURL(data.SalespageURL); err != nil {
		return errors.NewValidationError("salespage_url", "must be a valid salespage URL")
	}
	if err := checkAbsoluteURL(data.AffiliateLink); err != nil {
		return errors.NewValidationError("affiliate_link", "must be a valid affiliate link URL")
	}
	return nil
}

func checkAbsoluteURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q is not http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// Lock marks step 1 complete after the durable campaign exists. The
// lock is monotone; setup data is immutable from here on.
func (m *Machine) Lock() {
	m.step1Locked = true
	m.currentStep = StepAnalysis
	m.state = StateLockedPendingAnalysis
}

// MarkAnalysisStarted moves into the analyzing state.
func (m *Machine) MarkAnalysisStarted() {
	m.state = StateAnalyzing
}

// MarkAnalysisFailed records a failed analysis; retry re-enters
// analyzing with identical setup data.
func (m *Machine) MarkAnalysisFailed() {
	m.state = StateAnalysisFailed
}

// MarkAnalysisSucceeded records a successful analysis, unlocking the
// generation steps.
func (m *Machine) MarkAnalysisSucceeded() {
	m.analysisSucceeded = true
	if m.state == StateAnalyzing || m.state == StateLockedPendingAnalysis || m.state == StateAnalysisFailed {
		m.state = StateAnalyzed
	}
}

// MarkGenerating records that content generation is underway.
func (m *Machine) MarkGenerating() {
	if m.currentStep >= StepGeneration {
		m.state = StateGenerating
	}
}

// MarkComplete records the terminal state.
func (m *Machine) MarkComplete() {
	m.currentStep = StepReview
	m.state = StateComplete
}

// Advance navigates to the target step. Guards for every step below
// the target must hold; a violation leaves the machine untouched.
// Back-navigation to an already satisfied step is always allowed.
func (m *Machine) Advance(target int) error {
	if target < StepSetup || target > StepReview {
		return errors.NewGuardViolation(target, "no such step")
	}
	if target <= m.currentStep {
		m.currentStep = target
		m.syncStateToStep()
		return nil
	}
	if err := m.guardFor(target); err != nil {
		metrics.GuardViolations.WithLabelValues(strconv.Itoa(target)).Inc()
		return err
	}
	m.currentStep = target
	m.syncStateToStep()
	return nil
}

// guardFor checks every prerequisite below target.
func (m *Machine) guardFor(target int) error {
	if target >= StepAnalysis && !m.step1Locked {
		return errors.NewGuardViolation(target, "campaign setup must be completed first")
	}
	if target >= StepGeneration && m.strictAnalysisGuard() && !m.analysisSucceeded {
		return errors.NewGuardViolation(target, "analysis must succeed before content generation")
	}
	return nil
}

// strictAnalysisGuard reports whether steps 3 and 4 require a
// successful analysis. Flexible mode lets the user proceed without
// one once setup is locked.
func (m *Machine) strictAnalysisGuard() bool {
	return m.mode != ModeFlexible
}

func (m *Machine) syncStateToStep() {
	switch m.currentStep {
	case StepSetup:
		m.state = StateSetup
	case StepAnalysis:
		switch {
		case m.analysisSucceeded:
			m.state = StateAnalyzed
		case m.state == StateAnalyzing || m.state == StateAnalysisFailed:
			// keep the analysis outcome visible
		default:
			m.state = StateLockedPendingAnalysis
		}
	case StepGeneration:
		m.state = StateGenerating
	case StepReview:
		m.state = StateComplete
	}
}

// SuggestedStep is the advisory next step for the current state.
func (m *Machine) SuggestedStep() int {
	switch m.state {
	case StateSetup:
		return StepSetup
	case StateLockedPendingAnalysis, StateAnalyzing, StateAnalysisFailed:
		return StepAnalysis
	case StateAnalyzed, StateGenerating:
		return StepGeneration
	case StateComplete:
		return StepReview
	default:
		return m.currentStep
	}
}

// AutoAdvance decides whether the given event should schedule a
// navigation to the suggested step, and after what delay. Quick mode
// advances shortly after any sub-action succeeds, methodical never
// advances, flexible advances only when analysis completes.
func (m *Machine) AutoAdvance(event Event) (target int, delay time.Duration, ok bool) {
	switch m.mode {
	case ModeMethodical:
		return 0, 0, false
	case ModeQuick:
		delay = m.quickAdvanceDelay
	case ModeFlexible:
		if event != EventAnalysisCompleted {
			return 0, 0, false
		}
		delay = m.autoAdvanceDelay
	default:
		return 0, 0, false
	}

	target = m.nextStepFor(event)
	if target <= m.currentStep {
		return 0, 0, false
	}
	if m.guardFor(target) != nil {
		return 0, 0, false
	}
	return target, delay, true
}

func (m *Machine) nextStepFor(event Event) int {
	switch event {
	case EventAnalysisCompleted:
		return StepGeneration
	case EventSourceAdded:
		return StepGeneration
	case EventContentGenerated:
		return StepReview
	default:
		return m.currentStep
	}
}

// Hydrate restores a machine from persisted workflow state during
// session resume.
func (m *Machine) Hydrate(step int, locked, analysisSucceeded bool, mode Mode) {
	if step < StepSetup || step > StepReview {
		step = StepSetup
	}
	m.currentStep = step
	m.step1Locked = locked
	m.analysisSucceeded = analysisSucceeded
	if mode != "" {
		m.mode = mode
	}
	m.syncStateToStep()
}

// AnalysisSucceeded reports whether a successful analysis has been
// recorded.
func (m *Machine) AnalysisSucceeded() bool { return m.analysisSucceeded }
