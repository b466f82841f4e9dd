package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/api/edit"
	"github.com/FACorreiaa/go-trip-planner/internal/api/evaluation"
	"github.com/FACorreiaa/go-trip-planner/internal/api/explanation"
	"github.com/FACorreiaa/go-trip-planner/internal/api/intent"
	"github.com/FACorreiaa/go-trip-planner/internal/api/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/api/poi"
	"github.com/FACorreiaa/go-trip-planner/internal/api/session"
	"github.com/FACorreiaa/go-trip-planner/internal/api/weather"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// StatusConfirmationRequired marks a turn whose reply summarizes the
// collected preferences and waits for an explicit go-ahead before the
// expensive build runs.
const StatusConfirmationRequired = "confirmation_required"

// TurnResult is what one conversation turn produces.
type TurnResult struct {
	SessionID  string            `json:"session_id"`
	Reply      string            `json:"reply"`
	Intent     string            `json:"intent"`
	Status     string            `json:"status,omitempty"`
	Clarifying bool              `json:"clarifying,omitempty"`
	Itinerary  *types.Itinerary  `json:"itinerary,omitempty"`
	Evaluation *types.Evaluation `json:"evaluation,omitempty"`
	Sources    []types.Source    `json:"sources,omitempty"`
}

// Service is the dialogue orchestrator. Every entry point resolves a
// session, routes the message, and returns the full turn result.
type Service interface {
	// Turn handles one free-form message. An empty sessionID starts a new
	// conversation. voice marks speech transcripts, which get an extra
	// normalization pass.
	Turn(ctx context.Context, sessionID, message string, voice bool) (*TurnResult, error)

	// Edit applies a natural-language edit to the session's itinerary.
	Edit(ctx context.Context, sessionID, command string) (*TurnResult, error)

	// Explain answers a question about the session's itinerary.
	Explain(ctx context.Context, sessionID, question string) (*TurnResult, error)
}

// Options holds the planner's tunables.
type Options struct {
	MaxClarifyingQuestions int
	MaxSources             int
}

// ServiceImpl wires the dialogue loop over the domain services.
type ServiceImpl struct {
	logger    *slog.Logger
	store     session.Store
	intents   intent.Service
	pois      poi.Service
	builder   itinerary.Service
	editor    edit.Service
	explainer explanation.Service
	weather   weather.Service
	evaluator evaluation.Service
	opts      Options

	// One mutex per session id keeps concurrent turns on the same
	// conversation from interleaving their read-modify-write cycles.
	turnLocks sync.Map
}

// lockSession serializes turns on one session and returns the unlock func.
func (s *ServiceImpl) lockSession(id string) func() {
	v, _ := s.turnLocks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// NewServiceImpl creates the orchestrator.
func NewServiceImpl(
	store session.Store,
	intents intent.Service,
	pois poi.Service,
	builder itinerary.Service,
	editor edit.Service,
	explainer explanation.Service,
	weatherSvc weather.Service,
	evaluator evaluation.Service,
	opts Options,
	logger *slog.Logger,
) *ServiceImpl {
	if opts.MaxClarifyingQuestions <= 0 {
		opts.MaxClarifyingQuestions = 6
	}
	if opts.MaxSources <= 0 {
		opts.MaxSources = 10
	}
	return &ServiceImpl{
		logger:    logger,
		store:     store,
		intents:   intents,
		pois:      pois,
		builder:   builder,
		editor:    editor,
		explainer: explainer,
		weather:   weatherSvc,
		evaluator: evaluator,
		opts:      opts,
	}
}

// Turn implements the main dialogue loop.
func (s *ServiceImpl) Turn(ctx context.Context, sessionID, message string, voice bool) (*TurnResult, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "Turn", trace.WithAttributes(
		attribute.Bool("voice", voice),
	))
	defer span.End()

	start := time.Now()
	l := s.logger.With(slog.String("method", "Turn"))

	sess, err := s.resolveSession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session lookup failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("session_id", sess.ID))

	unlock := s.lockSession(sess.ID)
	defer unlock()

	if voice {
		message = intent.NormalizeTranscript(message)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, types.NewAppError(types.CodeValidation, "message must not be empty")
	}

	s.appendMessage(ctx, sess.ID, "user", message)

	label, err := s.intents.Classify(ctx, message, sess.Itinerary != nil || sess.AwaitingConfirmation)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("intent", label))
	metrics.Get().TurnCounter.Add(ctx, 1, metrics.WithIntent(label))

	var result *TurnResult
	switch label {
	case intent.IntentReset:
		result, err = s.handleReset(ctx, sess.ID)
	case intent.IntentConfirm:
		result, err = s.handleConfirm(ctx, sess.ID)
	case intent.IntentQuestion:
		result, err = s.explainTurn(ctx, sess.ID, message)
	case intent.IntentEdit:
		result, err = s.editTurn(ctx, sess.ID, message)
	default:
		result, err = s.handlePlan(ctx, sess.ID, message)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn failed")
		return nil, err
	}

	result.Intent = label
	s.appendMessage(ctx, sess.ID, "assistant", result.Reply)

	metrics.Get().TurnDuration.Record(ctx, time.Since(start).Seconds(), metrics.WithIntent(label))
	l.InfoContext(ctx, "Turn handled",
		slog.String("session_id", sess.ID),
		slog.String("intent", label),
		slog.Duration("took", time.Since(start)))
	span.SetStatus(codes.Ok, "handled")
	return result, nil
}

// Edit is the direct edit entry point; it skips intent classification.
func (s *ServiceImpl) Edit(ctx context.Context, sessionID, command string) (*TurnResult, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "Edit")
	defer span.End()

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, "session lookup failed")
		return nil, err
	}

	unlock := s.lockSession(sess.ID)
	defer unlock()

	s.appendMessage(ctx, sess.ID, "user", command)
	result, err := s.editTurn(ctx, sess.ID, command)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "edit failed")
		return nil, err
	}
	result.Intent = intent.IntentEdit
	s.appendMessage(ctx, sess.ID, "assistant", result.Reply)
	span.SetStatus(codes.Ok, "edited")
	return result, nil
}

// Explain is the direct question entry point.
func (s *ServiceImpl) Explain(ctx context.Context, sessionID, question string) (*TurnResult, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "Explain")
	defer span.End()

	if _, err := s.store.Get(ctx, sessionID); err != nil {
		span.SetStatus(codes.Error, "session lookup failed")
		return nil, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	result, err := s.explainTurn(ctx, sessionID, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "explain failed")
		return nil, err
	}
	result.Intent = intent.IntentQuestion
	span.SetStatus(codes.Ok, "explained")
	return result, nil
}

func (s *ServiceImpl) resolveSession(ctx context.Context, id string) (*types.Session, error) {
	if id == "" {
		return s.store.Create(ctx), nil
	}
	return s.store.Get(ctx, id)
}

func (s *ServiceImpl) appendMessage(ctx context.Context, sessionID, role, content string) {
	_ = s.store.Update(ctx, sessionID, func(sess *types.Session) error {
		sess.History = append(sess.History, types.Message{
			Role:      role,
			Content:   content,
			Timestamp: time.Now(),
		})
		return nil
	})
}

func (s *ServiceImpl) handleReset(ctx context.Context, sessionID string) (*TurnResult, error) {
	err := s.store.Update(ctx, sessionID, func(sess *types.Session) error {
		sess.Preferences = types.Preferences{}
		sess.Itinerary = nil
		sess.Evaluation = nil
		sess.Sources = nil
		sess.Confirmed = false
		sess.AwaitingConfirmation = false
		sess.ClarifyingCount = 0
		sess.ClarifyingQuestionsAsked = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &TurnResult{
		SessionID: sessionID,
		Reply:     "Fresh start! Where would you like to go?",
	}, nil
}

// handleConfirm covers both confirmation moments: the go-ahead on a
// preference summary kicks off the build, and a yes on a built itinerary
// locks it in.
func (s *ServiceImpl) handleConfirm(ctx context.Context, sessionID string) (*TurnResult, error) {
	var (
		it       *types.Itinerary
		awaiting bool
		prefs    types.Preferences
	)
	err := s.store.Update(ctx, sessionID, func(sess *types.Session) error {
		it = sess.Itinerary
		awaiting = sess.AwaitingConfirmation
		prefs = sess.Preferences
		if it != nil {
			sess.Confirmed = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case it != nil:
		return &TurnResult{
			SessionID: sessionID,
			Reply:     fmt.Sprintf("Your %d-day %s trip is locked in. Have a great time!", it.DurationDays, it.City),
			Itinerary: it,
		}, nil
	case awaiting && prefs.HasMinimumSlots():
		return s.buildItinerary(ctx, sessionID, prefs)
	default:
		return nil, types.NewAppError(types.CodeValidation, "there is nothing to confirm yet")
	}
}

func (s *ServiceImpl) explainTurn(ctx context.Context, sessionID, question string) (*TurnResult, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	answer, err := s.explainer.Explain(ctx, question, sess)
	if err != nil {
		return nil, err
	}
	return &TurnResult{
		SessionID: sessionID,
		Reply:     answer.Text,
		Itinerary: sess.Itinerary,
		Sources:   answer.Sources,
	}, nil
}

func (s *ServiceImpl) editTurn(ctx context.Context, sessionID, command string) (*TurnResult, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Itinerary == nil {
		return nil, types.NewAppError(types.CodeEditValidation, "there is no itinerary to edit yet")
	}

	editIntent, err := s.editor.Parse(ctx, command, sess.Itinerary)
	if err != nil {
		return nil, err
	}

	// The cached POI pool backs edits that introduce new places.
	pool, _, poiErr := s.pois.Discover(ctx, sess.Preferences.City, sess.Preferences.Interests)
	if poiErr != nil {
		s.logger.WarnContext(ctx, "POI pool unavailable for edit", slog.Any("error", poiErr))
	}

	before := sess.Itinerary
	after, err := s.editor.Apply(ctx, before, editIntent, pool)
	if err != nil {
		return nil, err
	}

	eval := s.evaluator.EvaluateEdit(ctx, before, after, editIntent)

	err = s.store.Update(ctx, sessionID, func(sess *types.Session) error {
		sess.Itinerary = after
		sess.Evaluation = eval
		sess.Confirmed = false
		sess.Preferences.DurationDays = after.DurationDays
		if len(after.TravelDates) > 0 {
			sess.Preferences.TravelDates = append([]string(nil), after.TravelDates...)
		}
		if editIntent.EditType == types.EditChangePace {
			sess.Preferences.Pace = after.Pace
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &TurnResult{
		SessionID:  sessionID,
		Reply:      editReply(editIntent, after),
		Itinerary:  after,
		Evaluation: eval,
		Sources:    assembleSources(after, nil, s.opts.MaxSources),
	}, nil
}

func editReply(intent types.EditIntent, it *types.Itinerary) string {
	switch intent.EditType {
	case types.EditSwapDays:
		return fmt.Sprintf("Done, days %d and %d are swapped. Anything else?", intent.SourceDay, intent.TargetDay)
	case types.EditChangePace:
		return fmt.Sprintf("Switched to a %s pace. Anything else?", intent.NewPace)
	case types.EditAddDay:
		return fmt.Sprintf("Added day %d to the trip. Anything else?", it.DurationDays)
	case types.EditReduceTravel:
		return fmt.Sprintf("Travel times refreshed; the trip now totals %d minutes on the road. Anything else?", it.TotalTravelTime)
	default:
		return "Done, the itinerary is updated. Anything else?"
	}
}
