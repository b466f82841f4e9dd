package evaluation

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service scores itineraries and edits. Every planning turn runs the
// feasibility and grounding checks; edit turns add the correctness diff.
type Service interface {
	Evaluate(ctx context.Context, it *types.Itinerary) *types.Evaluation
	EvaluateEdit(ctx context.Context, before, after *types.Itinerary, intent types.EditIntent) *types.Evaluation
}

// ServiceImpl runs the deterministic checks. No model calls happen here;
// evaluation has to stay cheap enough to run on every turn.
type ServiceImpl struct {
	logger *slog.Logger
}

// NewServiceImpl creates the evaluator.
func NewServiceImpl(logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger}
}

// Evaluate runs the itinerary-level checks.
func (s *ServiceImpl) Evaluate(ctx context.Context, it *types.Itinerary) *types.Evaluation {
	ctx, span := otel.Tracer("EvaluationService").Start(ctx, "Evaluate")
	defer span.End()

	eval := &types.Evaluation{
		Feasibility: CheckFeasibility(it),
		Grounding:   CheckGrounding(it),
	}

	span.SetAttributes(
		attribute.Float64("feasibility.score", eval.Feasibility.Score),
		attribute.Float64("grounding.score", eval.Grounding.Score),
	)
	span.SetStatus(codes.Ok, "evaluated")

	s.logger.DebugContext(ctx, "Itinerary evaluated",
		slog.Bool("feasible", eval.Feasibility.IsFeasible),
		slog.Float64("feasibility_score", eval.Feasibility.Score),
		slog.Bool("grounded", eval.Grounding.IsGrounded),
		slog.Float64("grounding_score", eval.Grounding.Score))
	return eval
}

// EvaluateEdit runs the itinerary checks on the edited plan plus the scope
// diff against the previous one.
func (s *ServiceImpl) EvaluateEdit(ctx context.Context, before, after *types.Itinerary, intent types.EditIntent) *types.Evaluation {
	ctx, span := otel.Tracer("EvaluationService").Start(ctx, "EvaluateEdit")
	defer span.End()

	eval := s.Evaluate(ctx, after)
	eval.EditCorrectness = CheckEditCorrectness(before, after, intent)

	span.SetAttributes(attribute.Bool("edit.correct", eval.EditCorrectness.IsCorrect))
	span.SetStatus(codes.Ok, "evaluated")

	if !eval.EditCorrectness.IsCorrect {
		s.logger.WarnContext(ctx, "Edit touched unexpected sections",
			slog.String("edit_type", string(intent.EditType)),
			slog.Any("violations", eval.EditCorrectness.Violations))
	}
	return eval
}
