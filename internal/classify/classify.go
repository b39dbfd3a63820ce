package classify

import (
	"context"
	"math"

	"github.com/samber/lo"
)

// Label is a classification class.
type Label string

const (
	LabelCan     Label = "can"
	LabelPlastic Label = "plastic"
)

// Valid reports whether l is a known class.
func (l Label) Valid() bool {
	return l == LabelCan || l == LabelPlastic
}

// Result is a derived classification: label plus confidence in percent.
// Confidence is always within [50.0, 100.0].
type Result struct {
	Label      Label
	Confidence float64
}

// Derive maps the engine's scalar output p = P(plastic) to a labelled
// result. The contract, reproduced exactly: label is plastic when
// p >= 0.5 (ties resolve toward plastic), can otherwise; confidence is
// max(p, 1-p) x 100, reported with two-decimal precision.
func Derive(p float64) Result {
	label := lo.Ternary(p >= 0.5, LabelPlastic, LabelCan)
	confidence := math.Max(p, 1-p) * 100
	return Result{
		Label:      label,
		Confidence: math.Round(confidence*100) / 100,
	}
}

// Engine is the external inference collaborator: a pure,
// side-effect-free mapping from an image to a scalar probability in
// [0, 1], interpreted as P(plastic). The core never inspects model
// internals.
type Engine interface {
	Predict(ctx context.Context, image []byte) (float64, error)
}

// Fixed is an Engine that always returns the same probability.
// Used for tests and dry runs without a model service.
type Fixed struct {
	P float64
}

func (f Fixed) Predict(ctx context.Context, image []byte) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.P, nil
}
