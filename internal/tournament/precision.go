package tournament

import (
	"errors"
	"fmt"

	"github.com/alienxp03/ideagen/internal/core"
)

// ErrInsufficientData reports that a ranked pool is too small for the
// requested cutoff. Callers decide whether that is fatal or just skipped.
var ErrInsufficientData = errors.New("not enough ranked ideas")

// DefaultCutoffs are the precision cutoffs reported by evaluations.
var DefaultCutoffs = []int{3, 5, 10, 20}

// PrecisionAtN returns the fraction of the top n ranked ideas whose source
// tag marks them as system-generated rather than baseline.
func PrecisionAtN(ranked []core.RankedIdea, n int) (float64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("precision cutoff must be positive, got %d", n)
	}
	if len(ranked) < n {
		return 0, fmt.Errorf("precision@%d needs %d ideas, have %d: %w", n, n, len(ranked), ErrInsufficientData)
	}

	hits := 0
	for _, idea := range ranked[:n] {
		if idea.Source == core.SourceNonBaseline {
			hits++
		}
	}
	return float64(hits) / float64(n), nil
}

// PrecisionSuite computes PrecisionAtN for each cutoff, silently skipping
// cutoffs the pool is too small for. Keys are the cutoffs that produced a
// value.
func PrecisionSuite(ranked []core.RankedIdea, cutoffs []int) (map[int]float64, error) {
	if len(cutoffs) == 0 {
		cutoffs = DefaultCutoffs
	}

	out := make(map[int]float64)
	for _, n := range cutoffs {
		p, err := PrecisionAtN(ranked, n)
		if errors.Is(err, ErrInsufficientData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[n] = p
	}
	return out, nil
}
