package stats

import (
	"math"

	"pacplan/internal/model"
)

// SeriesSummary condenses a planner's per-generation best fitness.
type SeriesSummary struct {
	Generations int     `json:"generations"`
	InitialBest float64 `json:"initial_best"`
	FinalBest   float64 `json:"final_best"`
	Improvement float64 `json:"improvement"`
	BestMean    float64 `json:"best_mean"`
	BestStd     float64 `json:"best_std"`
	BestMax     float64 `json:"best_max"`
	BestMin     float64 `json:"best_min"`
}

func Summarize(diagnostics []model.GenerationDiagnostics) SeriesSummary {
	if len(diagnostics) == 0 {
		return SeriesSummary{}
	}
	s := SeriesSummary{
		Generations: len(diagnostics),
		InitialBest: diagnostics[0].BestFitness,
		FinalBest:   diagnostics[len(diagnostics)-1].BestFitness,
		BestMax:     math.Inf(-1),
		BestMin:     math.Inf(1),
	}
	s.Improvement = s.FinalBest - s.InitialBest

	sum := 0.0
	for _, d := range diagnostics {
		sum += d.BestFitness
		s.BestMax = math.Max(s.BestMax, d.BestFitness)
		s.BestMin = math.Min(s.BestMin, d.BestFitness)
	}
	s.BestMean = sum / float64(len(diagnostics))

	variance := 0.0
	for _, d := range diagnostics {
		diff := d.BestFitness - s.BestMean
		variance += diff * diff
	}
	s.BestStd = math.Sqrt(variance / float64(len(diagnostics)))
	return s
}
