package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// RoundRecord holds what happened during one round.
type RoundRecord struct {
	Round int `csv:"round"`
	Steps int `csv:"steps"`

	Shouts           int `csv:"shouts"`
	Echoes           int `csv:"echoes"`
	Retargets        int `csv:"retargets"`
	Arrivals         int `csv:"arrivals"`
	WallHits         int `csv:"wall_hits"`
	Catches          int `csv:"catches"`
	PerceptionErrors int `csv:"perception_errors"`

	// Empty when the round ended without a catch (restart, shutdown)
	Catcher string `csv:"catcher"`
	Caught  string `csv:"caught"`
}

// LogValue implements slog.LogValuer for structured logging.
func (r RoundRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("round", r.Round),
		slog.Int("steps", r.Steps),
		slog.Int("shouts", r.Shouts),
		slog.Int("echoes", r.Echoes),
		slog.Int("retargets", r.Retargets),
		slog.Int("arrivals", r.Arrivals),
		slog.Int("wall_hits", r.WallHits),
		slog.Int("catches", r.Catches),
		slog.Int("perception_errors", r.PerceptionErrors),
		slog.String("catcher", r.Catcher),
		slog.String("caught", r.Caught),
	)
}

// RoundSummary aggregates round records.
type RoundSummary struct {
	Rounds      int
	Catches     int
	MeanSteps   float64
	StdSteps    float64
	MedianSteps float64
	MinSteps    float64
	MaxSteps    float64
	MeanShouts  float64
	MeanEchoes  float64
}

// Summarize computes a RoundSummary. Zero values are returned for no records.
func Summarize(records []RoundRecord) RoundSummary {
	n := len(records)
	if n == 0 {
		return RoundSummary{}
	}

	steps := make([]float64, n)
	shouts := make([]float64, n)
	echoes := make([]float64, n)
	s := RoundSummary{Rounds: n}
	for i, r := range records {
		steps[i] = float64(r.Steps)
		shouts[i] = float64(r.Shouts)
		echoes[i] = float64(r.Echoes)
		s.Catches += r.Catches
	}

	s.MeanSteps, s.StdSteps = stat.MeanStdDev(steps, nil)
	if n == 1 {
		s.StdSteps = 0
	}
	s.MeanShouts = stat.Mean(shouts, nil)
	s.MeanEchoes = stat.Mean(echoes, nil)

	slices.Sort(steps)
	s.MedianSteps = stat.Quantile(0.5, stat.Empirical, steps, nil)
	s.MinSteps = steps[0]
	s.MaxSteps = steps[n-1]
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s RoundSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("rounds", s.Rounds),
		slog.Int("catches", s.Catches),
		slog.Float64("mean_steps", s.MeanSteps),
		slog.Float64("std_steps", s.StdSteps),
		slog.Float64("median_steps", s.MedianSteps),
		slog.Float64("min_steps", s.MinSteps),
		slog.Float64("max_steps", s.MaxSteps),
		slog.Float64("mean_shouts", s.MeanShouts),
		slog.Float64("mean_echoes", s.MeanEchoes),
	)
}
