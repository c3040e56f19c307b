// Package okr computes objective progress from key result values.
package okr

import "traction/api/internal/store"

// AtRiskThreshold is the progress percentage below which an objective
// is flagged at risk.
const AtRiskThreshold = 30.0

// KeyResultProgress returns the completion percentage of one key
// result, capped at 100. A regressing key result reports a negative
// percentage and drags the objective mean down. A key result whose
// target equals its start value cannot measure progress and reports 0.
func KeyResultProgress(kr store.KeyResult) float64 {
	span := kr.TargetValue - kr.StartValue
	if span == 0 {
		return 0
	}
	progress := (kr.CurrentValue - kr.StartValue) / span * 100
	if progress > 100 {
		return 100
	}
	return progress
}

// ObjectiveProgress is the unweighted mean of the key result
// percentages. An objective with no key results has zero progress.
func ObjectiveProgress(krs []store.KeyResult) float64 {
	if len(krs) == 0 {
		return 0
	}
	var sum float64
	for _, kr := range krs {
		sum += KeyResultProgress(kr)
	}
	return sum / float64(len(krs))
}

func AtRisk(progress float64) bool {
	return progress < AtRiskThreshold
}
