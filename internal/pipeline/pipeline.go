// Package pipeline holds the sales pipeline stage model and the
// derivation rules that keep a lead's coarse status and terminal dates
// consistent with its pipeline stage.
package pipeline

import "time"

type Stage string

const (
	StageDiscovery   Stage = "discovery"
	StageDemo        Stage = "demo"
	StageProposal    Stage = "proposal"
	StageNegotiation Stage = "negotiation"
	StageClosedWon   Stage = "closed_won"
	StageClosedLost  Stage = "closed_lost"
)

// Stages lists every stage in funnel order.
var Stages = []Stage{
	StageDiscovery,
	StageDemo,
	StageProposal,
	StageNegotiation,
	StageClosedWon,
	StageClosedLost,
}

func Valid(stage Stage) bool {
	switch stage {
	case StageDiscovery, StageDemo, StageProposal, StageNegotiation, StageClosedWon, StageClosedLost:
		return true
	}
	return false
}

// LeadState is the slice of a lead the stage engine cares about.
type LeadState struct {
	PipelineStage Stage
	WonDate       *time.Time
	LostDate      *time.Time
}

// LeadUpdate describes the fields to persist after a stage move. Stage
// is empty when the coarse status is untouched. WonDate and LostDate
// are non-nil only when the move stamps them for the first time.
type LeadUpdate struct {
	PipelineStage Stage
	Stage         string
	WonDate       *time.Time
	LostDate      *time.Time
}

// ApplyStageMove computes the update for moving a lead to target.
// Movement is unrestricted: any stage can be reached from any other,
// including reopening a closed lead. Moving to the current stage is a
// no-op and reports moved=false. Terminal dates are stamped once and
// never cleared, so a reopened and re-won lead keeps its original won
// date.
func ApplyStageMove(current LeadState, target Stage, today time.Time) (LeadUpdate, bool) {
	if target == current.PipelineStage {
		return LeadUpdate{}, false
	}

	update := LeadUpdate{PipelineStage: target}
	switch target {
	case StageClosedWon:
		update.Stage = "won"
		if current.WonDate == nil {
			d := today
			update.WonDate = &d
		}
	case StageClosedLost:
		update.Stage = "lost"
		if current.LostDate == nil {
			d := today
			update.LostDate = &d
		}
	case StageNegotiation:
		update.Stage = "negotiation"
	case StageProposal:
		update.Stage = "proposal"
	case StageDemo:
		update.Stage = "qualified"
	}
	return update, true
}
