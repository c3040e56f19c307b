// Package swap orchestrates task swaps: permission checks, weekly
// quota accounting, the content update, and the immutable audit record.
package swap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"traction/api/internal/ai"
	"traction/api/internal/quota"
	"traction/api/internal/rbac"
	"traction/api/internal/store"
)

// ErrPermissionDenied means the acting user may not modify the task.
var ErrPermissionDenied = errors.New("swap: permission denied")

// QuotaError reports an exhausted weekly swap allowance.
type QuotaError struct {
	Limit   int
	Current int
	Mode    quota.Mode
	Week    int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("swap: weekly quota exhausted (%d of %d used in week %d, mode %s)", e.Current, e.Limit, e.Week, e.Mode)
}

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("swap: invalid %s: %s", e.Field, e.Reason)
}

// Store is the persistence surface the orchestrator needs.
type Store interface {
	GetTask(ctx context.Context, orgID, taskID string) (store.Task, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	GetWeekStart(ctx context.Context) (time.Time, error)
	CountSwapsInWeek(ctx context.Context, userID string, weekNumber int) (int, error)
	UpdateTaskContent(ctx context.Context, orgID, taskID, title, description string) error
	InsertTaskSwap(ctx context.Context, swap store.TaskSwap) (store.TaskSwap, error)
}

// Suggester produces replacement candidates for a task.
type Suggester interface {
	SuggestAlternatives(ctx context.Context, tc ai.TaskContext, n int) ([]ai.Candidate, error)
}

// Notifier delivers a swap notice to the task's assignee. Failures are
// logged, never surfaced.
type Notifier interface {
	NotifySwap(ctx context.Context, userID string, oldTitle, newTitle, leaderComment string) error
}

type Orchestrator struct {
	store     Store
	suggester Suggester
	notifier  Notifier
	now       func() time.Time
}

func NewOrchestrator(st Store, suggester Suggester, notifier Notifier) *Orchestrator {
	return &Orchestrator{store: st, suggester: suggester, notifier: notifier, now: time.Now}
}

const proposalCount = 5

// Proposal is the result of asking for swap candidates.
type Proposal struct {
	Task       store.Task     `json:"task"`
	Candidates []ai.Candidate `json:"candidates"`
	Fallback   bool           `json:"fallback"`
	Notice     string         `json:"notice,omitempty"`
	Quota      quota.Status   `json:"quota"`
}

// Propose returns replacement candidates for a task along with the
// caller's remaining weekly quota. When the AI gateway is down or out
// of budget the canned fallback list is returned with Fallback set and
// a human-readable notice, not an error.
func (o *Orchestrator) Propose(ctx context.Context, orgID, actorID, taskID string) (Proposal, error) {
	task, err := o.store.GetTask(ctx, orgID, taskID)
	if err != nil {
		return Proposal{}, err
	}
	if !rbac.CanMutateTask(task, actorID) {
		return Proposal{}, ErrPermissionDenied
	}

	status, _, _, err := o.quotaStatus(ctx, actorID)
	if err != nil {
		return Proposal{}, err
	}

	proposal := Proposal{Task: task, Quota: status}
	tc := ai.TaskContext{Title: task.Title, Description: task.Description, Area: task.Area, Phase: task.Phase}

	if o.suggester != nil {
		candidates, err := o.suggester.SuggestAlternatives(ctx, tc, proposalCount)
		if err == nil {
			proposal.Candidates = candidates
			return proposal, nil
		}
		log.Printf("swap suggestions unavailable, using fallback: %v", err)
		switch {
		case errors.Is(err, ai.ErrRateLimited):
			proposal.Notice = "AI suggestions are temporarily rate limited; showing generic alternatives."
		case errors.Is(err, ai.ErrCreditsExhausted):
			proposal.Notice = "AI credits are exhausted for this billing period; showing generic alternatives."
		default:
			proposal.Notice = "AI suggestions are unavailable right now; showing generic alternatives."
		}
	}
	proposal.Fallback = true
	proposal.Candidates = ai.FallbackCandidates(tc, proposalCount)
	return proposal, nil
}

// ConfirmRequest carries the chosen replacement content.
type ConfirmRequest struct {
	TaskID         string
	NewTitle       string
	NewDescription string
	LeaderComment  string
}

// ConfirmResult reports the recorded swap and whether the assignee was
// notified.
type ConfirmResult struct {
	Swap     store.TaskSwap `json:"swap"`
	Task     store.Task     `json:"task"`
	Quota    quota.Status   `json:"quota"`
	Notified bool           `json:"notified"`
}

// Confirm applies a swap. Checks run in a fixed order: permission
// first, then leader-comment validation, then quota. Only after all
// three pass does the task change and the audit row get written. The
// assignee notification happens last and never fails the call.
func (o *Orchestrator) Confirm(ctx context.Context, orgID, actorID string, req ConfirmRequest) (ConfirmResult, error) {
	if req.NewTitle == "" {
		return ConfirmResult{}, &ValidationError{Field: "new_title", Reason: "must not be empty"}
	}

	task, err := o.store.GetTask(ctx, orgID, req.TaskID)
	if err != nil {
		return ConfirmResult{}, err
	}
	if !rbac.CanMutateTask(task, actorID) {
		return ConfirmResult{}, ErrPermissionDenied
	}

	// A leader replacing a supervised task must explain the change to
	// the assignee. This holds even when the leader assigned the task
	// to themselves.
	actingAsLeader := task.LeaderID != nil && actorID == *task.LeaderID
	if actingAsLeader && req.LeaderComment == "" {
		return ConfirmResult{}, &ValidationError{Field: "leader_comment", Reason: "required when a leader swaps a supervised task"}
	}

	status, mode, week, err := o.quotaStatus(ctx, actorID)
	if err != nil {
		return ConfirmResult{}, err
	}
	if !status.Allowed {
		return ConfirmResult{}, &QuotaError{Limit: status.Limit, Current: status.Current, Mode: mode, Week: week}
	}

	if err := o.store.UpdateTaskContent(ctx, orgID, req.TaskID, req.NewTitle, req.NewDescription); err != nil {
		return ConfirmResult{}, fmt.Errorf("update task content: %w", err)
	}

	record := store.TaskSwap{
		TaskID:         req.TaskID,
		UserID:         actorID,
		OldTitle:       task.Title,
		NewTitle:       req.NewTitle,
		OldDescription: task.Description,
		NewDescription: req.NewDescription,
		WeekNumber:     week,
		Mode:           string(mode),
	}
	if req.LeaderComment != "" {
		comment := req.LeaderComment
		record.LeaderComment = &comment
	}
	saved, err := o.store.InsertTaskSwap(ctx, record)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("record task swap: %w", err)
	}

	result := ConfirmResult{
		Swap:  saved,
		Task:  task,
		Quota: quota.Evaluate(status.Limit, status.Current+1),
	}
	result.Task.Title = req.NewTitle
	result.Task.Description = req.NewDescription

	// Notify the assignee only when someone else made the change.
	if o.notifier != nil && actorID != task.UserID {
		if err := o.notifier.NotifySwap(ctx, task.UserID, task.Title, req.NewTitle, req.LeaderComment); err != nil {
			log.Printf("swap notification for user %s failed: %v", task.UserID, err)
		} else {
			result.Notified = true
		}
	}
	return result, nil
}

// QuotaStatus reports the caller's weekly swap allowance without
// touching any task.
func (o *Orchestrator) QuotaStatus(ctx context.Context, userID string) (quota.Status, quota.Mode, int, error) {
	return o.quotaStatus(ctx, userID)
}

func (o *Orchestrator) quotaStatus(ctx context.Context, userID string) (quota.Status, quota.Mode, int, error) {
	user, err := o.store.GetUserByID(ctx, userID)
	if err != nil {
		return quota.Status{}, "", 0, fmt.Errorf("load user: %w", err)
	}
	// The anchor is read on every call so an admin change takes effect
	// immediately.
	weekStart, err := o.store.GetWeekStart(ctx)
	if err != nil {
		return quota.Status{}, "", 0, fmt.Errorf("load week anchor: %w", err)
	}
	week := quota.WeekNumber(o.now(), weekStart)
	mode := quota.Mode(user.SwapMode)
	limit := quota.SwapLimit(mode)
	current, err := o.store.CountSwapsInWeek(ctx, userID, week)
	if err != nil {
		return quota.Status{}, "", 0, fmt.Errorf("count swaps: %w", err)
	}
	return quota.Evaluate(limit, current), mode, week, nil
}
