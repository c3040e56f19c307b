package swap

import (
	"context"
	"errors"
	"testing"
	"time"

	"traction/api/internal/ai"
	"traction/api/internal/store"
)

type fakeStore struct {
	GetTaskFn           func(ctx context.Context, orgID, taskID string) (store.Task, error)
	GetUserByIDFn       func(ctx context.Context, userID string) (store.User, error)
	GetWeekStartFn      func(ctx context.Context) (time.Time, error)
	CountSwapsInWeekFn  func(ctx context.Context, userID string, weekNumber int) (int, error)
	UpdateTaskContentFn func(ctx context.Context, orgID, taskID, title, description string) error
	InsertTaskSwapFn    func(ctx context.Context, swap store.TaskSwap) (store.TaskSwap, error)
}

func (f *fakeStore) GetTask(ctx context.Context, orgID, taskID string) (store.Task, error) {
	return f.GetTaskFn(ctx, orgID, taskID)
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	return f.GetUserByIDFn(ctx, userID)
}

func (f *fakeStore) GetWeekStart(ctx context.Context) (time.Time, error) {
	if f.GetWeekStartFn != nil {
		return f.GetWeekStartFn(ctx)
	}
	return time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), nil
}

func (f *fakeStore) CountSwapsInWeek(ctx context.Context, userID string, weekNumber int) (int, error) {
	return f.CountSwapsInWeekFn(ctx, userID, weekNumber)
}

func (f *fakeStore) UpdateTaskContent(ctx context.Context, orgID, taskID, title, description string) error {
	if f.UpdateTaskContentFn != nil {
		return f.UpdateTaskContentFn(ctx, orgID, taskID, title, description)
	}
	return nil
}

func (f *fakeStore) InsertTaskSwap(ctx context.Context, swap store.TaskSwap) (store.TaskSwap, error) {
	if f.InsertTaskSwapFn != nil {
		return f.InsertTaskSwapFn(ctx, swap)
	}
	swap.ID = 1
	swap.CreatedAt = time.Now()
	return swap, nil
}

type fakeSuggester struct {
	SuggestFn func(ctx context.Context, tc ai.TaskContext, n int) ([]ai.Candidate, error)
}

func (f *fakeSuggester) SuggestAlternatives(ctx context.Context, tc ai.TaskContext, n int) ([]ai.Candidate, error) {
	return f.SuggestFn(ctx, tc, n)
}

type fakeNotifier struct {
	calls int
	err   error
	last  struct {
		userID, oldTitle, newTitle, comment string
	}
}

func (f *fakeNotifier) NotifySwap(ctx context.Context, userID, oldTitle, newTitle, leaderComment string) error {
	f.calls++
	f.last.userID = userID
	f.last.oldTitle = oldTitle
	f.last.newTitle = newTitle
	f.last.comment = leaderComment
	return f.err
}

func baseStore(task store.Task, user store.User, swapCount int) *fakeStore {
	return &fakeStore{
		GetTaskFn: func(ctx context.Context, orgID, taskID string) (store.Task, error) {
			return task, nil
		},
		GetUserByIDFn: func(ctx context.Context, userID string) (store.User, error) {
			return user, nil
		},
		CountSwapsInWeekFn: func(ctx context.Context, userID string, weekNumber int) (int, error) {
			return swapCount, nil
		},
	}
}

func TestProposeUsesSuggester(t *testing.T) {
	task := store.Task{ID: "tsk_1", OrgID: "org_1", UserID: "usr_1", Title: "Cold outreach"}
	user := store.User{ID: "usr_1", SwapMode: "moderado"}
	st := baseStore(task, user, 2)

	suggester := &fakeSuggester{
		SuggestFn: func(ctx context.Context, tc ai.TaskContext, n int) ([]ai.Candidate, error) {
			if n != 5 {
				t.Errorf("asked for %d candidates, want 5", n)
			}
			return []ai.Candidate{{Title: "Warm referrals"}}, nil
		},
	}

	o := NewOrchestrator(st, suggester, nil)
	proposal, err := o.Propose(context.Background(), "org_1", "usr_1", "tsk_1")
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if proposal.Fallback {
		t.Error("expected live suggestions, got fallback")
	}
	if len(proposal.Candidates) != 1 || proposal.Candidates[0].Title != "Warm referrals" {
		t.Errorf("unexpected candidates %+v", proposal.Candidates)
	}
	if proposal.Quota.Limit != 7 || proposal.Quota.Current != 2 {
		t.Errorf("unexpected quota %+v", proposal.Quota)
	}
}

func TestProposeFallsBackWhenRateLimited(t *testing.T) {
	task := store.Task{ID: "tsk_1", OrgID: "org_1", UserID: "usr_1", Title: "Cold outreach"}
	st := baseStore(task, store.User{ID: "usr_1", SwapMode: "conservador"}, 0)

	suggester := &fakeSuggester{
		SuggestFn: func(ctx context.Context, tc ai.TaskContext, n int) ([]ai.Candidate, error) {
			return nil, ai.ErrRateLimited
		},
	}

	o := NewOrchestrator(st, suggester, nil)
	proposal, err := o.Propose(context.Background(), "org_1", "usr_1", "tsk_1")
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if !proposal.Fallback {
		t.Error("expected fallback candidates")
	}
	if len(proposal.Candidates) != 5 {
		t.Errorf("got %d fallback candidates, want 5", len(proposal.Candidates))
	}
	if proposal.Notice == "" {
		t.Error("expected a notice explaining the fallback")
	}
}

func TestProposePermissionDenied(t *testing.T) {
	task := store.Task{ID: "tsk_1", OrgID: "org_1", UserID: "usr_1"}
	st := baseStore(task, store.User{ID: "usr_2"}, 0)

	o := NewOrchestrator(st, nil, nil)
	_, err := o.Propose(context.Background(), "org_1", "usr_2", "tsk_1")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("got %v, want ErrPermissionDenied", err)
	}
}

func TestConfirmHappyPath(t *testing.T) {
	task := store.Task{ID: "tsk_1", OrgID: "org_1", UserID: "usr_1", Title: "Old title", Description: "Old body"}
	st := baseStore(task, store.User{ID: "usr_1", SwapMode: "conservador"}, 3)

	var updated, inserted bool
	st.UpdateTaskContentFn = func(ctx context.Context, orgID, taskID, title, description string) error {
		updated = true
		if title != "New title" {
			t.Errorf("update got title %q", title)
		}
		return nil
	}
	st.InsertTaskSwapFn = func(ctx context.Context, swap store.TaskSwap) (store.TaskSwap, error) {
		inserted = true
		if swap.OldTitle != "Old title" || swap.NewTitle != "New title" {
			t.Errorf("swap record %+v", swap)
		}
		if swap.Mode != "conservador" || swap.WeekNumber < 1 {
			t.Errorf("swap accounting fields %+v", swap)
		}
		if swap.LeaderComment != nil {
			t.Error("self swap should not carry a leader comment")
		}
		swap.ID = 42
		return swap, nil
	}

	notifier := &fakeNotifier{}
	o := NewOrchestrator(st, nil, notifier)
	result, err := o.Confirm(context.Background(), "org_1", "usr_1", ConfirmRequest{
		TaskID:         "tsk_1",
		NewTitle:       "New title",
		NewDescription: "New body",
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !updated || !inserted {
		t.Error("expected both the update and the audit insert")
	}
	if result.Swap.ID != 42 {
		t.Errorf("result swap id = %d, want 42", result.Swap.ID)
	}
	if result.Task.Title != "New title" {
		t.Errorf("result task title = %q", result.Task.Title)
	}
	if result.Quota.Current != 4 || result.Quota.Remaining != 1 {
		t.Errorf("post-swap quota %+v", result.Quota)
	}
	if notifier.calls != 0 {
		t.Error("self swap must not notify the assignee")
	}
	if result.Notified {
		t.Error("Notified should be false for a self swap")
	}
}

func TestConfirmQuotaExhausted(t *testing.T) {
	task := store.Task{ID: "tsk_1", OrgID: "org_1", UserID: "usr_1", Title: "Old"}
	st := baseStore(task, store.User{ID: "usr_1", SwapMode: "conservador"}, 5)
	st.UpdateTaskContentFn = func(ctx context.Context, orgID, taskID, title, description string) error {
		t.Error("task must not change when quota is exhausted")
		return nil
	}

	o := NewOrchestrator(st, nil, nil)
	_, err := o.Confirm(context.Background(), "org_1", "usr_1", ConfirmRequest{TaskID: "tsk_1", NewTitle: "New"})
	var qe *QuotaError
	if !errors.As(err, &qe) {
		t.Fatalf("got %v, want QuotaError", err)
	}
	if qe.Limit != 5 || qe.Current != 5 {
		t.Errorf("quota error %+v", qe)
	}
}

func TestConfirmLeaderNeedsComment(t *testing.T) {
	leader := "usr_leader"
	task := store.Task{ID: "tsk_1", OrgID: "org_1", UserID: "usr_1", LeaderID: &leader, Title: "Old"}
	st := baseStore(task, store.User{ID: leader, SwapMode: "agresivo"}, 0)

	o := NewOrchestrator(st, nil, nil)
	_, err := o.Confirm(context.Background(), "org_1", leader, ConfirmRequest{TaskID: "tsk_1", NewTitle: "New"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if ve.Field != "leader_comment" {
		t.Errorf("validation field = %q, want leader_comment", ve.Field)
	}
}

func TestConfirmLeaderSwapNotifiesAssignee(t *testing.T) {
	leader := "usr_leader"
	task := store.Task{ID: "tsk_1", OrgID: "org_1", UserID: "usr_1", LeaderID: &leader, Title: "Old title"}
	st := baseStore(task, store.User{ID: leader, SwapMode: "agresivo"}, 0)
	st.InsertTaskSwapFn = func(ctx context.Context, swap store.TaskSwap) (store.TaskSwap, error) {
		if swap.LeaderComment == nil || *swap.LeaderComment != "Priorities changed" {
			t.Errorf("swap record should carry the leader comment, got %+v", swap.LeaderComment)
		}
		swap.ID = 7
		return swap, nil
	}

	notifier := &fakeNotifier{}
	o := NewOrchestrator(st, nil, notifier)
	result, err := o.Confirm(context.Background(), "org_1", leader, ConfirmRequest{
		TaskID:        "tsk_1",
		NewTitle:      "New title",
		LeaderComment: "Priorities changed",
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if notifier.calls != 1 {
		t.Fatalf("notifier called %d times, want 1", notifier.calls)
	}
	if notifier.last.userID != "usr_1" || notifier.last.comment != "Priorities changed" {
		t.Errorf("notification %+v", notifier.last)
	}
	if !result.Notified {
		t.Error("Notified should be true")
	}
}

func TestConfirmNotificationFailureDoesNotFailSwap(t *testing.T) {
	leader := "usr_leader"
	task := store.Task{ID: "tsk_1", OrgID: "org_1", UserID: "usr_1", LeaderID: &leader, Title: "Old"}
	st := baseStore(task, store.User{ID: leader, SwapMode: "moderado"}, 0)

	notifier := &fakeNotifier{err: errors.New("smtp down")}
	o := NewOrchestrator(st, nil, notifier)
	result, err := o.Confirm(context.Background(), "org_1", leader, ConfirmRequest{
		TaskID:        "tsk_1",
		NewTitle:      "New",
		LeaderComment: "Reprioritizing",
	})
	if err != nil {
		t.Fatalf("Confirm should not fail on notification error, got %v", err)
	}
	if result.Notified {
		t.Error("Notified should be false when delivery failed")
	}
}

func TestConfirmAssigneeCannotSwapSupervisedTask(t *testing.T) {
	leader := "usr_leader"
	task := store.Task{ID: "tsk_1", OrgID: "org_1", UserID: "usr_1", LeaderID: &leader}
	st := baseStore(task, store.User{ID: "usr_1", SwapMode: "conservador"}, 0)

	o := NewOrchestrator(st, nil, nil)
	_, err := o.Confirm(context.Background(), "org_1", "usr_1", ConfirmRequest{TaskID: "tsk_1", NewTitle: "New"})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("got %v, want ErrPermissionDenied", err)
	}
}

func TestConfirmEmptyTitleRejected(t *testing.T) {
	o := NewOrchestrator(&fakeStore{}, nil, nil)
	_, err := o.Confirm(context.Background(), "org_1", "usr_1", ConfirmRequest{TaskID: "tsk_1"})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "new_title" {
		t.Errorf("got %v, want new_title ValidationError", err)
	}
}

func TestWeekBoundaryResetsQuota(t *testing.T) {
	task := store.Task{ID: "tsk_1", OrgID: "org_1", UserID: "usr_1", Title: "Old"}
	anchor := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	counts := map[int]int{1: 5, 2: 0}
	st := baseStore(task, store.User{ID: "usr_1", SwapMode: "conservador"}, 0)
	st.GetWeekStartFn = func(ctx context.Context) (time.Time, error) { return anchor, nil }
	st.CountSwapsInWeekFn = func(ctx context.Context, userID string, weekNumber int) (int, error) {
		return counts[weekNumber], nil
	}

	o := NewOrchestrator(st, nil, nil)

	o.now = func() time.Time { return anchor.Add(6 * 24 * time.Hour) }
	_, err := o.Confirm(context.Background(), "org_1", "usr_1", ConfirmRequest{TaskID: "tsk_1", NewTitle: "New"})
	var qe *QuotaError
	if !errors.As(err, &qe) {
		t.Fatalf("end of week 1 should be over quota, got %v", err)
	}

	o.now = func() time.Time { return anchor.Add(7 * 24 * time.Hour) }
	if _, err := o.Confirm(context.Background(), "org_1", "usr_1", ConfirmRequest{TaskID: "tsk_1", NewTitle: "New"}); err != nil {
		t.Fatalf("start of week 2 should allow a swap, got %v", err)
	}
}
