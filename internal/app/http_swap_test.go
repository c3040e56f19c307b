package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"traction/api/internal/store"
)

func memberUser() store.User {
	return store.User{
		ID:          "usr_1",
		OrgID:       "org_1",
		DisplayName: "Avery",
		Role:        "member",
		SwapMode:    "conservador",
	}
}

func ownTask(user store.User) store.Task {
	return store.Task{
		ID:          "tsk_1",
		OrgID:       user.OrgID,
		UserID:      user.ID,
		Title:       "Call three dormant accounts",
		Description: "Pick from last quarter's list",
		Area:        "sales",
	}
}

func TestSwapProposeFallbackWithoutSuggester(t *testing.T) {
	user := memberUser()
	fs := &fakeStore{
		getTaskFn: func(_ context.Context, orgID, taskID string) (store.Task, error) {
			return ownTask(user), nil
		},
	}
	userInStore(fs, user)
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/tsk_1/swap/propose", nil)
	req.Header.Set("Authorization", "Bearer "+bearerFor(t, svc, user))
	rr := doRequest(server, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var payload struct {
		Candidates []map[string]any `json:"candidates"`
		Fallback   bool             `json:"fallback"`
		Quota      struct {
			Limit     int `json:"limit"`
			Remaining int `json:"remaining"`
		} `json:"quota"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if !payload.Fallback {
		t.Error("expected fallback proposal when no AI gateway is configured")
	}
	if len(payload.Candidates) != 5 {
		t.Errorf("expected 5 candidates, got %d", len(payload.Candidates))
	}
	if payload.Quota.Limit != 5 || payload.Quota.Remaining != 5 {
		t.Errorf("unexpected quota %+v", payload.Quota)
	}
}

func TestSwapConfirmUpdatesTaskAndRecordsSwap(t *testing.T) {
	user := memberUser()
	var updatedTitle string
	var recorded *store.TaskSwap
	fs := &fakeStore{
		getTaskFn: func(_ context.Context, orgID, taskID string) (store.Task, error) {
			return ownTask(user), nil
		},
		updateTaskContentFn: func(_ context.Context, orgID, taskID, title, description string) error {
			updatedTitle = title
			return nil
		},
		insertTaskSwapFn: func(_ context.Context, ts store.TaskSwap) (store.TaskSwap, error) {
			ts.ID = 42
			recorded = &ts
			return ts, nil
		},
	}
	userInStore(fs, user)
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	body := bytes.NewBufferString(`{"newTitle":"Email five dormant accounts","newDescription":"Shorter touch"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/tsk_1/swap/confirm", body)
	req.Header.Set("Authorization", "Bearer "+bearerFor(t, svc, user))
	rr := doRequest(server, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if updatedTitle != "Email five dormant accounts" {
		t.Errorf("task title not updated, got %q", updatedTitle)
	}
	if recorded == nil {
		t.Fatal("expected a swap record to be written")
	}
	if recorded.OldTitle != "Call three dormant accounts" {
		t.Errorf("old title = %q", recorded.OldTitle)
	}
	if recorded.Mode != "conservador" {
		t.Errorf("mode = %q", recorded.Mode)
	}

	var payload struct {
		Notified bool `json:"notified"`
		Quota    struct {
			Current   int `json:"current"`
			Remaining int `json:"remaining"`
		} `json:"quota"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Notified {
		t.Error("self-swap must not notify")
	}
	if payload.Quota.Current != 1 || payload.Quota.Remaining != 4 {
		t.Errorf("quota after swap = %+v", payload.Quota)
	}
}

func TestSwapConfirmQuotaExhaustedReturns429(t *testing.T) {
	user := memberUser()
	var mutated bool
	fs := &fakeStore{
		getTaskFn: func(_ context.Context, orgID, taskID string) (store.Task, error) {
			return ownTask(user), nil
		},
		countSwapsInWeekFn: func(_ context.Context, userID string, week int) (int, error) {
			return 5, nil
		},
		updateTaskContentFn: func(_ context.Context, orgID, taskID, title, description string) error {
			mutated = true
			return nil
		},
	}
	userInStore(fs, user)
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	body := bytes.NewBufferString(`{"newTitle":"Anything else"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/tsk_1/swap/confirm", body)
	req.Header.Set("Authorization", "Bearer "+bearerFor(t, svc, user))
	rr := doRequest(server, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d body=%s", rr.Code, rr.Body.String())
	}
	if mutated {
		t.Error("task must not change when quota is exhausted")
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["code"] != "QUOTA_EXCEEDED" {
		t.Errorf("expected code QUOTA_EXCEEDED, got %v", payload["code"])
	}
	details, _ := payload["details"].(map[string]any)
	if details["limit"] != float64(5) || details["current"] != float64(5) {
		t.Errorf("unexpected details %v", details)
	}
}

func TestSwapConfirmSupervisedTaskDeniedForAssignee(t *testing.T) {
	user := memberUser()
	leaderID := "usr_leader"
	fs := &fakeStore{
		getTaskFn: func(_ context.Context, orgID, taskID string) (store.Task, error) {
			task := ownTask(user)
			task.LeaderID = &leaderID
			return task, nil
		},
	}
	userInStore(fs, user)
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	body := bytes.NewBufferString(`{"newTitle":"Something I prefer"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/tsk_1/swap/confirm", body)
	req.Header.Set("Authorization", "Bearer "+bearerFor(t, svc, user))
	rr := doRequest(server, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["code"] != "PERMISSION_DENIED" {
		t.Errorf("expected code PERMISSION_DENIED, got %v", payload["code"])
	}
}

func TestSwapConfirmLeaderWithoutCommentRejected(t *testing.T) {
	leader := store.User{
		ID:          "usr_leader",
		OrgID:       "org_1",
		DisplayName: "Jordan",
		Role:        "leader",
		SwapMode:    "moderado",
	}
	fs := &fakeStore{
		getTaskFn: func(_ context.Context, orgID, taskID string) (store.Task, error) {
			task := ownTask(memberUser())
			task.LeaderID = &leader.ID
			return task, nil
		},
	}
	userInStore(fs, leader)
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	body := bytes.NewBufferString(`{"newTitle":"Qualify two inbound leads"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/tsk_1/swap/confirm", body)
	req.Header.Set("Authorization", "Bearer "+bearerFor(t, svc, leader))
	rr := doRequest(server, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["code"] != "VALIDATION_ERROR" {
		t.Errorf("expected code VALIDATION_ERROR, got %v", payload["code"])
	}
	details, _ := payload["details"].(map[string]any)
	if details["field"] != "leader_comment" {
		t.Errorf("expected leader_comment field, got %v", details)
	}
}

func TestQuotaEndpointReflectsMode(t *testing.T) {
	user := memberUser()
	user.SwapMode = "agresivo"
	fs := &fakeStore{
		countSwapsInWeekFn: func(_ context.Context, userID string, week int) (int, error) {
			return 3, nil
		},
	}
	userInStore(fs, user)
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	req := httptest.NewRequest(http.MethodGet, "/api/me/quota", nil)
	req.Header.Set("Authorization", "Bearer "+bearerFor(t, svc, user))
	rr := doRequest(server, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["mode"] != "agresivo" {
		t.Errorf("mode = %v", payload["mode"])
	}
	if payload["limit"] != float64(10) || payload["remaining"] != float64(7) {
		t.Errorf("unexpected quota payload %v", payload)
	}
}

func TestSetSwapModeRejectsUnknownMode(t *testing.T) {
	user := memberUser()
	fs := &fakeStore{}
	userInStore(fs, user)
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	body := bytes.NewBufferString(`{"swapMode":"yolo"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/me/mode", body)
	req.Header.Set("Authorization", "Bearer "+bearerFor(t, svc, user))
	rr := doRequest(server, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d body=%s", rr.Code, rr.Body.String())
	}
}
