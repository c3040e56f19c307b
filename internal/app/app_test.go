package app

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"traction/api/internal/auth"
	"traction/api/internal/authpw"
	"traction/api/internal/config"
	"traction/api/internal/store"
	"traction/api/internal/swap"
)

// fakeStore implements dataStore, sessionStore and authpw.UserStore
// with overridable function fields. Unset getters report sql.ErrNoRows,
// unset writes succeed.
type fakeStore struct {
	pingFn func(context.Context) error

	getUserByIDFn        func(context.Context, string) (store.User, error)
	getUserByEmailFn     func(context.Context, string) (store.User, error)
	createUserFn         func(context.Context, store.User) error
	updateUserSwapModeFn func(context.Context, string, string) error
	countOrgUsersFn      func(context.Context, string) (int, error)
	getOrganizationFn    func(context.Context, string) (store.Organization, error)
	getWeekStartFn       func(context.Context) (time.Time, error)
	setWeekStartFn       func(context.Context, time.Time) error

	listLeadsFn              func(context.Context, string) ([]store.Lead, error)
	getLeadFn                func(context.Context, string, string) (store.Lead, error)
	insertLeadFn             func(context.Context, store.Lead) error
	updateLeadFieldsFn       func(ctx context.Context, orgID, leadID, name, company string, estimatedValue float64, probability int, assignedTo string, lastContactDate *time.Time) error
	updateLeadStageFn        func(ctx context.Context, orgID, leadID, pipelineStage, stage string, wonDate, lostDate *time.Time) error
	softDeleteLeadFn         func(context.Context, string, string) error
	countLeadsCreatedSinceFn func(context.Context, string, time.Time) (int, error)
	pipelineSummaryFn        func(context.Context, string) ([]store.StageSummary, error)
	wonValueSinceFn          func(context.Context, string, time.Time) (float64, error)

	getTaskFn           func(context.Context, string, string) (store.Task, error)
	listTasksForUserFn  func(context.Context, string) ([]store.Task, error)
	insertTaskFn        func(context.Context, store.Task) error
	updateTaskContentFn func(ctx context.Context, orgID, taskID, title, description string) error
	insertTaskSwapFn    func(context.Context, store.TaskSwap) (store.TaskSwap, error)
	countSwapsInWeekFn  func(context.Context, string, int) (int, error)
	listTaskSwapsFn     func(context.Context, string) ([]store.TaskSwap, error)

	listObjectivesFn          func(context.Context, string) ([]store.Objective, error)
	getObjectiveFn            func(context.Context, string, string) (store.Objective, error)
	insertObjectiveFn         func(context.Context, store.Objective) error
	listKeyResultsFn          func(context.Context, string) ([]store.KeyResult, error)
	insertKeyResultFn         func(context.Context, store.KeyResult) error
	updateKeyResultValueFn    func(context.Context, string, float64) (store.KeyResult, error)
	countActiveObjectivesFn   func(context.Context, string) (int, error)
	insertAIGenerationFn      func(ctx context.Context, orgID, userID, kind string) error
	countAIGenerationsSinceFn func(context.Context, string, time.Time) (int, error)

	insertNotificationFn   func(context.Context, store.Notification) error
	listNotificationsFn    func(context.Context, string, int) ([]store.Notification, error)
	markNotificationReadFn func(context.Context, string, int64) error

	saveRefreshSessionFn   func(context.Context, string, store.User, time.Time) error
	lookupRefreshSessionFn func(context.Context, string) (store.User, error)
	revokeRefreshSessionFn func(context.Context, string) error
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeStore) CreateUser(ctx context.Context, user store.User) error {
	if f.createUserFn != nil {
		return f.createUserFn(ctx, user)
	}
	return nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if f.getUserByEmailFn != nil {
		return f.getUserByEmailFn(ctx, email)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) UpdateUserSwapMode(ctx context.Context, userID, mode string) error {
	if f.updateUserSwapModeFn != nil {
		return f.updateUserSwapModeFn(ctx, userID, mode)
	}
	return nil
}

func (f *fakeStore) CountOrgUsers(ctx context.Context, orgID string) (int, error) {
	if f.countOrgUsersFn != nil {
		return f.countOrgUsersFn(ctx, orgID)
	}
	return 0, nil
}

func (f *fakeStore) GetOrganization(ctx context.Context, orgID string) (store.Organization, error) {
	if f.getOrganizationFn != nil {
		return f.getOrganizationFn(ctx, orgID)
	}
	return store.Organization{ID: orgID, Name: "Test Org", Plan: "starter"}, nil
}

func (f *fakeStore) InsertOrganization(ctx context.Context, org store.Organization) error {
	return nil
}

func (f *fakeStore) GetWeekStart(ctx context.Context) (time.Time, error) {
	if f.getWeekStartFn != nil {
		return f.getWeekStartFn(ctx)
	}
	return time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), nil
}

func (f *fakeStore) SetWeekStart(ctx context.Context, weekStart time.Time) error {
	if f.setWeekStartFn != nil {
		return f.setWeekStartFn(ctx, weekStart)
	}
	return nil
}

func (f *fakeStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	return nil
}

func (f *fakeStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return false, nil
}

func (f *fakeStore) ListLeads(ctx context.Context, orgID string) ([]store.Lead, error) {
	if f.listLeadsFn != nil {
		return f.listLeadsFn(ctx, orgID)
	}
	return []store.Lead{}, nil
}

func (f *fakeStore) GetLead(ctx context.Context, orgID, leadID string) (store.Lead, error) {
	if f.getLeadFn != nil {
		return f.getLeadFn(ctx, orgID, leadID)
	}
	return store.Lead{}, sql.ErrNoRows
}

func (f *fakeStore) InsertLead(ctx context.Context, lead store.Lead) error {
	if f.insertLeadFn != nil {
		return f.insertLeadFn(ctx, lead)
	}
	return nil
}

func (f *fakeStore) UpdateLeadFields(ctx context.Context, orgID, leadID, name, company string, estimatedValue float64, probability int, assignedTo string, lastContactDate *time.Time) error {
	if f.updateLeadFieldsFn != nil {
		return f.updateLeadFieldsFn(ctx, orgID, leadID, name, company, estimatedValue, probability, assignedTo, lastContactDate)
	}
	return nil
}

func (f *fakeStore) UpdateLeadStage(ctx context.Context, orgID, leadID, pipelineStage, stage string, wonDate, lostDate *time.Time) error {
	if f.updateLeadStageFn != nil {
		return f.updateLeadStageFn(ctx, orgID, leadID, pipelineStage, stage, wonDate, lostDate)
	}
	return nil
}

func (f *fakeStore) SoftDeleteLead(ctx context.Context, orgID, leadID string) error {
	if f.softDeleteLeadFn != nil {
		return f.softDeleteLeadFn(ctx, orgID, leadID)
	}
	return nil
}

func (f *fakeStore) CountLeadsCreatedSince(ctx context.Context, orgID string, since time.Time) (int, error) {
	if f.countLeadsCreatedSinceFn != nil {
		return f.countLeadsCreatedSinceFn(ctx, orgID, since)
	}
	return 0, nil
}

func (f *fakeStore) PipelineSummary(ctx context.Context, orgID string) ([]store.StageSummary, error) {
	if f.pipelineSummaryFn != nil {
		return f.pipelineSummaryFn(ctx, orgID)
	}
	return []store.StageSummary{}, nil
}

func (f *fakeStore) WonValueSince(ctx context.Context, orgID string, since time.Time) (float64, error) {
	if f.wonValueSinceFn != nil {
		return f.wonValueSinceFn(ctx, orgID, since)
	}
	return 0, nil
}

func (f *fakeStore) GetTask(ctx context.Context, orgID, taskID string) (store.Task, error) {
	if f.getTaskFn != nil {
		return f.getTaskFn(ctx, orgID, taskID)
	}
	return store.Task{}, sql.ErrNoRows
}

func (f *fakeStore) ListTasksForUser(ctx context.Context, userID string) ([]store.Task, error) {
	if f.listTasksForUserFn != nil {
		return f.listTasksForUserFn(ctx, userID)
	}
	return []store.Task{}, nil
}

func (f *fakeStore) InsertTask(ctx context.Context, task store.Task) error {
	if f.insertTaskFn != nil {
		return f.insertTaskFn(ctx, task)
	}
	return nil
}

func (f *fakeStore) UpdateTaskContent(ctx context.Context, orgID, taskID, title, description string) error {
	if f.updateTaskContentFn != nil {
		return f.updateTaskContentFn(ctx, orgID, taskID, title, description)
	}
	return nil
}

func (f *fakeStore) InsertTaskSwap(ctx context.Context, ts store.TaskSwap) (store.TaskSwap, error) {
	if f.insertTaskSwapFn != nil {
		return f.insertTaskSwapFn(ctx, ts)
	}
	ts.ID = 1
	ts.CreatedAt = time.Now()
	return ts, nil
}

func (f *fakeStore) CountSwapsInWeek(ctx context.Context, userID string, weekNumber int) (int, error) {
	if f.countSwapsInWeekFn != nil {
		return f.countSwapsInWeekFn(ctx, userID, weekNumber)
	}
	return 0, nil
}

func (f *fakeStore) ListTaskSwaps(ctx context.Context, taskID string) ([]store.TaskSwap, error) {
	if f.listTaskSwapsFn != nil {
		return f.listTaskSwapsFn(ctx, taskID)
	}
	return []store.TaskSwap{}, nil
}

func (f *fakeStore) ListObjectives(ctx context.Context, orgID string) ([]store.Objective, error) {
	if f.listObjectivesFn != nil {
		return f.listObjectivesFn(ctx, orgID)
	}
	return []store.Objective{}, nil
}

func (f *fakeStore) GetObjective(ctx context.Context, orgID, objectiveID string) (store.Objective, error) {
	if f.getObjectiveFn != nil {
		return f.getObjectiveFn(ctx, orgID, objectiveID)
	}
	return store.Objective{}, sql.ErrNoRows
}

func (f *fakeStore) InsertObjective(ctx context.Context, objective store.Objective) error {
	if f.insertObjectiveFn != nil {
		return f.insertObjectiveFn(ctx, objective)
	}
	return nil
}

func (f *fakeStore) ListKeyResults(ctx context.Context, objectiveID string) ([]store.KeyResult, error) {
	if f.listKeyResultsFn != nil {
		return f.listKeyResultsFn(ctx, objectiveID)
	}
	return []store.KeyResult{}, nil
}

func (f *fakeStore) InsertKeyResult(ctx context.Context, kr store.KeyResult) error {
	if f.insertKeyResultFn != nil {
		return f.insertKeyResultFn(ctx, kr)
	}
	return nil
}

func (f *fakeStore) UpdateKeyResultValue(ctx context.Context, keyResultID string, currentValue float64) (store.KeyResult, error) {
	if f.updateKeyResultValueFn != nil {
		return f.updateKeyResultValueFn(ctx, keyResultID, currentValue)
	}
	return store.KeyResult{}, sql.ErrNoRows
}

func (f *fakeStore) CountActiveObjectives(ctx context.Context, orgID string) (int, error) {
	if f.countActiveObjectivesFn != nil {
		return f.countActiveObjectivesFn(ctx, orgID)
	}
	return 0, nil
}

func (f *fakeStore) InsertAIGeneration(ctx context.Context, orgID, userID, kind string) error {
	if f.insertAIGenerationFn != nil {
		return f.insertAIGenerationFn(ctx, orgID, userID, kind)
	}
	return nil
}

func (f *fakeStore) CountAIGenerationsSince(ctx context.Context, orgID string, since time.Time) (int, error) {
	if f.countAIGenerationsSinceFn != nil {
		return f.countAIGenerationsSinceFn(ctx, orgID, since)
	}
	return 0, nil
}

func (f *fakeStore) InsertNotification(ctx context.Context, notification store.Notification) error {
	if f.insertNotificationFn != nil {
		return f.insertNotificationFn(ctx, notification)
	}
	return nil
}

func (f *fakeStore) ListNotifications(ctx context.Context, userID string, limit int) ([]store.Notification, error) {
	if f.listNotificationsFn != nil {
		return f.listNotificationsFn(ctx, userID, limit)
	}
	return []store.Notification{}, nil
}

func (f *fakeStore) MarkNotificationRead(ctx context.Context, userID string, notificationID int64) error {
	if f.markNotificationReadFn != nil {
		return f.markNotificationReadFn(ctx, userID, notificationID)
	}
	return nil
}

func (f *fakeStore) UpdateUserVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	return nil
}

func (f *fakeStore) VerifyUserEmail(ctx context.Context, token string) error {
	return nil
}

func (f *fakeStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	return nil
}

func (f *fakeStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	return nil
}

func (f *fakeStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	return "", sql.ErrNoRows
}

func (f *fakeStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	return nil
}

func (f *fakeStore) SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error {
	if f.saveRefreshSessionFn != nil {
		return f.saveRefreshSessionFn(ctx, tokenHash, user, expiresAt)
	}
	return nil
}

func (f *fakeStore) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	if f.lookupRefreshSessionFn != nil {
		return f.lookupRefreshSessionFn(ctx, tokenHash)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	if f.revokeRefreshSessionFn != nil {
		return f.revokeRefreshSessionFn(ctx, tokenHash)
	}
	return nil
}

func newTestService(fs *fakeStore) *Service {
	return &Service{
		cfg: config.Config{
			JWTSecret:  "test-secret",
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
		},
		store:    fs,
		sessions: fs,
		authPw:   authpw.NewService(fs),
		swaps:    swap.NewOrchestrator(fs, nil, nil),
	}
}

// userInStore wires GetUserByID so session lookup resolves the user.
func userInStore(fs *fakeStore, user store.User) {
	fs.getUserByIDFn = func(_ context.Context, userID string) (store.User, error) {
		if userID == user.ID {
			return user, nil
		}
		return store.User{}, sql.ErrNoRows
	}
}

func bearerFor(t *testing.T, svc *Service, user store.User) string {
	t.Helper()
	token, err := auth.IssueToken([]byte(svc.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Role: user.Role,
		Org:  user.OrgID,
		JTI:  "jti-test",
		Exp:  time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func doRequest(server *HTTPServer, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}
