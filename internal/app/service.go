package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"traction/api/internal/ai"
	"traction/api/internal/auth"
	"traction/api/internal/authpw"
	"traction/api/internal/config"
	"traction/api/internal/email"
	"traction/api/internal/export"
	"traction/api/internal/notify"
	"traction/api/internal/okr"
	"traction/api/internal/pipeline"
	"traction/api/internal/quota"
	"traction/api/internal/rbac"
	"traction/api/internal/search"
	"traction/api/internal/store"
	"traction/api/internal/swap"
	"traction/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	OrgID        string
	Role         string
	SwapMode     string
	JTI          string
	ExpiresAt    time.Time
}

type LeadInput struct {
	Name            string     `json:"name"`
	Company         string     `json:"company"`
	EstimatedValue  float64    `json:"estimatedValue"`
	Probability     int        `json:"probability"`
	AssignedTo      string     `json:"assignedTo"`
	LastContactDate *time.Time `json:"lastContactDate"`
}

type TaskInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Area        string  `json:"area"`
	Phase       string  `json:"phase"`
	LeaderID    *string `json:"leaderId"`
}

type ObjectiveInput struct {
	Title      string     `json:"title"`
	Quarter    int        `json:"quarter"`
	Year       int        `json:"year"`
	Phase      string     `json:"phase"`
	TargetDate *time.Time `json:"targetDate"`
}

type KeyResultInput struct {
	Title       string  `json:"title"`
	StartValue  float64 `json:"startValue"`
	TargetValue float64 `json:"targetValue"`
	Weight      float64 `json:"weight"`
	MetricType  string  `json:"metricType"`
}

type dataStore interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user store.User) error
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	UpdateUserSwapMode(ctx context.Context, userID, mode string) error
	CountOrgUsers(ctx context.Context, orgID string) (int, error)
	GetOrganization(ctx context.Context, orgID string) (store.Organization, error)
	InsertOrganization(ctx context.Context, org store.Organization) error
	GetWeekStart(ctx context.Context) (time.Time, error)
	SetWeekStart(ctx context.Context, weekStart time.Time) error
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)

	ListLeads(ctx context.Context, orgID string) ([]store.Lead, error)
	GetLead(ctx context.Context, orgID, leadID string) (store.Lead, error)
	InsertLead(ctx context.Context, lead store.Lead) error
	UpdateLeadFields(ctx context.Context, orgID, leadID, name, company string, estimatedValue float64, probability int, assignedTo string, lastContactDate *time.Time) error
	UpdateLeadStage(ctx context.Context, orgID, leadID, pipelineStage, stage string, wonDate, lostDate *time.Time) error
	SoftDeleteLead(ctx context.Context, orgID, leadID string) error
	CountLeadsCreatedSince(ctx context.Context, orgID string, since time.Time) (int, error)
	PipelineSummary(ctx context.Context, orgID string) ([]store.StageSummary, error)
	WonValueSince(ctx context.Context, orgID string, since time.Time) (float64, error)

	GetTask(ctx context.Context, orgID, taskID string) (store.Task, error)
	ListTasksForUser(ctx context.Context, userID string) ([]store.Task, error)
	InsertTask(ctx context.Context, task store.Task) error
	UpdateTaskContent(ctx context.Context, orgID, taskID, title, description string) error
	InsertTaskSwap(ctx context.Context, swap store.TaskSwap) (store.TaskSwap, error)
	CountSwapsInWeek(ctx context.Context, userID string, weekNumber int) (int, error)
	ListTaskSwaps(ctx context.Context, taskID string) ([]store.TaskSwap, error)

	ListObjectives(ctx context.Context, orgID string) ([]store.Objective, error)
	GetObjective(ctx context.Context, orgID, objectiveID string) (store.Objective, error)
	InsertObjective(ctx context.Context, objective store.Objective) error
	ListKeyResults(ctx context.Context, objectiveID string) ([]store.KeyResult, error)
	InsertKeyResult(ctx context.Context, kr store.KeyResult) error
	UpdateKeyResultValue(ctx context.Context, keyResultID string, currentValue float64) (store.KeyResult, error)
	CountActiveObjectives(ctx context.Context, orgID string) (int, error)
	InsertAIGeneration(ctx context.Context, orgID, userID, kind string) error
	CountAIGenerationsSince(ctx context.Context, orgID string, since time.Time) (int, error)

	InsertNotification(ctx context.Context, notification store.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]store.Notification, error)
	MarkNotificationRead(ctx context.Context, userID string, notificationID int64) error
}

// sessionStore holds refresh tokens. Redis when configured, Postgres
// otherwise.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	search   *search.Service
	authPw   *authpw.Service
	email    *email.Service
	export   *export.Service
	swaps    *swap.Orchestrator
	ai       *ai.Client
}

func New(cfg config.Config, dataStore *store.PostgresStore, searchService *search.Service) *Service {
	return newService(cfg, dataStore, dataStore, searchService)
}

// NewWithSessionStore uses a dedicated refresh token backend (Redis)
// instead of Postgres.
func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions sessionStore, searchService *search.Service) *Service {
	return newService(cfg, dataStore, sessions, searchService)
}

func newService(cfg config.Config, dataStore *store.PostgresStore, sessions sessionStore, searchService *search.Service) *Service {
	s := &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		search:   searchService,
	}

	s.authPw = authpw.NewService(dataStore)
	s.email = email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})

	if strings.TrimSpace(cfg.AIGatewayURL) != "" {
		s.ai = ai.NewClient(cfg.AIGatewayURL, cfg.AIGatewayKey, cfg.AIModel)
	}

	notifier := notify.NewService(dataStore, s.email)
	var suggester swap.Suggester
	if s.ai != nil {
		suggester = s.ai
	}
	s.swaps = swap.NewOrchestrator(dataStore, suggester, notifier)

	return s
}

// SetExportService wires the report exporter. Separated from the
// constructor because the archiver needs its own connection setup.
func (s *Service) SetExportService(exportSvc *export.Service) {
	s.export = exportSvc
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap makes sure the shared week anchor exists. First boot on an
// empty database anchors the week counter to the most recent Monday.
func (s *Service) Bootstrap(ctx context.Context) error {
	if _, err := s.store.GetWeekStart(ctx); err == nil {
		return nil
	}

	now := time.Now().UTC()
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := now.AddDate(0, 0, -(weekday - 1)).Truncate(24 * time.Hour)
	return s.store.SetWeekStart(ctx, monday)
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authPw
}

// CheckSeatAvailable rejects joining an organization whose plan has no
// user seats left. Creating a fresh organization never consumes a seat
// from anyone else, so only the join path calls this.
func (s *Service) CheckSeatAvailable(ctx context.Context, orgID string) error {
	return s.checkPlanLimit(ctx, orgID, quota.ResourceUsers)
}

func (s *Service) EmailService() *email.Service {
	return s.email
}

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// Sessions

func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Role: user.Role,
		Org:  user.OrgID,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		OrgID:        user.OrgID,
		Role:         user.Role,
		SwapMode:     user.SwapMode,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		OrgID:     user.OrgID,
		Role:      user.Role,
		SwapMode:  user.SwapMode,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// Leads

func (s *Service) ListLeads(ctx context.Context, orgID string) ([]store.Lead, error) {
	return s.store.ListLeads(ctx, orgID)
}

func (s *Service) GetLead(ctx context.Context, orgID, leadID string) (store.Lead, error) {
	return s.store.GetLead(ctx, orgID, leadID)
}

func (s *Service) CreateLead(ctx context.Context, session Session, input LeadInput) (store.Lead, error) {
	if strings.TrimSpace(input.Name) == "" {
		return store.Lead{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Lead name is required", map[string]any{"field": "name"})
	}

	if err := s.checkPlanLimit(ctx, session.OrgID, quota.ResourceLeads); err != nil {
		return store.Lead{}, err
	}

	lead := store.Lead{
		ID:              util.NewID("lead"),
		OrgID:           session.OrgID,
		Name:            input.Name,
		Company:         input.Company,
		EstimatedValue:  input.EstimatedValue,
		Probability:     input.Probability,
		AssignedTo:      input.AssignedTo,
		CreatedBy:       session.UserID,
		LastContactDate: input.LastContactDate,
	}
	if err := s.store.InsertLead(ctx, lead); err != nil {
		return store.Lead{}, err
	}

	created, err := s.store.GetLead(ctx, session.OrgID, lead.ID)
	if err != nil {
		return store.Lead{}, err
	}
	s.indexLead(created)
	return created, nil
}

func (s *Service) UpdateLead(ctx context.Context, session Session, leadID string, input LeadInput) (store.Lead, error) {
	if strings.TrimSpace(input.Name) == "" {
		return store.Lead{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Lead name is required", map[string]any{"field": "name"})
	}
	if err := s.store.UpdateLeadFields(ctx, session.OrgID, leadID, input.Name, input.Company, input.EstimatedValue, input.Probability, input.AssignedTo, input.LastContactDate); err != nil {
		return store.Lead{}, err
	}
	updated, err := s.store.GetLead(ctx, session.OrgID, leadID)
	if err != nil {
		return store.Lead{}, err
	}
	s.indexLead(updated)
	return updated, nil
}

func (s *Service) DeleteLead(ctx context.Context, session Session, leadID string) error {
	if err := s.store.SoftDeleteLead(ctx, session.OrgID, leadID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteLead(leadID)
	}
	return nil
}

// MoveLeadStage moves a lead through the pipeline and derives the
// coarse status and terminal dates.
func (s *Service) MoveLeadStage(ctx context.Context, session Session, leadID string, target pipeline.Stage) (store.Lead, bool, error) {
	if !pipeline.Valid(target) {
		return store.Lead{}, false, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown pipeline stage", map[string]any{"field": "pipelineStage", "value": string(target)})
	}

	lead, err := s.store.GetLead(ctx, session.OrgID, leadID)
	if err != nil {
		return store.Lead{}, false, err
	}

	state := pipeline.LeadState{
		PipelineStage: pipeline.Stage(lead.PipelineStage),
		WonDate:       lead.WonDate,
		LostDate:      lead.LostDate,
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	update, moved := pipeline.ApplyStageMove(state, target, today)
	if !moved {
		return lead, false, nil
	}

	if err := s.store.UpdateLeadStage(ctx, session.OrgID, leadID, string(update.PipelineStage), update.Stage, update.WonDate, update.LostDate); err != nil {
		return store.Lead{}, false, err
	}

	updated, err := s.store.GetLead(ctx, session.OrgID, leadID)
	if err != nil {
		return store.Lead{}, false, err
	}
	s.indexLead(updated)
	return updated, true, nil
}

func (s *Service) indexLead(lead store.Lead) {
	if s.search == nil {
		return
	}
	s.search.IndexLead(search.LeadRecord{
		ID:            lead.ID,
		Name:          lead.Name,
		Company:       lead.Company,
		OrgID:         lead.OrgID,
		PipelineStage: lead.PipelineStage,
	})
}

// Tasks and swaps

func (s *Service) ListTasks(ctx context.Context, session Session) ([]store.Task, error) {
	return s.store.ListTasksForUser(ctx, session.UserID)
}

func (s *Service) CreateTask(ctx context.Context, session Session, input TaskInput) (store.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return store.Task{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Task title is required", map[string]any{"field": "title"})
	}

	task := store.Task{
		ID:          util.NewID("tsk"),
		OrgID:       session.OrgID,
		UserID:      session.UserID,
		LeaderID:    input.LeaderID,
		Title:       input.Title,
		Description: input.Description,
		Area:        input.Area,
		Phase:       input.Phase,
	}
	if err := s.store.InsertTask(ctx, task); err != nil {
		return store.Task{}, err
	}

	created, err := s.store.GetTask(ctx, session.OrgID, task.ID)
	if err != nil {
		return store.Task{}, err
	}
	if s.search != nil {
		s.search.IndexTask(search.TaskRecord{
			ID:          created.ID,
			Title:       created.Title,
			Description: created.Description,
			OrgID:       created.OrgID,
			Area:        created.Area,
		})
	}
	return created, nil
}

func (s *Service) ProposeSwap(ctx context.Context, session Session, taskID string) (swap.Proposal, error) {
	return s.swaps.Propose(ctx, session.OrgID, session.UserID, taskID)
}

func (s *Service) ConfirmSwap(ctx context.Context, session Session, req swap.ConfirmRequest) (swap.ConfirmResult, error) {
	result, err := s.swaps.Confirm(ctx, session.OrgID, session.UserID, req)
	if err != nil {
		return swap.ConfirmResult{}, err
	}
	if s.search != nil {
		s.search.IndexTask(search.TaskRecord{
			ID:          result.Task.ID,
			Title:       result.Task.Title,
			Description: result.Task.Description,
			OrgID:       result.Task.OrgID,
			Area:        result.Task.Area,
		})
	}
	return result, nil
}

func (s *Service) SwapQuota(ctx context.Context, session Session) (quota.Status, quota.Mode, int, error) {
	return s.swaps.QuotaStatus(ctx, session.UserID)
}

func (s *Service) ListTaskSwaps(ctx context.Context, session Session, taskID string) ([]store.TaskSwap, error) {
	// Visibility follows the task itself.
	if _, err := s.store.GetTask(ctx, session.OrgID, taskID); err != nil {
		return nil, err
	}
	return s.store.ListTaskSwaps(ctx, taskID)
}

func (s *Service) SetSwapMode(ctx context.Context, session Session, mode string) error {
	if !quota.ValidMode(quota.Mode(mode)) {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown swap mode", map[string]any{"field": "swapMode", "value": mode})
	}
	return s.store.UpdateUserSwapMode(ctx, session.UserID, mode)
}

// SetWeekStart moves the shared week anchor. Takes effect on the next
// quota check; no running counters are rewritten.
func (s *Service) SetWeekStart(ctx context.Context, weekStart time.Time) error {
	return s.store.SetWeekStart(ctx, weekStart)
}

// Objectives

type ObjectiveView struct {
	Objective  store.Objective   `json:"objective"`
	KeyResults []store.KeyResult `json:"keyResults"`
	Progress   float64           `json:"progress"`
	AtRisk     bool              `json:"atRisk"`
}

func (s *Service) ListObjectives(ctx context.Context, orgID string) ([]ObjectiveView, error) {
	objectives, err := s.store.ListObjectives(ctx, orgID)
	if err != nil {
		return nil, err
	}

	views := make([]ObjectiveView, 0, len(objectives))
	for _, objective := range objectives {
		krs, err := s.store.ListKeyResults(ctx, objective.ID)
		if err != nil {
			return nil, err
		}
		progress := okr.ObjectiveProgress(krs)
		views = append(views, ObjectiveView{
			Objective:  objective,
			KeyResults: krs,
			Progress:   progress,
			AtRisk:     okr.AtRisk(progress),
		})
	}
	return views, nil
}

func (s *Service) GetObjective(ctx context.Context, orgID, objectiveID string) (ObjectiveView, error) {
	objective, err := s.store.GetObjective(ctx, orgID, objectiveID)
	if err != nil {
		return ObjectiveView{}, err
	}
	krs, err := s.store.ListKeyResults(ctx, objective.ID)
	if err != nil {
		return ObjectiveView{}, err
	}
	progress := okr.ObjectiveProgress(krs)
	return ObjectiveView{
		Objective:  objective,
		KeyResults: krs,
		Progress:   progress,
		AtRisk:     okr.AtRisk(progress),
	}, nil
}

func (s *Service) CreateObjective(ctx context.Context, session Session, input ObjectiveInput) (store.Objective, error) {
	if strings.TrimSpace(input.Title) == "" {
		return store.Objective{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Objective title is required", map[string]any{"field": "title"})
	}
	if input.Quarter < 1 || input.Quarter > 4 {
		return store.Objective{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Quarter must be 1 through 4", map[string]any{"field": "quarter"})
	}

	if err := s.checkPlanLimit(ctx, session.OrgID, quota.ResourceObjectives); err != nil {
		return store.Objective{}, err
	}

	objective := store.Objective{
		ID:          util.NewID("obj"),
		OrgID:       session.OrgID,
		OwnerUserID: session.UserID,
		Title:       input.Title,
		Quarter:     input.Quarter,
		Year:        input.Year,
		Phase:       input.Phase,
		TargetDate:  input.TargetDate,
	}
	if input.Year == 0 {
		objective.Year = time.Now().UTC().Year()
	}
	if err := s.store.InsertObjective(ctx, objective); err != nil {
		return store.Objective{}, err
	}

	created, err := s.store.GetObjective(ctx, session.OrgID, objective.ID)
	if err != nil {
		return store.Objective{}, err
	}
	if s.search != nil {
		s.search.IndexObjective(search.ObjectiveRecord{
			ID:      created.ID,
			Title:   created.Title,
			OrgID:   created.OrgID,
			Quarter: created.Quarter,
			Year:    created.Year,
		})
	}
	return created, nil
}

func (s *Service) AddKeyResult(ctx context.Context, session Session, objectiveID string, input KeyResultInput) (store.KeyResult, error) {
	if strings.TrimSpace(input.Title) == "" {
		return store.KeyResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Key result title is required", map[string]any{"field": "title"})
	}
	if _, err := s.store.GetObjective(ctx, session.OrgID, objectiveID); err != nil {
		return store.KeyResult{}, err
	}

	kr := store.KeyResult{
		ID:           util.NewID("kr"),
		ObjectiveID:  objectiveID,
		Title:        input.Title,
		StartValue:   input.StartValue,
		TargetValue:  input.TargetValue,
		CurrentValue: input.StartValue,
		Weight:       input.Weight,
		MetricType:   input.MetricType,
	}
	if err := s.store.InsertKeyResult(ctx, kr); err != nil {
		return store.KeyResult{}, err
	}
	return kr, nil
}

func (s *Service) UpdateKeyResultValue(ctx context.Context, session Session, objectiveID, keyResultID string, currentValue float64) (ObjectiveView, error) {
	if _, err := s.store.GetObjective(ctx, session.OrgID, objectiveID); err != nil {
		return ObjectiveView{}, err
	}
	if _, err := s.store.UpdateKeyResultValue(ctx, keyResultID, currentValue); err != nil {
		return ObjectiveView{}, err
	}
	return s.GetObjective(ctx, session.OrgID, objectiveID)
}

// GenerateObjective drafts an objective with the AI gateway and
// persists it with its key results. Counts against the plan's monthly
// AI budget.
func (s *Service) GenerateObjective(ctx context.Context, session Session, prompt string, quarter, year int) (ObjectiveView, error) {
	if s.ai == nil {
		return ObjectiveView{}, domainError(http.StatusServiceUnavailable, "AI_UNAVAILABLE", "AI generation is not configured", nil)
	}
	if strings.TrimSpace(prompt) == "" {
		return ObjectiveView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Prompt is required", map[string]any{"field": "prompt"})
	}
	if quarter < 1 || quarter > 4 {
		return ObjectiveView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Quarter must be 1 through 4", map[string]any{"field": "quarter"})
	}
	if year == 0 {
		year = time.Now().UTC().Year()
	}

	if err := s.checkPlanLimit(ctx, session.OrgID, quota.ResourceAIGenerations); err != nil {
		return ObjectiveView{}, err
	}
	if err := s.checkPlanLimit(ctx, session.OrgID, quota.ResourceObjectives); err != nil {
		return ObjectiveView{}, err
	}

	draft, err := s.ai.GenerateObjective(ctx, prompt, quarter, year)
	if err != nil {
		return ObjectiveView{}, err
	}

	objective := store.Objective{
		ID:          util.NewID("obj"),
		OrgID:       session.OrgID,
		OwnerUserID: session.UserID,
		Title:       draft.Title,
		Quarter:     quarter,
		Year:        year,
	}
	if err := s.store.InsertObjective(ctx, objective); err != nil {
		return ObjectiveView{}, err
	}
	for _, kr := range draft.KeyResults {
		if strings.TrimSpace(kr.Title) == "" {
			continue
		}
		if err := s.store.InsertKeyResult(ctx, store.KeyResult{
			ID:          util.NewID("kr"),
			ObjectiveID: objective.ID,
			Title:       kr.Title,
			TargetValue: kr.TargetValue,
		}); err != nil {
			return ObjectiveView{}, err
		}
	}
	if err := s.store.InsertAIGeneration(ctx, session.OrgID, session.UserID, "objective"); err != nil {
		return ObjectiveView{}, err
	}

	if s.search != nil {
		s.search.IndexObjective(search.ObjectiveRecord{
			ID:      objective.ID,
			Title:   objective.Title,
			OrgID:   objective.OrgID,
			Quarter: quarter,
			Year:    year,
		})
	}
	return s.GetObjective(ctx, session.OrgID, objective.ID)
}

// Notifications

func (s *Service) ListNotifications(ctx context.Context, session Session, limit int) ([]store.Notification, error) {
	return s.store.ListNotifications(ctx, session.UserID, limit)
}

func (s *Service) MarkNotificationRead(ctx context.Context, session Session, notificationID int64) error {
	return s.store.MarkNotificationRead(ctx, session.UserID, notificationID)
}

// Dashboard

func (s *Service) DashboardSummary(ctx context.Context, session Session) (map[string]any, error) {
	stages, err := s.store.PipelineSummary(ctx, session.OrgID)
	if err != nil {
		return nil, err
	}

	monthStart := quota.MonthStart(time.Now())
	wonValue, err := s.store.WonValueSince(ctx, session.OrgID, monthStart)
	if err != nil {
		return nil, err
	}

	objectives, err := s.ListObjectives(ctx, session.OrgID)
	if err != nil {
		return nil, err
	}
	atRisk := 0
	for _, view := range objectives {
		if view.AtRisk && view.Objective.Status == "active" {
			atRisk++
		}
	}

	status, mode, week, err := s.SwapQuota(ctx, session)
	if err != nil {
		return nil, err
	}

	var openValue float64
	stagePayload := make([]map[string]any, 0, len(stages))
	for _, stage := range stages {
		if stage.PipelineStage != string(pipeline.StageClosedWon) && stage.PipelineStage != string(pipeline.StageClosedLost) {
			openValue += stage.TotalValue
		}
		stagePayload = append(stagePayload, map[string]any{
			"pipelineStage": stage.PipelineStage,
			"count":         stage.Count,
			"totalValue":    stage.TotalValue,
		})
	}

	return map[string]any{
		"pipeline":          stagePayload,
		"openPipelineValue": openValue,
		"wonThisMonth":      wonValue,
		"objectives":        len(objectives),
		"objectivesAtRisk":  atRisk,
		"swapQuota": map[string]any{
			"mode":      string(mode),
			"week":      week,
			"limit":     status.Limit,
			"current":   status.Current,
			"remaining": status.Remaining,
		},
	}, nil
}

// Search

func (s *Service) Search(ctx context.Context, session Session, text, filterType string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(search.Query{
		Text:       text,
		OrgID:      session.OrgID,
		FilterType: search.ResultType(filterType),
		Limit:      limit,
		Offset:     offset,
	}), nil
}

// Reports

func (s *Service) ExportPipelineReport(ctx context.Context, session Session, format export.Format) (*export.Result, error) {
	if s.export == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Report export is not configured", nil)
	}
	return s.export.Export(ctx, export.Request{OrgID: session.OrgID, Format: format})
}

// Plan quota

func (s *Service) PlanUsage(ctx context.Context, session Session) (map[string]any, error) {
	org, err := s.store.GetOrganization(ctx, session.OrgID)
	if err != nil {
		return nil, err
	}
	plan := quota.Plan(org.Plan)
	monthStart := quota.MonthStart(time.Now())

	users, err := s.store.CountOrgUsers(ctx, session.OrgID)
	if err != nil {
		return nil, err
	}
	leads, err := s.store.CountLeadsCreatedSince(ctx, session.OrgID, monthStart)
	if err != nil {
		return nil, err
	}
	objectives, err := s.store.CountActiveObjectives(ctx, session.OrgID)
	if err != nil {
		return nil, err
	}
	generations, err := s.store.CountAIGenerationsSince(ctx, session.OrgID, monthStart)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"plan": org.Plan,
		"usage": map[string]any{
			"users":         quota.Evaluate(quota.PlanLimit(plan, quota.ResourceUsers), users),
			"leads":         quota.Evaluate(quota.PlanLimit(plan, quota.ResourceLeads), leads),
			"objectives":    quota.Evaluate(quota.PlanLimit(plan, quota.ResourceObjectives), objectives),
			"aiGenerations": quota.Evaluate(quota.PlanLimit(plan, quota.ResourceAIGenerations), generations),
		},
	}, nil
}

func (s *Service) checkPlanLimit(ctx context.Context, orgID string, resource quota.Resource) error {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return err
	}
	plan := quota.Plan(org.Plan)
	limit := quota.PlanLimit(plan, resource)
	if limit == quota.Unlimited {
		return nil
	}

	var current int
	switch resource {
	case quota.ResourceUsers:
		current, err = s.store.CountOrgUsers(ctx, orgID)
	case quota.ResourceLeads:
		current, err = s.store.CountLeadsCreatedSince(ctx, orgID, quota.MonthStart(time.Now()))
	case quota.ResourceObjectives:
		current, err = s.store.CountActiveObjectives(ctx, orgID)
	case quota.ResourceAIGenerations:
		current, err = s.store.CountAIGenerationsSince(ctx, orgID, quota.MonthStart(time.Now()))
	default:
		return fmt.Errorf("unknown plan resource %q", resource)
	}
	if err != nil {
		return err
	}

	status := quota.Evaluate(limit, current)
	if !status.Allowed {
		return domainError(http.StatusTooManyRequests, "PLAN_LIMIT_REACHED", fmt.Sprintf("Plan limit reached for %s", resource), map[string]any{
			"resource": string(resource),
			"plan":     org.Plan,
			"limit":    status.Limit,
			"current":  status.Current,
		})
	}
	return nil
}
