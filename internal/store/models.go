package store

import "time"

type User struct {
	ID                    string
	OrgID                 string
	DisplayName           string
	Email                 string
	PasswordHash          string
	Role                  string
	SwapMode              string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Organization struct {
	ID        string
	Name      string
	Plan      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Lead carries two stage vocabularies: pipeline_stage is canonical (the
// kanban position), stage is the coarser reporting field derived from it.
type Lead struct {
	ID              string
	OrgID           string
	Name            string
	Company         string
	Stage           string
	PipelineStage   string
	EstimatedValue  float64
	Probability     int
	AssignedTo      string
	CreatedBy       string
	LastContactDate *time.Time
	WonDate         *time.Time
	LostDate        *time.Time
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Task swap authority follows LeaderID: nil means the assignee owns the
// task outright, non-nil means the leader alone may redefine it.
type Task struct {
	ID          string
	OrgID       string
	UserID      string
	LeaderID    *string
	Title       string
	Description string
	Area        string
	Phase       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskSwap is an immutable audit record, written exactly once per
// successful swap and never updated or deleted.
type TaskSwap struct {
	ID             int64
	TaskID         string
	UserID         string
	OldTitle       string
	NewTitle       string
	OldDescription string
	NewDescription string
	WeekNumber     int
	Mode           string
	LeaderComment  *string
	CreatedAt      time.Time
}

type Objective struct {
	ID          string
	OrgID       string
	OwnerUserID string
	Title       string
	Quarter     int
	Year        int
	Phase       string
	Status      string
	TargetDate  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type KeyResult struct {
	ID           string
	ObjectiveID  string
	Title        string
	StartValue   float64
	TargetValue  float64
	CurrentValue float64
	Weight       float64
	MetricType   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Notification struct {
	ID        int64
	UserID    string
	Kind      string
	Title     string
	Body      string
	ReadAt    *time.Time
	CreatedAt time.Time
}

// StageSummary is one row of the pipeline dashboard grouping.
type StageSummary struct {
	PipelineStage string
	Count         int
	TotalValue    float64
}
