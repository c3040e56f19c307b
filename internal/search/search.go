package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultLead      ResultType = "lead"
	ResultTask      ResultType = "task"
	ResultObjective ResultType = "objective"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	OrgID   string     `json:"orgId"`
	Stage   string     `json:"stage,omitempty"`
}

// Query describes a search request. OrgID is mandatory: results never
// cross tenant boundaries.
type Query struct {
	Text       string
	OrgID      string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexLead(l LeadRecord) error
	IndexTask(t TaskRecord) error
	IndexObjective(o ObjectiveRecord) error
	DeleteLead(id string) error
	DeleteTask(id string) error
}

// LeadRecord is the data we index for a lead.
type LeadRecord struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Company       string `json:"company"`
	OrgID         string `json:"orgId"`
	PipelineStage string `json:"pipelineStage"`
}

// TaskRecord is the data we index for a task.
type TaskRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OrgID       string `json:"orgId"`
	Area        string `json:"area"`
}

// ObjectiveRecord is the data we index for an objective.
type ObjectiveRecord struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	OrgID   string `json:"orgId"`
	Quarter int    `json:"quarter"`
	Year    int    `json:"year"`
}
