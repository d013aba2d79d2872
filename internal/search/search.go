package search

// Result is a single page hit returned to the caller.
type Result struct {
	PageID      string `json:"pageId"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	WorkspaceID string `json:"workspaceId"`
}

// Query describes a search request made on behalf of UserID. Only pages
// the user created, received a share for, or can see through one of
// WorkspaceIDs are returned.
type Query struct {
	Text         string
	UserID       string
	WorkspaceIDs []string
	// FilterWorkspaceID narrows the search to one workspace.
	FilterWorkspaceID string
	Limit             int
	Offset            int
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

// Indexer can push pages into a search index.
type Indexer interface {
	IndexPage(page PageRecord) error
	DeletePage(id string) error
}

// PageRecord is the data indexed for a page.
type PageRecord struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	WorkspaceID string   `json:"workspaceId"`
	CreatedBy   string   `json:"createdBy"`
	SharedWith  []string `json:"sharedWith"`
	IsArchived  bool     `json:"isArchived"`
}

func normalizeLimits(q Query) (int, int) {
	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
