package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	LongTitle string `json:"longTitle"`
	Slug      string `json:"slug"`
	Type      string `json:"type"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a guideline title search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// GuidelineRecord is the data we index per guideline. The guidance number is
// the primary key so reindexing the same guideline replaces its entry.
type GuidelineRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	LongTitle string `json:"longTitle"`
	Slug      string `json:"slug"`
	Type      string `json:"type"`
}
