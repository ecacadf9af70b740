package models

// FetchResult holds per-source counters for one ingestion pass.
// It is aggregated by the orchestrator and never persisted.
type FetchResult struct {
	Source   string   `json:"source"`
	Added    int      `json:"added"`
	Updated  int      `json:"updated"`
	Filtered int      `json:"filtered"`
	Errors   []string `json:"errors"`
}

// FetchSummary aggregates FetchResults across the sources of one
// orchestrator invocation.
type FetchSummary struct {
	SourcesProcessed int           `json:"sourcesProcessed"`
	ArticlesAdded    int           `json:"articlesAdded"`
	ImagesUpdated    int           `json:"imagesUpdated"`
	Errors           int           `json:"errors"`
	Details          []FetchResult `json:"details"`
}

// Merge folds one source's result into the summary.
func (s *FetchSummary) Merge(r FetchResult) {
	s.SourcesProcessed++
	s.ArticlesAdded += r.Added
	s.ImagesUpdated += r.Updated
	s.Errors += len(r.Errors)
	s.Details = append(s.Details, r)
}

// GroupInfo describes how the active source set is partitioned into
// fixed-size groups for incremental fetching.
type GroupInfo struct {
	TotalSources    int `json:"totalSources"`
	TotalGroups     int `json:"totalGroups"`
	SourcesPerGroup int `json:"sourcesPerGroup"`
}
