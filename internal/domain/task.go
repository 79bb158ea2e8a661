package domain

// FetchSourceTask is the payload of a source-level dispatch job. The whole
// Source travels with the task; configuration is immutable for the duration
// of a fetch cycle.
type FetchSourceTask struct {
	Source Source `json:"source"`
}

// ProcessArticleTask is the payload of an article-level persistence job.
type ProcessArticleTask struct {
	SourceID int64             `json:"source_id"`
	Article  NormalizedArticle `json:"article"`
}
