package queue

// Queue and task kind names shared by producers and the worker.
const (
	QueueFetchArticles   = "fetch-articles"
	QueueProcessArticles = "process-articles"

	KindFetchSource    = "fetch_source"
	KindProcessArticle = "process_article"
)
