package download

import (
	"context"

	"e6dl/internal/model"
)

// Searcher queries one page of search results from the posts service.
type Searcher interface {
	SearchPosts(ctx context.Context, tags string, limit int, page string, sfw bool) ([]model.Post, error)
}

// Fetcher streams a remote asset to a local file.
type Fetcher interface {
	DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) error
}
