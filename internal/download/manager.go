package download

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"e6dl/internal/config"
	"e6dl/internal/group"
	ioutils "e6dl/internal/io"
	"e6dl/internal/model"
	"golang.org/x/sync/errgroup"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a progress update from collection or download.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Manager coordinates post collection and downloads.
//
// Per-page and per-item failures are reported through the progress
// callback and never abort the batch; the only fatal conditions are the
// pre-flight page validation and failure to create the output root.
type Manager struct {
	settings *config.Settings
	searcher Searcher
	fetcher  Fetcher
	rules    []group.Rule

	totalFiles      int64
	downloadedFiles int64
	receivedBytes   int64
	totalBytes      int64

	onProgress func(ProgressEvent)
}

// NewManager creates a Manager. The searcher and fetcher are usually
// the same api.Client; tests substitute fakes.
//
// Group rule strings from the settings are parsed here; an invalid rule
// is a configuration error and fails construction.
func NewManager(settings *config.Settings, searcher Searcher, fetcher Fetcher, onProgress func(ProgressEvent)) (*Manager, error) {
	if settings.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", settings.Concurrency)
	}

	rules, err := group.ParseAll(settings.Groups)
	if err != nil {
		return nil, err
	}

	return &Manager{
		settings:   settings,
		searcher:   searcher,
		fetcher:    fetcher,
		rules:      rules,
		onProgress: onProgress,
	}, nil
}

// ValidatePageArgs checks that a multi-page run starts from an
// unsigned numeric page. The before/after cursor syntax only makes
// sense for a single query; with pages > 1 the collector must be able
// to count upwards from the start page, and the service has no
// negative pages.
func ValidatePageArgs(page string, pages int) error {
	if pages <= 1 {
		return nil
	}
	if _, err := strconv.ParseUint(page, 10, 32); err != nil {
		return fmt.Errorf("the page argument must be an unsigned number when pages > 1; before/after syntax is not supported")
	}
	return nil
}

// CollectPages queries the configured page range for tags and returns
// every post found, in page order.
//
// With Pages == 1 the configured page token is passed through verbatim
// (cursor syntax allowed) and a query error is returned to the caller.
//
// With Pages > 1 the collector scans sequentially from the start page:
//   - a non-empty page is appended and the scan continues
//   - the first empty page ends the scan (end of results, not an error)
//   - a failed page is reported and the scan continues with the next
//     page number, so one bad page does not lose the rest of the range
func (m *Manager) CollectPages(ctx context.Context, tags string) ([]model.Post, error) {
	if m.settings.Pages <= 1 {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Collecting posts from page %s...", m.settings.Page), Level: LevelInfo})
		return m.searcher.SearchPosts(ctx, tags, m.settings.Limit, m.settings.Page, m.settings.SFW)
	}

	start, err := strconv.ParseUint(m.settings.Page, 10, 32)
	if err != nil {
		// ValidatePageArgs runs before collection; reaching this means
		// the caller skipped it.
		return nil, fmt.Errorf("starting page %q is not an unsigned number: %w", m.settings.Page, err)
	}
	startPage := int(start)

	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Collecting posts from up to %d pages, starting with page %d...", m.settings.Pages, startPage),
		Level:   LevelInfo,
	})

	var allPosts []model.Post
	for pageNum := startPage; pageNum < startPage+m.settings.Pages; pageNum++ {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Collecting posts from page %d...", pageNum), Level: LevelVerbose})

		posts, err := m.searcher.SearchPosts(ctx, tags, m.settings.Limit, strconv.Itoa(pageNum), m.settings.SFW)
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Could not collect posts on page %d: %v", pageNum, err), Level: LevelError})
			continue
		}

		if len(posts) == 0 {
			m.progress(ProgressEvent{Message: fmt.Sprintf("No more posts on page %d; reached end of search results.", pageNum), Level: LevelInfo})
			break
		}

		allPosts = append(allPosts, posts...)
	}

	return allPosts, nil
}

// PlannedPath returns the local path a post will be saved to, applying
// the group rules: <out>[/<label>]/<id>.<ext>. Labels are sanitized so
// tag text can never escape the output directory.
func (m *Manager) PlannedPath(post *model.Post) string {
	dir := m.settings.OutDir
	if label, ok := group.Classify(m.rules, post); ok {
		dir = filepath.Join(dir, ioutils.SanitizeFileName(label))
	}
	return filepath.Join(dir, post.FileName())
}

// StartDownloads downloads every post through a pool of at most
// Concurrency concurrent workers. It returns once every post has been
// attempted.
//
// Individual failures (restricted asset, network error, directory or
// file write error) are reported through the progress callback and do
// not affect the other posts. StartDownloads itself only fails when the
// output root cannot be created.
func (m *Manager) StartDownloads(ctx context.Context, posts []model.Post) error {
	if err := ioutils.EnsureDir(m.settings.OutDir); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	atomic.StoreInt64(&m.totalFiles, int64(len(posts)))
	var total int64
	for i := range posts {
		total += posts[i].File.Size
	}
	atomic.StoreInt64(&m.totalBytes, total)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.settings.Concurrency)

	for i := range posts {
		post := &posts[i]
		g.Go(func() error {
			if err := m.downloadPost(ctx, post); err != nil {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading post %d: %v", post.ID, err), Level: LevelError})
				return nil // Continue with other posts
			}
			atomic.AddInt64(&m.downloadedFiles, 1)
			m.progress(ProgressEvent{Message: fmt.Sprintf("Done downloading post %d", post.ID), Level: LevelVerbose})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	m.progress(ProgressEvent{Message: "Done!", Level: LevelSuccess})
	return nil
}

// GetProgress returns current download progress. Received bytes count
// what actually arrived on the wire, not the sizes the metadata claims.
func (m *Manager) GetProgress() (received, total int64, filesDone, filesTotal int64) {
	return atomic.LoadInt64(&m.receivedBytes), atomic.LoadInt64(&m.totalBytes),
		atomic.LoadInt64(&m.downloadedFiles), atomic.LoadInt64(&m.totalFiles)
}

func (m *Manager) downloadPost(ctx context.Context, post *model.Post) error {
	dir := m.settings.OutDir
	if label, ok := group.Classify(m.rules, post); ok {
		dir = filepath.Join(dir, ioutils.SanitizeFileName(label))
		if err := ioutils.EnsureDir(dir); err != nil {
			return fmt.Errorf("create group directory: %w", err)
		}
	}

	if !post.HasFile() {
		return model.ErrNoFile
	}

	dest := filepath.Join(dir, post.FileName())
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloading post %d -> %s...", post.ID, dest), Level: LevelInfo})

	var written int64
	return m.fetcher.DownloadFile(ctx, *post.File.URL, dest, func(w, _ int64) {
		atomic.AddInt64(&m.receivedBytes, w-written)
		written = w
	})
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
