package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"e6dl/internal/config"
	"e6dl/internal/model"
)

// fakeSearcher serves canned pages and records which pages were queried.
type fakeSearcher struct {
	mu      sync.Mutex
	queried []string
	pages   map[string][]model.Post
	errs    map[string]error
}

func (f *fakeSearcher) SearchPosts(ctx context.Context, tags string, limit int, page string, sfw bool) ([]model.Post, error) {
	f.mu.Lock()
	f.queried = append(f.queried, page)
	f.mu.Unlock()

	if err := f.errs[page]; err != nil {
		return nil, err
	}
	return f.pages[page], nil
}

// fakeFetcher simulates downloads, tracking the peak number in flight.
// When progressSteps is set, each download reports those cumulative
// written-byte counts through onProgress, like a real streamed copy would.
type fakeFetcher struct {
	mu            sync.Mutex
	delay         time.Duration
	inFlight      int
	maxInFlight   int
	dests         []string
	errURLs       map[string]error
	writeFiles    bool
	progressSteps []int64
}

func (f *fakeFetcher) DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if onProgress != nil && len(f.progressSteps) > 0 {
		total := f.progressSteps[len(f.progressSteps)-1]
		for _, written := range f.progressSteps {
			onProgress(written, total)
		}
	}

	f.mu.Lock()
	f.inFlight--
	f.dests = append(f.dests, destPath)
	f.mu.Unlock()

	if err := f.errURLs[url]; err != nil {
		return err
	}
	if f.writeFiles {
		return os.WriteFile(destPath, []byte("data"), 0644)
	}
	return nil
}

// eventRecorder is a progress sink safe for concurrent workers.
type eventRecorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *eventRecorder) record(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) messagesAt(level ProgressLevel) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var msgs []string
	for _, e := range r.events {
		if e.Level == level {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

func testSettings(outDir string) *config.Settings {
	s := config.DefaultSettings()
	s.OutDir = outDir
	return s
}

func postWithFile(id int64, ext string) model.Post {
	url := fmt.Sprintf("https://static.example/%d.%s", id, ext)
	return model.Post{
		ID:   id,
		File: model.File{Ext: ext, Size: 100, URL: &url},
	}
}

func newTestManager(t *testing.T, settings *config.Settings, searcher Searcher, fetcher Fetcher, rec *eventRecorder) *Manager {
	t.Helper()
	m, err := NewManager(settings, searcher, fetcher, rec.record)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func TestValidatePageArgs(t *testing.T) {
	tests := []struct {
		page    string
		pages   int
		wantErr bool
	}{
		{"1", 1, false},
		{"b12345", 1, false},
		{"a99", 1, false},
		{"7", 5, false},
		{"b12345", 2, true},
		{"nonsense", 3, true},
		{"-3", 2, true}, // the service has no negative pages
		{"-3", 1, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.page, tt.pages), func(t *testing.T) {
			err := ValidatePageArgs(tt.page, tt.pages)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePageArgs(%q, %d) error = %v, wantErr %v", tt.page, tt.pages, err, tt.wantErr)
			}
		})
	}
}

func TestCollectPages_SinglePagePassthrough(t *testing.T) {
	searcher := &fakeSearcher{
		pages: map[string][]model.Post{
			"b100": {postWithFile(1, "png"), postWithFile(2, "jpg")},
		},
	}
	settings := testSettings(t.TempDir())
	settings.Page = "b100" // cursor syntax is fine for a single page
	settings.Pages = 1

	rec := &eventRecorder{}
	m := newTestManager(t, settings, searcher, &fakeFetcher{}, rec)

	posts, err := m.CollectPages(context.Background(), "canine")
	if err != nil {
		t.Fatalf("CollectPages() error = %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("CollectPages() returned %d posts, want 2", len(posts))
	}
	if len(searcher.queried) != 1 || searcher.queried[0] != "b100" {
		t.Errorf("queried pages = %v, want [b100]", searcher.queried)
	}
}

func TestCollectPages_SinglePageErrorPropagates(t *testing.T) {
	searcher := &fakeSearcher{
		errs: map[string]error{"1": fmt.Errorf("service unavailable")},
	}
	settings := testSettings(t.TempDir())

	rec := &eventRecorder{}
	m := newTestManager(t, settings, searcher, &fakeFetcher{}, rec)

	if _, err := m.CollectPages(context.Background(), "canine"); err == nil {
		t.Error("CollectPages() error = nil, want query error")
	}
}

func TestCollectPages_StopsAtEmptyPage(t *testing.T) {
	searcher := &fakeSearcher{
		pages: map[string][]model.Post{
			"1": {postWithFile(1, "png"), postWithFile(2, "png")},
			"2": {postWithFile(3, "png")},
			"3": {postWithFile(4, "png"), postWithFile(5, "png")},
			// page 4 is empty: end of results
			"5": {postWithFile(99, "png")}, // must never be queried
		},
	}
	settings := testSettings(t.TempDir())
	settings.Pages = 10

	rec := &eventRecorder{}
	m := newTestManager(t, settings, searcher, &fakeFetcher{}, rec)

	posts, err := m.CollectPages(context.Background(), "canine")
	if err != nil {
		t.Fatalf("CollectPages() error = %v", err)
	}

	wantIDs := []int64{1, 2, 3, 4, 5}
	if len(posts) != len(wantIDs) {
		t.Fatalf("CollectPages() returned %d posts, want %d", len(posts), len(wantIDs))
	}
	for i, want := range wantIDs {
		if posts[i].ID != want {
			t.Errorf("posts[%d].ID = %d, want %d (page order must be preserved)", i, posts[i].ID, want)
		}
	}

	// The empty page itself must be attempted, nothing past it.
	wantQueried := []string{"1", "2", "3", "4"}
	if len(searcher.queried) != len(wantQueried) {
		t.Fatalf("queried pages = %v, want %v", searcher.queried, wantQueried)
	}
	for i, want := range wantQueried {
		if searcher.queried[i] != want {
			t.Errorf("queried[%d] = %q, want %q", i, searcher.queried[i], want)
		}
	}
}

func TestCollectPages_ContinuesPastFailedPage(t *testing.T) {
	searcher := &fakeSearcher{
		pages: map[string][]model.Post{
			"1": {postWithFile(1, "png")},
			"3": {postWithFile(2, "png")},
			// page 4 empty
		},
		errs: map[string]error{"2": fmt.Errorf("timeout")},
	}
	settings := testSettings(t.TempDir())
	settings.Pages = 10

	rec := &eventRecorder{}
	m := newTestManager(t, settings, searcher, &fakeFetcher{}, rec)

	posts, err := m.CollectPages(context.Background(), "canine")
	if err != nil {
		t.Fatalf("CollectPages() error = %v", err)
	}

	if len(posts) != 2 || posts[0].ID != 1 || posts[1].ID != 2 {
		t.Errorf("posts = %v, want IDs [1 2]: failure must not halt the scan", posts)
	}

	errMsgs := rec.messagesAt(LevelError)
	if len(errMsgs) != 1 || !strings.Contains(errMsgs[0], "page 2") {
		t.Errorf("error events = %v, want one mentioning page 2", errMsgs)
	}
}

func TestCollectPages_BadStartWithMultiplePages(t *testing.T) {
	for _, page := range []string{"b12345", "-3"} {
		t.Run(page, func(t *testing.T) {
			settings := testSettings(t.TempDir())
			settings.Page = page
			settings.Pages = 3

			rec := &eventRecorder{}
			m := newTestManager(t, settings, &fakeSearcher{}, &fakeFetcher{}, rec)

			if _, err := m.CollectPages(context.Background(), "canine"); err == nil {
				t.Error("CollectPages() error = nil, want configuration error")
			}
		})
	}
}

func TestStartDownloads_ConcurrencyBound(t *testing.T) {
	const (
		n     = 6
		c     = 2
		delay = 30 * time.Millisecond
	)

	settings := testSettings(t.TempDir())
	settings.Concurrency = c

	fetcher := &fakeFetcher{delay: delay}
	rec := &eventRecorder{}
	m := newTestManager(t, settings, &fakeSearcher{}, fetcher, rec)

	posts := make([]model.Post, 0, n)
	for i := int64(1); i <= n; i++ {
		posts = append(posts, postWithFile(i, "png"))
	}

	start := time.Now()
	if err := m.StartDownloads(context.Background(), posts); err != nil {
		t.Fatalf("StartDownloads() error = %v", err)
	}
	elapsed := time.Since(start)

	// ceil(6/2) = 3 waves of the pool, each taking at least delay.
	if minimum := 3 * delay; elapsed < minimum {
		t.Errorf("elapsed = %v, want >= %v (pool bound not enforced)", elapsed, minimum)
	}
	if fetcher.maxInFlight > c {
		t.Errorf("maxInFlight = %d, want <= %d", fetcher.maxInFlight, c)
	}

	_, _, done, total := m.GetProgress()
	if done != n || total != n {
		t.Errorf("GetProgress() files = %d/%d, want %d/%d", done, total, n, n)
	}
}

func TestStartDownloads_PostWithoutFileIsReportedNotFatal(t *testing.T) {
	settings := testSettings(t.TempDir())

	restricted := model.Post{ID: 2, File: model.File{Ext: "png", URL: nil}}
	posts := []model.Post{postWithFile(1, "png"), restricted, postWithFile(3, "png")}

	fetcher := &fakeFetcher{}
	rec := &eventRecorder{}
	m := newTestManager(t, settings, &fakeSearcher{}, fetcher, rec)

	if err := m.StartDownloads(context.Background(), posts); err != nil {
		t.Fatalf("StartDownloads() error = %v", err)
	}

	if len(fetcher.dests) != 2 {
		t.Errorf("fetched %d posts, want 2 (restricted post must be skipped)", len(fetcher.dests))
	}

	errMsgs := rec.messagesAt(LevelError)
	if len(errMsgs) != 1 {
		t.Fatalf("error events = %v, want exactly one", errMsgs)
	}
	if !strings.Contains(errMsgs[0], "post 2") || !strings.Contains(errMsgs[0], model.ErrNoFile.Error()) {
		t.Errorf("error event %q should name post 2 and the missing-file cause", errMsgs[0])
	}

	_, _, done, _ := m.GetProgress()
	if done != 2 {
		t.Errorf("downloaded files = %d, want 2", done)
	}
}

func TestStartDownloads_FetchErrorSkipsOnlyThatPost(t *testing.T) {
	settings := testSettings(t.TempDir())

	posts := []model.Post{postWithFile(1, "png"), postWithFile(2, "png")}
	fetcher := &fakeFetcher{
		errURLs: map[string]error{*posts[0].File.URL: fmt.Errorf("connection reset")},
	}
	rec := &eventRecorder{}
	m := newTestManager(t, settings, &fakeSearcher{}, fetcher, rec)

	if err := m.StartDownloads(context.Background(), posts); err != nil {
		t.Fatalf("StartDownloads() error = %v", err)
	}

	_, _, done, _ := m.GetProgress()
	if done != 1 {
		t.Errorf("downloaded files = %d, want 1", done)
	}
	if msgs := rec.messagesAt(LevelError); len(msgs) != 1 {
		t.Errorf("error events = %v, want exactly one", msgs)
	}
}

func TestStartDownloads_CountsBytesActuallyReceived(t *testing.T) {
	settings := testSettings(t.TempDir())

	// Each post claims 100 bytes of metadata, but only 7 arrive.
	fetcher := &fakeFetcher{progressSteps: []int64{3, 7}}
	rec := &eventRecorder{}
	m := newTestManager(t, settings, &fakeSearcher{}, fetcher, rec)

	posts := []model.Post{postWithFile(1, "png"), postWithFile(2, "png")}
	if err := m.StartDownloads(context.Background(), posts); err != nil {
		t.Fatalf("StartDownloads() error = %v", err)
	}

	received, total, _, _ := m.GetProgress()
	if received != 14 {
		t.Errorf("received bytes = %d, want 14 (must track streamed bytes, not metadata sizes)", received)
	}
	if total != 200 {
		t.Errorf("total bytes = %d, want 200", total)
	}
}

func TestStartDownloads_GroupedPaths(t *testing.T) {
	outDir := t.TempDir()
	settings := testSettings(outDir)
	settings.Groups = []string{"pool", "rating"}

	pooled := postWithFile(1, "png")
	pooled.Pools = []int64{42}
	pooled.Rating = model.RatingSafe

	unpooled := postWithFile(2, "jpg")
	unpooled.Rating = model.RatingSafe

	fetcher := &fakeFetcher{writeFiles: true}
	rec := &eventRecorder{}
	m := newTestManager(t, settings, &fakeSearcher{}, fetcher, rec)

	if err := m.StartDownloads(context.Background(), []model.Post{pooled, unpooled}); err != nil {
		t.Fatalf("StartDownloads() error = %v", err)
	}

	// pool matched first for the pooled post; rating never consulted.
	wantPooled := filepath.Join(outDir, "collection_42", "1.png")
	wantUnpooled := filepath.Join(outDir, "safe", "2.jpg")
	for _, want := range []string{wantPooled, wantUnpooled} {
		if _, err := os.Stat(want); err != nil {
			t.Errorf("expected file at %s: %v", want, err)
		}
	}
}

func TestStartDownloads_NoRulesWritesUnderRoot(t *testing.T) {
	outDir := t.TempDir()
	settings := testSettings(outDir)

	fetcher := &fakeFetcher{writeFiles: true}
	rec := &eventRecorder{}
	m := newTestManager(t, settings, &fakeSearcher{}, fetcher, rec)

	if err := m.StartDownloads(context.Background(), []model.Post{postWithFile(7, "gif")}); err != nil {
		t.Fatalf("StartDownloads() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "7.gif")); err != nil {
		t.Errorf("expected file directly under output root: %v", err)
	}
}

func TestStartDownloads_SharedGroupDirectoryIsRaceFree(t *testing.T) {
	outDir := t.TempDir()
	settings := testSettings(outDir)
	settings.Groups = []string{"pool"}
	settings.Concurrency = 4

	var posts []model.Post
	for i := int64(1); i <= 12; i++ {
		p := postWithFile(i, "png")
		p.Pools = []int64{5}
		posts = append(posts, p)
	}

	fetcher := &fakeFetcher{writeFiles: true}
	rec := &eventRecorder{}
	m := newTestManager(t, settings, &fakeSearcher{}, fetcher, rec)

	if err := m.StartDownloads(context.Background(), posts); err != nil {
		t.Fatalf("StartDownloads() error = %v", err)
	}

	if msgs := rec.messagesAt(LevelError); len(msgs) != 0 {
		t.Errorf("error events = %v, want none (directory creation must be idempotent)", msgs)
	}
	_, _, done, _ := m.GetProgress()
	if int(done) != len(posts) {
		t.Errorf("downloaded files = %d, want %d", done, len(posts))
	}
}

func TestPlannedPath(t *testing.T) {
	outDir := "/tmp/out"

	slashed := postWithFile(9, "png")
	slashed.Tags.Artist = []string{"artist/name"}

	tests := []struct {
		name   string
		groups []string
		post   model.Post
		want   string
	}{
		{"no rules", nil, postWithFile(1, "png"), filepath.Join(outDir, "1.png")},
		{"rating", []string{"rating"}, postWithFile(2, "webm"), filepath.Join(outDir, "safe", "2.webm")},
		{"sanitized artist label", []string{"artist"}, slashed, filepath.Join(outDir, "artist_name", "9.png")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings(outDir)
			settings.Groups = tt.groups
			rec := &eventRecorder{}
			m := newTestManager(t, settings, &fakeSearcher{}, &fakeFetcher{}, rec)

			if got := m.PlannedPath(&tt.post); got != tt.want {
				t.Errorf("PlannedPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewManager_RejectsNonPositiveConcurrency(t *testing.T) {
	settings := testSettings(t.TempDir())
	settings.Concurrency = 0

	if _, err := NewManager(settings, &fakeSearcher{}, &fakeFetcher{}, nil); err == nil {
		t.Error("NewManager() error = nil, want concurrency error")
	}
}

func TestNewManager_InvalidGroupRule(t *testing.T) {
	settings := testSettings(t.TempDir())
	settings.Groups = []string{"pool", "bogus"}

	if _, err := NewManager(settings, &fakeSearcher{}, &fakeFetcher{}, nil); err == nil {
		t.Error("NewManager() error = nil, want rule parse error")
	}
}
