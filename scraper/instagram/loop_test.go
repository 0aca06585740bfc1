package instagram

import (
	"context"
	"errors"
	"testing"

	"instagram-scraper/models"
	"instagram-scraper/telemetry"
	"instagram-scraper/utils"
)

// fakeDriver serves a scripted sequence of posts to the loop.
type fakeDriver struct {
	posts     []*models.Post
	openFails bool
	failAt    map[int]bool // extraction failures by 1-based post index
	endless   bool         // "next" never disappears; repeat last post
	idx       int
	advanced  int
}

func (d *fakeDriver) OpenFirstPost(ctx context.Context) (bool, error) {
	return !d.openFails && len(d.posts) > 0, nil
}

func (d *fakeDriver) PreparePost(ctx context.Context) error { return nil }

func (d *fakeDriver) ExtractPost(ctx context.Context) (*models.Post, error) {
	if d.failAt[d.idx+1] {
		d.idx++
		return nil, errors.New("dialog selector timed out")
	}
	if d.idx >= len(d.posts) {
		// endless mode keeps re-serving the final post
		return d.posts[len(d.posts)-1], nil
	}
	p := d.posts[d.idx]
	d.idx++
	return p, nil
}

func (d *fakeDriver) Advance(ctx context.Context) (bool, error) {
	d.advanced++
	if d.endless {
		return true, nil
	}
	return d.idx < len(d.posts), nil
}

// recordingWriter counts rows the way the CSV writer would emit them.
type recordingWriter struct {
	posts []*models.Post
	rows  int
	fail  bool
}

func (w *recordingWriter) WritePost(p *models.Post) error {
	if w.fail {
		return errors.New("disk full")
	}
	w.posts = append(w.posts, p)
	w.rows += p.RowCount()
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func post(url string, comments ...models.Comment) *models.Post {
	return &models.Post{
		URL:      url,
		Caption:  models.OKField("caption"),
		OCRText:  models.MissingField(),
		Comments: comments,
	}
}

func runTestLoop(t *testing.T, d *fakeDriver, w *recordingWriter, maxPosts int) (*Result, *telemetry.Recorder, error) {
	t.Helper()
	rec := &telemetry.Recorder{}
	result, err := runLoop(context.Background(), d, w, maxPosts, utils.NewLogger(), rec)
	return result, rec, err
}

// Profile has 3 posts: 2 comments, 0 comments, 1 comment; "next"
// disappears after the third. Expect 4 data rows and a natural end.
func TestLoopRowCountScenario(t *testing.T) {
	d := &fakeDriver{posts: []*models.Post{
		post("https://www.instagram.com/p/1/",
			models.Comment{Username: "a", Text: "x"},
			models.Comment{Username: "b", Text: "y"}),
		post("https://www.instagram.com/p/2/"),
		post("https://www.instagram.com/p/3/",
			models.Comment{Username: "c", Text: "z"}),
	}}
	w := &recordingWriter{}

	result, _, err := runTestLoop(t, d, w, 20)
	if err != nil {
		t.Fatalf("runLoop: %v", err)
	}
	if result.Processed != 3 {
		t.Errorf("Processed: got %d, want 3", result.Processed)
	}
	if w.rows != 4 {
		t.Errorf("rows: got %d, want 4", w.rows)
	}
	if result.Reason != endedByExhaustion {
		t.Errorf("Reason: got %q, want %q", result.Reason, endedByExhaustion)
	}
}

func TestLoopDiscoveryFailureWritesNothing(t *testing.T) {
	d := &fakeDriver{openFails: true, posts: []*models.Post{post("https://www.instagram.com/p/1/")}}
	w := &recordingWriter{}

	result, rec, err := runTestLoop(t, d, w, 20)
	if err != nil {
		t.Fatalf("runLoop: %v", err)
	}
	if result.Processed != 0 || w.rows != 0 {
		t.Errorf("expected zero posts and rows, got %d posts, %d rows", result.Processed, w.rows)
	}
	if rec.Count(telemetry.PhaseFailure) != 1 {
		t.Errorf("expected 1 phase failure event, got %d", rec.Count(telemetry.PhaseFailure))
	}
}

func TestLoopHonorsPostCap(t *testing.T) {
	var posts []*models.Post
	for i := 0; i < 30; i++ {
		posts = append(posts, post("https://www.instagram.com/p/"+string(rune('a'+i))+"/"))
	}
	d := &fakeDriver{posts: posts}
	w := &recordingWriter{}

	result, _, err := runTestLoop(t, d, w, 20)
	if err != nil {
		t.Fatalf("runLoop: %v", err)
	}
	if result.Processed != 20 {
		t.Errorf("Processed: got %d, want 20", result.Processed)
	}
	if result.Reason != endedByCap {
		t.Errorf("Reason: got %q, want %q", result.Reason, endedByCap)
	}
	// Hitting the cap must not click "next" a 20th time for a post
	// that will never be processed.
	if d.advanced != 19 {
		t.Errorf("advanced: got %d, want 19", d.advanced)
	}
}

func TestLoopSkipsFailedExtraction(t *testing.T) {
	d := &fakeDriver{
		posts: []*models.Post{
			post("https://www.instagram.com/p/1/", models.Comment{Username: "a", Text: "x"}),
			post("https://www.instagram.com/p/2/"),
			post("https://www.instagram.com/p/3/"),
		},
		failAt: map[int]bool{2: true},
	}
	w := &recordingWriter{}

	result, rec, err := runTestLoop(t, d, w, 20)
	if err != nil {
		t.Fatalf("runLoop: %v", err)
	}
	if result.Processed != 3 {
		t.Errorf("Processed: got %d, want 3 (failed post still counts)", result.Processed)
	}
	if len(w.posts) != 2 {
		t.Errorf("written posts: got %d, want 2", len(w.posts))
	}
	if rec.Count(telemetry.PhaseFailure) != 1 {
		t.Errorf("expected 1 failure event, got %d", rec.Count(telemetry.PhaseFailure))
	}
}

func TestLoopStopsOnRevisitedPost(t *testing.T) {
	d := &fakeDriver{
		posts:   []*models.Post{post("https://www.instagram.com/p/stuck/")},
		endless: true,
	}
	w := &recordingWriter{}

	result, _, err := runTestLoop(t, d, w, 20)
	if err != nil {
		t.Fatalf("runLoop: %v", err)
	}
	if result.Processed != 1 {
		t.Errorf("Processed: got %d, want 1", result.Processed)
	}
	if result.Reason != endedByRevisit {
		t.Errorf("Reason: got %q, want %q", result.Reason, endedByRevisit)
	}
}

func TestLoopWriteErrorAbortsRun(t *testing.T) {
	d := &fakeDriver{posts: []*models.Post{
		post("https://www.instagram.com/p/1/"),
		post("https://www.instagram.com/p/2/"),
	}}
	w := &recordingWriter{fail: true}

	_, _, err := runTestLoop(t, d, w, 20)
	if err == nil {
		t.Fatal("expected error when writer fails")
	}
}
