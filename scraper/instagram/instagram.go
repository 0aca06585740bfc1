package instagram

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"instagram-scraper/config"
	"instagram-scraper/models"
	"instagram-scraper/ocr"
	"instagram-scraper/storage"
	"instagram-scraper/telemetry"
	"instagram-scraper/utils"
)

const baseURL = "https://www.instagram.com"

// Selectors tied to Instagram's current markup. A silent UI change
// breaks these without any error beyond "no posts found".
const (
	selUsername  = `input[name="username"]`
	selPassword  = `input[name="password"]`
	selSubmit    = `button[type="submit"]`
	selFirstPost = `div.x1lliihq.x1n2onr6.xh8yej3 a[href^="/p/"]`
	selDialog    = `div[role="dialog"]`
	selImage     = `div[role="dialog"] div._aagu img`
)

// Scraper orchestrates one sequential Instagram scraping session:
// login, profile navigation, post-by-post extraction, teardown.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	sink   telemetry.Sink
	reader *ocr.Reader
}

// New creates a ready-to-use Instagram Scraper.
func New(cfg *config.Config, logger *utils.Logger, sink telemetry.Sink, reader *ocr.Reader) *Scraper {
	return &Scraper{cfg: cfg, logger: logger, sink: sink, reader: reader}
}

// Run logs in, opens the profile, and drains its most recent posts into
// the writer. The browser is closed exactly once on every return path.
func (s *Scraper) Run(ctx context.Context, profile string, writer storage.RowWriter) (*Result, error) {
	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	s.logger.Info("[instagram] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	session := &browserSession{
		cfg:     s.cfg,
		logger:  s.logger,
		sink:    s.sink,
		reader:  s.reader,
		profile: profile,
	}

	s.sink.Emit(telemetry.Event{Kind: telemetry.PhaseStart, Phase: "login"})
	if err := session.login(tabCtx); err != nil {
		s.sink.Emit(telemetry.Event{Kind: telemetry.PhaseFailure, Phase: "login", Detail: err.Error()})
		return nil, fmt.Errorf("login: %w", err)
	}
	s.sink.Emit(telemetry.Event{Kind: telemetry.PhaseSuccess, Phase: "login"})

	result, err := runLoop(tabCtx, session, writer, s.cfg.MaxPosts, s.logger, s.sink)
	if err != nil {
		return result, err
	}

	s.logger.Info("[instagram] Finished processing %d posts (%s)", result.Processed, result.Reason)
	return result, nil
}

// browserSession implements pageDriver against a live chromedp tab.
type browserSession struct {
	cfg     *config.Config
	logger  *utils.Logger
	sink    telemetry.Sink
	reader  *ocr.Reader
	profile string
}

func (b *browserSession) profileURL() string {
	return baseURL + "/" + b.profile + "/"
}

// login navigates to the login form, submits the configured credentials,
// then moves to the target profile. Login success is checked only
// loosely: staying on the login route raises a warning, not an error,
// so a bad password still surfaces downstream as "no posts found".
func (b *browserSession) login(ctx context.Context) error {
	navTimeout := b.timeout(b.cfg.NavTimeoutSec)

	formCtx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	err := chromedp.Run(formCtx,
		chromedp.Navigate(baseURL+"/accounts/login/"),
		chromedp.WaitVisible(selUsername, chromedp.ByQuery),
		chromedp.SendKeys(selUsername, b.cfg.InstagramUsername, chromedp.ByQuery),
		chromedp.SendKeys(selPassword, b.cfg.InstagramPassword, chromedp.ByQuery),
		chromedp.Click(selSubmit, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}

	if err := b.waitSettled(ctx, "post-login", navTimeout); err != nil {
		return err
	}
	b.logger.Info("[instagram] Login attempted")

	var location string
	if err := chromedp.Run(ctx, chromedp.Location(&location)); err == nil {
		if strings.Contains(location, "/accounts/login") {
			b.logger.Warn("[instagram] Still on login page after submit — credentials may be wrong")
			b.sink.Emit(telemetry.Event{Kind: telemetry.DegradedField, Phase: "login",
				Detail: "still on login route after submit"})
		}
	}

	navCtx, cancelNav := context.WithTimeout(ctx, navTimeout)
	defer cancelNav()
	if err := chromedp.Run(navCtx, chromedp.Navigate(b.profileURL())); err != nil {
		return fmt.Errorf("navigate to profile: %w", err)
	}
	if err := b.waitSettled(ctx, "profile-nav", navTimeout); err != nil {
		return err
	}

	b.logger.Info("[instagram] Navigated to profile: %s", b.profileURL())
	return nil
}

// OpenFirstPost scrolls once to trigger lazy loading, then finds and
// clicks the first post thumbnail. All failures are downgraded to a
// false return with page diagnostics in the log.
func (b *browserSession) OpenFirstPost(ctx context.Context) (bool, error) {
	if err := b.waitSettled(ctx, "profile-load", b.timeout(b.cfg.NavTimeoutSec)); err != nil {
		b.logger.Error("[instagram] Error in OpenFirstPost: %v", err)
		b.logPageDiagnostics(ctx)
		return false, nil
	}

	if err := chromedp.Run(ctx,
		chromedp.Evaluate(`window.scrollBy(0, window.innerHeight)`, nil),
	); err != nil {
		b.logger.Error("[instagram] Error in OpenFirstPost: %v", err)
		return false, nil
	}
	if err := b.waitSettled(ctx, "profile-settle", b.timeout(b.cfg.SettleTimeoutSec)); err != nil {
		b.logger.Error("[instagram] Error in OpenFirstPost: %v", err)
		b.logPageDiagnostics(ctx)
		return false, nil
	}

	var location string
	if err := chromedp.Run(ctx, chromedp.Location(&location)); err == nil {
		b.logger.Info("[instagram] Current page URL: %s", location)
	}

	b.logger.Info("[instagram] Trying selector: %s", selFirstPost)
	if err := b.waitVisible(ctx, selFirstPost, b.timeout(b.cfg.FirstPostTimeout)); err != nil {
		b.logger.Error("[instagram] Could not find any posts using the selector")
		b.logPageDiagnostics(ctx)
		return false, nil
	}

	b.logger.Info("[instagram] Found first post, clicking it")
	if err := chromedp.Run(ctx, chromedp.Click(selFirstPost, chromedp.ByQuery)); err != nil {
		b.logger.Error("[instagram] Error clicking first post: %v", err)
		return false, nil
	}

	if err := b.waitVisible(ctx, selDialog, b.timeout(b.cfg.DialogTimeoutSec)); err != nil {
		b.logger.Error("[instagram] Post dialog never appeared: %v", err)
		b.logPageDiagnostics(ctx)
		return false, nil
	}

	b.logger.Info("[instagram] Post preview loaded")
	return true, nil
}

// PreparePost gives the freshly opened dialog time to settle before it
// is read: a fixed delay, a readiness poll, then a visibility check.
func (b *browserSession) PreparePost(ctx context.Context) error {
	time.Sleep(time.Duration(b.cfg.PostDelayMs) * time.Millisecond)

	if err := b.waitSettled(ctx, "post-settle", b.timeout(b.cfg.DialogTimeoutSec)); err != nil {
		return err
	}
	return b.waitVisible(ctx, selDialog, b.timeout(b.cfg.DialogTimeoutSec))
}

type commentData struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

type captionData struct {
	Found bool   `json:"found"`
	Text  string `json:"text"`
}

// ExtractPost reads the open dialog into a Post. OCR and caption
// problems degrade into field markers; only a missing dialog fails the
// whole extraction.
func (b *browserSession) ExtractPost(ctx context.Context) (*models.Post, error) {
	if err := b.waitVisible(ctx, selDialog, b.timeout(b.cfg.DialogTimeoutSec)); err != nil {
		return nil, fmt.Errorf("post dialog: %w", err)
	}

	post := &models.Post{ScrapedAt: time.Now()}

	var postURL string
	err := chromedp.Run(ctx, chromedp.Evaluate(`
		(function() {
			var link = document.querySelector('div[role="dialog"] a[href^="/p/"]');
			return link ? link.href : '';
		})()
	`, &postURL))
	if err != nil {
		return nil, fmt.Errorf("extract post url: %w", err)
	}
	post.URL = postURL
	b.logger.Debug("[instagram] Post URL: %s", post.URL)

	var caption captionData
	err = chromedp.Run(ctx, chromedp.Evaluate(`
		(function() {
			var el = document.querySelector('div[role="dialog"] h1');
			return el ? {found: true, text: el.innerText} : {found: false, text: ''};
		})()
	`, &caption))
	if err != nil {
		return nil, fmt.Errorf("extract caption: %w", err)
	}
	if caption.Found {
		post.Caption = models.OKField(caption.Text)
	} else {
		post.Caption = models.MissingField()
		b.sink.Emit(telemetry.Event{Kind: telemetry.DegradedField, Phase: "extract",
			Detail: "caption missing for " + post.URL})
	}

	post.OCRText = b.extractOCRText(ctx, post.URL)

	var comments []commentData
	err = chromedp.Run(ctx, chromedp.Evaluate(`
		(function() {
			var rows = Array.from(document.querySelectorAll('ul._a9ym > div[role="button"]'));
			return rows.map(function(row) {
				var userEl = row.querySelector('h3 a');
				var textEl = row.querySelector('div._a9zs span');
				return {
					username: userEl ? userEl.innerText : 'Unknown',
					text: textEl ? textEl.innerText : ''
				};
			});
		})()
	`, &comments))
	if err != nil {
		return nil, fmt.Errorf("extract comments: %w", err)
	}

	raw := make([]models.Comment, 0, len(comments))
	for _, c := range comments {
		raw = append(raw, models.Comment{Username: c.Username, Text: c.Text})
	}
	post.Comments = models.FilterComments(raw)
	b.logger.Info("[instagram] Extracted %d valid comments for post", len(post.Comments))

	return post, nil
}

// extractOCRText screenshots the post image, if any, and runs it
// through text recognition. Failures never abort the post; they become
// the failed-field marker.
func (b *browserSession) extractOCRText(ctx context.Context, postURL string) models.Field {
	var hasImage bool
	err := chromedp.Run(ctx, chromedp.Evaluate(
		`!!document.querySelector('div[role="dialog"] div._aagu img')`, &hasImage))
	if err != nil {
		b.logger.Error("[instagram] Error during image lookup: %v", err)
		b.sink.Emit(telemetry.Event{Kind: telemetry.DegradedField, Phase: "ocr", Detail: err.Error()})
		return models.FailedField()
	}
	if !hasImage {
		b.logger.Warn("[instagram] No image found for post")
		return models.MissingField()
	}

	shotCtx, cancel := context.WithTimeout(ctx, b.timeout(b.cfg.DialogTimeoutSec))
	defer cancel()

	var buf []byte
	if err := chromedp.Run(shotCtx, chromedp.Screenshot(selImage, &buf, chromedp.ByQuery)); err != nil {
		b.logger.Error("[instagram] Error capturing post image: %v", err)
		b.sink.Emit(telemetry.Event{Kind: telemetry.DegradedField, Phase: "ocr", Detail: err.Error()})
		return models.FailedField()
	}

	text, err := b.reader.Read(buf)
	if err != nil {
		b.logger.Error("[instagram] Error during image processing or OCR: %v", err)
		b.sink.Emit(telemetry.Event{Kind: telemetry.DegradedField, Phase: "ocr", Detail: err.Error()})
		return models.FailedField()
	}

	b.logger.Info("[instagram] OCR performed on image, result: %s", truncate(text, 50))
	return models.OKField(text)
}

// Advance clicks the "next" control if it is still present and waits
// for the dialog to show the following post. A randomized delay keeps
// the click cadence from looking mechanical.
func (b *browserSession) Advance(ctx context.Context) (bool, error) {
	var clicked bool
	err := chromedp.Run(ctx, chromedp.Evaluate(`
		(function() {
			var svg = document.querySelector('button svg[aria-label="Next"]');
			if (!svg) return false;
			svg.closest('button').click();
			return true;
		})()
	`, &clicked))
	if err != nil {
		return false, fmt.Errorf("click next: %w", err)
	}
	if !clicked {
		return false, nil
	}

	if err := b.waitVisible(ctx, selDialog, b.timeout(b.cfg.DialogTimeoutSec)); err != nil {
		return false, fmt.Errorf("dialog after next: %w", err)
	}

	minMs := b.cfg.AdvanceDelayMinMs
	maxMs := b.cfg.AdvanceDelayMaxMs
	if maxMs > minMs {
		time.Sleep(time.Duration(minMs+rand.Intn(maxMs-minMs)) * time.Millisecond)
	} else {
		time.Sleep(time.Duration(minMs) * time.Millisecond)
	}

	return true, nil
}

// waitSettled polls document readiness instead of sleeping a fixed
// duration, bounded by the given timeout.
func (b *browserSession) waitSettled(ctx context.Context, name string, timeout time.Duration) error {
	w := &utils.WaitConfig{
		Timeout:  timeout,
		Interval: time.Duration(b.cfg.PollIntervalMs) * time.Millisecond,
		Logger:   b.logger,
	}
	return w.Until(ctx, name, func(ctx context.Context) (bool, error) {
		var ready bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(`document.readyState === "complete"`, &ready)); err != nil {
			return false, err
		}
		return ready, nil
	})
}

func (b *browserSession) waitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return chromedp.Run(wctx, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

func (b *browserSession) timeout(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// logPageDiagnostics dumps the page title, URL, and leading HTML so a
// selector mismatch can be diagnosed from the log alone.
func (b *browserSession) logPageDiagnostics(ctx context.Context) {
	dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var title, location, html string
	if err := chromedp.Run(dctx,
		chromedp.Title(&title),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		b.logger.Debug("[instagram] Could not capture page diagnostics: %v", err)
		return
	}

	b.logger.Info("[instagram] Page title: %s", title)
	b.logger.Info("[instagram] Page URL: %s", location)
	b.logger.Debug("[instagram] Page content: %s...", truncate(html, 2000))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// findChromeBinary locates the Chrome/Chromium binary, preferring an
// explicitly configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
