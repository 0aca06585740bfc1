package instagram

import (
	"context"
	"fmt"

	"instagram-scraper/models"
	"instagram-scraper/storage"
	"instagram-scraper/telemetry"
	"instagram-scraper/utils"
)

// pageDriver is the surface the extraction loop needs from an open
// browser session. Keeping it narrow lets the loop run against a fake
// in tests.
type pageDriver interface {
	// OpenFirstPost locates the first post thumbnail on the profile
	// grid and opens its detail dialog. A false return means no post
	// could be opened; the markup-mismatch and empty-profile cases are
	// indistinguishable here.
	OpenFirstPost(ctx context.Context) (bool, error)

	// PreparePost waits for the open dialog to settle before reading it.
	PreparePost(ctx context.Context) error

	// ExtractPost reads the currently open dialog into a Post.
	ExtractPost(ctx context.Context) (*models.Post, error)

	// Advance clicks the "next" control. A false return means the
	// control is gone and the profile is exhausted.
	Advance(ctx context.Context) (bool, error)
}

// endReason records how the pagination loop terminated.
type endReason string

const (
	endedByCap        endReason = "post cap reached"
	endedByExhaustion endReason = "no more posts"
	endedByRevisit    endReason = "post already visited"
)

// Result summarizes one finished extraction loop.
type Result struct {
	Processed int
	Posts     []*models.Post
	Reason    endReason
}

// runLoop drives the post-by-post extraction state machine: open the
// first post, then alternate processing and advancing until the cap,
// natural exhaustion, or a pagination loop ends the run. Rows are
// written as each post is processed, so an error partway through keeps
// everything already flushed.
func runLoop(ctx context.Context, driver pageDriver, writer storage.RowWriter,
	maxPosts int, logger *utils.Logger, sink telemetry.Sink) (*Result, error) {

	result := &Result{Reason: endedByExhaustion}
	visited := utils.NewURLSet()

	sink.Emit(telemetry.Event{Kind: telemetry.PhaseStart, Phase: "discovery"})
	opened, err := driver.OpenFirstPost(ctx)
	if err != nil {
		sink.Emit(telemetry.Event{Kind: telemetry.PhaseFailure, Phase: "discovery", Detail: err.Error()})
		return result, fmt.Errorf("open first post: %w", err)
	}
	if !opened {
		sink.Emit(telemetry.Event{Kind: telemetry.PhaseFailure, Phase: "discovery", Detail: "no posts found"})
		logger.Error("[instagram] No posts found or couldn't open preview. Ending extraction process.")
		return result, nil
	}
	sink.Emit(telemetry.Event{Kind: telemetry.PhaseSuccess, Phase: "discovery"})

	for result.Processed < maxPosts {
		logger.Info("[instagram] Processing post %d", result.Processed+1)
		sink.Emit(telemetry.Event{Kind: telemetry.PhaseStart, Phase: "extract"})

		if err := driver.PreparePost(ctx); err != nil {
			sink.Emit(telemetry.Event{Kind: telemetry.PhaseFailure, Phase: "extract", Detail: err.Error()})
			return result, fmt.Errorf("prepare post %d: %w", result.Processed+1, err)
		}

		post, err := driver.ExtractPost(ctx)
		result.Processed++

		switch {
		case err != nil || post == nil:
			detail := "no data"
			if err != nil {
				detail = err.Error()
			}
			sink.Emit(telemetry.Event{Kind: telemetry.PhaseFailure, Phase: "extract", Detail: detail})
			logger.Error("[instagram] Failed to process post %d: %s", result.Processed, detail)

		case post.URL != "" && !visited.Add(post.URL):
			// The "next" control stopped advancing; bail instead of
			// rewriting the same post until the cap.
			logger.Warn("[instagram] Post %s already processed — pagination is stuck, stopping", post.URL)
			result.Processed--
			result.Reason = endedByRevisit
			return result, nil

		default:
			if err := writer.WritePost(post); err != nil {
				sink.Emit(telemetry.Event{Kind: telemetry.PhaseFailure, Phase: "write", Detail: err.Error()})
				return result, fmt.Errorf("write post %d: %w", result.Processed, err)
			}
			result.Posts = append(result.Posts, post)
			sink.Emit(telemetry.Event{Kind: telemetry.PhaseSuccess, Phase: "extract"})
			logger.Info("[instagram] Processed post %d with %d comments", result.Processed, len(post.Comments))
		}

		if result.Processed >= maxPosts {
			result.Reason = endedByCap
			break
		}

		more, err := driver.Advance(ctx)
		if err != nil {
			return result, fmt.Errorf("advance after post %d: %w", result.Processed, err)
		}
		if !more {
			logger.Info("[instagram] No more posts to process")
			break
		}
	}

	return result, nil
}
