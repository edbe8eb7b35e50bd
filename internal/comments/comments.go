// Package comments defines the upstream comment source contract and the
// pacing wrapper that keeps bulk fetches inside upstream rate limits.
package comments

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/aldirahman/judolscan/internal/errors"
)

// Comment is one comment retrieved from the upstream video platform.
type Comment struct {
	ID           string
	Text         string
	AuthorName   string
	AuthorAvatar string
}

// Source retrieves every comment on a video. Implementations are external
// collaborators; they may return quota or permission errors.
type Source interface {
	FetchAllComments(ctx context.Context, videoID string) ([]Comment, error)
}

// PageSource retrieves one page of comments at a time. An empty nextToken
// marks the last page.
type PageSource interface {
	FetchCommentPage(ctx context.Context, videoID, pageToken string) (comments []Comment, nextToken string, err error)
}

// PacedSource adapts a PageSource into a Source, inserting a minimum delay
// between sequential page fetches. This is a sequencing concern, not a
// locking one: pages are never fetched in parallel.
type PacedSource struct {
	pages   PageSource
	limiter *rate.Limiter
}

// NewPacedSource wraps pages with the given pacing interval.
func NewPacedSource(pages PageSource, every rate.Limit) *PacedSource {
	return &PacedSource{
		pages:   pages,
		limiter: rate.NewLimiter(every, 1),
	}
}

// FetchAllComments walks every page sequentially, waiting out the pacing
// limiter before each upstream call.
func (s *PacedSource) FetchAllComments(ctx context.Context, videoID string) ([]Comment, error) {
	var all []Comment
	pageToken := ""

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, nextToken, err := s.pages.FetchCommentPage(ctx, videoID, pageToken)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		if nextToken == "" {
			return all, nil
		}
		pageToken = nextToken
	}
}

// QuotaError wraps an upstream quota failure; scan jobs retry these with
// backoff before failing permanently.
func QuotaError(err error, videoID string) error {
	return errors.New(err).
		Component("comments").
		Category(errors.CategoryUpstreamQuota).
		Context("video_id", videoID).
		Build()
}

// PermissionError wraps an upstream permission failure; these are surfaced
// to the caller without retry.
func PermissionError(err error, videoID string) error {
	return errors.New(err).
		Component("comments").
		Category(errors.CategoryUpstreamPermission).
		Context("video_id", videoID).
		Build()
}
