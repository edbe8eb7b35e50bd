package comments

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/aldirahman/judolscan/internal/errors"
)

type fakePages struct {
	pages [][]Comment
	calls int
	err   error
}

func (f *fakePages) FetchCommentPage(_ context.Context, _, pageToken string) ([]Comment, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	idx := 0
	if pageToken != "" {
		idx = int(pageToken[0] - '0')
	}
	f.calls++
	page := f.pages[idx]
	next := ""
	if idx+1 < len(f.pages) {
		next = string(rune('0' + idx + 1))
	}
	return page, next, nil
}

func TestPacedSourceWalksAllPages(t *testing.T) {
	pages := &fakePages{pages: [][]Comment{
		{{ID: "a", Text: "one"}, {ID: "b", Text: "two"}},
		{{ID: "c", Text: "three"}},
		{{ID: "d", Text: "four"}},
	}}
	source := NewPacedSource(pages, rate.Inf)

	all, err := source.FetchAllComments(context.Background(), "video-1")
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, 3, pages.calls)
	assert.Equal(t, "d", all[3].ID)
}

func TestPacedSourcePropagatesErrors(t *testing.T) {
	pages := &fakePages{err: QuotaError(errors.NewStd("quota exceeded"), "video-1")}
	source := NewPacedSource(pages, rate.Inf)

	_, err := source.FetchAllComments(context.Background(), "video-1")
	assert.True(t, errors.IsCategory(err, errors.CategoryUpstreamQuota))
}

func TestPacedSourceHonorsCancellation(t *testing.T) {
	pages := &fakePages{pages: [][]Comment{{{ID: "a"}}}}
	source := NewPacedSource(pages, rate.Every(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := source.FetchAllComments(ctx, "video-1")
	assert.Error(t, err)
}

func TestErrorClassification(t *testing.T) {
	quota := QuotaError(errors.NewStd("quota"), "v")
	perm := PermissionError(errors.NewStd("denied"), "v")

	assert.True(t, errors.IsRetryable(quota))
	assert.False(t, errors.IsRetryable(perm))
	assert.True(t, errors.IsCategory(perm, errors.CategoryUpstreamPermission))
}

func TestFileSourceReadsExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comments.json")
	payload := []map[string]string{
		{"id": "c1", "text": "daftar gacor77", "author_name": "bot"},
		{"id": "c2", "text": "nice video", "author_name": "viewer"},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	source := &FileSource{Path: path}
	all, err := source.FetchAllComments(context.Background(), "ignored")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "daftar gacor77", all[0].Text)
	assert.Equal(t, "viewer", all[1].AuthorName)
}

func TestFileSourceMissingFile(t *testing.T) {
	source := &FileSource{Path: "missing.json"}
	_, err := source.FetchAllComments(context.Background(), "v")
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestFileSourceBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comments.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	source := &FileSource{Path: path}
	_, err := source.FetchAllComments(context.Background(), "v")
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}
