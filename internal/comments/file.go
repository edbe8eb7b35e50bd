package comments

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aldirahman/judolscan/internal/errors"
)

// FileSource reads comments from a JSON export on disk, one array of comment
// objects per file. Used by the CLI to scan previously exported comment dumps
// without upstream credentials.
type FileSource struct {
	Path string
}

type fileComment struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	AuthorName   string `json:"author_name"`
	AuthorAvatar string `json:"author_avatar"`
}

// FetchAllComments loads the export. The videoID argument is ignored, the
// file is the scope.
func (s *FileSource) FetchAllComments(_ context.Context, _ string) ([]Comment, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.New(err).
			Component("comments").
			Category(errors.CategoryFileIO).
			Context("comments_path", s.Path).
			Build()
	}

	var raw []fileComment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(err).
			Component("comments").
			Category(errors.CategoryFileParsing).
			Context("comments_path", s.Path).
			Build()
	}

	out := make([]Comment, len(raw))
	for i, c := range raw {
		out[i] = Comment{
			ID:           c.ID,
			Text:         c.Text,
			AuthorName:   c.AuthorName,
			AuthorAvatar: c.AuthorAvatar,
		}
	}
	return out, nil
}
