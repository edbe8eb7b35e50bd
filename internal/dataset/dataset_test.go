package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldirahman/judolscan/internal/errors"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "df_all.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVSourceLoad(t *testing.T) {
	path := writeCSV(t, "comment,label\ndaftar gacor77 maxwin,1\nnice video,0\n")

	data, err := NewCSVSource(path).Load()
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, "daftar gacor77 maxwin", data[0].Comment)
	assert.True(t, data[0].Gambling)
	assert.False(t, data[1].Gambling)
}

func TestCSVSourceColumnOrderIndependent(t *testing.T) {
	path := writeCSV(t, "label,comment\n1,slot gacor\n0,great content\n")

	data, err := NewCSVSource(path).Load()
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, "slot gacor", data[0].Comment)
	assert.True(t, data[0].Gambling)
}

func TestCSVSourceQuotedCommas(t *testing.T) {
	path := writeCSV(t, "comment,label\n\"daftar, main, menang\",1\n")

	data, err := NewCSVSource(path).Load()
	require.NoError(t, err)
	require.Len(t, data, 1)
	assert.Equal(t, "daftar, main, menang", data[0].Comment)
}

func TestCSVSourceMissingColumns(t *testing.T) {
	path := writeCSV(t, "text,score\nfoo,1\n")

	_, err := NewCSVSource(path).Load()
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}

func TestCSVSourceMissingFile(t *testing.T) {
	_, err := NewCSVSource("nope.csv").Load()
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestStaticSource(t *testing.T) {
	s := &Static{}
	data, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, data)
}
