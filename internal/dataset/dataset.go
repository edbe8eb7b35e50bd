// Package dataset loads the static original training corpus.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/aldirahman/judolscan/internal/engine"
	"github.com/aldirahman/judolscan/internal/errors"
)

// Source provides the original labeled corpus the retraining pipeline unions
// with validation feedback. The corpus is static and append-only.
type Source interface {
	Load() (engine.Dataset, error)
}

// CSVSource reads the corpus from a CSV file with "comment" and "label"
// columns, where label 1 means gambling and 0 means clean.
type CSVSource struct {
	Path string
}

// NewCSVSource creates a CSV-backed dataset source.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Load parses the full corpus into memory.
func (s *CSVSource) Load() (engine.Dataset, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryFileIO).
			Context("dataset_path", s.Path).
			Build()
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryFileParsing).
			Context("dataset_path", s.Path).
			Build()
	}

	commentIdx, labelIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(strings.ToLower(col)) {
		case "comment":
			commentIdx = i
		case "label":
			labelIdx = i
		}
	}
	if commentIdx < 0 || labelIdx < 0 {
		return nil, errors.Newf("dataset must have 'comment' and 'label' columns").
			Component("dataset").
			Category(errors.CategoryFileParsing).
			Context("dataset_path", s.Path).
			Build()
	}

	var data engine.Dataset
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(err).
				Component("dataset").
				Category(errors.CategoryFileParsing).
				Context("dataset_path", s.Path).
				Build()
		}
		if commentIdx >= len(record) || labelIdx >= len(record) {
			continue
		}
		data = append(data, engine.Example{
			Comment:  record[commentIdx],
			Gambling: strings.TrimSpace(record[labelIdx]) == "1",
		})
	}

	return data, nil
}

// Static is an in-memory dataset source, used in tests and for embedded
// corpora.
type Static struct {
	Data engine.Dataset
}

// Load returns the in-memory corpus.
func (s *Static) Load() (engine.Dataset, error) {
	return s.Data, nil
}
