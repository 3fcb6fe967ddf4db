package rulestore

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
)

// OpenIndex opens the bleve index at path, creating it with a default
// mapping if it does not yet exist. Used once per corpus at process start.
func OpenIndex(path string) (bleve.Index, error) {
	index, err := bleve.Open(path)
	if err == nil {
		return index, nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return bleve.New(path, bleve.NewIndexMapping())
}
