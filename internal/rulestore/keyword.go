package rulestore

import (
	"github.com/blevesearch/bleve/v2"
)

type rankedRule struct {
	id    string
	score float64
}

// keywordSearch is the keyword leg of hybrid retrieval: a bleve BM25-style
// full text query over indexed rule bodies.
func (s *Store) keywordSearch(index bleve.Index, query string, topK int) ([]rankedRule, error) {
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequestOptions(q, topK, 0, false)
	result, err := index.Search(req)
	if err != nil {
		return nil, err
	}
	ranked := make([]rankedRule, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ranked = append(ranked, rankedRule{id: hit.ID, score: hit.Score})
	}
	return ranked, nil
}
