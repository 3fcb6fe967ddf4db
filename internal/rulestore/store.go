// Package rulestore provides read-only hybrid semantic+keyword access to
// the internal and external compliance rule corpora.
package rulestore

import (
	"context"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/enterprise/aml-compliance/internal/errs"
	"github.com/enterprise/aml-compliance/internal/models"
)

// Corpus selects which rule population a search targets.
type Corpus string

const (
	CorpusInternal Corpus = "internal"
	CorpusExternal Corpus = "external"
)

const (
	rrfK            = 60
	semanticTopK    = 10
	keywordTopK     = 10
	maxResults      = 30
)

// Filters narrows a search by jurisdiction, effective-date range,
// regulator, and activation state.
type Filters struct {
	Jurisdictions []string
	BookingDate   time.Time
	Regulators    []string
	OnlyActive    bool
}

// Store is grounded on the teacher's mutex-guarded in-memory rule
// snapshot (internal/scoring/rule_engine.go), generalized to a hybrid
// retriever backed by a bleve keyword index and a pgx-stored embedding
// table per corpus.
type Store struct {
	db            *pgxpool.Pool
	internalIndex bleve.Index
	externalIndex bleve.Index
	internalTable string
	externalTable string
}

func New(db *pgxpool.Pool, internalIndex, externalIndex bleve.Index, internalTable, externalTable string) *Store {
	return &Store{
		db:            db,
		internalIndex: internalIndex,
		externalIndex: externalIndex,
		internalTable: internalTable,
		externalTable: externalTable,
	}
}

// SearchInternal runs the hybrid retrieval algorithm against the internal
// corpus for each query string and fuses the results.
func (s *Store) SearchInternal(ctx context.Context, queries []string, topK int, f Filters) ([]models.RetrievedRule, error) {
	return s.search(ctx, CorpusInternal, queries, topK, f)
}

// SearchExternal is the external-corpus counterpart of SearchInternal.
func (s *Store) SearchExternal(ctx context.Context, queries []string, topK int, f Filters) ([]models.RetrievedRule, error) {
	return s.search(ctx, CorpusExternal, queries, topK, f)
}

func (s *Store) search(ctx context.Context, corpus Corpus, queries []string, topK int, f Filters) ([]models.RetrievedRule, error) {
	index := s.internalIndex
	table := s.internalTable
	if corpus == CorpusExternal {
		index = s.externalIndex
		table = s.externalTable
	}

	fused := map[string]*fusedEntry{}

	for _, q := range queries {
		keywordRanked, err := s.keywordSearch(index, q, keywordTopK)
		if err != nil {
			return nil, errs.New(errs.KindTransient, "rulestore.keywordSearch", err)
		}
		semanticRanked, err := s.semanticSearch(ctx, table, q, semanticTopK)
		if err != nil {
			return nil, errs.New(errs.KindTransient, "rulestore.semanticSearch", err)
		}
		accumulateRanks(fused, keywordRanked, q)
		accumulateRanks(fused, semanticRanked, q)
	}

	rules, err := s.loadRules(ctx, table, ruleIDs(fused))
	if err != nil {
		return nil, errs.New(errs.KindTransient, "rulestore.loadRules", err)
	}

	out := make([]models.RetrievedRule, 0, len(fused))
	for id, entry := range fused {
		rule, ok := rules[id]
		if !ok {
			continue
		}
		if !rule.Retrievable(f.BookingDate) {
			continue
		}
		if !jurisdictionMatches(rule, f.Jurisdictions) {
			continue
		}
		out = append(out, models.RetrievedRule{Rule: rule, Score: entry.score, Query: entry.firstQuery})
	}

	SortByScoreDesc(out)
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	if topK > 0 && topK < len(out) {
		out = out[:topK]
	}

	log.Debug().Str("corpus", string(corpus)).Int("queries", len(queries)).Int("results", len(out)).Msg("rule retrieval complete")
	return out, nil
}

type fusedEntry struct {
	score      float64
	firstQuery string
}

func accumulateRanks(fused map[string]*fusedEntry, ranked []rankedRule, query string) {
	for rank, r := range ranked {
		contribution := 1.0 / float64(rrfK+rank+1)
		entry, ok := fused[r.id]
		if !ok {
			fused[r.id] = &fusedEntry{score: contribution, firstQuery: query}
			continue
		}
		entry.score += contribution
	}
}

func ruleIDs(fused map[string]*fusedEntry) []string {
	ids := make([]string, 0, len(fused))
	for id := range fused {
		ids = append(ids, id)
	}
	return ids
}

func jurisdictionMatches(rule models.Rule, txJurisdictions []string) bool {
	if len(txJurisdictions) == 0 || len(rule.Jurisdictions) == 0 {
		return true
	}
	want := map[string]struct{}{}
	for _, j := range txJurisdictions {
		want[j] = struct{}{}
	}
	for _, j := range rule.Jurisdictions {
		if _, ok := want[j]; ok {
			return true
		}
	}
	return false
}

// SortByScoreDesc sorts rules by fused relevance score, highest first. It
// is exported so callers outside this package (the orchestrator's dedup
// step, the evaluator's top-N cap) can apply the same ordering rather than
// truncating an unsorted or map-ordered slice.
func SortByScoreDesc(rules []models.RetrievedRule) {
	for i := 1; i < len(rules); i++ {
		for j := i; j > 0 && rules[j].Score > rules[j-1].Score; j-- {
			rules[j], rules[j-1] = rules[j-1], rules[j]
		}
	}
}
