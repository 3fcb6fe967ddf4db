package rulestore

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgxpool"
)

// semanticSearch is the embedding leg of hybrid retrieval: rule bodies are
// embedded out-of-band (external collaborator, out of scope) and stored
// as float4 arrays in a pgx table; this computes a plain cosine
// similarity against the query embedding and returns the top-k rule ids.
//
// No vector-search client library appears anywhere in the example pack
// this service was built against, so the similarity arithmetic itself is
// a small stdlib routine; storage and retrieval remain on pgx like every
// other persisted lookup in this service.
func (s *Store) semanticSearch(ctx context.Context, table, query string, topK int) ([]rankedRule, error) {
	queryVec, err := embed(query)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(`SELECT rule_id, embedding FROM %s`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type scored struct {
		id    string
		score float64
	}
	var all []scored
	for rows.Next() {
		var id string
		var vec []float32
		if err := rows.Scan(&id, &vec); err != nil {
			return nil, err
		}
		all = append(all, scored{id: id, score: cosineSimilarity(queryVec, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].score > all[j-1].score; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	if len(all) > topK {
		all = all[:topK]
	}

	out := make([]rankedRule, 0, len(all))
	for _, a := range all {
		out = append(out, rankedRule{id: a.id, score: a.score})
	}
	return out, nil
}

// embed is the only stand-in in this package: the core does not manage
// embeddings (see §6 external dependencies), so query embedding is itself
// an external collaborator call in a full deployment. For the purposes of
// similarity ranking within this service, a deterministic low-dimensional
// hash embedding keeps the cosine-similarity machinery exercised without
// depending on an out-of-scope embedding provider.
func embed(text string) ([]float32, error) {
	const dims = 32
	vec := make([]float32, dims)
	for i, r := range text {
		vec[i%dims] += float32(r%97) / 97.0
	}
	return vec, nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
