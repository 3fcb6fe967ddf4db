package rulestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/jackc/pgx/v5"

	"github.com/enterprise/aml-compliance/internal/models"
)

var ErrRuleNotFound = errors.New("rule not found")

// loadRules bulk-fetches rules by id from the corpus table named by
// table, grounded on the teacher's DBRule load-then-filter shape in
// internal/scoring/rule_engine.go.
func (s *Store) loadRules(ctx context.Context, table string, ids []string) (map[string]models.Rule, error) {
	out := map[string]models.Rule{}
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT rule_id, version, source, regulator, jurisdictions, title, body,
		       applicability_conditions, expected_evidence_fields, severity,
		       effective_date, sunset_date, is_active
		FROM %s WHERE rule_id = ANY($1)
	`, ruleTableFor(table)), ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var r models.Rule
		if err := rows.Scan(
			&r.ID, &r.Version, &r.Source, &r.Regulator, &r.Jurisdictions, &r.Title, &r.Body,
			&r.ApplicabilityConditions, &r.ExpectedEvidenceFields, &r.Severity,
			&r.EffectiveDate, &r.SunsetDate, &r.IsActive,
		); err != nil {
			return nil, err
		}
		out[r.ID] = r
	}
	return out, rows.Err()
}

// ruleTableFor maps an embedding table name to its paired rule-content
// table; the two are kept separate so embeddings can be
// regenerated/reindexed independently of rule content.
func ruleTableFor(embeddingTable string) string {
	return embeddingTable + "_rules"
}

// GetRule is an exact lookup by rule id and version.
func (s *Store) GetRule(ctx context.Context, id string, version int) (models.Rule, error) {
	var r models.Rule
	for _, table := range []string{s.internalTable, s.externalTable} {
		err := s.db.QueryRow(ctx, fmt.Sprintf(`
			SELECT rule_id, version, source, regulator, jurisdictions, title, body,
			       applicability_conditions, expected_evidence_fields, severity,
			       effective_date, sunset_date, is_active
			FROM %s WHERE rule_id = $1 AND version = $2
		`, ruleTableFor(table)), id, version).Scan(
			&r.ID, &r.Version, &r.Source, &r.Regulator, &r.Jurisdictions, &r.Title, &r.Body,
			&r.ApplicabilityConditions, &r.ExpectedEvidenceFields, &r.Severity,
			&r.EffectiveDate, &r.SunsetDate, &r.IsActive,
		)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return models.Rule{}, err
		}
	}
	return models.Rule{}, ErrRuleNotFound
}

// UpsertInternal is an idempotent write used by the external ingestion
// path; it is never invoked by the core evaluation pipeline.
func (s *Store) UpsertInternal(ctx context.Context, rule models.Rule) error {
	table := ruleTableFor(s.internalTable)
	_, err := s.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (rule_id, version, source, regulator, jurisdictions, title, body,
		                 applicability_conditions, expected_evidence_fields, severity,
		                 effective_date, sunset_date, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (rule_id, version) DO UPDATE SET
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			applicability_conditions = EXCLUDED.applicability_conditions,
			expected_evidence_fields = EXCLUDED.expected_evidence_fields,
			severity = EXCLUDED.severity,
			effective_date = EXCLUDED.effective_date,
			sunset_date = EXCLUDED.sunset_date,
			is_active = EXCLUDED.is_active
	`, table),
		rule.ID, rule.Version, rule.Source, rule.Regulator, rule.Jurisdictions, rule.Title, rule.Body,
		rule.ApplicabilityConditions, rule.ExpectedEvidenceFields, rule.Severity,
		rule.EffectiveDate, rule.SunsetDate, rule.IsActive,
	)
	if err != nil {
		return err
	}
	return indexRuleBody(s.internalIndex, rule)
}

func indexRuleBody(index bleve.Index, rule models.Rule) error {
	return index.Index(rule.ID, map[string]string{"title": rule.Title, "body": rule.Body})
}
