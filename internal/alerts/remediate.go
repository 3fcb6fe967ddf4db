package alerts

import (
	"strings"

	"github.com/enterprise/aml-compliance/internal/models"
)

// Remediate derives remediation action records from failed controls,
// band, and the alerts already generated for this evaluation. Actions are
// deduplicated by (type, owner).
func Remediate(in Input, generated []models.Alert) []models.RemediationAction {
	score := in.Risk.Score
	band := in.Risk.Band

	type key struct {
		t     models.RemediationActionType
		owner models.AlertRole
	}
	seen := map[key]*models.RemediationAction{}
	var order []key

	add := func(t models.RemediationActionType, owner models.AlertRole, slaHours int, details models.JSONB) {
		k := key{t, owner}
		if existing, ok := seen[k]; ok {
			existing.LinkedAlertIDs = linkAlertIDs(existing.LinkedAlertIDs, generated)
			return
		}
		action := &models.RemediationAction{
			Type:           t,
			Owner:          owner,
			SLAHours:       slaHours,
			LinkedAlertIDs: linkAlertIDs(nil, generated),
			Details:        details,
		}
		seen[k] = action
		order = append(order, k)
	}

	mediumPlus := band == models.BandMedium || band == models.BandHigh || band == models.BandCritical
	anyFailure := hasAnyFailure(in.ControlResults)

	if mediumPlus && anyFailure {
		add(models.ActionInvestigate, models.RoleCompliance, 48, nil)
	}
	if score >= 60 {
		add(models.ActionEnhancedDD, models.RoleCompliance, 48, nil)
	}
	if fields := missingFieldsFromRationales(in.ControlResults); len(fields) > 0 {
		add(models.ActionCollectDocuments, models.RoleFront, 48, models.JSONB{"fields": fields})
	}
	if score >= 80 {
		add(models.ActionFileSAR, models.RoleLegal, 12, nil)
	}
	if mediumPlus && hasPartial(in.ControlResults) {
		add(models.ActionReview, models.RoleCompliance, 72, nil)
	}

	out := make([]models.RemediationAction, 0, len(order))
	for _, k := range order {
		out = append(out, *seen[k])
	}
	return out
}

func linkAlertIDs(existing []string, alerts []models.Alert) []string {
	ids := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		ids[id] = struct{}{}
	}
	out := append([]string{}, existing...)
	for _, a := range alerts {
		if _, ok := ids[a.ID]; !ok {
			out = append(out, a.ID)
			ids[a.ID] = struct{}{}
		}
	}
	return out
}

func hasAnyFailure(controls []models.ControlResult) bool {
	for _, c := range controls {
		if c.Status == models.ControlFail {
			return true
		}
	}
	return false
}

func hasPartial(controls []models.ControlResult) bool {
	for _, c := range controls {
		if c.Status == models.ControlPartial {
			return true
		}
	}
	return false
}

// missingFieldsFromRationales extracts a field list from failed controls'
// rationales that reference a missing field, in the shape "missing: <field>".
func missingFieldsFromRationales(controls []models.ControlResult) []string {
	var fields []string
	for _, c := range controls {
		if c.Status != models.ControlFail {
			continue
		}
		lower := strings.ToLower(c.Rationale)
		if !strings.Contains(lower, "missing") {
			continue
		}
		idx := strings.Index(lower, "missing")
		rest := strings.TrimSpace(c.Rationale[idx+len("missing"):])
		rest = strings.TrimPrefix(rest, ":")
		rest = strings.TrimSpace(rest)
		if rest != "" {
			fields = append(fields, rest)
		}
	}
	return fields
}
