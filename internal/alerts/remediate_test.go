package alerts

import (
	"testing"

	"github.com/enterprise/aml-compliance/internal/models"
)

func hasAction(actions []models.RemediationAction, t models.RemediationActionType) bool {
	for _, a := range actions {
		if a.Type == t {
			return true
		}
	}
	return false
}

func TestRemediate_InvestigateRequiresMediumBandAndFailure(t *testing.T) {
	in := baseInput(40)
	in.ControlResults = []models.ControlResult{{Status: models.ControlFail, Severity: models.SeverityHigh}}

	got := Remediate(in, nil)
	if !hasAction(got, models.ActionInvestigate) {
		t.Errorf("expected investigate action at medium band with a control failure, got %+v", got)
	}
}

func TestRemediate_InvestigateSkippedWhenAllControlsPass(t *testing.T) {
	in := baseInput(40)
	in.ControlResults = []models.ControlResult{{Status: models.ControlPass, Severity: models.SeverityHigh}}

	got := Remediate(in, nil)
	if hasAction(got, models.ActionInvestigate) {
		t.Errorf("did not expect investigate action when no control failed")
	}
}

func TestRemediate_EnhancedDDRequiresScoreAtLeast60(t *testing.T) {
	got := Remediate(baseInput(60), nil)
	if !hasAction(got, models.ActionEnhancedDD) {
		t.Errorf("expected enhanced_dd action at score 60, got %+v", got)
	}

	below := Remediate(baseInput(59), nil)
	if hasAction(below, models.ActionEnhancedDD) {
		t.Errorf("did not expect enhanced_dd action below score 60")
	}
}

func TestRemediate_FileSARRequiresScoreAtLeast80(t *testing.T) {
	got := Remediate(baseInput(80), nil)
	if !hasAction(got, models.ActionFileSAR) {
		t.Errorf("expected file_sar action at score 80, got %+v", got)
	}

	below := Remediate(baseInput(79), nil)
	if hasAction(below, models.ActionFileSAR) {
		t.Errorf("did not expect file_sar action below score 80")
	}
}

func TestRemediate_CollectDocumentsExtractsMissingFieldFromRationale(t *testing.T) {
	in := baseInput(40)
	in.ControlResults = []models.ControlResult{
		{Status: models.ControlFail, Rationale: "missing: source_of_funds"},
	}

	got := Remediate(in, nil)
	var action *models.RemediationAction
	for i := range got {
		if got[i].Type == models.ActionCollectDocuments {
			action = &got[i]
		}
	}
	if action == nil {
		t.Fatalf("expected collect_documents action, got %+v", got)
	}
	fields, _ := action.Details["fields"].([]string)
	if len(fields) != 1 || fields[0] != "source_of_funds" {
		t.Errorf("Details[fields] = %v, want [source_of_funds]", action.Details["fields"])
	}
}

func TestRemediate_ReviewRequiresMediumBandAndPartialControl(t *testing.T) {
	in := baseInput(40)
	in.ControlResults = []models.ControlResult{{Status: models.ControlPartial}}

	got := Remediate(in, nil)
	if !hasAction(got, models.ActionReview) {
		t.Errorf("expected review action at medium band with a partial control, got %+v", got)
	}
}

func TestRemediate_DeduplicatesSameTypeAndOwnerAndLinksAllAlerts(t *testing.T) {
	in := baseInput(90)
	in.ControlResults = []models.ControlResult{
		{Status: models.ControlFail, Severity: models.SeverityHigh},
	}
	generated := []models.Alert{
		{ID: "tx-1-0"},
		{ID: "tx-1-1"},
	}

	got := Remediate(in, generated)
	var enhancedDD *models.RemediationAction
	count := 0
	for i := range got {
		if got[i].Type == models.ActionEnhancedDD {
			enhancedDD = &got[i]
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one enhanced_dd action, got %+v", got)
	}
	if len(enhancedDD.LinkedAlertIDs) != 2 {
		t.Errorf("LinkedAlertIDs = %v, want both generated alert IDs linked", enhancedDD.LinkedAlertIDs)
	}
}

func TestRemediate_NoActionsWhenScoreLowAndAllControlsPass(t *testing.T) {
	in := baseInput(10)
	in.ControlResults = []models.ControlResult{{Status: models.ControlPass}}

	got := Remediate(in, nil)
	if len(got) != 0 {
		t.Errorf("expected no remediation actions for a clean low-risk transaction, got %+v", got)
	}
}
