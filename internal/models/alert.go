package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertRole routes an alert to the human queue responsible for acting on
// it.
type AlertRole string

const (
	RoleFront      AlertRole = "Front"
	RoleCompliance AlertRole = "Compliance"
	RoleLegal      AlertRole = "Legal"
)

// AlertType is a closed catalog of alert classifications. Each maps to a
// remediation workflow and a severity that is fixed, except for three types
// whose severity depends on the risk score (see internal/alerts).
type AlertType string

const (
	AlertSanctionsBreach         AlertType = "sanctions_breach"
	AlertPEPHighRisk             AlertType = "pep_high_risk"
	AlertCriticalRuleBreach      AlertType = "critical_rule_breach"
	AlertStructuringPattern      AlertType = "structuring_pattern"
	AlertLayeringPattern         AlertType = "layering_pattern"
	AlertVelocityAnomaly         AlertType = "velocity_anomaly"
	AlertHighRiskJurisdiction    AlertType = "high_risk_jurisdiction"
	AlertMultipleControlFailures AlertType = "multiple_control_failures"
	AlertHighRiskTransaction     AlertType = "high_risk_transaction"
	AlertMediumRiskTransaction   AlertType = "medium_risk_transaction"
	AlertMissingDocumentation    AlertType = "missing_documentation"
	AlertHighValueTransaction    AlertType = "high_value_transaction"
	AlertCrossBorderTransaction  AlertType = "cross_border_transaction"
	AlertDocumentationReview     AlertType = "documentation_review"
	AlertRoutineMonitoring       AlertType = "routine_monitoring"
)

// AlertSeverity is independent from Severity (rule/control severity):
// it governs an alert's SLA deadline.
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "Low"
	AlertSeverityMedium   AlertSeverity = "Medium"
	AlertSeverityHigh     AlertSeverity = "High"
	AlertSeverityCritical AlertSeverity = "Critical"
)

// SLAFor returns the fixed severity-to-SLA duration required by §3.
func SLAFor(sev AlertSeverity) time.Duration {
	switch sev {
	case AlertSeverityCritical:
		return 12 * time.Hour
	case AlertSeverityHigh:
		return 24 * time.Hour
	case AlertSeverityMedium:
		return 48 * time.Hour
	default:
		return 72 * time.Hour
	}
}

// AlertStatus is the alert's own lifecycle, independent of the pipeline
// that created it.
type AlertStatus string

const (
	AlertStatusPending      AlertStatus = "PENDING"
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertStatusInProgress   AlertStatus = "IN_PROGRESS"
	AlertStatusResolved     AlertStatus = "RESOLVED"
	AlertStatusEscalated    AlertStatus = "ESCALATED"
)

// Alert is a role-targeted, SLA-bound compliance finding.
type Alert struct {
	ID            string    `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`

	Role      AlertRole     `json:"role"`
	AlertType AlertType     `json:"alert_type"`
	Severity  AlertSeverity `json:"severity"`

	Title       string `json:"title"`
	Description string `json:"description"`

	Context  JSONB `json:"context"`
	Evidence JSONB `json:"evidence"`

	RemediationWorkflow []string `json:"remediation_workflow"`

	CreatedAt   time.Time `json:"created_at"`
	SLADeadline time.Time `json:"sla_deadline"`
	Status      AlertStatus `json:"status"`
}

// RemediationActionType is the closed catalog of remediation actions
// RemediationOrchestrator may emit.
type RemediationActionType string

const (
	ActionInvestigate      RemediationActionType = "INVESTIGATE"
	ActionEnhancedDD       RemediationActionType = "ENHANCED_DD"
	ActionCollectDocuments RemediationActionType = "COLLECT_DOCUMENTS"
	ActionFileSAR          RemediationActionType = "FILE_SAR"
	ActionReview           RemediationActionType = "REVIEW"
)

// RemediationAction is a derived follow-up task owned by a human role.
type RemediationAction struct {
	Type          RemediationActionType `json:"type"`
	Owner         AlertRole             `json:"owner"`
	SLAHours      int                   `json:"sla_hours"`
	LinkedAlertIDs []string             `json:"linked_alert_ids"`
	Details       JSONB                 `json:"details"`
}

// Case aggregates linked alerts and evidence for Critical-band evaluations.
// Its own lifecycle is independent of the pipeline that created it.
type Case struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	AlertIDs      []string  `json:"alert_ids"`
	CreatedAt     time.Time `json:"created_at"`
}
