package core

import "time"

// ImpactLevel buckets a risk score for presentation.
type ImpactLevel string

// Impact level constants.
const (
	ImpactLow      ImpactLevel = "low"
	ImpactMedium   ImpactLevel = "medium"
	ImpactHigh     ImpactLevel = "high"
	ImpactCritical ImpactLevel = "critical"
)

// Risk score weights. The column score is
// reads*1 + writes*3 + deletes*5 + piiExposure*10 + directDependents*2.
const (
	riskWeightRead            = 1.0
	riskWeightWrite           = 3.0
	riskWeightDelete          = 5.0
	riskWeightPIIExposure     = 10.0
	riskWeightDirectDependent = 2.0
)

// ImpactLevelFor converts a numeric risk score to an impact level.
func ImpactLevelFor(score float64) ImpactLevel {
	switch {
	case score < 20:
		return ImpactLow
	case score < 50:
		return ImpactMedium
	case score < 100:
		return ImpactHigh
	default:
		return ImpactCritical
	}
}

// ColumnRiskScore is the derived change-impact assessment for one column
// node. It is recomputed in full from the current graph, never patched
// incrementally.
type ColumnRiskScore struct {
	NodeID string

	DirectDependentCount     int
	TransitiveDependentCount int

	ReadOps   int
	WriteOps  int
	DeleteOps int

	AffectedProcedures int
	AffectedViews      int

	PIIExposureCount int

	RiskScore        float64
	Impact           ImpactLevel
	LastCalculatedAt time.Time
}

// Compute fills RiskScore and Impact from the counted inputs using the fixed
// weighted formula.
func (r *ColumnRiskScore) Compute() {
	r.RiskScore = float64(r.ReadOps)*riskWeightRead +
		float64(r.WriteOps)*riskWeightWrite +
		float64(r.DeleteOps)*riskWeightDelete +
		float64(r.PIIExposureCount)*riskWeightPIIExposure +
		float64(r.DirectDependentCount)*riskWeightDirectDependent
	r.Impact = ImpactLevelFor(r.RiskScore)
	r.LastCalculatedAt = time.Now().UTC()
}
