package commands

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewRiskCommand creates the risk command.
func NewRiskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "risk <node-id>",
		Short: "Show the change-impact risk score of a column",
		Example: `  datalens risk dbo.customers.email
  datalens risk dbo.orders.total --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, rt, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			score, err := eng.RiskScore(args[0])
			if err != nil {
				return err
			}

			if rt.Renderer.JSONMode() {
				return rt.Renderer.JSON(riskView{
					NodeID:                   score.NodeID,
					RiskScore:                score.RiskScore,
					ImpactLevel:              string(score.Impact),
					DirectDependentCount:     score.DirectDependentCount,
					TransitiveDependentCount: score.TransitiveDependentCount,
					ReadOps:                  score.ReadOps,
					WriteOps:                 score.WriteOps,
					DeleteOps:                score.DeleteOps,
					PIIExposureCount:         score.PIIExposureCount,
					AffectedProcedures:       score.AffectedProcedures,
					AffectedViews:            score.AffectedViews,
					LastCalculatedAt:         score.LastCalculatedAt.Format(time.RFC3339),
				})
			}

			rt.Renderer.Printf("%s: %.1f (%s)\n", score.NodeID, score.RiskScore, strings.ToUpper(string(score.Impact)))
			rt.Renderer.Table([]string{"Metric", "Count"}, [][]string{
				{"Read operations", strconv.Itoa(score.ReadOps)},
				{"Write operations", strconv.Itoa(score.WriteOps)},
				{"Delete operations", strconv.Itoa(score.DeleteOps)},
				{"PII exposures", strconv.Itoa(score.PIIExposureCount)},
				{"Direct dependents", strconv.Itoa(score.DirectDependentCount)},
				{"Transitive dependents", strconv.Itoa(score.TransitiveDependentCount)},
				{"Affected procedures", strconv.Itoa(score.AffectedProcedures)},
				{"Affected views", strconv.Itoa(score.AffectedViews)},
			})
			return nil
		},
	}
}

type riskView struct {
	NodeID                   string  `json:"nodeId"`
	RiskScore                float64 `json:"riskScore"`
	ImpactLevel              string  `json:"impactLevel"`
	DirectDependentCount     int     `json:"directDependentCount"`
	TransitiveDependentCount int     `json:"transitiveDependentCount"`
	ReadOps                  int     `json:"readOps"`
	WriteOps                 int     `json:"writeOps"`
	DeleteOps                int     `json:"deleteOps"`
	PIIExposureCount         int     `json:"piiExposureCount"`
	AffectedProcedures       int     `json:"affectedProcedures"`
	AffectedViews            int     `json:"affectedViews"`
	LastCalculatedAt         string  `json:"lastCalculatedAt"`
}
