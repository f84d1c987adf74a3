// Package utility scores agents and candidate actions from weighted claim
// metrics.
package utility

import (
	"math"
	"sort"

	"github.com/sells-group/claim-intel/internal/model"
)

// Metric keys recognized by CalculateUtility.
const (
	MetricApprovalRate         = "approvalRate"
	MetricCycleTimeDays        = "cycleTimeDays"
	MetricAvgPayout            = "avgPayout"
	MetricCustomerSatisfaction = "customerSatisfaction"
)

// Weight keys recognized in an agent's utility model.
const (
	WeightApproval     = "approval"
	WeightCycleTime    = "cycleTime"
	WeightPayout       = "payout"
	WeightSatisfaction = "satisfaction"
)

// Default weights, summing to 1.
const (
	defaultWeightApproval     = 0.4
	defaultWeightCycleTime    = 0.3
	defaultWeightPayout       = 0.2
	defaultWeightSatisfaction = 0.1
)

// HistoricalData summarizes past outcomes for an action type.
type HistoricalData struct {
	SuccessRate    float64 `json:"success_rate"`
	AvgImprovement float64 `json:"avg_improvement"`
}

// ScoredAction is a candidate for SelectBestAction.
type ScoredAction struct {
	ActionType model.ActionType `json:"action_type"`
	Utility    float64          `json:"utility"`
	Cost       float64          `json:"cost"`
}

// CalculateUtility scores an agent against claim metrics. Metrics default
// when absent (approvalRate 0.5, cycleTimeDays 30, avgPayout 0,
// customerSatisfaction 0.7); cycle time and payout are normalized into
// [0,1] before weighting. The result is clamped to [0,1].
func CalculateUtility(agent model.AgentDefinition, metrics map[string]float64) float64 {
	approval := metricOr(metrics, MetricApprovalRate, 0.5)
	cycleDays := metricOr(metrics, MetricCycleTimeDays, 30)
	payout := metricOr(metrics, MetricAvgPayout, 0)
	satisfaction := metricOr(metrics, MetricCustomerSatisfaction, 0.7)

	normalizedCycle := math.Min(1, 30/math.Max(cycleDays, 1))
	normalizedPayout := math.Min(1, payout/50000)

	weights := agent.Utility.Weights
	wApproval := weightOr(weights, WeightApproval, defaultWeightApproval)
	wCycle := weightOr(weights, WeightCycleTime, defaultWeightCycleTime)
	wPayout := weightOr(weights, WeightPayout, defaultWeightPayout)
	wSatisfaction := weightOr(weights, WeightSatisfaction, defaultWeightSatisfaction)

	score := wApproval*approval + wCycle*normalizedCycle + wPayout*normalizedPayout + wSatisfaction*satisfaction
	return Clamp(score)
}

// CalculateExpectedUtility projects the utility of taking an action.
// Without history the base utility takes a conservative 0.8 discount; with
// history it is scaled by the observed success rate and improvement.
func CalculateExpectedUtility(actionType model.ActionType, metrics map[string]float64, hist *HistoricalData) float64 {
	base := CalculateUtility(model.AgentDefinition{}, metrics)
	if hist == nil {
		return Clamp(base * 0.8)
	}
	return Clamp(base * hist.SuccessRate * (1 + hist.AvgImprovement))
}

// SelectBestAction ranks candidates by utility per unit cost and returns
// the winning action type. Cost is floored at 0.1 so free actions don't
// divide by zero. Empty input returns the empty string.
func SelectBestAction(actions []ScoredAction) model.ActionType {
	if len(actions) == 0 {
		return ""
	}

	ranked := make([]ScoredAction, len(actions))
	copy(ranked, actions)
	sort.SliceStable(ranked, func(i, j int) bool {
		return rank(ranked[i]) > rank(ranked[j])
	})
	return ranked[0].ActionType
}

func rank(a ScoredAction) float64 {
	return a.Utility / math.Max(a.Cost, 0.1)
}

// Clamp bounds a probability-like score to [0,1].
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func metricOr(metrics map[string]float64, key string, def float64) float64 {
	if v, ok := metrics[key]; ok {
		return v
	}
	return def
}

func weightOr(weights map[string]float64, key string, def float64) float64 {
	if v, ok := weights[key]; ok {
		return v
	}
	return def
}
