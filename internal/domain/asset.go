package domain

// Asset is a monitored transport asset (vehicle, container, courier) whose
// health context grounds the recommendation prompt.
type Asset struct {
	ID       string
	Name     string
	Type     string
	Status   string
	Location string
	Alerts   []Alert
}

// Alert is a recent incident attached to an asset.
type Alert struct {
	Severity string
	Message  string
}

// Status penalties for the health score.
const (
	statusPenaltyCritical    = 40
	statusPenaltyError       = 30
	statusPenaltyWarning     = 20
	statusPenaltyMaintenance = 15
	statusPenaltyInTransit   = 10

	alertPenalty = 5
)

// HealthScore computes a 0-100 score from status and alert volume:
// start at 100, subtract the status penalty and 5 per alert, clamp.
func (a *Asset) HealthScore() int {
	score := 100

	switch a.Status {
	case "critical":
		score -= statusPenaltyCritical
	case "error":
		score -= statusPenaltyError
	case "warning":
		score -= statusPenaltyWarning
	case "maintenance":
		score -= statusPenaltyMaintenance
	case "in_transit":
		score -= statusPenaltyInTransit
	}

	score -= alertPenalty * len(a.Alerts)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
