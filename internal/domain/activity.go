// internal/domain/activity.go
package domain

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExternalActivity is a normalized telemetry snapshot handed over by the
// ingestion collaborator. Distance and duration are pointers so that a
// missing value can be told apart from zero.
type ExternalActivity struct {
	UserID             primitive.ObjectID  `json:"userId"`
	ActivityDate       time.Time           `json:"activityDate"`
	ProviderActivityID string              `json:"providerActivityId,omitempty"`
	Mileage            *float64            `json:"mileage"`
	Duration           *float64            `json:"duration"` // minutes
	Pace               string              `json:"pace,omitempty"`
	AvgHR              int                 `json:"avgHR,omitempty"`
	MaxHR              int                 `json:"maxHR,omitempty"`
	HRZoneDistribution *HRZoneDistribution `json:"hrZoneDistribution,omitempty"`
	Cadence            int                 `json:"cadence,omitempty"`
	ElevationGain      float64             `json:"elevationGain,omitempty"`
	Calories           int                 `json:"calories,omitempty"`
	Raw                json.RawMessage     `json:"raw,omitempty"`
}
