package projection

import (
	"time"
)

// Granularity "total" asks for the sum over the whole range and no samples.
const granularityTotal = "total"

// AccumulatedQuery selects the condensed deltas of one source.
type AccumulatedQuery struct {
	SourceID string    `form:"-"` // path parameter :source_id
	From     time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	To       time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	Width    string    `form:"width"` // default: "hours"
}

// ConsumptionQuery selects one figure of a main consumption or group.
type ConsumptionQuery struct {
	Name       string    `form:"-"` // path parameter :name
	Series     string    `form:"-"` // path parameter :series
	From       time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	To         time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	Resolution string    `form:"resolution"` // default: "days"
	Unit       string    `form:"unit"`
}

// PerformanceQuery selects an energy performance indicator over a period.
type PerformanceQuery struct {
	Name string    `form:"-"` // path parameter :name
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

// OfflineQuery selects the offline periods of a sequence between two
// inclusive dates.
type OfflineQuery struct {
	Name     string    `form:"-"` // path parameter :name
	FromDate time.Time `form:"from_date" binding:"required" time_format:"2006-01-02"`
	ToDate   time.Time `form:"to_date" binding:"required" time_format:"2006-01-02"`
}
