package sink

import (
	"github.com/linewatch/linewatch/pkg/types"
)

// MetricMessage is the payload published for each line on every tick.
type MetricMessage struct {
	LineID      int          `json:"line_id"`
	LineName    string       `json:"line_name"`
	Status      types.Status `json:"status"`
	Efficiency  int          `json:"efficiency"`
	TargetPower float64      `json:"target_power"`
	types.Metric
}

// metricMessage builds the payload for the latest reading of ld.
// ok is false for a line without readings.
func metricMessage(ld types.LineData) (MetricMessage, bool) {
	m, ok := ld.Latest()
	if !ok {
		return MetricMessage{}, false
	}
	return MetricMessage{
		LineID:      ld.Line.ID,
		LineName:    ld.Line.Name,
		Status:      ld.Line.Status,
		Efficiency:  ld.Line.Efficiency,
		TargetPower: ld.Line.TargetPower,
		Metric:      m,
	}, true
}
