package api

import (
	"log/slog"
	"net/http"
	"strconv"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/linewatch/linewatch/pkg/types"
)

var allStatuses = []types.Status{
	types.StatusActive, types.StatusWarning, types.StatusError, types.StatusOffline,
}

// metrics serves GET /metrics: the latest reading of every line in the
// Prometheus text exposition format.
func (h *Handler) metrics(w http.ResponseWriter, _ *http.Request) {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	w.WriteHeader(http.StatusOK)

	enc := expfmt.NewEncoder(w, format)
	for _, mf := range buildFamilies(h.store.Lines()) {
		if err := enc.Encode(mf); err != nil {
			slog.Warn("api: encode metric family", "family", mf.GetName(), "err", err)
			return
		}
	}
}

// buildFamilies converts line aggregates into metric families, one sample
// per line per family.
func buildFamilies(lines []types.LineData) []*dto.MetricFamily {
	var (
		power   []*dto.Metric
		current []*dto.Metric
		voltage []*dto.Metric
		target  []*dto.Metric
		eff     []*dto.Metric
		unread  []*dto.Metric
		status  []*dto.Metric
	)
	for _, ld := range lines {
		l := ld.Line
		id := strconv.Itoa(l.ID)
		power = append(power, sample(l.Power, "line", id, "name", l.Name))
		current = append(current, sample(l.Current, "line", id, "name", l.Name))
		voltage = append(voltage, sample(l.Voltage, "line", id, "name", l.Name))
		target = append(target, sample(l.TargetPower, "line", id, "name", l.Name))
		eff = append(eff, sample(float64(l.Efficiency), "line", id, "name", l.Name))
		unread = append(unread, sample(float64(ld.Unread()), "line", id, "name", l.Name))
		for _, s := range allStatuses {
			v := 0.0
			if l.Status == s {
				v = 1
			}
			status = append(status, sample(v, "line", id, "status", string(s)))
		}
	}

	return []*dto.MetricFamily{
		gauge("linewatch_lines", "Number of monitored production lines.",
			sample(float64(len(lines)))),
		gauge("linewatch_line_active_power_kw", "Latest active power reading in kW.", power...),
		gauge("linewatch_line_current_amperes", "Latest current reading in A.", current...),
		gauge("linewatch_line_voltage_volts", "Latest voltage reading in V.", voltage...),
		gauge("linewatch_line_target_power_kw", "Target power in kW.", target...),
		gauge("linewatch_line_efficiency_percent", "Latest efficiency score, 0-100.", eff...),
		gauge("linewatch_line_unread_notifications", "Notifications not yet marked read.", unread...),
		gauge("linewatch_line_status", "1 for the line's current status, 0 otherwise.", status...),
	}
}

func gauge(name, help string, ms ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: ms,
	}
}

// sample builds one gauge sample; labels are name/value pairs.
func sample(v float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	return m
}
