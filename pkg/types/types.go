package types

import "time"

// Status is the operational state of a production line, derived from its
// latest reading.
type Status string

// Status values. Offline marks a line that has stopped reporting.
const (
	StatusActive  Status = "active"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusOffline Status = "offline"
)

// Severity classifies a notification.
type Severity string

// Severity values.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// rank orders severities; unknown values rank below info.
func (s Severity) rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	}
	return 0
}

// AtLeast reports whether s is as severe as floor. An empty floor accepts
// everything.
func (s Severity) AtLeast(floor Severity) bool {
	if floor == "" {
		return true
	}
	return s.rank() >= floor.rank()
}

// Metric is one electrical reading for one line at one tick.
// All values are non-negative and rounded to two decimals.
type Metric struct {
	Timestamp   time.Time `json:"timestamp"`
	Current     float64   `json:"current"`      // A, mean across phases
	Voltage     float64   `json:"voltage"`      // V, mean line voltage
	ActivePower float64   `json:"active_power"` // kW, total active power
}

// ProductionLine is the derived state of a line after its most recent tick.
type ProductionLine struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Current     float64   `json:"current"`
	Voltage     float64   `json:"voltage"`
	Power       float64   `json:"power"`
	TargetPower float64   `json:"target_power"`
	Efficiency  int       `json:"efficiency"`
	LastUpdate  time.Time `json:"last_update"`
}

// Notification is a threshold event raised for a line. Only Read changes
// after creation.
type Notification struct {
	ID        string    `json:"id"`
	LineID    int       `json:"line_id"`
	Severity  Severity  `json:"severity"`
	Rule      string    `json:"rule"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// LineData is the per-line aggregate: current state plus the bounded metric
// and notification windows, oldest first.
type LineData struct {
	Line          ProductionLine `json:"line"`
	Metrics       []Metric       `json:"metrics"`
	Notifications []Notification `json:"notifications"`
}

// Latest returns the newest metric in the window and false when it is empty.
func (d LineData) Latest() (Metric, bool) {
	if len(d.Metrics) == 0 {
		return Metric{}, false
	}
	return d.Metrics[len(d.Metrics)-1], true
}

// Unread counts notifications not yet marked read.
func (d LineData) Unread() int {
	var n int
	for _, nt := range d.Notifications {
		if !nt.Read {
			n++
		}
	}
	return n
}

// Emitted returns the notifications raised by the line's most recent tick:
// those stamped with the same instant as the line's last update.
func (d LineData) Emitted() []Notification {
	var out []Notification
	for i := len(d.Notifications) - 1; i >= 0; i-- {
		n := d.Notifications[i]
		if !n.Timestamp.Equal(d.Line.LastUpdate) {
			break
		}
		out = append(out, n)
	}
	// Restore precedence order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
