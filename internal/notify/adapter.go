// Package notify pushes operator alerts (rejected or stuck mutations,
// litigator flags) to chat platforms. Adapters are outbound-only; the
// notifier fans each alert out to every configured platform.
package notify

import "context"

// Severity levels for alerts.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Color constants for alert severity.
const (
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case SeverityWarning:
		return ColorWarning
	case SeverityError:
		return ColorError
	default:
		return ColorInfo
	}
}

// Field is a key-value pair displayed in an alert.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}

// Alert is one operator-facing notification.
type Alert struct {
	Title    string
	Body     string
	Severity string
	Color    string
	Fields   []Field
}

// Adapter is the interface platform-specific implementations must satisfy.
type Adapter interface {
	// Send delivers an alert to the platform.
	Send(ctx context.Context, alert Alert) error

	// Close shuts down the adapter connection.
	Close() error
}
