package hosting

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/gohost/component"
	"github.com/kbukum/gohost/di"
	"github.com/kbukum/gohost/logger"
)

// ComponentInfo holds a hosted component's summary entry.
type ComponentInfo struct {
	Name    string
	Type    string
	Details string
	Port    int
	Status  component.HealthStatus
	Message string
}

// Summary collects what the host started, for the startup log.
type Summary struct {
	hostID          string
	env             Environment
	startupDuration time.Duration
	registrations   map[di.Scope]int
	middleware      int
	components      []ComponentInfo
	routes          []component.Route
}

// NewSummary creates a summary for one host instance.
func NewSummary(hostID string, env Environment) *Summary {
	return &Summary{
		hostID:        hostID,
		env:           env,
		registrations: make(map[di.Scope]int),
	}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackRegistrations counts service bindings by scope.
func (s *Summary) TrackRegistrations(regs []di.Registration) {
	for _, r := range regs {
		s.registrations[r.Scope]++
	}
}

// TrackMiddleware records the number of pipeline middleware.
func (s *Summary) TrackMiddleware(n int) {
	s.middleware = n
}

// TrackComponents records every hosted component with live health, plus any
// routes server components report.
func (s *Summary) TrackComponents(ctx context.Context, registry *component.Registry) {
	for _, c := range registry.All() {
		info := ComponentInfo{Name: c.Name()}
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			if desc.Name != "" {
				info.Name = desc.Name
			}
			info.Type = desc.Type
			info.Details = desc.Details
			info.Port = desc.Port
		}
		h := c.Health(ctx)
		info.Status = h.Status
		info.Message = h.Message
		s.components = append(s.components, info)

		if rp, ok := c.(component.RouteProvider); ok {
			s.routes = append(s.routes, rp.Routes()...)
		}
	}
}

// Components returns the tracked components.
func (s *Summary) Components() []ComponentInfo {
	return s.components
}

// Log writes the summary as one structured log line.
func (s *Summary) Log(log *logger.Logger) {
	names := make([]string, 0, len(s.components))
	for _, c := range s.components {
		names = append(names, c.Name+"="+string(c.Status))
	}

	log.Info("Host started", map[string]interface{}{
		logger.FieldHostID:      s.hostID,
		"application":           s.env.ApplicationName(),
		logger.FieldEnvironment: s.env.EnvironmentName(),
		"content_root":          s.env.ContentRootPath(),
		logger.FieldDuration:    s.startupDuration.Milliseconds(),
		"singletons":            s.registrations[di.Singleton],
		"transients":            s.registrations[di.Transient],
		"instances":             s.registrations[di.Instance],
		"middleware":            s.middleware,
		"components":            names,
		"routes":                len(s.routes),
	})
}

// Print writes a human-readable summary to w.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "🚀 %s started in %.2fs [%s]\n", s.env.ApplicationName(), s.startupDuration.Seconds(), s.env.EnvironmentName())
	fmt.Fprintf(w, "   content root: %s\n", s.env.ContentRootPath())
	fmt.Fprintf(w, "   host id:      %s\n\n", s.hostID)

	fmt.Fprintf(w, "📦 Services: %d singleton, %d transient, %d instance; %d middleware\n",
		s.registrations[di.Singleton], s.registrations[di.Transient], s.registrations[di.Instance], s.middleware)

	if len(s.components) > 0 {
		fmt.Fprintf(w, "\n🏥 Components\n")
		for i, c := range s.components {
			details := c.Details
			if c.Port > 0 {
				details = fmt.Sprintf("%s (:%d)", details, c.Port)
			}
			msg := ""
			if c.Message != "" {
				msg = ": " + c.Message
			}
			fmt.Fprintf(w, "   %s %s %s: %s %s%s\n", treePrefix(i, len(s.components)), healthStatusIcon(c.Status),
				c.Name, strings.ToLower(string(c.Status)), details, msg)
		}
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", treePrefix(i, len(s.routes)), r.Method, r.Path, r.Handler)
		}
	}
	fmt.Fprintf(w, "\n")
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
