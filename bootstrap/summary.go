package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/edgecam/component"
)

// ComponentInfo is one summary line built from a registered component.
type ComponentInfo struct {
	Name    string
	Type    string
	Details string
	Port    int
	Health  component.Health
}

// Summary tracks and displays the service startup.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
}

// NewSummary creates a startup summary for a service.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Collect describes every registered component in registration order.
// Components that do not implement component.Describable are reported by
// name with type "component".
func (s *Summary) Collect(registry *component.Registry) []ComponentInfo {
	if registry == nil {
		return nil
	}
	ctx := context.Background()
	all := registry.All()
	infos := make([]ComponentInfo, 0, len(all))
	for _, c := range all {
		info := ComponentInfo{Name: c.Name(), Type: "component", Health: c.Health(ctx)}
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			if desc.Name != "" {
				info.Name = desc.Name
			}
			if desc.Type != "" {
				info.Type = desc.Type
			}
			info.Details = desc.Details
			info.Port = desc.Port
		}
		infos = append(infos, info)
	}
	return infos
}

// Write renders the summary, grouped by component type.
func (s *Summary) Write(w io.Writer, registry *component.Registry) {
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n\n", s.serviceName, s.version, s.startupDuration.Seconds())

	infos := s.Collect(registry)
	if len(infos) == 0 {
		fmt.Fprintf(w, "   └── No components registered\n\n")
		return
	}

	var order []string
	groups := map[string][]ComponentInfo{}
	for _, info := range infos {
		if _, seen := groups[info.Type]; !seen {
			order = append(order, info.Type)
		}
		groups[info.Type] = append(groups[info.Type], info)
	}

	healthy := 0
	for _, typ := range order {
		fmt.Fprintf(w, "%s %s\n", typeIcon(typ), sectionTitle(typ))
		group := groups[typ]
		for i, info := range group {
			details := info.Details
			if info.Port > 0 {
				details = fmt.Sprintf("%s (:%d)", details, info.Port)
			}
			line := fmt.Sprintf("   %s %s %s", treePrefix(i, len(group)), healthStatusIcon(info.Health.Status), info.Name)
			if details != "" {
				line += ": " + details
			}
			if info.Health.Message != "" {
				line += " (" + info.Health.Message + ")"
			}
			fmt.Fprintln(w, line)
			if info.Health.Status == component.StatusHealthy {
				healthy++
			}
		}
		fmt.Fprintln(w)
	}

	if healthy == len(infos) {
		fmt.Fprintf(w, "✅ All components healthy (%d/%d)\n\n", healthy, len(infos))
	} else {
		fmt.Fprintf(w, "⚠️  Some components have issues (%d/%d healthy)\n\n", healthy, len(infos))
	}
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func sectionTitle(typ string) string {
	switch typ {
	case "stage":
		return "Stages"
	case "server":
		return "Servers"
	case "events":
		return "Events"
	default:
		if typ == "" {
			return "Components"
		}
		return strings.ToUpper(typ[:1]) + typ[1:] + "s"
	}
}

func typeIcon(typ string) string {
	switch typ {
	case "stage":
		return "🎞️"
	case "server":
		return "🌐"
	case "events":
		return "📨"
	default:
		return "📦"
	}
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
