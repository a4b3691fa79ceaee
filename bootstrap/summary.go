package bootstrap

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/modkit/di"
	"github.com/kbukum/modkit/module"
	"github.com/kbukum/modkit/observability"
)

// Summary renders the startup report: modules, container registrations and
// module health.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	out             io.Writer
}

// NewSummary creates a summary for a service. out defaults to stdout.
func NewSummary(serviceName, version string, out io.Writer) *Summary {
	if out == nil {
		out = os.Stdout
	}
	return &Summary{
		serviceName: serviceName,
		version:     version,
		out:         out,
	}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Render writes the summary.
func (s *Summary) Render(containerID string, modules []module.Info, regs []di.RegistrationInfo, health []observability.Health) {
	w := s.out
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "🚀 %s v%s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())
	fmt.Fprintf(w, "   container %s\n\n", containerID)

	fmt.Fprintf(w, "📦 Modules\n")
	if len(modules) == 0 {
		fmt.Fprintf(w, "   └── No modules registered\n")
	}
	for i, m := range modules {
		fmt.Fprintf(w, "   %s %s %s (%s)", branch(i, len(modules)), moduleIcon(m.Status), m.Name, m.Status)
		if len(m.Capabilities) > 0 {
			fmt.Fprintf(w, " → %s", strings.Join(keyStrings(m.Capabilities), ", "))
		}
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintf(w, "\n🔗 Capabilities (%d)\n", len(regs))
	for i, r := range regs {
		owner := ""
		if r.Module != "" {
			owner = " [" + r.Module + "]"
		}
		fmt.Fprintf(w, "   %s %s %-8s %s%s\n", branch(i, len(regs)), scopeIcon(r.Scope), r.Scope, r.Key, owner)
	}

	if len(health) > 0 {
		fmt.Fprintf(w, "\n🏥 Health Check\n")
		up := 0
		for i, h := range health {
			msg := ""
			if h.Message != "" && h.Status != observability.HealthStatusUp {
				msg = " (" + h.Message + ")"
			}
			fmt.Fprintf(w, "   %s %s %s: %s%s\n", branch(i, len(health)), healthIcon(h.Status), h.Name, h.Status, msg)
			if h.Status == observability.HealthStatusUp {
				up++
			}
		}
		if up == len(health) {
			fmt.Fprintf(w, "\n✅ All modules healthy (%d/%d)\n", up, len(health))
		} else {
			fmt.Fprintf(w, "\n⚠️  Some modules have issues (%d/%d healthy)\n", up, len(health))
		}
	}
	fmt.Fprintf(w, "\n")
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func keyStrings(keys []di.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

func moduleIcon(status module.Status) string {
	switch status {
	case module.StatusStarted:
		return "✅"
	case module.StatusRegistered, module.StatusPending:
		return "⏸️"
	case module.StatusFailed:
		return "❌"
	default:
		return "⚠️"
	}
}

func scopeIcon(scope di.Scope) string {
	switch scope {
	case di.ScopeInstance:
		return "📌"
	case di.ScopeService:
		return "⚙️"
	case di.ScopeModule:
		return "🧩"
	default:
		return "❓"
	}
}

func healthIcon(status observability.HealthStatus) string {
	switch status {
	case observability.HealthStatusUp:
		return "✅"
	case observability.HealthStatusDegraded:
		return "⚠️"
	case observability.HealthStatusDown:
		return "❌"
	default:
		return "❓"
	}
}
