// Package diagnostics summarizes a running system's observable state —
// directory hit rate, supervisor restart counts, mailbox depths, pending
// correlations and scheduled work, and dropped dead letters — as a
// Markdown report, optionally rendered to HTML. It reports on runtime
// state; it does not log, and it is not a metrics-export subsystem.
package diagnostics

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/elkhart-labs/actorcore/internal/system"
)

// Report is a point-in-time snapshot of a system's runtime state, ready to
// render as Markdown or HTML.
type Report struct {
	DirectoryHitRate   float64
	MailboxDepths      map[string]int
	RestartCounts      map[string]int
	PendingCorrelation int
	PendingSchedules   int
	DeadLetterCount    int
}

// Capture builds a Report from a live system. Supervisor restart counts
// come from sys.Root(), which only reports on the root node's direct
// children — actors supervised by a lazily-created child node (spawned via
// WithParent) are not reflected here, matching the single-level scope the
// rest of this package's counters use.
func Capture(sys *system.System) Report {
	return Report{
		DirectoryHitRate:   sys.Directory().HitRate(),
		MailboxDepths:      sys.MailboxDepths(),
		RestartCounts:      sys.Root().RestartCounts(),
		PendingCorrelation: sys.Correlation().PendingCount(),
		PendingSchedules:   sys.Scheduler().PendingCount(),
		DeadLetterCount:    len(sys.DeadLetters()),
	}
}

// Markdown renders the report as a Markdown document.
func (r Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# System Report\n\n")
	fmt.Fprintf(&b, "- **Directory hit rate**: %.2f%%\n", r.DirectoryHitRate*100)
	fmt.Fprintf(&b, "- **Pending correlations**: %d\n", r.PendingCorrelation)
	fmt.Fprintf(&b, "- **Pending schedules**: %d\n", r.PendingSchedules)
	fmt.Fprintf(&b, "- **Dropped dead letters**: %d\n\n", r.DeadLetterCount)

	b.WriteString("## Mailbox depths\n\n")
	if len(r.MailboxDepths) == 0 {
		b.WriteString("_no live actors_\n\n")
	} else {
		b.WriteString("| Actor | Depth |\n|---|---|\n")
		for _, path := range sortedKeys(r.MailboxDepths) {
			fmt.Fprintf(&b, "| %s | %d |\n", path, r.MailboxDepths[path])
		}
		b.WriteString("\n")
	}

	b.WriteString("## Supervisor restart ledger\n\n")
	if len(r.RestartCounts) == 0 {
		b.WriteString("_no restarts recorded_\n")
	} else {
		b.WriteString("| Child | Restarts (window) |\n|---|---|\n")
		for _, path := range sortedKeys(r.RestartCounts) {
			fmt.Fprintf(&b, "| %s | %d |\n", path, r.RestartCounts[path])
		}
	}

	return b.String()
}

// HTML renders the report as Markdown, then converts it to HTML via
// goldmark, the same renderer the web layer in the rest of this module's
// lineage uses for its Markdown-flavored content.
func (r Report) HTML() template.HTML {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(r.Markdown()), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(r.Markdown()))
	}

	return template.HTML(buf.String())
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
