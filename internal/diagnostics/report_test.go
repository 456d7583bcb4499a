package diagnostics_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
	"github.com/elkhart-labs/actorcore/internal/diagnostics"
	"github.com/elkhart-labs/actorcore/internal/system"
)

func idleBehavior() actor.Behavior {
	return actor.Behavior{
		Kind: actor.KindStateless,
		Handle: func(_ context.Context, _, _ actor.Message, _ actor.Dependencies) actor.HandlerResult {
			return actor.HandlerResult{}
		},
	}
}

func TestCaptureReflectsLiveActorsAndDirectory(t *testing.T) {
	sys := system.New(system.Config{Node: "node-a"})
	defer sys.Stop(context.Background())

	addr, err := sys.Spawn(idleBehavior(), "worker", "one")
	require.NoError(t, err)

	_, ok := sys.Directory().Lookup(addr)
	require.True(t, ok)

	report := diagnostics.Capture(sys)

	require.Contains(t, report.MailboxDepths, addr.Path)
	require.Greater(t, report.DirectoryHitRate, 0.0)
}

func TestMarkdownListsMailboxesAndHandlesEmptyState(t *testing.T) {
	empty := diagnostics.Report{}
	md := empty.Markdown()

	require.Contains(t, md, "# System Report")
	require.Contains(t, md, "no live actors")
	require.Contains(t, md, "no restarts recorded")

	populated := diagnostics.Report{
		DirectoryHitRate: 0.75,
		MailboxDepths:    map[string]int{"actor://node/worker/one": 3},
		RestartCounts:    map[string]int{"actor://node/worker/one": 1},
	}
	md = populated.Markdown()

	require.Contains(t, md, "75.00%")
	require.Contains(t, md, "actor://node/worker/one")
}

func TestHTMLRendersMarkdownTable(t *testing.T) {
	report := diagnostics.Report{
		MailboxDepths: map[string]int{"actor://node/worker/one": 2},
	}

	out := string(report.HTML())

	require.True(t, strings.Contains(out, "<table>") || strings.Contains(out, "<h1"))
}
