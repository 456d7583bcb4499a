package commands

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btclog/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
	"github.com/elkhart-labs/actorcore/internal/build"
	"github.com/elkhart-labs/actorcore/internal/diagnostics"
	"github.com/elkhart-labs/actorcore/internal/supervisor"
	"github.com/elkhart-labs/actorcore/internal/system"
)

var (
	reportAddr    string
	demoActors    int
	demoFailRatio float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Boot an actor runtime and serve until signalled",
	Long: `run boots a System, spawns a demo supervision tree of worker
actors plus a recurring scheduled tick, and serves a diagnostics report
over HTTP until interrupted.`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().StringVar(
		&reportAddr, "report-addr", ":8090",
		"Address the diagnostics report is served on (empty to disable)",
	)
	runCmd.Flags().IntVar(
		&demoActors, "workers", 4,
		"Number of demo worker actors to spawn",
	)
	runCmd.Flags().Float64Var(
		&demoFailRatio, "fail-ratio", 0.1,
		"Fraction of demo ticks a worker fails on, to exercise supervision",
	)
}

func expandHome(path string) string {
	expanded := os.ExpandEnv(path)
	if expanded == path && len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("failed to get home directory: %v", err)
		}
		expanded = home + path[1:]
	}

	return expanded
}

func runDaemon(_ *cobra.Command, _ []string) error {
	logDirExpanded := expandHome(logDir)

	var logRotator *build.RotatingLogWriter
	if logDirExpanded != "" {
		logRotator = build.NewRotatingLogWriter()
		err := logRotator.InitLogRotator(&build.LogRotatorConfig{
			LogDir:         logDirExpanded,
			MaxLogFiles:    maxLogFiles,
			MaxLogFileSize: maxLogFileSize,
		})
		if err != nil {
			log.Printf(
				"failed to init log rotator: %v (continuing without file logging)",
				err,
			)
			logRotator = nil
		} else {
			defer logRotator.Close()

			multiWriter := io.MultiWriter(os.Stderr, logRotator)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags)
		}
	}

	log.Printf(
		"actorcored version %s go=%s node=%s", build.Version(),
		build.GoVersion, node,
	)

	var handlers []btclog.Handler
	handlers = append(handlers, btclog.NewDefaultHandler(os.Stderr))
	if logRotator != nil {
		handlers = append(handlers, btclog.NewDefaultHandler(logRotator))
	}

	combined := build.NewHandlerSet(handlers...)
	runtimeLogger := btclog.NewSLogger(combined)
	actor.UseLogger(runtimeLogger)
	system.UseLogger(runtimeLogger)
	supervisor.UseLogger(runtimeLogger)

	sys := system.New(system.Config{Node: node})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), 30*time.Second,
		)
		defer cancel()

		sys.Stop(shutdownCtx)
	}()

	workers := spawnDemoWorkers(sys, demoActors, demoFailRatio)
	if len(workers) > 0 {
		sys.Scheduler().ScheduleRecurring(2*time.Second, func() {
			for _, addr := range workers {
				sys.Send(context.Background(), addr, demoTick{})
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf(
			"received %v, initiating graceful shutdown (send again to force exit)...",
			sig,
		)
		cancel()

		sig = <-sigCh
		log.Printf("received %v again, forcing immediate exit", sig)
		os.Exit(1)
	}()

	var reportSrv *http.Server
	if reportAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/report", func(w http.ResponseWriter, _ *http.Request) {
			report := diagnostics.Capture(sys)
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			fmt.Fprint(w, report.Markdown())
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			report := diagnostics.Capture(sys)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, report.HTML())
		})

		reportSrv = &http.Server{Addr: reportAddr, Handler: mux}

		go func() {
			log.Printf("diagnostics report listening on %s", reportAddr)
			if err := reportSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("report server error: %v", err)
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(), 5*time.Second,
			)
			defer cancel()

			reportSrv.Shutdown(shutdownCtx)
		}()
	}

	log.Println("actorcored running; press Ctrl+C to stop")
	<-ctx.Done()

	return nil
}

// spawnDemoWorkers spawns n worker actors under one supervision node and
// returns their addresses, so a fresh daemon has something observable in
// its diagnostics report; runDaemon schedules the recurring tick that
// drives them. failRatio controls how
// often a tick handler panics-via-error, exercising the restart strategy.
func spawnDemoWorkers(sys *system.System, n int, failRatio float64) []actor.Address {
	if n <= 0 {
		return nil
	}

	addrs := make([]actor.Address, 0, n)
	for i := 0; i < n; i++ {
		id := uuid.NewString()
		addr, err := sys.Spawn(
			demoWorkerBehavior(failRatio), "demo-worker", id,
			system.WithStrategy(supervisor.Restart),
		)
		if err != nil {
			log.Printf("failed to spawn demo worker: %v", err)
			continue
		}
		addrs = append(addrs, addr)
	}

	log.Printf("spawned %d demo workers", len(addrs))

	return addrs
}

type demoTick struct{}

func demoWorkerBehavior(failRatio float64) actor.Behavior {
	var ticks int

	return actor.Behavior{
		Kind: actor.KindStateless,
		Handle: func(_ context.Context, msg, _ actor.Message, _ actor.Dependencies) actor.HandlerResult {
			if _, ok := msg.(demoTick); !ok {
				return actor.HandlerResult{}
			}

			ticks++
			if failRatio > 0 && ticks%int(1/failRatio) == 0 {
				panic("demo worker simulated failure")
			}

			return actor.HandlerResult{}
		},
	}
}
