// Command ufo-run loads a JSON task graph and runs it to completion
// against the fixed scheduler, printing a metrics summary when it
// drains. Its flags cover tracing, expansion, a simulated device count,
// an OpenCL device type and verbose logging.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	ufo "github.com/ufo-kit/ufo-go"
	"github.com/ufo-kit/ufo-go/internal/graph"
	"github.com/ufo-kit/ufo-go/internal/logging"
	"github.com/ufo-kit/ufo-go/internal/registry"
	"github.com/ufo-kit/ufo-go/internal/resources"
	_ "github.com/ufo-kit/ufo-go/tasks"
)

func main() {
	var (
		tracePath = flag.String("trace", "", "write a Chrome-tracing-compatible JSON trace to this path")
		expand    = flag.Bool("expand", true, "duplicate the longest GPU-only chain across every available device")
		gpus      = flag.Int("gpus", 0, "number of simulated GPU identities to offer the graph (0 = CPU only)")
		opencl    = flag.String("opencl-device", "", "device type (e.g. gpu, cpu) to request from a real OpenCL platform, built with -tags opencl")
		verbose   = flag.Bool("v", false, "verbose output")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <graph.json>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	graphPath := flag.Arg(0)

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	g, err := graph.ReadFromFile(graphPath, registry.Default())
	if err != nil {
		logger.Error("failed to load graph", "error", err)
		os.Exit(1)
	}

	backend, err := newBackend(*opencl, *gpus)
	if err != nil {
		logger.Error("failed to initialize backend", "error", err)
		os.Exit(1)
	}

	opts := ufo.DefaultParams()
	opts.Logger = logger
	opts.Tracing = *tracePath != ""
	opts.DisableExpand = !*expand

	s, err := ufo.New(g, backend, opts)
	if err != nil {
		logger.Error("failed to build scheduler", "error", err)
		os.Exit(1)
	}

	logger.Info("running graph", "nodes", g.NumNodes(), "gpus", *gpus, "trace", opts.Tracing)

	// Set up SIGUSR1 handler for stack trace dumps, useful when a
	// misbehaving generator never stops and the graph hangs.
	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go func() {
		for range stackDumpCh {
			buf := make([]byte, 1024*1024)
			n := runtime.Stack(buf, true)
			fmt.Fprintf(os.Stderr, "\n=== GOROUTINE STACK DUMP ===\n%s\n", buf[:n])
			pprof.Lookup("goroutine").WriteTo(os.Stderr, 2)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling run")
		cancel()
	}()

	runErr := s.Run(ctx)

	if *tracePath != "" {
		if err := s.WriteTrace(*tracePath); err != nil {
			logger.Error("failed to write trace", "error", err)
		} else {
			logger.Info("trace written", "path", *tracePath)
		}
	}

	if runErr != nil {
		logger.Error("run failed", "error", runErr)
		os.Exit(1)
	}

	snap := s.MetricsSnapshot()
	fmt.Printf("buffers: generator=%d processor=%d reductor=%d sink=%d (total=%d)\n",
		snap.GeneratorBuffers, snap.ProcessorBuffers, snap.ReductorBuffers, snap.SinkBuffers, snap.TotalBuffers)
	fmt.Printf("errors: %d (rate %.2f%%)\n", snap.TotalErrors, snap.ErrorRate)
	fmt.Printf("latency: avg=%s p50=%s p99=%s\n",
		time.Duration(snap.AvgLatencyNs), time.Duration(snap.LatencyP50Ns), time.Duration(snap.LatencyP99Ns))
	fmt.Printf("uptime: %s\n", time.Duration(snap.UptimeNs))
}

// newBackend builds the Resources backend the run executes against: a
// real OpenCL platform when -opencl-device is set (requires a binary
// built with -tags opencl), otherwise the always-available simulated
// backend offering numGPUs synthetic device identities.
func newBackend(openclDevice string, numGPUs int) (resources.Backend, error) {
	if openclDevice != "" {
		b, err := resources.NewOpenCL(openclDevice)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	if numGPUs < 0 {
		return nil, fmt.Errorf("gpus must be >= 0, got %d", numGPUs)
	}
	return resources.NewSimulated(numGPUs), nil
}

func init() {
	log.SetFlags(0)
}
