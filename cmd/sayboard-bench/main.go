// Command sayboard-bench scores detection accuracy offline: it decodes
// recorded samples with known keyword counts under a grid of dedup
// strategies and recognition variants, and prints per-cell accuracy.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"

	"github.com/sayboard/sayboard/internal/accuracy"
	"github.com/sayboard/sayboard/pkg/recognizer/vosk"
)

func main() {
	os.Exit(run())
}

func run() int {
	manifestPath := flag.String("manifest", "bench.yaml", "path to the benchmark manifest")
	parallelism := flag.Int("parallel", runtime.NumCPU(), "maximum concurrent decode runs")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	m, err := accuracy.LoadManifest(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sayboard-bench: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := &accuracy.Runner{
		Engine:      vosk.NewEngine(),
		Parallelism: *parallelism,
	}

	slog.Info("benchmark starting",
		"manifest", *manifestPath,
		"samples", len(m.Samples),
		"rounds", m.Rounds,
		"parallel", *parallelism,
	)

	results, err := runner.Run(ctx, m)
	if err != nil {
		slog.Error("benchmark failed", "err", err)
		return 1
	}

	printResults(results)
	return 0
}

func printResults(results []accuracy.Result) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SAMPLE\tKEYWORD\tVARIANT\tSTRATEGY\tEXPECTED\tMEAN\tSTDDEV\tACCURACY")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.1f\t%.2f\t%.1f%%\n",
			r.Sample, r.Keyword, r.Variant, r.Strategy,
			r.Expected, r.Mean, r.StdDev, r.Accuracy,
		)
	}
	w.Flush()
}
