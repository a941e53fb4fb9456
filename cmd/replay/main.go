// Command replay runs a JSON-lines file of option prints through the flow engine
// and writes every alert it raises, followed by a per-symbol summary.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"optix/internal/adapters/config"
	"optix/internal/alerts"
	"optix/internal/consumers"
	"optix/internal/domain/alert"
	"optix/internal/flow/aggregator"
	"optix/internal/flow/engine"
	"optix/pkg/errors"
	"optix/pkg/logger"
)

func main() {
	input := flag.String("input", "-", "JSON-lines trade file, - for stdin")
	level := flag.String("log-level", "warn", "log level")
	minSeverity := flag.String("min-severity", "INFO", "lowest severity to print")
	flag.Parse()

	if err := logger.Init(*level, "development"); err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(*input, *minSeverity); err != nil {
		logger.Get().Errorw("Replay failed", "error", err)
		os.Exit(1)
	}
}

func run(input, minSeverity string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var floor alert.Severity
	if err := floor.Decode(minSeverity); err != nil {
		return err
	}

	in := os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return errors.Wrapf(err, "open %s", input)
		}
		defer f.Close()
		in = f
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	e := engine.New(cfg.EngineConfig(), engine.Deps{
		Alerts: alerts.NewManager(cfg.Alerts.Manager, alerts.WithPolicy(cfg.SeverityPolicy())),
	})

	stats, err := replay(ctx, in, os.Stdout, e, floor)
	logger.Get().Infow("Replay finished",
		"lines", stats.Lines,
		"processed", stats.Processed,
		"rejected", stats.Rejected,
		"alerts", stats.Alerts,
	)
	return err
}

// Stats counts what a replay did
type Stats struct {
	Lines     int `json:"lines"`
	Processed int `json:"processed"`
	Rejected  int `json:"rejected"`
	Alerts    int `json:"alerts"`
}

// alertLine and summaryLine are the output records, one JSON object per line
type alertLine struct {
	Kind   string      `json:"kind"`
	Line   int         `json:"line"`
	Merged bool        `json:"merged"`
	Alert  alert.Alert `json:"alert"`
}

type summaryLine struct {
	Kind    string              `json:"kind"`
	Stats   *Stats              `json:"stats,omitempty"`
	Summary *aggregator.Summary `json:"summary,omitempty"`
}

// replay feeds every line of r through e. Bad lines are counted and skipped
func replay(ctx context.Context, r io.Reader, w io.Writer, e *engine.Engine, floor alert.Severity) (Stats, error) {
	log := logger.Component("replay")
	enc := json.NewEncoder(w)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var st Stats
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.Lines++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}

		t, err := consumers.DecodeTrade(raw)
		if err != nil {
			st.Rejected++
			log.Warnw("Undecodable line", "line", st.Lines, "error", err)
			continue
		}

		res, err := e.ProcessTrade(ctx, t)
		if err != nil {
			st.Rejected++
			log.Warnw("Trade rejected", "line", st.Lines, "trade_id", t.ID, "error", err)
			continue
		}
		st.Processed++

		if err := emit(enc, st.Lines, res.AlertsCreated, false, floor, &st); err != nil {
			return st, err
		}
		if err := emit(enc, st.Lines, res.AlertsMerged, true, floor, &st); err != nil {
			return st, err
		}
	}
	if err := sc.Err(); err != nil {
		return st, errors.Wrap(err, "read input")
	}

	for _, symbol := range e.Symbols() {
		sum := e.OrderFlowSummary(symbol)
		if err := enc.Encode(summaryLine{Kind: "summary", Summary: &sum}); err != nil {
			return st, err
		}
	}
	return st, enc.Encode(summaryLine{Kind: "stats", Stats: &st})
}

func emit(enc *json.Encoder, line int, as []alert.Alert, merged bool, floor alert.Severity, st *Stats) error {
	for _, a := range as {
		if !a.Severity.AtLeast(floor) {
			continue
		}
		if !merged {
			st.Alerts++
		}
		if err := enc.Encode(alertLine{Kind: "alert", Line: line, Merged: merged, Alert: a}); err != nil {
			return err
		}
	}
	return nil
}
