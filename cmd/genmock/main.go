// Command genmock parses TAF cycle files and writes the JSON fixtures used by
// downstream test suites. It runs the real domain parser so the fixture
// matches what the pipeline publishes.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -cycle data/mock/taf_cycle_230424_00Z.txt \
//	  -out data/mock/taf_forecasts_230424_00Z.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/taf-data-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

type fixture struct {
	Source           string                `json:"source"`
	Entries          int                   `json:"entries"`
	MalformedHeaders int                   `json:"malformed_headers"`
	Forecasts        []domain.Forecast     `json:"forecasts"`
	Failures         []domain.EntryFailure `json:"failures"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cyclePath := flag.String("cycle", "", "path to a TAF cycle file")
	out := flag.String("out", "", "output path for the parsed JSON fixture")
	reference := flag.String("reference", "", "RFC 3339 processing time (default: one hour after the cycle's first header)")
	flag.Parse()

	if *cyclePath == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -cycle, -out")
	}

	content, err := os.ReadFile(*cyclePath)
	if err != nil {
		return fmt.Errorf("reading cycle: %w", err)
	}

	now, err := fixedNow(*reference, string(content))
	if err != nil {
		return err
	}

	// Set a fixed clock for reproducible ProcessedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(now))
	defer domain.SetClock(nil)

	source := filepath.Base(*cyclePath)
	result := domain.ParseCycle(source, string(content))

	fx := fixture{
		Source:           source,
		Entries:          result.Entries,
		MalformedHeaders: result.MalformedHeaders,
		Forecasts:        make([]domain.Forecast, 0, len(result.Forecasts)),
		Failures:         result.Failures,
	}
	for _, f := range result.Forecasts {
		fx.Forecasts = append(fx.Forecasts, domain.EnrichForecast(f))
	}
	if fx.Failures == nil {
		fx.Failures = []domain.EntryFailure{}
	}

	if err := writeJSON(*out, fx); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	printStats(fx)
	return nil
}

// fixedNow picks the processing time stamped on every forecast.
func fixedNow(flagValue, content string) (time.Time, error) {
	if flagValue != "" {
		t, err := time.Parse(time.RFC3339, flagValue)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid -reference: %w", err)
		}
		return t.UTC(), nil
	}

	cycle := domain.SplitCycle(content)
	for _, entry := range cycle.Entries {
		if tokenized, err := domain.TokenizeEntry(entry); err == nil {
			return tokenized.Received.Add(time.Hour), nil
		}
	}
	return time.Time{}, fmt.Errorf("cycle has no valid header; pass -reference")
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

type count struct {
	name  string
	count int
}

func sortedCounts(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for k, v := range m {
		out = append(out, count{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

func printStats(fx fixture) {
	fmt.Printf("\n=== Fixture Stats ===\n")
	fmt.Printf("Entries: %d (forecasts=%d failures=%d malformed_headers=%d)\n",
		fx.Entries, len(fx.Forecasts), len(fx.Failures), fx.MalformedHeaders)

	revisions := map[string]int{}
	changes := map[string]int{}
	elements := map[string]int{}
	for i := range fx.Forecasts {
		f := &fx.Forecasts[i]
		revisions[f.Revision.String()]++
		for _, p := range f.Periods {
			changes[p.Change.String()]++
			for _, e := range p.Elements {
				elements[e.Kind().String()]++
			}
		}
	}

	printCounts("Revisions", revisions)
	printCounts("Change groups", changes)
	printCounts("Elements", elements)

	kinds := map[string]int{}
	for _, failure := range fx.Failures {
		kinds[failure.Kind()]++
	}
	printCounts("Failure kinds", kinds)

	for _, failure := range fx.Failures {
		fmt.Printf("  #%d %s: %v\n", failure.Index, failure.Snippet, failure.Err)
	}
}

func printCounts(label string, m map[string]int) {
	fmt.Printf("%s (%d): ", label, len(m))
	for _, c := range sortedCounts(m) {
		fmt.Printf("%s=%d ", c.name, c.count)
	}
	fmt.Println()
}
