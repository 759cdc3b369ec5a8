// Command validate checks TAF cycle files against the parser's structural
// guarantees: normalized entries obey the line layout, enough entries parse,
// and every parsed forecast has a well-formed period structure.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -cycle data/mock/taf_cycle_230424_00Z.txt \
//	  -min-parse-rate 0.75
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/taf-data-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// fileList collects repeated -cycle flags.
type fileList []string

func (f *fileList) String() string     { return strings.Join(*f, ",") }
func (f *fileList) Set(v string) error { *f = append(*f, v); return nil }

// cycleFile is one loaded cycle with its split and parsed forms.
type cycleFile struct {
	name    string
	entries []domain.CycleEntry
	result  domain.CycleResult
}

func main() {
	var cycles fileList
	flag.Var(&cycles, "cycle", "path to a TAF cycle file (repeatable)")
	minRate := flag.Float64("min-parse-rate", 0.75, "minimum fraction of entries that must parse per file")
	flag.Parse()

	cycles = append(cycles, flag.Args()...)
	if len(cycles) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(cycles, *minRate); code != 0 {
		os.Exit(code)
	}
}

func run(paths []string, minRate float64) int {
	fmt.Println("=== TAF Cycle Validation ===")
	fmt.Println()

	files := make([]cycleFile, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", path, err)
			return 1
		}
		name := filepath.Base(path)
		files = append(files, cycleFile{
			name:    name,
			entries: domain.SplitCycle(string(content)).Entries,
			result:  domain.ParseCycle(name, string(content)),
		})
	}

	phases := []*phase{
		validateNormalizer(files),
		validateParseRate(files, minRate),
		validatePeriods(files),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	var entries, forecasts, failures, malformed int
	for _, f := range files {
		entries += f.result.Entries
		forecasts += len(f.result.Forecasts)
		failures += len(f.result.Failures)
		malformed += f.result.MalformedHeaders
	}
	fmt.Println()
	fmt.Printf("Files: %d, entries: %d, forecasts: %d, failures: %d, malformed headers: %d\n",
		len(files), entries, forecasts, failures, malformed)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateNormalizer checks that every entry normalizes and that the result
// keeps bulletin prefixes off the outlook line and opens every later line
// with a line leader.
func validateNormalizer(files []cycleFile) *phase {
	p := &phase{name: "Phase 1: normalizer invariants"}
	for _, f := range files {
		for i, entry := range f.entries {
			tokenized, err := domain.TokenizeEntry(entry)
			if err != nil {
				p.errorf("%s#%d: tokenize: %v", f.name, i, err)
				continue
			}
			if len(tokenized.Lines) == 0 {
				p.errorf("%s#%d: no lines after normalization", f.name, i)
				continue
			}
			for _, tok := range tokenized.Lines[0] {
				if tok == "TAF" || tok == "AMD" || tok == "COR" {
					p.errorf("%s#%d: outlook line still holds prefix %q", f.name, i, tok)
				}
			}
			for n, line := range tokenized.Lines[1:] {
				if len(line) == 0 || !domain.IsLineLeader(line[0]) {
					p.errorf("%s#%d: line %d does not open with a line leader: %q", f.name, i, n+1, strings.Join(line, " "))
				}
			}
		}
	}
	return p
}

// validateParseRate checks each file's parse rate and rejects failure kinds
// that point at a grammar defect rather than bad input.
func validateParseRate(files []cycleFile, minRate float64) *phase {
	p := &phase{name: "Phase 2: parse rate"}
	for _, f := range files {
		r := f.result
		if r.Entries == 0 {
			p.errorf("%s: no entries", f.name)
			continue
		}
		rate := float64(len(r.Forecasts)) / float64(r.Entries)
		fmt.Printf("  %s: %d/%d parsed (%.1f%%)\n", f.name, len(r.Forecasts), r.Entries, rate*100)
		if rate < minRate {
			p.errorf("%s: parse rate %.2f below %.2f", f.name, rate, minRate)
		}
		for _, failure := range r.Failures {
			if errors.Is(failure.Err, domain.ErrAmbiguousToken) {
				p.errorf("%s#%d: %v", f.name, failure.Index, failure.Err)
			}
		}
	}
	return p
}

// validatePeriods checks the period structure of every parsed forecast.
func validatePeriods(files []cycleFile) *phase {
	p := &phase{name: "Phase 3: period structure"}
	for _, f := range files {
		for _, fc := range f.result.Forecasts {
			id := fmt.Sprintf("%s %s", f.name, fc.Station)
			if fc.Station == "" {
				p.errorf("%s: missing station", f.name)
			}
			if fc.Effective.Inverted() {
				p.errorf("%s: inverted validity window %s", id, fc.Effective)
			}
			if len(fc.Periods) == 0 {
				p.errorf("%s: no periods", id)
				continue
			}
			if fc.Periods[0].Change != domain.ChangeBase {
				p.errorf("%s: first period is %s, want base", id, fc.Periods[0].Change)
			}
			validatePeriodList(p, id, fc)
		}
	}
	return p
}

func validatePeriodList(p *phase, id string, fc domain.Forecast) {
	lastFrom := fc.Effective.Start
	for n, period := range fc.Periods {
		if period.Interval.Inverted() {
			p.errorf("%s: period %d interval %s inverted", id, n, period.Interval)
		}
		if (period.Transition != nil) != (period.Change == domain.ChangeBecoming) {
			p.errorf("%s: period %d (%s) transition mismatch", id, n, period.Change)
		}
		if period.Probability != nil && (*period.Probability < 0 || *period.Probability > 100) {
			p.errorf("%s: period %d probability %d out of range", id, n, *period.Probability)
		}
		if period.Change == domain.ChangeFrom {
			if period.Interval.Start.Before(lastFrom) {
				p.errorf("%s: FM period %d starts before the previous one", id, n)
			}
			lastFrom = period.Interval.Start
		}
	}
}
