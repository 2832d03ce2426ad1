// inspect-match runs the match queries of a scenario file and renders the
// outcomes. It is a typegraph debugging aid, not the analysis CLI: point it
// at a YAML scenario, optionally a TOML options file, and inspect what the
// matcher decides and which type parameters it binds.
//
// Usage:
//
//	inspect-match -scenario testdata/metaclass.yaml
//	inspect-match -scenario s.yaml -config matcher.toml -yaml
//	inspect-match -scenario s.yaml -watch
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	goyaml "github.com/itchyny/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"

	"github.com/typeflow-dev/typeflow/abstract"
	"github.com/typeflow-dev/typeflow/matcher"
	"github.com/typeflow-dev/typeflow/scenario"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "path to the scenario YAML file (required)")
		configPath   = flag.String("config", "", "path to a TOML matcher options file")
		asYAML       = flag.Bool("yaml", false, "emit results as YAML instead of a table")
		watch        = flag.Bool("watch", false, "re-run whenever the scenario file changes")
		verbose      = flag.Bool("v", false, "debug-level matcher logging")
	)
	flag.Parse()

	if *scenarioPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	opts, err := loadOptions(*configPath, *verbose)
	if err != nil {
		fatalf("%v", err)
	}

	if err := run(*scenarioPath, opts, *asYAML); err != nil {
		fatalf("%v", err)
	}
	if !*watch {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fatalf("failed to start watcher: %v", err)
	}
	defer watcher.Close()
	if err := watcher.Add(*scenarioPath); err != nil {
		fatalf("failed to watch %s: %v", *scenarioPath, err)
	}
	fmt.Fprintf(os.Stderr, "watching %s\n", *scenarioPath)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			fmt.Fprintf(os.Stderr, "--- %s changed\n", ev.Name)
			if err := run(*scenarioPath, opts, *asYAML); err != nil {
				// A half-saved file should not kill watch mode.
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}

// loadOptions builds matcher options from an optional TOML file.
func loadOptions(path string, verbose bool) (matcher.Options, error) {
	opts := matcher.DefaultOptions()
	if path != "" {
		if _, err := toml.DecodeFile(path, &opts); err != nil {
			return opts, fmt.Errorf("failed to load options from %s: %w", path, err)
		}
	}
	if verbose {
		opts.LogLevel = "debug"
	}
	return opts, nil
}

// queryResult is the YAML-facing shape of one query outcome.
type queryResult struct {
	Name          string              `yaml:"name"`
	Matched       bool                `yaml:"matched"`
	Substitutions map[string][]string `yaml:"substitutions,omitempty"`
	Mismatch      string              `yaml:"mismatch,omitempty"`
	Warnings      []string            `yaml:"warnings,omitempty"`
	WantViolated  bool                `yaml:"want_violated,omitempty"`
}

func run(path string, opts matcher.Options, asYAML bool) error {
	s, err := scenario.LoadFile(path)
	if err != nil {
		return err
	}
	m := matcher.New(s.Program, opts)

	results := make([]queryResult, 0, len(s.Queries))
	for _, q := range s.Queries {
		res, err := m.MatchVarAgainstType(q.Variable, q.Target, nil, s.Root, nil)
		if err != nil {
			return fmt.Errorf("query %q: %w", q.Name, err)
		}
		qr := queryResult{
			Name:     q.Name,
			Matched:  res.Matched(),
			Warnings: res.Warnings,
		}
		if res.Matched() {
			qr.Substitutions = substShape(res.Subst)
		} else {
			qr.Mismatch = res.Mismatch.String()
		}
		if q.Want == "match" && !res.Matched() || q.Want == "mismatch" && res.Matched() {
			qr.WantViolated = true
		}
		results = append(results, qr)
	}

	if asYAML {
		out, err := goyaml.Marshal(results)
		if err != nil {
			return fmt.Errorf("failed to render results: %w", err)
		}
		os.Stdout.Write(out)
	} else {
		renderTable(results)
	}

	for _, r := range results {
		if r.WantViolated {
			return fmt.Errorf("%d of %d queries violated their expected outcome", countViolations(results), len(results))
		}
	}
	return nil
}

func countViolations(results []queryResult) int {
	n := 0
	for _, r := range results {
		if r.WantViolated {
			n++
		}
	}
	return n
}

func substShape(s matcher.Substitutions) map[string][]string {
	out := make(map[string][]string, len(s))
	for name, v := range s {
		vals := []string{}
		for _, b := range v.Bindings() {
			if data, ok := b.Data.(abstract.Value); ok {
				vals = append(vals, data.String())
			}
		}
		out[name] = vals
	}
	return out
}

// ANSI colors, enabled only on a terminal.
const (
	colorReset = "\x1b[0m"
	colorGreen = "\x1b[32m"
	colorRed   = "\x1b[31m"
	colorDim   = "\x1b[2m"
)

func renderTable(results []queryResult) {
	colored := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	nameWidth := runewidth.StringWidth("QUERY")
	for _, r := range results {
		if w := runewidth.StringWidth(r.Name); w > nameWidth {
			nameWidth = w
		}
	}

	fmt.Printf("%s  %-8s  %s\n", runewidth.FillRight("QUERY", nameWidth), "RESULT", "DETAIL")
	for _, r := range results {
		word, color := "match", colorGreen
		detail := renderSubst(r.Substitutions)
		if !r.Matched {
			word, color = "mismatch", colorRed
			detail = r.Mismatch
		}
		// Pad before coloring; escape codes have no printable width.
		verdict := runewidth.FillRight(word, 8)
		if colored {
			verdict = strings.Replace(verdict, word, color+word+colorReset, 1)
		}
		fmt.Printf("%s  %s  %s\n", runewidth.FillRight(r.Name, nameWidth), verdict, detail)
		for _, w := range r.Warnings {
			warn := "  warning: " + w
			if colored {
				warn = colorDim + warn + colorReset
			}
			fmt.Println(warn)
		}
		if r.WantViolated {
			viol := "  expected outcome violated"
			if colored {
				viol = colorRed + viol + colorReset
			}
			fmt.Println(viol)
		}
	}
}

func renderSubst(subst map[string][]string) string {
	if len(subst) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(subst))
	for k := range subst {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=[%s]", k, strings.Join(subst[k], ", "))
	}
	return strings.Join(parts, " ")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "inspect-match: "+format+"\n", args...)
	os.Exit(1)
}
