package matcher

import (
	"fmt"

	"github.com/typeflow-dev/typeflow/abstract"
	"github.com/typeflow-dev/typeflow/typegraph"
)

// Substitutions maps type-parameter names to the Variables holding the
// values witnessed for them. An empty map is a valid success ("matched,
// zero parameters bound") and must not be confused with a mismatch.
type Substitutions map[string]*typegraph.Variable

// Mismatch describes an ordinary type incompatibility. It is data, not an
// error: callers inspect it to emit a diagnostic or try another overload.
type Mismatch struct {
	// Value is the source value that failed to satisfy Target.
	Value abstract.Value
	// Target is the formal type the value was matched against.
	Target abstract.Value
	// Reason is a short human-oriented explanation.
	Reason string
}

func (m *Mismatch) String() string {
	return fmt.Sprintf("%s does not match %s: %s", m.Value, m.Target, m.Reason)
}

// MatchResult is the outcome of one match attempt. Exactly one of Subst and
// Mismatch is set: Subst on success (possibly empty), Mismatch on an
// expected incompatibility. Warnings record precision-relevant events that
// did not affect the verdict.
type MatchResult struct {
	Subst    Substitutions
	Mismatch *Mismatch
	Warnings []string
}

// Matched reports whether the attempt succeeded.
func (r *MatchResult) Matched() bool {
	return r != nil && r.Mismatch == nil
}

func (r *MatchResult) String() string {
	if r == nil {
		return "<nil>"
	}
	if r.Mismatch != nil {
		return "mismatch: " + r.Mismatch.String()
	}
	return fmt.Sprintf("matched, %d parameter(s) bound", len(r.Subst))
}

// Options configures matching behavior.
type Options struct {
	// MaxDepth bounds recursive matching. The visited set already guarantees
	// termination on cyclic metaclass structures; hitting this limit means
	// the host handed the matcher something outside its contract and is
	// reported as a fatal error, never as a mismatch.
	MaxDepth int `toml:"max_depth"`

	// EnableWarnings collects precision-loss notes (for example a match that
	// relied on one candidate of an ambiguous metaclass set) into the
	// result.
	EnableWarnings bool `toml:"enable_warnings"`

	// LogLevel is one of "error", "warn", "info", "debug".
	LogLevel string `toml:"log_level"`

	// LogTimestampFormat is the strftime layout for log timestamps.
	LogTimestampFormat string `toml:"log_timestamp_format"`

	// Logger overrides the logger built from LogLevel. Nil means a logger is
	// constructed on demand; use a noop logger to silence output entirely.
	Logger Logger `toml:"-"`
}

// DefaultOptions returns the default matching configuration.
func DefaultOptions() Options {
	return Options{
		MaxDepth:           100,
		EnableWarnings:     true,
		LogLevel:           "warn",
		LogTimestampFormat: "%Y-%m-%dT%H:%M:%S%z",
	}
}
