// Package timerz provides named, thread-safe timer counters.
//
// A TimerCounter records how often a labeled operation happens and keeps
// streaming duration statistics (count, total, min, max, average) without
// retaining per-sample history in the aggregate. Each timed span carries
// metadata: an outcome classification plus free-form key/value properties.
//
// Core Components:
//   - TimerCounter: Owns the running statistics and creates trackers.
//   - Tracker: Handle for one in-flight timed operation.
//   - Metadata: Property bag with a typed Result accessor.
//   - MemoryStore: Bounded sample store used when a counter is enabled.
//   - Registry: Named collection of counters for config and export.
//
// Basic Usage:
//
//	counter := timerz.Must(timerz.New("project.load", "ide", timerz.WithEnabled(true)))
//	defer counter.Close()
//
//	t := counter.BeginTiming(ctx, "loading solution")
//	defer t.End()
//
//	t.Trace("parsed project files")
//	t.Metadata().SetResult(timerz.ResultSuccess)
//
// Typed Metadata:
//
// Embed *Metadata in your own type and supply a factory:
//
//	type BuildMetadata struct{ *timerz.Metadata }
//
//	counter, err := timerz.NewTimerCounter("build", "ide", func() BuildMetadata {
//		return BuildMetadata{timerz.NewMetadata()}
//	})
//
// Enabled and Logging Paths:
//
// When a counter is neither enabled nor logging, BeginTiming returns a null
// tracker. It still carries metadata so callers never branch on the
// counter state, but it records nothing.
//
// When only logging is on, BeginTiming writes the message (or
// "START: <name>") to the counter's Logger and trace messages go to the
// same Logger. Statistics are left untouched.
//
// Thread Safety:
//
// TimerCounter is safe for concurrent use by multiple goroutines. All
// writers serialize on one mutex per counter; the statistic readers are
// lock-free and may observe a slightly stale view.
//
// Trackers are owned by the goroutine that started them. End is safe to
// call more than once; only the first call counts.
//
// Trace Correlation:
//
// Route trace messages through the Tracker you hold. TimerCounter.Trace and
// TimerCounter.EndTiming act on the most recently started tracker only and
// are kept for code that never sees the handle. Under overlapping spans the
// last one started wins.
package timerz

// Name identifies a counter.
type Name = string

// Property is a metadata property key.
type Property = string
