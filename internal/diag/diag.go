// Package diag provides diagnostics and shared options for the decompiler
// pipeline.
package diag

import (
	"fmt"

	"github.com/nikandfor/errors"
)

// Kind classifies a degradation. Degradations are recorded, never returned.
type Kind string

const (
	Unsupported   Kind = "unsupported"    // unrecognized bytecode, method falls back to gotos
	TypeInference Kind = "type_inference" // merge failure, typed conservatively
	Structure     Kind = "structure"      // ambiguous or irreducible region, goto fallback
)

// Diag records a non-fatal issue encountered while decompiling a method.
type Diag struct {
	Method string `json:"method,omitempty"`
	PC     int    `json:"pc"`
	Kind   Kind   `json:"kind"`
	Msg    string `json:"msg"`
}

func (d Diag) String() string {
	if d.Method == "" {
		return fmt.Sprintf("[%s] pc %d: %s", d.Kind, d.PC, d.Msg)
	}
	return fmt.Sprintf("[%s] %s pc %d: %s", d.Kind, d.Method, d.PC, d.Msg)
}

// Diags accumulates diagnostics. The zero value is ready to use; it is not
// safe for concurrent use.
type Diags struct {
	method string
	items  []Diag
}

// For returns an accumulator that stamps every entry with the method name.
func For(method string) *Diags { return &Diags{method: method} }

func (d *Diags) Add(pc int, kind Kind, msg string) {
	d.items = append(d.items, Diag{Method: d.method, PC: pc, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(pc int, kind Kind, format string, args ...any) {
	d.Add(pc, kind, fmt.Sprintf(format, args...))
}

// Merge appends all entries of o.
func (d *Diags) Merge(o *Diags) {
	if o != nil {
		d.items = append(d.items, o.items...)
	}
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }

// Count returns the number of entries of the given kind.
func (d *Diags) Count(kind Kind) int {
	n := 0
	for _, it := range d.items {
		if it.Kind == kind {
			n++
		}
	}
	return n
}

// ErrFatal is the root of every unrecoverable error: an operation is missing
// required operand data. It fails the method, or the whole type declaration
// in strict mode, and never affects sibling declarations.
var ErrFatal = errors.New("fatal")

// MethodError is a fatal error bound to one method.
type MethodError struct {
	Method string
	PC     int
	Err    error
}

func (e *MethodError) Error() string {
	if e.PC >= 0 {
		return fmt.Sprintf("%s pc %d: %v", e.Method, e.PC, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e *MethodError) Unwrap() error { return e.Err }

// Is makes every MethodError match ErrFatal.
func (e *MethodError) Is(target error) bool { return target == ErrFatal }

// Fatalf builds a MethodError at pc. Use pc -1 when no operation is involved.
func Fatalf(method string, pc int, format string, args ...any) *MethodError {
	return &MethodError{Method: method, PC: pc, Err: fmt.Errorf(format, args...)}
}

// IsFatal reports whether err is unrecoverable.
func IsFatal(err error) bool { return errors.Is(err, ErrFatal) }

// Mode controls error handling behavior.
type Mode int

const (
	ModeBestEffort Mode = iota // record failures on the method and continue
	ModeStrict                 // first fatal error fails the type declaration
)

func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "best-effort"
}

// ParseMode accepts "strict" and "best-effort". Empty means best-effort.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "best-effort", "besteffort":
		return ModeBestEffort, nil
	case "strict":
		return ModeStrict, nil
	}
	return 0, errors.New("unknown mode %q", s)
}

// Options controls the pipeline across packages.
type Options struct {
	Mode      Mode
	MaxPasses int // dataflow iteration cap; 0 = derived from the block count
	Workers   int // type declarations decompiled concurrently; 0 = 1
}

// EffectiveMaxPasses returns the dataflow pass cap for a graph of n blocks.
func (o Options) EffectiveMaxPasses(n int) int {
	if o.MaxPasses > 0 {
		return o.MaxPasses
	}
	if n < 4 {
		n = 4
	}
	return 4 * n * n
}

func (o Options) EffectiveWorkers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return 1
}
