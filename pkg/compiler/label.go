package compiler

import "fmt"

// LabelGenerator is a process-wide monotonic unique label supply. Every
// pass that needs a fresh ILOC label (functions, if/while/for framing,
// comparison trampolines) shares one instance so labels never collide
// across a whole compilation, even across nested scopes and functions.
//
// Per spec.md section 9 ("reset it at the start of each compile run"),
// a driver running several compilations in one process (the bundled
// test suite, for instance) must construct a fresh LabelGenerator per
// Compile call rather than reuse one across runs.
type LabelGenerator struct {
	counter int
}

// NewLabelGenerator returns a generator whose first Next call yields "<s>_0".
func NewLabelGenerator() *LabelGenerator {
	return &LabelGenerator{counter: -1}
}

// Next increments the counter and returns "<s>_<n>".
func (g *LabelGenerator) Next(s string) string {
	g.counter++
	return fmt.Sprintf("%s_%d", s, g.counter)
}
