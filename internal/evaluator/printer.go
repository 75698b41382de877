package evaluator

import (
	"fmt"
	"io"
	"sync"
)

// Printer serializes per-symbol progress lines from concurrent workers
// onto one writer so lines never interleave.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Printf writes one formatted line. A trailing newline is appended when
// the format does not end with one.
func (p *Printer) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := fmt.Sprintf(format, args...)
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line += "\n"
	}

	fmt.Fprint(p.out, line)
}
