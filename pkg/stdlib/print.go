// Package stdlib provides the host functions osho bytecode calls into.
package stdlib

import (
	"fmt"
	"io"
	"math"

	"github.com/agenthands/osho/pkg/vm"
)

// PrintName is the syscall name bytecode uses for print statements.
const PrintName = "print"

// FormatC renders f the way C's printf("%f\n") does on glibc.
func FormatC(f float64) string {
	switch {
	case math.IsNaN(f):
		if math.Signbit(f) {
			return "-nan\n"
		}
		return "nan\n"
	case math.IsInf(f, 1):
		return "inf\n"
	case math.IsInf(f, -1):
		return "-inf\n"
	}
	return fmt.Sprintf("%f\n", f)
}

// Print returns a host function that pops one value and writes it to w in
// the compiled program's output format.
// ( value -- )
func Print(w io.Writer) vm.HostFunction {
	return func(m *vm.Machine) error {
		v := m.Pop()
		_, err := io.WriteString(w, FormatC(v))
		return err
	}
}

// Recorder captures printed values instead of formatting them.
type Recorder struct {
	Values []float64
}

// Print is a host function appending the popped value to r.Values.
// ( value -- )
func (r *Recorder) Print(m *vm.Machine) error {
	r.Values = append(r.Values, m.Pop())
	return nil
}

// Register binds fn to the print syscall of m, e.g. Print(os.Stdout) or a
// Recorder's Print.
func Register(m *vm.Machine, fn vm.HostFunction) {
	m.RegisterHostFunction(PrintName, fn)
}
