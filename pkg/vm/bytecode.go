package vm

import (
	"fmt"
	"strings"

	"github.com/agenthands/osho/pkg/core/value"
)

// Bytecode represents the compiled output of a program.
type Bytecode struct {
	Instructions []uint32
	Constants    []float64
	// Locals holds variable names by slot index.
	Locals []string
	// Syscalls names the host functions referenced by OP_SYSCALL, by index.
	Syscalls []string
}

// Disassemble renders bc as one instruction per line.
func (bc *Bytecode) Disassemble() string {
	var b strings.Builder
	for ip, instr := range bc.Instructions {
		op, arg := Decode(instr)
		fmt.Fprintf(&b, "%04d %-8s", ip, OpName(op))
		if hasArg(op) {
			fmt.Fprintf(&b, " %d", arg)
			if note := bc.annotate(op, arg); note != "" {
				fmt.Fprintf(&b, "\t; %s", note)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (bc *Bytecode) annotate(op uint8, arg uint32) string {
	i := int(arg)
	switch op {
	case OP_PUSH_C:
		if i < len(bc.Constants) {
			return value.FormatFloat(bc.Constants[i])
		}
	case OP_PUSH_L, OP_POP_L, OP_INC_L, OP_DEC_L:
		if i < len(bc.Locals) {
			return bc.Locals[i]
		}
	case OP_SYSCALL:
		if i < len(bc.Syscalls) {
			return bc.Syscalls[i]
		}
	}
	return ""
}
