package vm

import "fmt"

// Instructions are 32-bit words: the opcode in the top 8 bits and an
// unsigned 24-bit argument below it.
const (
	OP_HALT    uint8 = 0x00
	OP_NOOP    uint8 = 0x01
	OP_PUSH_C  uint8 = 0x02
	OP_PUSH_L  uint8 = 0x03
	OP_POP_L   uint8 = 0x04
	OP_DROP    uint8 = 0x05
	OP_DUP     uint8 = 0x06
	OP_ADD     uint8 = 0x10
	OP_SUB     uint8 = 0x11
	OP_MUL     uint8 = 0x12
	OP_DIV     uint8 = 0x13
	OP_INC_L   uint8 = 0x18
	OP_DEC_L   uint8 = 0x19
	OP_SYSCALL uint8 = 0x40
)

// MaxArg is the largest argument an instruction word can carry.
const MaxArg = 0x00FFFFFF

var opNames = map[uint8]string{
	OP_HALT:    "HALT",
	OP_NOOP:    "NOOP",
	OP_PUSH_C:  "PUSH_C",
	OP_PUSH_L:  "PUSH_L",
	OP_POP_L:   "POP_L",
	OP_DROP:    "DROP",
	OP_DUP:     "DUP",
	OP_ADD:     "ADD",
	OP_SUB:     "SUB",
	OP_MUL:     "MUL",
	OP_DIV:     "DIV",
	OP_INC_L:   "INC_L",
	OP_DEC_L:   "DEC_L",
	OP_SYSCALL: "SYSCALL",
}

// OpName returns the mnemonic for op.
func OpName(op uint8) string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OP_%#02x", op)
}

// Encode packs an opcode and its argument into an instruction word.
func Encode(op uint8, arg uint32) uint32 {
	return (uint32(op) << 24) | (arg & MaxArg)
}

// Decode splits an instruction word.
func Decode(instr uint32) (op uint8, arg uint32) {
	return uint8(instr >> 24), instr & MaxArg
}

// hasArg reports whether op uses its argument field.
func hasArg(op uint8) bool {
	switch op {
	case OP_PUSH_C, OP_PUSH_L, OP_POP_L, OP_INC_L, OP_DEC_L, OP_SYSCALL:
		return true
	}
	return false
}
