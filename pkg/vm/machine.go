package vm

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

var (
	ErrStackOverflow   = errors.New("vm: stack overflow")
	ErrStackUnderflow  = errors.New("vm: stack underflow")
	ErrGasExhausted    = errors.New("vm: gas exhausted")
	ErrInvalidBytecode = errors.New("vm: invalid bytecode")
	ErrUnknownSyscall  = errors.New("vm: unknown host function")
)

// HostFunction is a Go function registered to the VM.
type HostFunction func(m *Machine) error

// HostFunctionEntry binds a host function to the name bytecode refers to it by.
type HostFunctionEntry struct {
	Name string
	Fn   HostFunction
}

const StackDepth = 256

// Machine executes Bytecode over a fixed-size float64 operand stack.
type Machine struct {
	Stack [StackDepth]float64
	SP    int // Stack Pointer

	IP   int      // Instruction Pointer
	Code []uint32 // Bytecode instructions

	Constants []float64 // Constant pool
	Locals    []float64 // Variable slots

	HostRegistry []HostFunctionEntry
	syscalls     []HostFunction // resolved per loaded program
}

var machinePool = sync.Pool{
	New: func() any { return &Machine{} },
}

// GetMachine returns a reset Machine from the pool.
func GetMachine() *Machine {
	m := machinePool.Get().(*Machine)
	m.Reset()
	return m
}

// PutMachine returns m to the pool. m must not be used afterwards.
func PutMachine(m *Machine) {
	m.Reset()
	m.HostRegistry = m.HostRegistry[:0]
	machinePool.Put(m)
}

// Reset clears the machine state for reuse (sync.Pool compliant).
// Registered host functions survive a reset.
func (m *Machine) Reset() {
	m.SP = 0
	m.IP = 0
	m.Code = nil
	m.Constants = nil
	m.Locals = m.Locals[:0]
	m.syscalls = m.syscalls[:0]

	// Zero out the stack to avoid data leakage between runs
	for i := range m.Stack {
		m.Stack[i] = 0
	}
}

// RegisterHostFunction adds a host-side Go function to the VM's registry.
// A later registration under the same name takes precedence.
func (m *Machine) RegisterHostFunction(name string, fn HostFunction) uint32 {
	m.HostRegistry = append(m.HostRegistry, HostFunctionEntry{
		Name: name,
		Fn:   fn,
	})
	return uint32(len(m.HostRegistry) - 1)
}

func (m *Machine) lookupHost(name string) (HostFunction, bool) {
	for i := len(m.HostRegistry) - 1; i >= 0; i-- {
		if m.HostRegistry[i].Name == name {
			return m.HostRegistry[i].Fn, true
		}
	}
	return nil, false
}

// Load prepares m to run bc: code and constants are shared, locals are
// zeroed and every syscall name is resolved against the host registry.
func (m *Machine) Load(bc *Bytecode) error {
	m.SP = 0
	m.IP = 0
	m.Code = bc.Instructions
	m.Constants = bc.Constants

	if cap(m.Locals) >= len(bc.Locals) {
		m.Locals = m.Locals[:len(bc.Locals)]
		clear(m.Locals)
	} else {
		m.Locals = make([]float64, len(bc.Locals))
	}

	m.syscalls = m.syscalls[:0]
	for _, name := range bc.Syscalls {
		fn, ok := m.lookupHost(name)
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownSyscall, name)
		}
		m.syscalls = append(m.syscalls, fn)
	}
	return nil
}

// Push adds a value to the stack. Panics on overflow.
func (m *Machine) Push(v float64) {
	if m.SP >= StackDepth {
		panic(ErrStackOverflow)
	}
	m.Stack[m.SP] = v
	m.SP++
}

// Pop removes and returns the top value from the stack. Panics on underflow.
func (m *Machine) Pop() float64 {
	if m.SP <= 0 {
		panic(ErrStackUnderflow)
	}
	m.SP--
	return m.Stack[m.SP]
}

// Run executes instructions until HALT, error, or gas exhaustion.
// Each instruction costs one unit of gas.
func (m *Machine) Run(gasLimit int) (err error) {
	// Safety net: convert stack panics raised by host functions and bad
	// operands into errors
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && (e == ErrStackOverflow || e == ErrStackUnderflow) {
				err = e
				return
			}
			if re, ok := r.(runtime.Error); ok {
				err = fmt.Errorf("%w at IP %d: %v", ErrInvalidBytecode, m.IP, re)
				return
			}
			panic(r)
		}
	}()

	// Cache hot fields in local variables for register allocation
	ip := m.IP
	sp := m.SP
	code := m.Code

	for i := 0; i < gasLimit; i++ {
		// Mandatory state sync for syscalls/errors
		m.IP = ip
		m.SP = sp

		op, arg := Decode(code[ip])

		switch op {
		case OP_HALT:
			return nil

		case OP_NOOP:
			ip++

		case OP_PUSH_C, OP_PUSH_L, OP_DUP:
			if sp >= StackDepth {
				return ErrStackOverflow
			}
			switch op {
			case OP_PUSH_C:
				m.Stack[sp] = m.Constants[arg]
			case OP_PUSH_L:
				m.Stack[sp] = m.Locals[arg]
			default:
				if sp < 1 {
					return ErrStackUnderflow
				}
				m.Stack[sp] = m.Stack[sp-1]
			}
			sp++
			ip++

		case OP_POP_L:
			if sp < 1 {
				return fmt.Errorf("%w at POP_L index %d (IP: %d)", ErrStackUnderflow, arg, ip)
			}
			m.Locals[arg] = m.Stack[sp-1]
			sp--
			ip++

		case OP_DROP:
			if sp < 1 {
				return ErrStackUnderflow
			}
			sp--
			ip++

		case OP_ADD, OP_SUB, OP_MUL, OP_DIV:
			if sp < 2 {
				return ErrStackUnderflow
			}
			b := m.Stack[sp-1]
			a := m.Stack[sp-2]
			switch op {
			case OP_ADD:
				m.Stack[sp-2] = a + b
			case OP_SUB:
				m.Stack[sp-2] = a - b
			case OP_MUL:
				m.Stack[sp-2] = a * b
			default:
				m.Stack[sp-2] = a / b
			}
			sp--
			ip++

		case OP_INC_L:
			m.Locals[arg]++
			ip++

		case OP_DEC_L:
			m.Locals[arg]--
			ip++

		case OP_SYSCALL:
			fn := m.syscalls[arg]
			if err := fn(m); err != nil {
				return err
			}

			// Restore state after Syscall (SP might have changed)
			sp = m.SP
			ip++

		default:
			return fmt.Errorf("%w: unknown opcode %#02x at IP %d", ErrInvalidBytecode, op, ip)
		}
	}

	m.IP = ip
	m.SP = sp
	return ErrGasExhausted
}
