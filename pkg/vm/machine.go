package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

var (
	ErrInvalidOpcode         = errors.New("vm: invalid opcode")
	ErrUnexpectedProgramEnd  = errors.New("vm: unexpected end of program")
	ErrStackOverflow         = errors.New("vm: stack overflow")
	ErrStackUnderflow        = errors.New("vm: stack underflow")
	ErrControlStackOverflow  = errors.New("vm: control stack overflow")
	ErrControlStackUnderflow = errors.New("vm: control stack underflow")
	ErrDivisionByZero        = errors.New("vm: division by zero")
)

// Machine executes bytecode against a caller-supplied operand stack.
// It owns the control stack, which holds return addresses for call/ret
// and spare values moved over by rpush/rpop/rpeek.
//
// A Machine must not be driven by more than one Execute call at a
// time; independent Machines are safe to run concurrently.
type Machine struct {
	control []int32
	csp     int

	// Out receives one line per print instruction, in instruction
	// order. Defaults to os.Stdout.
	Out io.Writer

	// Trace, when set, logs every dispatched instruction at debug
	// level.
	Trace *slog.Logger
}

// NewMachine returns a Machine whose control stack holds up to
// controlCapacity values.
func NewMachine(controlCapacity int) *Machine {
	return &Machine{control: make([]int32, controlCapacity)}
}

// Execute runs program against stack, starting with stackIdx values
// already live. It returns the final stack depth, or the error that
// stopped the dispatch loop. The stack is never resized; its length is
// the capacity. Reaching the end of the program is equivalent to halt.
//
// Every instruction is bounds checked before its body runs: the stack
// must hold at least StackArgs values and have room for the
// instruction's StackEffect. Instruction bodies therefore index the
// stack without further checks; only the control stack, sized
// independently, is checked inside call/ret/rpush/rpop/rpeek.
func (m *Machine) Execute(program []byte, stack []int32, stackIdx int) (int, error) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}

	sp := stackIdx
	pc := 0
	m.csp = 0

	// A branch target outside the program ends execution, same as
	// running off the end.
	for pc >= 0 && pc < len(program) {
		op, ok := Decode(program[pc])
		if !ok {
			return sp, ErrInvalidOpcode
		}
		pc++

		info := &instrTable[op]
		if sp < info.stackArgs {
			return sp, ErrStackUnderflow
		}
		if sp+info.stackEffect > len(stack) {
			return sp, ErrStackOverflow
		}

		if m.Trace != nil {
			m.Trace.Debug("dispatch", "pc", pc-1, "op", info.mnemonic, "sp", sp, "csp", m.csp)
		}

		switch op {
		case OpNop:

		case OpPush:
			val, next, err := readOperand(program, pc)
			if err != nil {
				return sp, err
			}
			stack[sp] = val
			pc = next

		case OpDup:
			stack[sp] = stack[sp-1]

		case OpPop:
			// Depth change handled by the uniform post-step.

		case OpSwap:
			stack[sp-1], stack[sp-2] = stack[sp-2], stack[sp-1]

		case OpAdd:
			stack[sp-2] += stack[sp-1]

		case OpSub:
			stack[sp-2] -= stack[sp-1]

		case OpMul:
			stack[sp-2] *= stack[sp-1]

		case OpDiv:
			if stack[sp-1] == 0 {
				return sp, ErrDivisionByZero
			}
			stack[sp-2] /= stack[sp-1]

		case OpMod:
			if stack[sp-1] == 0 {
				return sp, ErrDivisionByZero
			}
			stack[sp-2] %= stack[sp-1]

		case OpEq:
			stack[sp-2] = boolToI32(stack[sp-2] == stack[sp-1])

		case OpLt:
			stack[sp-2] = boolToI32(stack[sp-2] < stack[sp-1])

		case OpLe:
			stack[sp-2] = boolToI32(stack[sp-2] <= stack[sp-1])

		case OpGt:
			stack[sp-2] = boolToI32(stack[sp-2] > stack[sp-1])

		case OpGe:
			stack[sp-2] = boolToI32(stack[sp-2] >= stack[sp-1])

		case OpPrint:
			fmt.Fprintln(out, stack[sp-1])

		case OpHalt:
			return sp, nil

		case OpJump:
			// Displacements are relative to the first operand byte,
			// which pc currently points at.
			delta, _, err := readOperand(program, pc)
			if err != nil {
				return sp, err
			}
			pc += int(delta)

		case OpJz, OpJnz:
			// The operand is consumed whether or not the branch is
			// taken.
			delta, next, err := readOperand(program, pc)
			if err != nil {
				return sp, err
			}
			cond := stack[sp-1]
			if (op == OpJz) == (cond == 0) {
				pc += int(delta)
			} else {
				pc = next
			}

		case OpCall:
			delta, next, err := readOperand(program, pc)
			if err != nil {
				return sp, err
			}
			if m.csp >= len(m.control) {
				return sp, ErrControlStackOverflow
			}
			m.control[m.csp] = int32(next)
			m.csp++
			pc += int(delta)

		case OpRet:
			if m.csp < 1 {
				return sp, ErrControlStackUnderflow
			}
			m.csp--
			pc = int(m.control[m.csp])

		case OpRpush:
			if m.csp >= len(m.control) {
				return sp, ErrControlStackOverflow
			}
			m.control[m.csp] = stack[sp-1]
			m.csp++

		case OpRpop:
			if m.csp < 1 {
				return sp, ErrControlStackUnderflow
			}
			m.csp--
			stack[sp] = m.control[m.csp]

		case OpRpeek:
			if m.csp < 1 {
				return sp, ErrControlStackUnderflow
			}
			stack[sp] = m.control[m.csp-1]
		}

		sp += info.stackEffect
	}

	return sp, nil
}

func readOperand(program []byte, pc int) (val int32, next int, err error) {
	if pc+operandSize > len(program) {
		return 0, 0, ErrUnexpectedProgramEnd
	}
	return int32(binary.LittleEndian.Uint32(program[pc:])), pc + operandSize, nil
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
