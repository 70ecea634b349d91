package vm_test

import (
	"io"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/agenthands/svm/pkg/vm"
)

// Property-based tests for the dispatch loop's stack accounting.

func TestPropertyPushRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("pushing any i32 literal lands it on top", prop.ForAll(
		func(val int32) bool {
			m := vm.NewMachine(4)
			stack := make([]int32, 4)
			depth, err := m.Execute(prog(ins(vm.OpPush, val), ins(vm.OpHalt)), stack, 0)
			return err == nil && depth == 1 && stack[0] == val
		},
		gen.Int32(),
	))

	properties.Property("push from a non-empty initial index appends", prop.ForAll(
		func(val int32, initial int) bool {
			m := vm.NewMachine(4)
			stack := make([]int32, 16)
			depth, err := m.Execute(prog(ins(vm.OpPush, val), ins(vm.OpHalt)), stack, initial)
			return err == nil && depth == initial+1 && stack[initial] == val
		},
		gen.Int32(),
		gen.IntRange(0, 8),
	))

	properties.TestingRun(t)
}

func TestPropertyStackEffect(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	// div/mod are excluded: a zero divisor faults instead of
	// completing. Control-stack opcodes are exercised separately since
	// their success depends on control-stack state.
	ops := []vm.Opcode{
		vm.OpNop, vm.OpDup, vm.OpPop, vm.OpSwap, vm.OpAdd, vm.OpSub,
		vm.OpMul, vm.OpEq, vm.OpLt, vm.OpLe, vm.OpGt, vm.OpGe,
		vm.OpPrint,
	}

	properties.Property("executing one opcode changes depth by its stack effect", prop.ForAll(
		func(opIdx int, a int32, b int32) bool {
			op := ops[opIdx]
			m := vm.NewMachine(4)
			m.Out = io.Discard
			stack := make([]int32, 8)
			stack[0], stack[1], stack[2] = a, b, a

			depth, err := m.Execute(ins(op), stack, 3)
			return err == nil && depth == 3+op.StackEffect()
		},
		gen.IntRange(0, len(ops)-1),
		gen.Int32(),
		gen.Int32(),
	))

	properties.Property("binary ops underflow below two operands", prop.ForAll(
		func(opIdx int, depth int) bool {
			binops := []vm.Opcode{
				vm.OpAdd, vm.OpSub, vm.OpMul, vm.OpDiv, vm.OpMod,
				vm.OpEq, vm.OpLt, vm.OpLe, vm.OpGt, vm.OpGe, vm.OpSwap,
			}
			op := binops[opIdx%len(binops)]
			m := vm.NewMachine(4)
			stack := make([]int32, 8)

			got, err := m.Execute(ins(op), stack, depth)
			return err == vm.ErrStackUnderflow && got == depth
		},
		gen.IntRange(0, 10),
		gen.IntRange(0, 1),
	))

	properties.TestingRun(t)
}
