package asm

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/agenthands/svm/pkg/vm"
)

// Disassemble writes an offset-annotated listing of program to w.
// labels maps names to byte offsets, as returned by
// AssembleWithLabels; pass nil for a plain listing. Branch operands
// whose target carries a label are printed symbolically, others with
// their raw displacement and the resolved absolute offset.
func Disassemble(program []byte, labels map[string]int, w io.Writer) error {
	names := make(map[int]string, len(labels))
	for name, off := range labels {
		names[off] = name
	}

	pc := 0
	for pc < len(program) {
		if name, ok := names[pc]; ok {
			fmt.Fprintf(w, "%s:\n", name)
		}

		op, ok := vm.Decode(program[pc])
		if !ok {
			return fmt.Errorf("asm: invalid opcode 0x%02x at offset %d", program[pc], pc)
		}
		at := pc
		pc++

		if op.OperandCount() == 0 {
			fmt.Fprintf(w, "%04d\t%s\n", at, op.Mnemonic())
			continue
		}

		if pc+operandSize > len(program) {
			return fmt.Errorf("asm: truncated operand at offset %d", at)
		}
		val := int32(binary.LittleEndian.Uint32(program[pc:]))

		switch op {
		case vm.OpJump, vm.OpJz, vm.OpJnz, vm.OpCall:
			target := pc + int(val)
			if name, known := names[target]; known {
				fmt.Fprintf(w, "%04d\t%s @%s\n", at, op.Mnemonic(), name)
			} else {
				fmt.Fprintf(w, "%04d\t%s %+d\t; -> %04d\n", at, op.Mnemonic(), val, target)
			}
		default:
			fmt.Fprintf(w, "%04d\t%s %d\n", at, op.Mnemonic(), val)
		}
		pc += operandSize
	}

	return nil
}
