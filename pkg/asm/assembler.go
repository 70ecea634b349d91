// Package asm assembles the line-oriented assembly text format into
// bytecode, and disassembles bytecode back into a listing.
//
// Each statement is an optional "label:" definition followed by an
// optional mnemonic and, if the mnemonic takes an operand, a decimal
// signed 32-bit literal or an "@label" reference. Statements are
// separated by newlines or ";". Tokens are whitespace-delimited;
// blank statements are skipped.
package asm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agenthands/svm/pkg/vm"
)

var (
	ErrLabelRedefined  = errors.New("asm: label redefined")
	ErrUnknownMnemonic = errors.New("asm: unrecognized instruction")
	ErrMissingOperand  = errors.New("asm: missing operand")
	ErrBadOperand      = errors.New("asm: expected label or 32-bit signed integer")
	ErrUndefinedLabel  = errors.New("asm: reference to undefined label")
)

const operandSize = 4

// labelRef records one use of a label: the name and the offset of the
// four reserved displacement bytes.
type labelRef struct {
	name   string
	offset int
}

type assembler struct {
	program []byte
	labels  map[string]int
	refs    []labelRef
}

// Assemble compiles source to bytecode. Any error is fatal for the
// whole call; there is no partial output.
func Assemble(source string) ([]byte, error) {
	program, _, err := AssembleWithLabels(source)
	return program, err
}

// AssembleWithLabels compiles source to bytecode and also returns the
// label table (name to byte offset), for tools that keep symbol names
// alongside the bytecode.
func AssembleWithLabels(source string) ([]byte, map[string]int, error) {
	a := &assembler{labels: make(map[string]int)}
	for _, line := range strings.Split(source, "\n") {
		for _, stmt := range strings.Split(line, ";") {
			if err := a.statement(stmt); err != nil {
				return nil, nil, err
			}
		}
	}
	if err := a.resolve(); err != nil {
		return nil, nil, err
	}
	return a.program, a.labels, nil
}

func (a *assembler) statement(stmt string) error {
	tokens := strings.Fields(stmt)

	if len(tokens) > 0 && strings.HasSuffix(tokens[0], ":") {
		name := strings.TrimSuffix(tokens[0], ":")
		if _, dup := a.labels[name]; dup {
			return fmt.Errorf("%w: %q", ErrLabelRedefined, name)
		}
		a.labels[name] = len(a.program)
		tokens = tokens[1:]
	}

	if len(tokens) == 0 {
		return nil
	}

	op, ok := vm.DecodeMnemonic(tokens[0])
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMnemonic, tokens[0])
	}
	a.program = append(a.program, byte(op))
	tokens = tokens[1:]

	for i := 0; i < op.OperandCount(); i++ {
		if len(tokens) == 0 {
			return fmt.Errorf("%w: after %q", ErrMissingOperand, op.Mnemonic())
		}
		tok := tokens[0]
		tokens = tokens[1:]

		if strings.HasPrefix(tok, "@") {
			// Reserve four zero bytes; resolve overwrites them once
			// the whole program is encoded.
			a.refs = append(a.refs, labelRef{name: tok[1:], offset: len(a.program)})
			a.program = append(a.program, 0, 0, 0, 0)
			continue
		}

		n, err := strconv.ParseInt(tok, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: after %q, got %q", ErrBadOperand, op.Mnemonic(), tok)
		}
		a.program = binary.LittleEndian.AppendUint32(a.program, uint32(int32(n)))
	}

	return nil
}

// resolve fills in every pending label use with the displacement from
// the use site to the label. The executor branches relative to the
// operand's own offset, so the bytecode stays valid wherever it is
// loaded.
func (a *assembler) resolve() error {
	for _, ref := range a.refs {
		target, ok := a.labels[ref.name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUndefinedLabel, ref.name)
		}
		delta := int32(target - ref.offset)
		binary.LittleEndian.PutUint32(a.program[ref.offset:], uint32(delta))
	}
	return nil
}
