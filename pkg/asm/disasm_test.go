package asm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/agenthands/svm/pkg/asm"
)

func TestDisassembleListing(t *testing.T) {
	program, labels, err := asm.AssembleWithLabels("push 1\nloop: push -2\njnz @loop\nhalt")
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := asm.Disassemble(program, labels, &out); err != nil {
		t.Fatal(err)
	}

	listing := out.String()
	for _, want := range []string{"push 1", "push -2", "loop:", "jnz @loop", "halt"} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}
}

func TestDisassembleWithoutLabels(t *testing.T) {
	program, err := asm.Assemble("start: nop\njump @start")
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := asm.Disassemble(program, nil, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "jump -2") {
		t.Errorf("expected raw displacement in listing:\n%s", out.String())
	}
}

func TestDisassembleInvalidByte(t *testing.T) {
	var out bytes.Buffer
	if err := asm.Disassemble([]byte{0xEF}, nil, &out); err == nil {
		t.Error("expected error for invalid opcode byte")
	}
}

func TestDisassembleTruncatedOperand(t *testing.T) {
	program, err := asm.Assemble("push 1")
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := asm.Disassemble(program[:3], nil, &out); err == nil {
		t.Error("expected error for truncated operand")
	}
}
