package vm

// Opcode identifies a single instruction of the machine.
//
// Opcode byte values are a stable wire contract: existing bytecode
// programs must keep working, so values are never reassigned and new
// opcodes are appended at the next free value. Codes 0-8 are the
// original assignment; everything after was added later.
type Opcode byte

const (
	OpNop Opcode = iota
	OpPush
	OpDup
	OpPop
	OpSwap
	OpAdd
	OpPrint
	OpHalt
	OpJump
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpLt
	OpLe
	OpGt
	OpGe
	OpJz
	OpJnz
	OpCall
	OpRet
	OpRpush
	OpRpop
	OpRpeek

	numOpcodes
)

// operandSize is the width of an inline operand: a little-endian
// signed 32-bit integer following the opcode byte.
const operandSize = 4

// instrInfo is the per-opcode metadata the assembler and the dispatch
// loop share. stackArgs is how many values the instruction pops;
// stackEffect is pushes minus pops. Together they are enough to bounds
// check any instruction before running its body.
type instrInfo struct {
	mnemonic    string
	operands    int
	stackArgs   int
	stackEffect int
}

var instrTable = [numOpcodes]instrInfo{
	OpNop:   {mnemonic: "nop"},
	OpPush:  {mnemonic: "push", operands: 1, stackEffect: +1},
	OpDup:   {mnemonic: "dup", stackArgs: 1, stackEffect: +1},
	OpPop:   {mnemonic: "pop", stackArgs: 1, stackEffect: -1},
	OpSwap:  {mnemonic: "swap", stackArgs: 2},
	OpAdd:   {mnemonic: "add", stackArgs: 2, stackEffect: -1},
	OpPrint: {mnemonic: "print", stackArgs: 1, stackEffect: -1},
	OpHalt:  {mnemonic: "halt"},
	OpJump:  {mnemonic: "jump", operands: 1},
	OpSub:   {mnemonic: "sub", stackArgs: 2, stackEffect: -1},
	OpMul:   {mnemonic: "mul", stackArgs: 2, stackEffect: -1},
	OpDiv:   {mnemonic: "div", stackArgs: 2, stackEffect: -1},
	OpMod:   {mnemonic: "mod", stackArgs: 2, stackEffect: -1},
	OpEq:    {mnemonic: "eq", stackArgs: 2, stackEffect: -1},
	OpLt:    {mnemonic: "lt", stackArgs: 2, stackEffect: -1},
	OpLe:    {mnemonic: "le", stackArgs: 2, stackEffect: -1},
	OpGt:    {mnemonic: "gt", stackArgs: 2, stackEffect: -1},
	OpGe:    {mnemonic: "ge", stackArgs: 2, stackEffect: -1},
	OpJz:    {mnemonic: "jz", operands: 1, stackArgs: 1, stackEffect: -1},
	OpJnz:   {mnemonic: "jnz", operands: 1, stackArgs: 1, stackEffect: -1},
	OpCall:  {mnemonic: "call", operands: 1},
	OpRet:   {mnemonic: "ret"},
	OpRpush: {mnemonic: "rpush", stackArgs: 1, stackEffect: -1},
	OpRpop:  {mnemonic: "rpop", stackEffect: +1},
	OpRpeek: {mnemonic: "rpeek", stackEffect: +1},
}

var mnemonicTable = func() map[string]Opcode {
	m := make(map[string]Opcode, numOpcodes)
	for op := Opcode(0); op < numOpcodes; op++ {
		m[instrTable[op].mnemonic] = op
	}
	return m
}()

// Decode maps a program byte to its Opcode. The second return is false
// for any byte outside the assigned range.
func Decode(b byte) (Opcode, bool) {
	if b >= byte(numOpcodes) {
		return 0, false
	}
	return Opcode(b), true
}

// DecodeMnemonic looks up an opcode by its assembly mnemonic.
// The match is case-sensitive and exact.
func DecodeMnemonic(s string) (Opcode, bool) {
	op, ok := mnemonicTable[s]
	return op, ok
}

// Mnemonic returns the assembly name of the opcode.
func (op Opcode) Mnemonic() string { return instrTable[op].mnemonic }

// OperandCount returns how many inline i32 operands follow the opcode byte.
func (op Opcode) OperandCount() int { return instrTable[op].operands }

// StackArgs returns how many operand-stack values the instruction pops.
func (op Opcode) StackArgs() int { return instrTable[op].stackArgs }

// StackEffect returns the net change in operand-stack depth.
func (op Opcode) StackEffect() int { return instrTable[op].stackEffect }
