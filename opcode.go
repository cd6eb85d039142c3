package wschat

import "fmt"

type Opcode uint8

const (
	OpcodeText   Opcode = 0x1
	OpcodeBinary Opcode = 0x2
	OpcodeClose  Opcode = 0x8
	OpcodePing   Opcode = 0x9
	OpcodePong   Opcode = 0xA

	opcodeContinuation Opcode = 0x0
)

func (o Opcode) String() string {
	switch o {
	case opcodeContinuation:
		return "CONTINUATION"
	case OpcodeText:
		return "TEXT"
	case OpcodeBinary:
		return "BINARY"
	case OpcodeClose:
		return "CLOSE"
	case OpcodePing:
		return "PING"
	case OpcodePong:
		return "PONG"
	}
	return fmt.Sprintf("Opcode(%#x)", uint8(o))
}

func (o Opcode) isValid() bool {
	return o >= opcodeContinuation && o <= OpcodeBinary ||
		o >= OpcodeClose && o <= OpcodePong
}

func (o Opcode) isControl() bool {
	return o >= OpcodeClose
}
