package compiler

import (
	"raven/pkg/lexer"
	vmpkg "raven/pkg/vm"
)

func (p *Parser) currentChunk() *vmpkg.Chunk { return p.fs.fn.Chunk }

func (p *Parser) emitByte(b byte) {
	p.currentChunk().Write(b, p.previous.Line)
}

func (p *Parser) emitOp(op vmpkg.OpCode) {
	p.currentChunk().WriteOp(op, p.previous.Line)
}

func (p *Parser) emitOpByte(op vmpkg.OpCode, operand byte) {
	p.emitOp(op)
	p.emitByte(operand)
}

func (p *Parser) emitOpShort(op vmpkg.OpCode, operand uint16) {
	p.emitOp(op)
	p.emitByte(byte(operand >> 8))
	p.emitByte(byte(operand))
}

// makeConstant adds v to the current chunk's constant pool.
func (p *Parser) makeConstant(v vmpkg.Value) byte {
	idx, err := p.currentChunk().AddConstant(v)
	if err != nil {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (p *Parser) emitConstant(v vmpkg.Value) {
	p.emitOpByte(vmpkg.OpConstant, p.makeConstant(v))
}

// identifierConstant interns tok's lexeme as a string and returns its
// constant-pool index, for use as the name operand of GET/SET_GLOBAL,
// GET/SET_PROPERTY, METHOD, and CLASS.
func (p *Parser) identifierConstant(tok lexer.Token) byte {
	s := p.vm.InternString([]byte(tok.Literal))
	return p.makeConstant(vmpkg.ObjectValue(s))
}

// emitJump writes a jump opcode with a placeholder 16-bit offset and
// returns the offset of the placeholder's first byte, for a later
// patchJump call.
func (p *Parser) emitJump(op vmpkg.OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.currentChunk().Code) - 2
}

func (p *Parser) patchJump(offset int) {
	jump := len(p.currentChunk().Code) - offset - 2
	if jump > 0xffff {
		p.error("Too much code to jump over.")
	}
	code := p.currentChunk().Code
	code[offset] = byte(jump >> 8)
	code[offset+1] = byte(jump)
}

// emitLoop writes a LOOP instruction jumping back to loopStart.
func (p *Parser) emitLoop(loopStart int) {
	p.emitOp(vmpkg.OpLoop)
	offset := len(p.currentChunk().Code) - loopStart + 2
	if offset > 0xffff {
		p.error("Loop body too large.")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

func (p *Parser) emitReturn() {
	if p.fs.fnType == TypeInitializer {
		p.emitOpByte(vmpkg.OpGetLocal, 0)
	} else {
		p.emitOp(vmpkg.OpNil)
	}
	p.emitOp(vmpkg.OpReturn)
}
