package compiler

import (
	"raven/pkg/lexer"
	vmpkg "raven/pkg/vm"
)

func (p *Parser) beginScope() { p.fs.scopeDepth++ }

// endScope pops every local declared in the scope being closed, emitting
// CLOSE_UPVALUE for locals that were captured and POP for the rest.
func (p *Parser) endScope() {
	p.fs.scopeDepth--
	for p.fs.localCount > 0 && p.fs.locals[p.fs.localCount-1].depth > p.fs.scopeDepth {
		if p.fs.locals[p.fs.localCount-1].isCaptured {
			p.emitOp(vmpkg.OpCloseUpvalue)
		} else {
			p.emitOp(vmpkg.OpPop)
		}
		p.fs.localCount--
	}
}

// declareVariable registers previous as a new local in the current scope
// (no-op at global scope; globals are late-bound by name). Duplicate names
// within the same scope are a compile error.
func (p *Parser) declareVariable() {
	if p.fs.scopeDepth == 0 {
		return
	}
	name := p.previous
	for i := p.fs.localCount - 1; i >= 0; i-- {
		local := &p.fs.locals[i]
		if local.depth != -1 && local.depth < p.fs.scopeDepth {
			break
		}
		if local.name.Literal == name.Literal {
			p.compileError("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *Parser) addLocal(name lexer.Token) {
	if p.fs.localCount == maxLocals {
		p.compileError("Too many local variables in function.")
		return
	}
	p.fs.locals[p.fs.localCount] = localVar{name: name, depth: -1}
	p.fs.localCount++
}

// markInitialized finalizes the most recently declared local's depth, or
// is a no-op at global scope (globals have no "uninitialized" state).
func (p *Parser) markInitialized() {
	if p.fs.scopeDepth == 0 {
		return
	}
	p.fs.locals[p.fs.localCount-1].depth = p.fs.scopeDepth
}

// resolveLocal returns the slot index of name in fs's own locals, or -1.
func resolveLocal(fs *funcState, name lexer.Token) int {
	for i := fs.localCount - 1; i >= 0; i-- {
		if fs.locals[i].name.Literal == name.Literal {
			return i
		}
	}
	return -1
}

// resolveUpvalue resolves name as an upvalue of fs, recursing into
// enclosing compilers and capturing locals along the way, deduplicating by
// (index, isLocal).
func (p *Parser) resolveUpvalue(fs *funcState, name lexer.Token) int {
	if fs.enclosing == nil {
		return -1
	}
	if local := resolveLocal(fs.enclosing, name); local != -1 {
		fs.enclosing.locals[local].isCaptured = true
		return p.addUpvalue(fs, byte(local), true)
	}
	if up := p.resolveUpvalue(fs.enclosing, name); up != -1 {
		return p.addUpvalue(fs, byte(up), false)
	}
	return -1
}

func (p *Parser) addUpvalue(fs *funcState, index byte, isLocal bool) int {
	for i := 0; i < fs.upvalueCount; i++ {
		u := fs.upvalues[i]
		if u.index == index && u.isLocal == isLocal {
			return i
		}
	}
	if fs.upvalueCount == maxUpvalues {
		p.compileError("Too many closure variables in function.")
		return 0
	}
	fs.upvalues[fs.upvalueCount] = upvalueDesc{index: index, isLocal: isLocal}
	fs.upvalueCount++
	return fs.upvalueCount - 1
}

// namedVariable emits the load (or, if canAssign and an '=' follows, the
// store) sequence for an identifier reference, resolving it as a local,
// upvalue, or global in that order.
func (p *Parser) namedVariable(name lexer.Token, canAssign bool) {
	var getOp, setOp vmpkg.OpCode
	var arg byte

	if slot := resolveLocal(p.fs, name); slot != -1 {
		getOp, setOp, arg = vmpkg.OpGetLocal, vmpkg.OpSetLocal, byte(slot)
	} else if up := p.resolveUpvalue(p.fs, name); up != -1 {
		getOp, setOp, arg = vmpkg.OpGetUpvalue, vmpkg.OpSetUpvalue, byte(up)
	} else {
		getOp, setOp, arg = vmpkg.OpGetGlobal, vmpkg.OpSetGlobal, p.identifierConstant(name)
	}

	if canAssign && p.match(lexer.EQUAL) {
		p.expression()
		p.emitOpByte(setOp, arg)
		return
	}
	p.emitOpByte(getOp, arg)
}

// defineVariable finalizes a declared variable: at local scope it marks
// the local initialized (its stack slot already holds the value) and
// pushes a copy with GET_LOCAL; at global scope it emits DEFINE_GLOBAL
// (which pops the value) and reloads it with GET_GLOBAL. Either way the
// declaration remains expression-valued.
func (p *Parser) defineVariable(nameConst byte, name lexer.Token) {
	if p.fs.scopeDepth > 0 {
		p.markInitialized()
		p.emitOpByte(vmpkg.OpGetLocal, byte(p.fs.localCount-1))
		return
	}
	p.emitOpByte(vmpkg.OpDefineGlobal, nameConst)
	p.emitOpByte(vmpkg.OpGetGlobal, nameConst)
}
