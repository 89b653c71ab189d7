package compiler

import (
	"raven/pkg/lexer"
	vmpkg "raven/pkg/vm"
)

// declaration compiles one top-level unit and discards its value if any
// (the script itself has no enclosing block to hand a tail value to).
func (p *Parser) declaration() {
	if p.panicMode {
		p.synchronize()
	}
	if p.compileUnit() {
		p.emitOp(vmpkg.OpPop)
	}
}

// compileUnit compiles exactly one block unit — a declaration, a
// statement, or a bare expression — and reports whether it left a value
// on the stack for the caller to either discard or keep.
func (p *Parser) compileUnit() bool {
	switch p.current.Type {
	case lexer.VAR:
		p.advance()
		p.varDeclaration()
		return true
	case lexer.CLASS:
		p.advance()
		p.classDeclaration()
		return true
	case lexer.FUNC:
		p.advance()
		if p.check(lexer.IDENT) {
			p.advance()
			p.funDeclaration(p.previous)
			return true
		}
		p.compileFunction(TypeFunction, lexer.Token{Literal: ""})
		return true
	case lexer.PRINT:
		p.advance()
		p.printStatement()
		return false
	case lexer.RETURN:
		p.advance()
		p.returnStatement()
		return false
	case lexer.IF:
		p.advance()
		p.ifExpr()
		return true
	case lexer.WHILE:
		p.advance()
		p.whileExpr()
		return true
	case lexer.FOR:
		p.advance()
		p.forExpr()
		return true
	case lexer.LBRACE:
		p.advance()
		p.beginScope()
		p.blockBody()
		p.endScope()
		return true
	default:
		p.expression()
		if p.match(lexer.SEMI) {
			p.emitOp(vmpkg.OpPop)
			return false
		}
		return true
	}
}

// blockBody compiles the contents of a block whose opening '{' has
// already been consumed and whose scope has already been opened. It
// leaves exactly one value on the stack: the last dangling (not
// semicolon-terminated) expression's value, or NIL if the block is empty
// or every unit was terminated.
func (p *Parser) blockBody() {
	for !p.check(lexer.RBRACE) && !p.check(lexer.EOF) {
		if p.panicMode {
			p.synchronize()
		}
		leavesValue := p.compileUnit()
		if p.check(lexer.RBRACE) {
			if !leavesValue {
				p.emitOp(vmpkg.OpNil)
			}
			p.consume(lexer.RBRACE, "Expect '}' after block.")
			return
		}
		if leavesValue {
			p.emitOp(vmpkg.OpPop)
		}
	}
	p.emitOp(vmpkg.OpNil)
	p.consume(lexer.RBRACE, "Expect '}' after block.")
}

func (p *Parser) varDeclaration() {
	p.consume(lexer.IDENT, "Expect variable name.")
	nameTok := p.previous
	nameConst := p.identifierConstant(nameTok)
	p.declareVariable()

	if p.match(lexer.EQUAL) {
		p.expression()
	} else {
		p.emitOp(vmpkg.OpNil)
	}
	p.consume(lexer.SEMI, "Expect ';' after variable declaration.")
	p.defineVariable(nameConst, nameTok)
}

func (p *Parser) funDeclaration(nameTok lexer.Token) {
	nameConst := p.identifierConstant(nameTok)
	p.declareVariable()
	p.markInitialized()
	p.compileFunction(TypeFunction, nameTok)
	p.defineVariable(nameConst, nameTok)
}

// compileFunction compiles a function's parameter list and body into a
// fresh ObjFunction, nested in its own funcState, and emits the CLOSURE
// instruction that captures it in the enclosing function's chunk.
func (p *Parser) compileFunction(fnType FunctionType, nameTok lexer.Token) {
	fn := p.vm.NewFunction()
	if nameTok.Literal != "" {
		fn.Name = p.vm.InternString([]byte(nameTok.Literal))
	}

	enclosing := p.fs
	p.fs = &funcState{enclosing: enclosing, fn: fn, fnType: fnType}
	p.vm.PushCompilerRoot(fn)
	p.beginScope()

	recv := ""
	if fnType == TypeMethod || fnType == TypeInitializer {
		recv = "this"
	}
	p.fs.locals[0] = localVar{name: lexer.Token{Literal: recv}, depth: 0}
	p.fs.localCount = 1

	p.consume(lexer.LPAREN, "Expect '(' after function name.")
	if !p.check(lexer.RPAREN) {
		for {
			fn.Arity++
			if fn.Arity > 255 {
				p.compileError("Can't have more than 255 parameters.")
			}
			p.consume(lexer.IDENT, "Expect parameter name.")
			p.declareVariable()
			p.markInitialized()
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	p.consume(lexer.RPAREN, "Expect ')' after parameters.")
	p.consume(lexer.LBRACE, "Expect '{' before function body.")
	p.blockBody()

	if fnType == TypeInitializer {
		p.emitOp(vmpkg.OpPop)
		p.emitOpByte(vmpkg.OpGetLocal, 0)
	}
	p.emitOp(vmpkg.OpReturn)

	fn.UpvalueCount = p.fs.upvalueCount
	upvalues := p.fs.upvalues
	upvalueCount := p.fs.upvalueCount

	p.vm.PopCompilerRoot()
	p.fs = enclosing

	fnConst := p.makeConstant(vmpkg.ObjectValue(fn))
	p.emitOpByte(vmpkg.OpClosure, fnConst)
	for i := 0; i < upvalueCount; i++ {
		if upvalues[i].isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(upvalues[i].index)
	}
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(lexer.SEMI, "Expect ';' after value.")
	p.emitOp(vmpkg.OpPrint)
	p.emitOp(vmpkg.OpPop)
}

func (p *Parser) returnStatement() {
	if p.fs.fnType == TypeScript {
		p.compileError("Can't return from top-level code.")
	}
	if p.match(lexer.SEMI) {
		p.emitReturn()
		return
	}
	if p.fs.fnType == TypeInitializer {
		p.compileError("Can't return a value from an initializer.")
	}
	p.expression()
	p.consume(lexer.SEMI, "Expect ';' after return value.")
	p.emitOp(vmpkg.OpReturn)
}

// ifExpr: "if cond { block } (else { block })?"; always leaves exactly
// one value, synthesizing NIL for a missing else so both branches balance.
func (p *Parser) ifExpr() {
	p.expression()
	thenJump := p.emitJump(vmpkg.OpJumpIfFalse)
	p.emitOp(vmpkg.OpPop)

	p.consume(lexer.LBRACE, "Expect '{' after if condition.")
	p.beginScope()
	p.blockBody()
	p.endScope()

	elseJump := p.emitJump(vmpkg.OpJump)
	p.patchJump(thenJump)
	p.emitOp(vmpkg.OpPop)

	if p.match(lexer.ELSE) {
		p.consume(lexer.LBRACE, "Expect '{' after else.")
		p.beginScope()
		p.blockBody()
		p.endScope()
	} else {
		p.emitOp(vmpkg.OpNil)
	}
	p.patchJump(elseJump)
}

// whileExpr: "while cond { block }"; the loop's value is the last
// iteration's body value, or the initial NIL placeholder if it never ran.
func (p *Parser) whileExpr() {
	p.emitOp(vmpkg.OpNil)
	loopStart := len(p.currentChunk().Code)

	p.expression()
	exitJump := p.emitJump(vmpkg.OpJumpIfFalse)
	p.emitOp(vmpkg.OpPop) // condition
	p.emitOp(vmpkg.OpPop) // previous iteration's value

	p.consume(lexer.LBRACE, "Expect '{' after while condition.")
	p.beginScope()
	p.blockBody()
	p.endScope()

	p.emitLoop(loopStart)
	p.patchJump(exitJump)
	p.emitOp(vmpkg.OpPop) // leftover condition on the exit edge
}

// forExpr: "for name in iter { block }"; only lists and strings are
// iterable. The loop variable, the iterable and the index occupy three
// locals in a dedicated scope so endScope cleans them off the stack
// uniformly; the loop's value is nil.
func (p *Parser) forExpr() {
	p.beginScope()

	p.consume(lexer.IDENT, "Expect loop variable name.")
	nameTok := p.previous
	p.emitOp(vmpkg.OpNil)
	p.addLocal(nameTok)
	p.markInitialized()
	nameSlot := byte(p.fs.localCount - 1)

	p.consume(lexer.IN, "Expect 'in' after loop variable.")
	p.expression()
	p.addLocal(lexer.Token{Literal: ""})
	p.markInitialized()

	p.emitOpByte(vmpkg.OpInt, 0)
	p.addLocal(lexer.Token{Literal: ""})
	p.markInitialized()

	loopStart := len(p.currentChunk().Code)
	exitJump := p.emitJump(vmpkg.OpNextJump)
	p.emitOpByte(vmpkg.OpSetLocal, nameSlot)
	p.emitOp(vmpkg.OpPop)

	p.consume(lexer.LBRACE, "Expect '{' after for clause.")
	p.beginScope()
	p.blockBody()
	p.endScope()
	p.emitOp(vmpkg.OpPop)

	p.emitLoop(loopStart)
	p.patchJump(exitJump)
	p.emitOp(vmpkg.OpNil) // fills the index slot NEXT_JUMP consumed on exhaustion
	p.endScope()
	p.emitOp(vmpkg.OpNil)
}

// classDeclaration: "class Name (< Super)? { methods }".
func (p *Parser) classDeclaration() {
	p.consume(lexer.IDENT, "Expect class name.")
	nameTok := p.previous
	nameConst := p.identifierConstant(nameTok)
	p.declareVariable()

	p.emitOpByte(vmpkg.OpClass, nameConst)
	if p.fs.scopeDepth == 0 {
		// Define the global now so the superclass clause and the method
		// binding below can load the class by name.
		p.emitOpByte(vmpkg.OpDefineGlobal, nameConst)
	}
	p.markInitialized()

	cs := &classState{enclosing: p.cs}
	p.cs = cs

	if p.match(lexer.LESS) {
		p.consume(lexer.IDENT, "Expect superclass name.")
		superTok := p.previous
		if superTok.Literal == nameTok.Literal {
			p.compileError("A class can't inherit from itself.")
		}
		p.namedVariable(superTok, false)
		p.beginScope()
		p.addLocal(lexer.Token{Literal: "super"})
		p.markInitialized()
		p.namedVariable(nameTok, false)
		p.emitOp(vmpkg.OpInherit)
		cs.hasSuperclass = true
	}

	p.namedVariable(nameTok, false)
	p.consume(lexer.LBRACE, "Expect '{' before class body.")
	for !p.check(lexer.RBRACE) && !p.check(lexer.EOF) {
		p.method()
	}
	p.consume(lexer.RBRACE, "Expect '}' after class body.")
	p.emitOp(vmpkg.OpPop)

	if cs.hasSuperclass {
		p.endScope()
	}
	p.cs = cs.enclosing
	if p.fs.scopeDepth == 0 {
		p.emitOpByte(vmpkg.OpGetGlobal, nameConst)
	} else {
		p.defineVariable(nameConst, nameTok)
	}
}

func (p *Parser) method() {
	p.consume(lexer.IDENT, "Expect method name.")
	nameTok := p.previous
	nameConst := p.identifierConstant(nameTok)
	fnType := TypeMethod
	if nameTok.Literal == "init" {
		fnType = TypeInitializer
	}
	p.compileFunction(fnType, nameTok)
	p.emitOpByte(vmpkg.OpMethod, nameConst)
}
