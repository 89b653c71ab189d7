// Package compiler implements Raven's single-pass, byte-emitting compiler:
// it consumes the token stream produced by pkg/lexer and, driven by a
// Pratt precedence-climbing expression parser, emits bytecode directly
// into a chunk owned by a pkg/vm.ObjFunction — there is no intermediate
// syntax tree.
package compiler

import (
	"fmt"

	raverr "raven/pkg/errors"
	"raven/pkg/lexer"
	vmpkg "raven/pkg/vm"
)

// FunctionType distinguishes the kind of function body currently being
// compiled, which changes how "this", "super", and "return" behave.
type FunctionType int

const (
	TypeScript FunctionType = iota
	TypeFunction
	TypeMethod
	TypeInitializer
)

// localVar is a stack-allocated variable tracked by the active funcState.
type localVar struct {
	name       lexer.Token
	depth      int // -1 while its initializer is still being evaluated
	isCaptured bool
}

// upvalueDesc records how an upvalue is sourced: from a local slot in the
// immediately enclosing function, or from an upvalue already captured by
// it.
type upvalueDesc struct {
	index   byte
	isLocal bool
}

const maxLocals = 256
const maxUpvalues = 256

// funcState is one entry in the compiler's stack of per-function compilers.
type funcState struct {
	enclosing *funcState
	fn        *vmpkg.ObjFunction
	fnType    FunctionType

	locals     [maxLocals]localVar
	localCount int
	scopeDepth int

	upvalues     [maxUpvalues]upvalueDesc
	upvalueCount int
}

// classState is one entry in the compiler's class-compiler stack.
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// Parser holds all compiler state for one compilation.
type Parser struct {
	lex *lexer.Lexer
	vm  *vmpkg.VM

	current  lexer.Token
	previous lexer.Token

	hadError  bool
	panicMode bool
	firstErr  raverr.RavenError

	fs *funcState
	cs *classState
}

// Compile lexes and compiles source into a top-level script function,
// registered with vm for string interning and heap allocation. On a
// syntax or compile-time error it returns the first error encountered and
// a nil function.
func Compile(vm *vmpkg.VM, source string) (*vmpkg.ObjFunction, raverr.RavenError) {
	p := &Parser{lex: lexer.NewLexer(source), vm: vm}

	fn := vm.NewFunction()
	p.fs = &funcState{fn: fn, fnType: TypeScript}
	// Slot 0 of the script's frame holds the script closure itself.
	p.fs.locals[0] = localVar{depth: 0}
	p.fs.localCount = 1
	vm.PushCompilerRoot(fn)
	defer vm.PopCompilerRoot()

	p.advance()
	for !p.match(lexer.EOF) {
		p.declaration()
	}
	p.emitReturn()

	if p.hadError {
		return nil, p.firstErr
	}
	return fn, nil
}

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.lex.NextToken()
		if p.current.Type != lexer.ILLEGAL {
			break
		}
		p.errorAtCurrent(p.current.Literal)
	}
}

func (p *Parser) check(t lexer.TokenType) bool { return p.current.Type == t }

func (p *Parser) match(t lexer.TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t lexer.TokenType, msg string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *Parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *Parser) error(msg string)          { p.errorAt(p.previous, msg) }

func (p *Parser) errorAt(tok lexer.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	where := ""
	switch tok.Type {
	case lexer.EOF:
		where = " at end"
	case lexer.ILLEGAL:
		where = ""
	default:
		where = fmt.Sprintf(" at '%s'", tok.Literal)
	}
	if p.firstErr == nil {
		p.firstErr = &raverr.SyntaxError{
			Position: raverr.Position{Line: tok.Line, Column: tok.Column, StartPos: tok.StartPos, EndPos: tok.EndPos},
			Msg:      msg + where,
		}
	}
}

// compileError records a semantic (not lexical) problem at the previous
// token, e.g. "Invalid assignment target."
func (p *Parser) compileError(msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	if p.firstErr == nil {
		p.firstErr = &raverr.CompileError{
			Position: raverr.Position{Line: p.previous.Line, Column: p.previous.Column},
			Msg:      msg,
		}
	}
}

// synchronize skips tokens after a panic-mode error until a likely
// statement boundary: a semicolon, or a statement-introducing keyword.
func (p *Parser) synchronize() {
	p.panicMode = false
	for p.current.Type != lexer.EOF {
		if p.previous.Type == lexer.SEMI {
			return
		}
		switch p.current.Type {
		case lexer.CLASS, lexer.FUNC, lexer.VAR, lexer.FOR, lexer.IF, lexer.WHILE, lexer.PRINT, lexer.RETURN:
			return
		}
		p.advance()
	}
}
