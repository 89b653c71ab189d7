package compiler

import (
	"strconv"

	"raven/pkg/lexer"
	vmpkg "raven/pkg/vm"
)

func (p *Parser) number(canAssign bool) {
	n, err := strconv.ParseFloat(p.previous.Literal, 64)
	if err != nil {
		p.error("Invalid number literal.")
		return
	}
	p.emitConstant(vmpkg.NumberValue(n))
}

func (p *Parser) stringLiteral(canAssign bool) {
	s := p.vm.InternString([]byte(p.previous.Literal))
	p.emitConstant(vmpkg.ObjectValue(s))
}

func (p *Parser) literal(canAssign bool) {
	switch p.previous.Type {
	case lexer.TRUE:
		p.emitOp(vmpkg.OpTrue)
	case lexer.FALSE:
		p.emitOp(vmpkg.OpFalse)
	case lexer.NIL:
		p.emitOp(vmpkg.OpNil)
	}
}

// someLiteral compiles "some(expr)" into OP_SOME, which wraps the value in
// an option. "none" is not a distinct construct: it is just the nil
// literal, so an option's empty state is nil and its occupied state is
// whatever some() wrapped — no separate none-constructing opcode is needed.
func (p *Parser) someLiteral(canAssign bool) {
	p.consume(lexer.LPAREN, "Expect '(' after 'some'.")
	p.expression()
	p.consume(lexer.RPAREN, "Expect ')' after value.")
	p.emitOp(vmpkg.OpSome)
}

func (p *Parser) grouping(canAssign bool) {
	p.expression()
	p.consume(lexer.RPAREN, "Expect ')' after expression.")
}

func (p *Parser) unary(canAssign bool) {
	op := p.previous.Type
	p.parsePrecedence(PrecUnary)
	switch op {
	case lexer.MINUS:
		p.emitOp(vmpkg.OpNegate)
	case lexer.NOT:
		p.emitOp(vmpkg.OpNot)
	}
}

func (p *Parser) binary(canAssign bool) {
	op := p.previous.Type
	rule := getRule(op)
	p.parsePrecedence(rule.precedence + 1)
	switch op {
	case lexer.PLUS:
		p.emitOp(vmpkg.OpAdd)
	case lexer.MINUS:
		p.emitOp(vmpkg.OpSubtract)
	case lexer.STAR:
		p.emitOp(vmpkg.OpMultiply)
	case lexer.SLASH:
		p.emitOp(vmpkg.OpDivide)
	case lexer.EQUAL_EQUAL:
		p.emitOp(vmpkg.OpEqual)
	case lexer.BANG_EQUAL:
		p.emitOp(vmpkg.OpEqual)
		p.emitOp(vmpkg.OpNot)
	case lexer.GREATER:
		p.emitOp(vmpkg.OpGreater)
	case lexer.GREATER_EQUAL:
		p.emitOp(vmpkg.OpLess)
		p.emitOp(vmpkg.OpNot)
	case lexer.LESS:
		p.emitOp(vmpkg.OpLess)
	case lexer.LESS_EQUAL:
		p.emitOp(vmpkg.OpGreater)
		p.emitOp(vmpkg.OpNot)
	}
}

// and_ short-circuits: if the left operand is falsy, jump past the right
// operand, leaving the falsy left value; otherwise pop it and evaluate the
// right operand.
func (p *Parser) and_(canAssign bool) {
	endJump := p.emitJump(vmpkg.OpJumpIfFalse)
	p.emitOp(vmpkg.OpPop)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

// or_ short-circuits the opposite way: skip the jump-to-end only when the
// left operand is falsy (fall through to evaluate the right operand).
func (p *Parser) or_(canAssign bool) {
	elseJump := p.emitJump(vmpkg.OpJumpIfFalse)
	endJump := p.emitJump(vmpkg.OpJump)
	p.patchJump(elseJump)
	p.emitOp(vmpkg.OpPop)
	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

func (p *Parser) variable(canAssign bool) {
	name := p.previous
	if name.Literal == "dict" && p.check(lexer.LBRACE) {
		p.dictLiteral(canAssign)
		return
	}
	p.namedVariable(name, canAssign)
}

// listLiteral compiles "[ e1, e2, ... ]".
func (p *Parser) listLiteral(canAssign bool) {
	count := 0
	if !p.check(lexer.RBRACKET) {
		for {
			p.expression()
			count++
			if !p.match(lexer.COMMA) {
				break
			}
			if p.check(lexer.RBRACKET) {
				break
			}
		}
	}
	p.consume(lexer.RBRACKET, "Expect ']' after list elements.")
	if count > 255 {
		p.error("Too many list elements.")
		count = 255
	}
	p.emitOpByte(vmpkg.OpList, byte(count))
}

// dictLiteral compiles "dict{ k1 => v1, k2 => v2, ... }" after the leading
// "dict" identifier has already been consumed.
func (p *Parser) dictLiteral(canAssign bool) {
	p.consume(lexer.LBRACE, "Expect '{' after 'dict'.")
	count := 0
	if !p.check(lexer.RBRACE) {
		for {
			p.expression()
			p.consume(lexer.FAT_ARROW, "Expect '=>' after dict key.")
			p.expression()
			count++
			if !p.match(lexer.COMMA) {
				break
			}
			if p.check(lexer.RBRACE) {
				break
			}
		}
	}
	p.consume(lexer.RBRACE, "Expect '}' after dict entries.")
	if count > 255 {
		p.error("Too many dict entries.")
		count = 255
	}
	p.emitOpByte(vmpkg.OpDict, byte(count))
}

// index compiles "[ expr ]" in infix position: GET_INDEX, or SET_INDEX if
// followed by "=" in assignable position.
func (p *Parser) index(canAssign bool) {
	p.expression()
	p.consume(lexer.RBRACKET, "Expect ']' after index.")
	if canAssign && p.match(lexer.EQUAL) {
		p.expression()
		p.emitOp(vmpkg.OpSetIndex)
		return
	}
	p.emitOp(vmpkg.OpGetIndex)
}

// call compiles "( args )" in infix position: CALL argc.
func (p *Parser) call(canAssign bool) {
	argCount := p.argumentList()
	p.emitOpByte(vmpkg.OpCall, argCount)
}

func (p *Parser) argumentList() byte {
	count := 0
	if !p.check(lexer.RPAREN) {
		for {
			p.expression()
			if count == 255 {
				p.error("Can't have more than 255 arguments.")
			} else {
				count++
			}
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	p.consume(lexer.RPAREN, "Expect ')' after arguments.")
	return byte(count)
}

// dot compiles ".name", ".name(args)" (INVOKE), or ".name = expr"
// (SET_PROPERTY).
func (p *Parser) dot(canAssign bool) {
	p.consume(lexer.IDENT, "Expect property name after '.'.")
	nameConst := p.identifierConstant(p.previous)

	if canAssign && p.match(lexer.EQUAL) {
		p.expression()
		p.emitOpByte(vmpkg.OpSetProperty, nameConst)
		return
	}
	if p.match(lexer.LPAREN) {
		argCount := p.argumentList()
		p.emitOp(vmpkg.OpInvoke)
		p.emitByte(nameConst)
		p.emitByte(argCount)
		return
	}
	p.emitOpByte(vmpkg.OpGetProperty, nameConst)
}

func (p *Parser) this(canAssign bool) {
	if p.cs == nil {
		p.error("Can't use 'this' outside of a class.")
		return
	}
	p.variable(false)
}

func (p *Parser) super(canAssign bool) {
	if p.cs == nil {
		p.error("Can't use 'super' outside of a class.")
	} else if !p.cs.hasSuperclass {
		p.error("Can't use 'super' in a class with no superclass.")
	}
	p.consume(lexer.DOT, "Expect '.' after 'super'.")
	p.consume(lexer.IDENT, "Expect superclass method name.")
	nameConst := p.identifierConstant(p.previous)

	p.namedVariable(thisToken(), false)
	if p.match(lexer.LPAREN) {
		argCount := p.argumentList()
		p.namedVariable(superToken(), false)
		p.emitOp(vmpkg.OpSuperInvoke)
		p.emitByte(nameConst)
		p.emitByte(argCount)
		return
	}
	p.namedVariable(superToken(), false)
	p.emitOpByte(vmpkg.OpGetSuper, nameConst)
}

func thisToken() lexer.Token  { return lexer.Token{Type: lexer.THIS, Literal: "this"} }
func superToken() lexer.Token { return lexer.Token{Type: lexer.SUPER, Literal: "super"} }

// functionExpr compiles an anonymous "func(params) { body }" expression.
func (p *Parser) functionExpr(canAssign bool) {
	p.compileFunction(TypeFunction, lexer.Token{Type: lexer.IDENT, Literal: ""})
}

// blockExpr compiles "{ ... }" as a primary expression (the LBRACE has
// already been consumed by parsePrecedence).
func (p *Parser) blockExpr(canAssign bool) {
	p.beginScope()
	p.blockBody()
	p.endScope()
}
