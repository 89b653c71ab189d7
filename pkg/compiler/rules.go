package compiler

import "raven/pkg/lexer"

// Precedence levels, low to high.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // not -
	PrecCall                  // . ()
	PrecPrimary
)

type parseFn func(p *Parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[lexer.TokenType]parseRule

func init() {
	rules = map[lexer.TokenType]parseRule{
		lexer.LPAREN:   {prefix: (*Parser).grouping, infix: (*Parser).call, precedence: PrecCall},
		lexer.LBRACKET: {prefix: (*Parser).listLiteral, infix: (*Parser).index, precedence: PrecCall},
		lexer.LBRACE:   {prefix: (*Parser).blockExpr},
		lexer.DOT:      {infix: (*Parser).dot, precedence: PrecCall},
		lexer.MINUS:    {prefix: (*Parser).unary, infix: (*Parser).binary, precedence: PrecTerm},
		lexer.PLUS:     {infix: (*Parser).binary, precedence: PrecTerm},
		lexer.SLASH:    {infix: (*Parser).binary, precedence: PrecFactor},
		lexer.STAR:     {infix: (*Parser).binary, precedence: PrecFactor},
		lexer.NOT:      {prefix: (*Parser).unary},
		lexer.BANG_EQUAL:    {infix: (*Parser).binary, precedence: PrecEquality},
		lexer.EQUAL_EQUAL:   {infix: (*Parser).binary, precedence: PrecEquality},
		lexer.GREATER:       {infix: (*Parser).binary, precedence: PrecComparison},
		lexer.GREATER_EQUAL: {infix: (*Parser).binary, precedence: PrecComparison},
		lexer.LESS:          {infix: (*Parser).binary, precedence: PrecComparison},
		lexer.LESS_EQUAL:    {infix: (*Parser).binary, precedence: PrecComparison},
		lexer.IDENT:  {prefix: (*Parser).variable},
		lexer.STRING: {prefix: (*Parser).stringLiteral},
		lexer.NUMBER: {prefix: (*Parser).number},
		lexer.AND:    {infix: (*Parser).and_, precedence: PrecAnd},
		lexer.OR:     {infix: (*Parser).or_, precedence: PrecOr},
		lexer.TRUE:   {prefix: (*Parser).literal},
		lexer.FALSE:  {prefix: (*Parser).literal},
		lexer.NIL:    {prefix: (*Parser).literal},
		lexer.SOME:   {prefix: (*Parser).someLiteral},
		lexer.THIS:   {prefix: (*Parser).this},
		lexer.SUPER:  {prefix: (*Parser).super},
		lexer.FUNC:   {prefix: (*Parser).functionExpr},
	}
}

func getRule(t lexer.TokenType) parseRule { return rules[t] }

// parsePrecedence is the Pratt engine: run the prefix rule for the
// current token, then fold in infix operators whose precedence is at
// least level.
func (p *Parser) parsePrecedence(level Precedence) {
	p.advance()
	rule := getRule(p.previous.Type)
	if rule.prefix == nil {
		p.error("Expect expression.")
		return
	}
	canAssign := level <= PrecAssignment
	rule.prefix(p, canAssign)

	for getRule(p.current.Type).precedence >= level {
		p.advance()
		infix := getRule(p.previous.Type).infix
		infix(p, canAssign)
	}

	if canAssign && p.check(lexer.EQUAL) {
		p.compileError("Invalid assignment target.")
	}
}

func (p *Parser) expression() { p.parsePrecedence(PrecAssignment) }
