package lexer

import "testing"

func TestNextTokenBasics(t *testing.T) {
	input := `var x = 1 + 2; // comment
print "hi"; func f(a,b) { return a.b[0] }`

	expected := []TokenType{
		VAR, IDENT, EQUAL, NUMBER, PLUS, NUMBER, SEMI,
		PRINT, STRING, SEMI,
		FUNC, IDENT, LPAREN, IDENT, COMMA, IDENT, RPAREN,
		LBRACE, RETURN, IDENT, DOT, IDENT, LBRACKET, NUMBER, RBRACKET, RBRACE,
		EOF,
	}

	l := NewLexer(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("token %d: got %q, want %q (literal %q)", i, tok.Type, want, tok.Literal)
		}
	}
}

func TestKeywordsAndIdents(t *testing.T) {
	l := NewLexer("class super this none nil not and or somevar")
	want := []TokenType{CLASS, SUPER, THIS, NIL, NIL, NOT, AND, OR, IDENT, EOF}
	for i, w := range want {
		tok := l.NextToken()
		if tok.Type != w {
			t.Fatalf("token %d: got %q, want %q", i, tok.Type, w)
		}
	}
}

func TestTwoCharOperators(t *testing.T) {
	l := NewLexer("!= == >= <= = > < =>")
	want := []TokenType{BANG_EQUAL, EQUAL_EQUAL, GREATER_EQUAL, LESS_EQUAL, EQUAL, GREATER, LESS, FAT_ARROW, EOF}
	for i, w := range want {
		tok := l.NextToken()
		if tok.Type != w {
			t.Fatalf("token %d: got %q, want %q", i, tok.Type, w)
		}
	}
}

func TestStringLiteralNoEscapes(t *testing.T) {
	l := NewLexer(`"hello, \n world"`)
	tok := l.NextToken()
	if tok.Type != STRING {
		t.Fatalf("expected STRING, got %q", tok.Type)
	}
	if tok.Literal != `hello, \n world` {
		t.Fatalf("expected literal body verbatim, got %q", tok.Literal)
	}
}

func TestUnterminatedString(t *testing.T) {
	l := NewLexer(`"oops`)
	tok := l.NextToken()
	if tok.Type != ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %q", tok.Type)
	}
}

func TestNumberLiterals(t *testing.T) {
	cases := []string{"123", "3.14", "1e10", "1e-3", "0.5"}
	for _, c := range cases {
		l := NewLexer(c)
		tok := l.NextToken()
		if tok.Type != NUMBER || tok.Literal != c {
			t.Fatalf("case %q: got type=%q literal=%q", c, tok.Type, tok.Literal)
		}
	}
}

func TestLineTracking(t *testing.T) {
	l := NewLexer("var x\n= 1;")
	l.NextToken() // var
	l.NextToken() // x
	tok := l.NextToken()
	if tok.Type != EQUAL || tok.Line != 2 {
		t.Fatalf("expected EQUAL on line 2, got %q on line %d", tok.Type, tok.Line)
	}
}
