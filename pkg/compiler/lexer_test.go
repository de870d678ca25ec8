package compiler

import (
	"reflect"
	"testing"
)

func TestLexBasicTokens(t *testing.T) {
	input := ":= + - * / = # < <= > >= ; , : { } ( ) [ ]"
	want := []TokenKind{
		Assign, Plus, Minus, Star, Slash,
		Eq, NotEq, Less, LessEq, Gt, GtEq,
		Semi, Comma, Colon, LBrace, RBrace, LParen, RParen, LBrack, RBrack,
		EOF,
	}
	toks, err := Lex(input)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestLexKeywordsVsIdentifiers(t *testing.T) {
	toks, err := Lex("type array of proc ref var if else while typeof arrays")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	want := []TokenKind{KwType, KwArray, KwOf, KwProc, KwRef, KwVar, KwIf, KwElse, KwWhile, IDENT, IDENT, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d (%q): got %s, want %s", i, toks[i].Lexeme, toks[i].Kind, k)
		}
	}
}

func TestLexIntegerLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want int64
	}{
		{"0", 0},
		{"42", 42},
		{"0x2A", 42},
		{"0xFF", 255},
		{"9223372036854775807", 9223372036854775807},
	}
	for _, tt := range tests {
		toks, err := Lex(tt.src)
		if err != nil {
			t.Fatalf("Lex(%q) failed: %v", tt.src, err)
		}
		if toks[0].Kind != INTLIT || toks[0].IntValue != tt.want {
			t.Errorf("Lex(%q) = %+v, want INTLIT %d", tt.src, toks[0], tt.want)
		}
	}
}

func TestLexIntegerOverflowAborts(t *testing.T) {
	_, err := Lex("99999999999999999999")
	if err == nil {
		t.Fatal("expected an overflow error, got nil")
	}
	if _, ok := err.(*LexError); !ok {
		t.Errorf("expected *LexError, got %T", err)
	}
}

func TestLexCharLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want int64
	}{
		{`'a'`, 'a'},
		{`'\n'`, '\n'},
		{`'\t'`, '\t'},
		{`'\0'`, 0},
		{`'\''`, '\''},
		{`'\\'`, '\\'},
	}
	for _, tt := range tests {
		toks, err := Lex(tt.src)
		if err != nil {
			t.Fatalf("Lex(%q) failed: %v", tt.src, err)
		}
		if toks[0].Kind != CHARLIT || toks[0].IntValue != tt.want {
			t.Errorf("Lex(%q) = %+v, want CHARLIT %d", tt.src, toks[0], tt.want)
		}
	}
}

func TestLexUnterminatedCharLiteralAborts(t *testing.T) {
	_, err := Lex("'a")
	if err == nil {
		t.Fatal("expected an error for an unterminated character literal")
	}
}

func TestLexUnknownByteAborts(t *testing.T) {
	_, err := Lex("int x := 1 @ 2;")
	if err == nil {
		t.Fatal("expected an error for an unrecognized byte")
	}
}

func TestLexLineComments(t *testing.T) {
	toks, err := Lex("var x: int; // a trailing comment\nvar y: int;")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	// Second varDecl should start on line 2.
	var foundSecondVar bool
	for i, tok := range toks {
		if tok.Kind == KwVar && i > 0 {
			if tok.Line != 2 {
				t.Errorf("second 'var' on line %d, want 2", tok.Line)
			}
			foundSecondVar = true
		}
	}
	if !foundSecondVar {
		t.Fatal("did not find the second 'var' keyword")
	}
}

func TestLexIdentifierLexemes(t *testing.T) {
	toks, err := Lex("foo_bar Baz9 _leading")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	want := []string{"foo_bar", "Baz9", "_leading"}
	var got []string
	for _, tok := range toks {
		if tok.Kind == IDENT {
			got = append(got, tok.Lexeme)
		}
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
