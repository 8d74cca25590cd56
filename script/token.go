// Copyright © 2024 The rebug authors

package script

import "fmt"

// Location identifies a position in a source stream.
type Location struct {
	File string
	Pos  int // byte offset, starting at 0
	Line int // line number, starting at 1
	Col  int // column number, starting at 1
}

func (loc *Location) String() string {
	switch {
	case loc == nil:
		return "<unknown>"
	case loc.Line == 0:
		return fmt.Sprintf("%s[%d]", loc.File, loc.Pos)
	case loc.Col == 0:
		return fmt.Sprintf("%s:%d", loc.File, loc.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Col)
	}
}

type tokenType uint

const (
	tokInvalid tokenType = iota
	tokEOF
	tokSymbol
	tokInt
	tokFloat
	tokString
	tokQuote
	tokParenL
	tokParenR
)

type token struct {
	typ    tokenType
	text   string
	source *Location
	end    int // byte offset one past the token
}

// lexer produces tokens from raw source text, tracking byte offsets and
// line/column positions.
type lexer struct {
	file string
	src  string
	pos  int
	line int
	col  int
}

func newLexer(file, src string) *lexer {
	return &lexer{file: file, src: src, line: 1, col: 1}
}

func (l *lexer) loc() *Location {
	return &Location{File: l.file, Pos: l.pos, Line: l.line, Col: l.col}
}

func (l *lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ';' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
			continue
		}
		if c != ' ' && c != '\t' && c != '\r' && c != '\n' {
			return
		}
		l.advance()
	}
}

func isSymbolByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '+', '-', '*', '/', '<', '>', '=', '!', '?', '&', '_', ':', '.', '%':
		return true
	}
	return false
}

func (l *lexer) next() (*token, error) {
	l.skipSpace()
	start := l.loc()
	if l.pos >= len(l.src) {
		return &token{typ: tokEOF, source: start, end: l.pos}, nil
	}
	c := l.src[l.pos]
	switch c {
	case '(':
		l.advance()
		return &token{typ: tokParenL, text: "(", source: start, end: l.pos}, nil
	case ')':
		l.advance()
		return &token{typ: tokParenR, text: ")", source: start, end: l.pos}, nil
	case '\'':
		l.advance()
		return &token{typ: tokQuote, text: "'", source: start, end: l.pos}, nil
	case '"':
		return l.lexString(start)
	}
	if !isSymbolByte(c) {
		return nil, &SyntaxError{Loc: start, Msg: fmt.Sprintf("unexpected character %q", c)}
	}
	sb := l.pos
	for l.pos < len(l.src) && isSymbolByte(l.src[l.pos]) {
		l.advance()
	}
	text := l.src[sb:l.pos]
	tok := &token{text: text, source: start, end: l.pos}
	switch classifyNumber(text) {
	case tokInt:
		tok.typ = tokInt
	case tokFloat:
		tok.typ = tokFloat
	default:
		tok.typ = tokSymbol
	}
	return tok, nil
}

func (l *lexer) lexString(start *Location) (*token, error) {
	l.advance() // opening quote
	var buf []byte
	for l.pos < len(l.src) {
		c := l.advance()
		switch c {
		case '"':
			return &token{typ: tokString, text: string(buf), source: start, end: l.pos}, nil
		case '\\':
			if l.pos >= len(l.src) {
				return nil, &SyntaxError{Loc: start, Msg: "unterminated string"}
			}
			esc := l.advance()
			switch esc {
			case 'n':
				buf = append(buf, '\n')
			case 't':
				buf = append(buf, '\t')
			case '"', '\\':
				buf = append(buf, esc)
			default:
				return nil, &SyntaxError{Loc: start, Msg: fmt.Sprintf("bad escape \\%c", esc)}
			}
		default:
			buf = append(buf, c)
		}
	}
	return nil, &SyntaxError{Loc: start, Msg: "unterminated string"}
}

// classifyNumber returns tokInt or tokFloat when text is a numeric
// literal, tokInvalid otherwise.
func classifyNumber(text string) tokenType {
	i := 0
	if i < len(text) && (text[i] == '-' || text[i] == '+') {
		i++
	}
	if i >= len(text) || text[i] < '0' || text[i] > '9' {
		return tokInvalid
	}
	seenDot := false
	for ; i < len(text); i++ {
		c := text[i]
		if c == '.' {
			if seenDot {
				return tokInvalid
			}
			seenDot = true
			continue
		}
		if c < '0' || c > '9' {
			return tokInvalid
		}
	}
	if seenDot {
		return tokFloat
	}
	return tokInt
}
