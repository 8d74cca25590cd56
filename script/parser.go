// Copyright © 2024 The rebug authors

package script

import (
	"fmt"
	"strconv"
)

// SyntaxError reports a lexical or grammatical failure with its source
// location.
type SyntaxError struct {
	Loc *Location
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Msg)
}

// Reader parses source text into located value trees.  Every parsed
// expression records its Source location and End offset so callers can
// recover the expression's verbatim text.
type Reader struct{}

// NewReader returns a Reader.
func NewReader() *Reader { return &Reader{} }

// Read parses the complete source text into a sequence of top-level
// forms.  The name identifies the source stream in locations.
func (r *Reader) Read(name, src string) ([]*Value, error) {
	p := &parser{lex: newLexer(name, src)}
	if err := p.scan(); err != nil {
		return nil, err
	}
	var forms []*Value
	for p.tok.typ != tokEOF {
		form, err := p.parseForm()
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	return forms, nil
}

// ReadOne parses a single expression and fails on trailing input.
func (r *Reader) ReadOne(name, src string) (*Value, error) {
	forms, err := r.Read(name, src)
	if err != nil {
		return nil, err
	}
	if len(forms) != 1 {
		return nil, &SyntaxError{
			Loc: &Location{File: name, Line: 1, Col: 1},
			Msg: fmt.Sprintf("expected a single expression, found %d", len(forms)),
		}
	}
	return forms[0], nil
}

type parser struct {
	lex *lexer
	tok *token
}

func (p *parser) scan() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) parseForm() (*Value, error) {
	tok := p.tok
	switch tok.typ {
	case tokParenL:
		return p.parseList(tok)
	case tokQuote:
		if err := p.scan(); err != nil {
			return nil, err
		}
		inner, err := p.parseForm()
		if err != nil {
			return nil, err
		}
		quoted := SExpr([]*Value{Symbol("quote"), inner})
		quoted.Source = tok.source
		quoted.End = inner.End
		return quoted, nil
	case tokInt:
		n, err := strconv.Atoi(tok.text)
		if err != nil {
			return nil, &SyntaxError{Loc: tok.source, Msg: fmt.Sprintf("bad int literal %q", tok.text)}
		}
		return p.atom(Int(n), tok)
	case tokFloat:
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, &SyntaxError{Loc: tok.source, Msg: fmt.Sprintf("bad float literal %q", tok.text)}
		}
		return p.atom(Float(f), tok)
	case tokString:
		return p.atom(String(tok.text), tok)
	case tokSymbol:
		return p.atom(Symbol(tok.text), tok)
	case tokParenR:
		return nil, &SyntaxError{Loc: tok.source, Msg: "unexpected )"}
	default:
		return nil, &SyntaxError{Loc: tok.source, Msg: "unexpected end of input"}
	}
}

func (p *parser) atom(v *Value, tok *token) (*Value, error) {
	v.Source = tok.source
	v.End = tok.end
	return v, p.scan()
}

func (p *parser) parseList(open *token) (*Value, error) {
	if err := p.scan(); err != nil {
		return nil, err
	}
	var cells []*Value
	for {
		switch p.tok.typ {
		case tokParenR:
			v := SExpr(cells)
			v.Source = open.source
			v.End = p.tok.end
			return v, p.scan()
		case tokEOF:
			return nil, &SyntaxError{Loc: open.source, Msg: "unterminated list"}
		}
		cell, err := p.parseForm()
		if err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}
}
