// Package parser implements a hand-written recursive-descent parser for
// formula bodies. The grammar has four precedence levels, lowest to
// highest: Comparison, Expression (+ -), Term (* /), Factor. Each level is
// left-associative; no look-ahead beyond one token is required except for
// the two-character comparison operators, which the lexer already resolves.
package parser

import (
	"fmt"
	"strconv"

	"karl/ast"
	"karl/lexer"
	"karl/token"
)

type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	errors []ParseError
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) Errors() []ParseError { return p.errors }

func (p *Parser) addError(format string, args ...interface{}) {
	p.errors = append(p.errors, ParseError{
		Message: fmt.Sprintf(format, args...),
		Token:   p.curToken,
	})
}

// Parse parses a single full expression. Every token produced by the lexer
// must be consumed; anything left over is a parse error.
func Parse(body string) (ast.Expression, []ParseError) {
	p := New(lexer.New(body))
	expr := p.parseComparison()
	if p.curToken.Type != token.EOF {
		p.addError("unexpected token %q after complete expression", p.curToken.Literal)
	}
	return expr, p.errors
}

// parseComparison handles =, <>, <, >, <=, >=.
func (p *Parser) parseComparison() ast.Expression {
	left := p.parseExpression()
	for left != nil && p.curToken.Type.IsComparison() {
		opTok := p.curToken
		p.nextToken()
		right := p.parseExpression()
		if right == nil {
			return nil
		}
		left = &ast.BinaryOp{Token: opTok, Op: opTok.Type, Left: left, Right: right}
	}
	return left
}

// parseExpression handles + and -.
func (p *Parser) parseExpression() ast.Expression {
	left := p.parseTerm()
	for left != nil && (p.curToken.Type == token.PLUS || p.curToken.Type == token.MINUS) {
		opTok := p.curToken
		p.nextToken()
		right := p.parseTerm()
		if right == nil {
			return nil
		}
		left = &ast.BinaryOp{Token: opTok, Op: opTok.Type, Left: left, Right: right}
	}
	return left
}

// parseTerm handles * and /.
func (p *Parser) parseTerm() ast.Expression {
	left := p.parseFactor()
	for left != nil && (p.curToken.Type == token.ASTERISK || p.curToken.Type == token.SLASH) {
		opTok := p.curToken
		p.nextToken()
		right := p.parseFactor()
		if right == nil {
			return nil
		}
		left = &ast.BinaryOp{Token: opTok, Op: opTok.Type, Left: left, Right: right}
	}
	return left
}

// parseFactor handles unary minus, parenthesized sub-expressions, literals,
// cell references, ranges, the #REF! sentinel, and function calls.
func (p *Parser) parseFactor() ast.Expression {
	switch p.curToken.Type {
	case token.MINUS:
		tok := p.curToken
		p.nextToken()
		child := p.parseFactor()
		if child == nil {
			return nil
		}
		return &ast.UnaryOp{Token: tok, Op: token.MINUS, Child: child}

	case token.LPAREN:
		p.nextToken()
		expr := p.parseComparison()
		if expr == nil {
			return nil
		}
		if p.curToken.Type != token.RPAREN {
			p.addError("expected ')', got %q", p.curToken.Literal)
			return nil
		}
		p.nextToken()
		return expr

	case token.NUMBER:
		tok := p.curToken
		val, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.addError("invalid number literal %q", tok.Literal)
			return nil
		}
		p.nextToken()
		return &ast.Number{Token: tok, Value: val}

	case token.STRING:
		tok := p.curToken
		p.nextToken()
		return &ast.Text{Token: tok, Value: tok.Literal}

	case token.REFERR:
		tok := p.curToken
		p.nextToken()
		return &ast.RefError{Token: tok}

	case token.CELLREF:
		tok := p.curToken
		p.nextToken()
		if p.curToken.Type == token.COLON {
			p.nextToken()
			if p.curToken.Type != token.CELLREF {
				p.addError("expected cell reference after ':', got %q", p.curToken.Literal)
				return nil
			}
			toTok := p.curToken
			p.nextToken()
			return &ast.Range{Token: tok, From: tok.Literal, To: toTok.Literal}
		}
		return &ast.CellRef{Token: tok, ID: tok.Literal}

	case token.FUNCTION:
		return p.parseFunctionCall()

	case token.EOF:
		p.addError("unexpected end of input")
		return nil

	default:
		p.addError("unexpected token %q", p.curToken.Literal)
		return nil
	}
}

func (p *Parser) parseFunctionCall() ast.Expression {
	tok := p.curToken
	name := tok.Literal
	p.nextToken()

	if p.curToken.Type != token.LPAREN {
		p.addError("expected '(' after function name %q", name)
		return nil
	}
	p.nextToken()

	var args []ast.Expression
	if p.curToken.Type != token.RPAREN {
		for {
			arg := p.parseComparison()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if p.curToken.Type != token.COMMA {
				break
			}
			p.nextToken()
		}
	}

	if p.curToken.Type != token.RPAREN {
		p.addError("expected ')' to close call to %q, got %q", name, p.curToken.Literal)
		return nil
	}
	p.nextToken()

	return &ast.FunctionCall{Token: tok, Name: name, Args: args}
}
