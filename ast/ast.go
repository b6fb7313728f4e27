// Package ast defines the expression tree produced by the parser. Nodes are
// immutable once built and are never shared across cells or cached between
// edits — each parse builds a fresh tree.
package ast

import "karl/token"

// Node is the common interface implemented by every tree node.
type Node interface {
	TokenLiteral() string
}

// Expression is a node that evaluates to a value.
type Expression interface {
	Node
	expressionNode()
}

// Number is a numeric literal, e.g. 42 or 3.14.
type Number struct {
	Token token.Token
	Value float64
}

func (n *Number) expressionNode()      {}
func (n *Number) TokenLiteral() string { return n.Token.Literal }

// Text is a double-quoted string literal.
type Text struct {
	Token token.Token
	Value string
}

func (t *Text) expressionNode()      {}
func (t *Text) TokenLiteral() string { return t.Token.Literal }

// CellRef is a reference to a single cell, e.g. A1.
type CellRef struct {
	Token token.Token
	ID    string
}

func (c *CellRef) expressionNode()      {}
func (c *CellRef) TokenLiteral() string { return c.Token.Literal }

// Range is an ordered pair (top-left, bottom-right) denoting a rectangle of
// cells, e.g. A1:C3. Membership is resolved by the range expander.
type Range struct {
	Token token.Token
	From  string
	To    string
}

func (r *Range) expressionNode()      {}
func (r *Range) TokenLiteral() string { return r.Token.Literal }

// RefError is the #REF! sentinel; it always evaluates to a reference error.
type RefError struct {
	Token token.Token
}

func (r *RefError) expressionNode()      {}
func (r *RefError) TokenLiteral() string { return r.Token.Literal }

// UnaryOp is a prefix operator; only '-' is in scope.
type UnaryOp struct {
	Token token.Token
	Op    token.TokenType
	Child Expression
}

func (u *UnaryOp) expressionNode()      {}
func (u *UnaryOp) TokenLiteral() string { return u.Token.Literal }

// BinaryOp is an infix arithmetic or comparison operator.
type BinaryOp struct {
	Token token.Token
	Op    token.TokenType
	Left  Expression
	Right Expression
}

func (b *BinaryOp) expressionNode()      {}
func (b *BinaryOp) TokenLiteral() string { return b.Token.Literal }

// FunctionCall invokes a registered built-in by its uppercase name.
type FunctionCall struct {
	Token token.Token
	Name  string
	Args  []Expression
}

func (f *FunctionCall) expressionNode()      {}
func (f *FunctionCall) TokenLiteral() string { return f.Token.Literal }
