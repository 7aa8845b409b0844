package ast

import (
	"bytes"
	"lox/internal/token"
	"strconv"
	"strings"
)

// The base Node interface
type Node interface {
	TokenLiteral() string
	String() string
	Line() int
}

type Statement interface {
	Node
	statementNode()
}

// Expression nodes are always pointers; the resolver keys its side-table on
// the pointer so structurally equal expressions at different positions stay
// distinct.
type Expression interface {
	Node
	expressionNode()
}

type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	} else {
		return ""
	}
}

func (p *Program) Line() int {
	if len(p.Statements) > 0 {
		return p.Statements[0].Line()
	}
	return 0
}

func (p *Program) String() string {
	var out bytes.Buffer

	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}

	return out.String()
}

// Statements

type VarStatement struct {
	Token       token.Token // the token.VAR token
	Name        token.Token
	Initializer Expression // nil when absent
}

func (vs *VarStatement) statementNode()       {}
func (vs *VarStatement) TokenLiteral() string { return vs.Token.Lexeme }
func (vs *VarStatement) Line() int            { return vs.Token.Line }
func (vs *VarStatement) String() string {
	var out bytes.Buffer

	out.WriteString("var ")
	out.WriteString(vs.Name.Lexeme)

	if vs.Initializer != nil {
		out.WriteString(" = ")
		out.WriteString(vs.Initializer.String())
	}

	out.WriteString(";")

	return out.String()
}

type ReturnStatement struct {
	Token       token.Token // the 'return' token
	ReturnValue Expression  // nil for a bare return
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Lexeme }
func (rs *ReturnStatement) Line() int            { return rs.Token.Line }
func (rs *ReturnStatement) String() string {
	var out bytes.Buffer

	out.WriteString(rs.TokenLiteral())

	if rs.ReturnValue != nil {
		out.WriteString(" ")
		out.WriteString(rs.ReturnValue.String())
	}

	out.WriteString(";")

	return out.String()
}

type ExpressionStatement struct {
	Token      token.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Lexeme }
func (es *ExpressionStatement) Line() int            { return es.Token.Line }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String() + ";"
	}
	return ""
}

type PrintStatement struct {
	Token      token.Token // the 'print' token
	Expression Expression
}

func (ps *PrintStatement) statementNode()       {}
func (ps *PrintStatement) TokenLiteral() string { return ps.Token.Lexeme }
func (ps *PrintStatement) Line() int            { return ps.Token.Line }
func (ps *PrintStatement) String() string {
	return "print " + ps.Expression.String() + ";"
}

type BlockStatement struct {
	Token      token.Token // the { token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Lexeme }
func (bs *BlockStatement) Line() int            { return bs.Token.Line }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer

	out.WriteString("{ ")
	for _, s := range bs.Statements {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")

	return out.String()
}

type IfStatement struct {
	Token      token.Token // The 'if' token
	Condition  Expression
	ThenBranch Statement
	ElseBranch Statement // nil when absent
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Lexeme }
func (is *IfStatement) Line() int            { return is.Token.Line }
func (is *IfStatement) String() string {
	var out bytes.Buffer

	out.WriteString("if (")
	out.WriteString(is.Condition.String())
	out.WriteString(") ")
	out.WriteString(is.ThenBranch.String())

	if is.ElseBranch != nil {
		out.WriteString(" else ")
		out.WriteString(is.ElseBranch.String())
	}

	return out.String()
}

// WhileStatement is also the target of the parser's `for` desugaring.
type WhileStatement struct {
	Token     token.Token // The 'while' or 'for' token
	Condition Expression
	Body      Statement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Lexeme }
func (ws *WhileStatement) Line() int            { return ws.Token.Line }
func (ws *WhileStatement) String() string {
	return "while (" + ws.Condition.String() + ") " + ws.Body.String()
}

type FunctionStatement struct {
	Token      token.Token // The 'fun' token, or the method name for methods
	Name       token.Token
	Parameters []token.Token
	Body       []Statement
}

func (fs *FunctionStatement) statementNode()       {}
func (fs *FunctionStatement) TokenLiteral() string { return fs.Token.Lexeme }
func (fs *FunctionStatement) Line() int            { return fs.Name.Line }
func (fs *FunctionStatement) String() string {
	var out bytes.Buffer

	params := []string{}
	for _, p := range fs.Parameters {
		params = append(params, p.Lexeme)
	}

	out.WriteString("fun ")
	out.WriteString(fs.Name.Lexeme)
	out.WriteString("(")
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(") { ")
	for _, s := range fs.Body {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")

	return out.String()
}

type ClassStatement struct {
	Token      token.Token // The 'class' token
	Name       token.Token
	Superclass *Identifier // nil when the class has no superclass
	Methods    []*FunctionStatement
}

func (cs *ClassStatement) statementNode()       {}
func (cs *ClassStatement) TokenLiteral() string { return cs.Token.Lexeme }
func (cs *ClassStatement) Line() int            { return cs.Name.Line }
func (cs *ClassStatement) String() string {
	var out bytes.Buffer

	out.WriteString("class ")
	out.WriteString(cs.Name.Lexeme)
	if cs.Superclass != nil {
		out.WriteString(" < ")
		out.WriteString(cs.Superclass.String())
	}
	out.WriteString(" { ")
	for _, m := range cs.Methods {
		out.WriteString(m.String())
		out.WriteString(" ")
	}
	out.WriteString("}")

	return out.String()
}

// Expressions

type Identifier struct {
	Token token.Token // the token.IDENT token
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Lexeme }
func (i *Identifier) Line() int            { return i.Token.Line }
func (i *Identifier) String() string       { return i.Token.Lexeme }

type AssignExpression struct {
	Token token.Token // The '=' token
	Name  token.Token
	Value Expression
}

func (ae *AssignExpression) expressionNode()      {}
func (ae *AssignExpression) TokenLiteral() string { return ae.Token.Lexeme }
func (ae *AssignExpression) Line() int            { return ae.Name.Line }
func (ae *AssignExpression) String() string {
	return "(" + ae.Name.Lexeme + " = " + ae.Value.String() + ")"
}

type Boolean struct {
	Token token.Token
	Value bool
}

func (b *Boolean) expressionNode()      {}
func (b *Boolean) TokenLiteral() string { return b.Token.Lexeme }
func (b *Boolean) Line() int            { return b.Token.Line }
func (b *Boolean) String() string       { return b.Token.Lexeme }

type Nil struct {
	Token token.Token
}

func (n *Nil) expressionNode()      {}
func (n *Nil) TokenLiteral() string { return n.Token.Lexeme }
func (n *Nil) Line() int            { return n.Token.Line }
func (n *Nil) String() string       { return "nil" }

type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (n *NumberLiteral) expressionNode()      {}
func (n *NumberLiteral) TokenLiteral() string { return n.Token.Lexeme }
func (n *NumberLiteral) Line() int            { return n.Token.Line }
func (n *NumberLiteral) String() string {
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

type StringLiteral struct {
	Token token.Token
	Value string
}

func (s *StringLiteral) expressionNode()      {}
func (s *StringLiteral) TokenLiteral() string { return s.Token.Lexeme }
func (s *StringLiteral) Line() int            { return s.Token.Line }
func (s *StringLiteral) String() string       { return strconv.Quote(s.Value) }

type GroupedExpression struct {
	Token      token.Token // The '(' token
	Expression Expression
}

func (ge *GroupedExpression) expressionNode()      {}
func (ge *GroupedExpression) TokenLiteral() string { return ge.Token.Lexeme }
func (ge *GroupedExpression) Line() int            { return ge.Token.Line }
func (ge *GroupedExpression) String() string {
	return "(group " + ge.Expression.String() + ")"
}

type PrefixExpression struct {
	Token    token.Token // The prefix token, e.g. !
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Lexeme }
func (pe *PrefixExpression) Line() int            { return pe.Token.Line }
func (pe *PrefixExpression) String() string {
	var out bytes.Buffer

	out.WriteString("(")
	out.WriteString(pe.Operator)
	out.WriteString(pe.Right.String())
	out.WriteString(")")

	return out.String()
}

type InfixExpression struct {
	Token    token.Token // The operator token, e.g. +
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Lexeme }
func (ie *InfixExpression) Line() int            { return ie.Token.Line }
func (ie *InfixExpression) String() string {
	var out bytes.Buffer

	out.WriteString("(")
	out.WriteString(ie.Left.String())
	out.WriteString(" " + ie.Operator + " ")
	out.WriteString(ie.Right.String())
	out.WriteString(")")

	return out.String()
}

// LogicalExpression covers the short-circuiting `and` / `or` operators.
type LogicalExpression struct {
	Token    token.Token // The 'and' or 'or' token
	Left     Expression
	Operator string
	Right    Expression
}

func (le *LogicalExpression) expressionNode()      {}
func (le *LogicalExpression) TokenLiteral() string { return le.Token.Lexeme }
func (le *LogicalExpression) Line() int            { return le.Token.Line }
func (le *LogicalExpression) String() string {
	return "(" + le.Left.String() + " " + le.Operator + " " + le.Right.String() + ")"
}

type CallExpression struct {
	Token     token.Token // The '(' token
	Function  Expression
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Lexeme }
func (ce *CallExpression) Line() int            { return ce.Token.Line }
func (ce *CallExpression) String() string {
	var out bytes.Buffer

	args := []string{}
	for _, a := range ce.Arguments {
		args = append(args, a.String())
	}

	out.WriteString(ce.Function.String())
	out.WriteString("(")
	out.WriteString(strings.Join(args, ", "))
	out.WriteString(")")

	return out.String()
}

type GetExpression struct {
	Token  token.Token // The '.' token
	Object Expression
	Name   token.Token
}

func (ge *GetExpression) expressionNode()      {}
func (ge *GetExpression) TokenLiteral() string { return ge.Token.Lexeme }
func (ge *GetExpression) Line() int            { return ge.Name.Line }
func (ge *GetExpression) String() string {
	return ge.Object.String() + "." + ge.Name.Lexeme
}

type SetExpression struct {
	Token  token.Token // The '=' token
	Object Expression
	Name   token.Token
	Value  Expression
}

func (se *SetExpression) expressionNode()      {}
func (se *SetExpression) TokenLiteral() string { return se.Token.Lexeme }
func (se *SetExpression) Line() int            { return se.Name.Line }
func (se *SetExpression) String() string {
	return "(" + se.Object.String() + "." + se.Name.Lexeme + " = " + se.Value.String() + ")"
}

type ThisExpression struct {
	Token token.Token // The 'this' token
}

func (te *ThisExpression) expressionNode()      {}
func (te *ThisExpression) TokenLiteral() string { return te.Token.Lexeme }
func (te *ThisExpression) Line() int            { return te.Token.Line }
func (te *ThisExpression) String() string       { return "this" }

type SuperExpression struct {
	Token  token.Token // The 'super' token
	Method token.Token
}

func (se *SuperExpression) expressionNode()      {}
func (se *SuperExpression) TokenLiteral() string { return se.Token.Lexeme }
func (se *SuperExpression) Line() int            { return se.Token.Line }
func (se *SuperExpression) String() string       { return "super." + se.Method.Lexeme }
