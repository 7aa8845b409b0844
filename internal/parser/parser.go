package parser

import (
	"fmt"
	"lox/internal/ast"
	"lox/internal/lexer"
	"lox/internal/token"
)

const maxArguments = 255

const (
	_          int = iota
	LOWEST         //
	ASSIGN         // =
	LOGICAL_OR     // or
	LOGICAL_AND    // and
	EQUALS         // == !=
	COMPARISON     // > >= < <=
	SUM            // + -
	PRODUCT        // * /
	PREFIX         // -X or !X
	CALL           // myFunction(X) or obj.field
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:   ASSIGN,
	token.OR:       LOGICAL_OR,
	token.AND:      LOGICAL_AND,
	token.EQ:       EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       COMPARISON,
	token.LT_EQ:    COMPARISON,
	token.GT:       COMPARISON,
	token.GT_EQ:    COMPARISON,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.SLASH:    PRODUCT,
	token.ASTERISK: PRODUCT,
	token.PERIOD:   CALL,
	token.LPAREN:   CALL,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// SyntaxError is a parse failure located at a token.
type SyntaxError struct {
	Line    int
	Where   string // " at 'x'" or " at end"
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("[line %d] Error%s: %s", e.Line, e.Where, e.Message)
}

type Parser struct {
	l      *lexer.Lexer
	errors []*SyntaxError

	// panicMode suppresses cascading errors until the parser resynchronizes
	// at a statement boundary.
	panicMode bool

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		errors: []*SyntaxError{},
	}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.NIL, p.parseNil)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.BANG, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.TRUE, p.parseBoolean)
	p.registerPrefix(token.FALSE, p.parseBoolean)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.THIS, p.parseThis)
	p.registerPrefix(token.SUPER, p.parseSuper)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	p.registerInfix(token.PLUS, p.parseInfixExpression)
	p.registerInfix(token.MINUS, p.parseInfixExpression)
	p.registerInfix(token.SLASH, p.parseInfixExpression)
	p.registerInfix(token.ASTERISK, p.parseInfixExpression)
	p.registerInfix(token.EQ, p.parseInfixExpression)
	p.registerInfix(token.NOT_EQ, p.parseInfixExpression)
	p.registerInfix(token.LT, p.parseInfixExpression)
	p.registerInfix(token.LT_EQ, p.parseInfixExpression)
	p.registerInfix(token.GT, p.parseInfixExpression)
	p.registerInfix(token.GT_EQ, p.parseInfixExpression)
	p.registerInfix(token.AND, p.parseLogicalExpression)
	p.registerInfix(token.OR, p.parseLogicalExpression)
	p.registerInfix(token.ASSIGN, p.parseAssignExpression)

	p.registerInfix(token.PERIOD, p.parseGetExpression)
	p.registerInfix(token.LPAREN, p.parseCallExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
	// lexical errors are already recorded by the lexer
	for p.peekToken.Type == token.ILLEGAL {
		p.peekToken = p.l.NextToken()
	}
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) errorAt(tok token.Token, message string) {
	if p.panicMode {
		return
	}
	where := fmt.Sprintf(" at '%s'", tok.Lexeme)
	if tok.Type == token.EOF {
		where = " at end"
	}
	p.errors = append(p.errors, &SyntaxError{Line: tok.Line, Where: where, Message: message})
}

// fail records an error and enters panic mode, the enclosing declaration
// will resynchronize.
func (p *Parser) fail(tok token.Token, message string) {
	p.errorAt(tok, message)
	p.panicMode = true
}

// expectPeek advances when the next token has type t, otherwise it fails
// with message located at the offending token.
func (p *Parser) expectPeek(t token.TokenType, message string) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.fail(p.peekToken, message)
	return false
}

func (p *Parser) Errors() []*SyntaxError {
	return p.errors
}

func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	program.Statements = []ast.Statement{}

	for !p.curTokenIs(token.EOF) {
		stmt := p.parseDeclaration()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}

	return program
}

// synchronize skips tokens until curToken ends a statement or peekToken
// starts one.
func (p *Parser) synchronize() {
	p.panicMode = false
	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.SEMICOLON) {
			return
		}
		switch p.peekToken.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.nextToken()
	}
}

// parseDeclaration is entered with curToken on the first token of the
// declaration and leaves curToken on its last token.
func (p *Parser) parseDeclaration() ast.Statement {
	var stmt ast.Statement
	switch p.curToken.Type {
	case token.CLASS:
		stmt = p.parseClassStatement()
	case token.FUN:
		if p.expectPeek(token.IDENT, "Expect function name.") {
			stmt = p.parseFunction("function")
		}
	case token.VAR:
		stmt = p.parseVarStatement()
	default:
		stmt = p.parseStatement()
	}

	if p.panicMode {
		p.synchronize()
		return nil
	}
	return stmt
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.FOR:
		return p.parseForStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.PRINT:
		return p.parsePrintStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.LBRACE:
		return p.parseBlockStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseClassStatement() ast.Statement {
	stmt := &ast.ClassStatement{Token: p.curToken}

	if !p.expectPeek(token.IDENT, "Expect class name.") {
		return nil
	}
	stmt.Name = p.curToken

	if p.peekTokenIs(token.LT) {
		p.nextToken()
		if !p.expectPeek(token.IDENT, "Expect superclass name.") {
			return nil
		}
		stmt.Superclass = &ast.Identifier{Token: p.curToken}
	}

	if !p.expectPeek(token.LBRACE, "Expect '{' before class body.") {
		return nil
	}

	for !p.peekTokenIs(token.RBRACE) && !p.peekTokenIs(token.EOF) {
		if !p.expectPeek(token.IDENT, "Expect method name.") {
			return nil
		}
		method := p.parseFunction("method")
		if method == nil {
			return nil
		}
		stmt.Methods = append(stmt.Methods, method)
	}

	if !p.expectPeek(token.RBRACE, "Expect '}' after class body.") {
		return nil
	}
	return stmt
}

// parseFunction is entered with curToken on the function name.
func (p *Parser) parseFunction(kind string) *ast.FunctionStatement {
	fn := &ast.FunctionStatement{Token: p.curToken, Name: p.curToken}

	if !p.expectPeek(token.LPAREN, "Expect '(' after "+kind+" name.") {
		return nil
	}

	if !p.peekTokenIs(token.RPAREN) {
		for {
			if len(fn.Parameters) >= maxArguments {
				p.errorAt(p.peekToken, fmt.Sprintf("Can't have more than %d parameters.", maxArguments))
			}
			if !p.expectPeek(token.IDENT, "Expect parameter name.") {
				return nil
			}
			fn.Parameters = append(fn.Parameters, p.curToken)
			if !p.peekTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
	}

	if !p.expectPeek(token.RPAREN, "Expect ')' after parameters.") {
		return nil
	}
	if !p.expectPeek(token.LBRACE, "Expect '{' before "+kind+" body.") {
		return nil
	}

	fn.Body = p.parseBlock()
	return fn
}

func (p *Parser) parseVarStatement() ast.Statement {
	stmt := &ast.VarStatement{Token: p.curToken}

	if !p.expectPeek(token.IDENT, "Expect variable name.") {
		return nil
	}
	stmt.Name = p.curToken

	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		stmt.Initializer = p.parseExpression(LOWEST)
	}

	if !p.expectPeek(token.SEMICOLON, "Expect ';' after variable declaration.") {
		return nil
	}
	return stmt
}

// parseForStatement desugars `for (init; cond; incr) body` into
// `{ init; while (cond) { body; incr; } }`.
func (p *Parser) parseForStatement() ast.Statement {
	forToken := p.curToken

	if !p.expectPeek(token.LPAREN, "Expect '(' after 'for'.") {
		return nil
	}

	p.nextToken()
	var initializer ast.Statement
	switch p.curToken.Type {
	case token.SEMICOLON:
	case token.VAR:
		initializer = p.parseVarStatement()
	default:
		initializer = p.parseExpressionStatement()
	}
	if p.panicMode {
		return nil
	}

	var condition ast.Expression
	if !p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		condition = p.parseExpression(LOWEST)
	}
	if !p.expectPeek(token.SEMICOLON, "Expect ';' after loop condition.") {
		return nil
	}

	var increment ast.Expression
	if !p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		increment = p.parseExpression(LOWEST)
	}
	if !p.expectPeek(token.RPAREN, "Expect ')' after for clauses.") {
		return nil
	}

	p.nextToken()
	body := p.parseStatement()
	if body == nil {
		return nil
	}

	if increment != nil {
		body = &ast.BlockStatement{
			Token: forToken,
			Statements: []ast.Statement{
				body,
				&ast.ExpressionStatement{Token: forToken, Expression: increment},
			},
		}
	}

	if condition == nil {
		condition = &ast.Boolean{Token: token.Token{Type: token.TRUE, Lexeme: "true", Line: forToken.Line}, Value: true}
	}
	var loop ast.Statement = &ast.WhileStatement{Token: forToken, Condition: condition, Body: body}

	if initializer != nil {
		loop = &ast.BlockStatement{Token: forToken, Statements: []ast.Statement{initializer, loop}}
	}
	return loop
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}

	if !p.expectPeek(token.LPAREN, "Expect '(' after 'if'.") {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN, "Expect ')' after if condition.") {
		return nil
	}

	p.nextToken()
	stmt.ThenBranch = p.parseStatement()

	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		p.nextToken()
		stmt.ElseBranch = p.parseStatement()
	}
	return stmt
}

func (p *Parser) parsePrintStatement() ast.Statement {
	stmt := &ast.PrintStatement{Token: p.curToken}

	p.nextToken()
	stmt.Expression = p.parseExpression(LOWEST)

	if !p.expectPeek(token.SEMICOLON, "Expect ';' after value.") {
		return nil
	}
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}

	if !p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		stmt.ReturnValue = p.parseExpression(LOWEST)
	}

	if !p.expectPeek(token.SEMICOLON, "Expect ';' after return value.") {
		return nil
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken}

	if !p.expectPeek(token.LPAREN, "Expect '(' after 'while'.") {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN, "Expect ')' after condition.") {
		return nil
	}

	p.nextToken()
	stmt.Body = p.parseStatement()
	return stmt
}

func (p *Parser) parseBlockStatement() ast.Statement {
	block := &ast.BlockStatement{Token: p.curToken}
	block.Statements = p.parseBlock()
	return block
}

// parseBlock is entered on '{' and leaves curToken on the matching '}'.
func (p *Parser) parseBlock() []ast.Statement {
	statements := []ast.Statement{}

	for !p.peekTokenIs(token.RBRACE) && !p.peekTokenIs(token.EOF) {
		p.nextToken()
		if stmt := p.parseDeclaration(); stmt != nil {
			statements = append(statements, stmt)
		}
	}

	p.expectPeek(token.RBRACE, "Expect '}' after block.")
	return statements
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}

	stmt.Expression = p.parseExpression(LOWEST)

	if !p.expectPeek(token.SEMICOLON, "Expect ';' after expression.") {
		return nil
	}
	return stmt
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.fail(p.curToken, "Expect expression.")
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}

		p.nextToken()

		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	value, ok := p.curToken.Literal.(float64)
	if !ok {
		p.fail(p.curToken, fmt.Sprintf("could not parse %q as number", p.curToken.Lexeme))
		return nil
	}
	return &ast.NumberLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	value, _ := p.curToken.Literal.(string)
	return &ast.StringLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.Boolean{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNil() ast.Expression {
	return &ast.Nil{Token: p.curToken}
}

func (p *Parser) parseThis() ast.Expression {
	return &ast.ThisExpression{Token: p.curToken}
}

func (p *Parser) parseSuper() ast.Expression {
	expression := &ast.SuperExpression{Token: p.curToken}
	if !p.expectPeek(token.PERIOD, "Expect '.' after 'super'.") {
		return nil
	}
	if !p.expectPeek(token.IDENT, "Expect superclass method name.") {
		return nil
	}
	expression.Method = p.curToken
	return expression
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	expression := &ast.GroupedExpression{Token: p.curToken}

	p.nextToken()
	expression.Expression = p.parseExpression(LOWEST)

	if !p.expectPeek(token.RPAREN, "Expect ')' after expression.") {
		return nil
	}
	return expression
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
	}

	p.nextToken()

	expression.Right = p.parseExpression(PREFIX)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseLogicalExpression(left ast.Expression) ast.Expression {
	expression := &ast.LogicalExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

// parseAssignExpression is right associative: the value is parsed at LOWEST
// so a chained `a = b = c` nests to the right.
func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	equals := p.curToken

	p.nextToken()
	value := p.parseExpression(LOWEST)
	if value == nil {
		return nil
	}

	switch target := left.(type) {
	case *ast.Identifier:
		return &ast.AssignExpression{Token: equals, Name: target.Token, Value: value}
	case *ast.GetExpression:
		return &ast.SetExpression{Token: equals, Object: target.Object, Name: target.Name, Value: value}
	}

	// reported without entering panic mode, the parser is not confused
	p.errorAt(equals, "Invalid assignment target.")
	return left
}

func (p *Parser) parseGetExpression(object ast.Expression) ast.Expression {
	expression := &ast.GetExpression{Token: p.curToken, Object: object}
	if !p.expectPeek(token.IDENT, "Expect property name after '.'.") {
		return nil
	}
	expression.Name = p.curToken
	return expression
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	expression := &ast.CallExpression{Token: p.curToken, Function: function}
	expression.Arguments = p.parseCallArguments()
	if p.panicMode {
		return nil
	}
	// report calls at the closing paren, as runtime errors do
	expression.Token = p.curToken
	return expression
}

func (p *Parser) parseCallArguments() []ast.Expression {
	args := []ast.Expression{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args
	}

	p.nextToken()
	args = append(args, p.parseExpression(LOWEST))

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		if len(args) >= maxArguments {
			p.errorAt(p.curToken, fmt.Sprintf("Can't have more than %d arguments.", maxArguments))
		}
		args = append(args, p.parseExpression(LOWEST))
	}

	if !p.expectPeek(token.RPAREN, "Expect ')' after arguments.") {
		return nil
	}

	return args
}
