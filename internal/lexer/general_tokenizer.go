package lexer

import (
	"lox/internal/token"
	"strconv"
)

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()

	startPosition := l.position // Record the current position as the start of the token

	switch l.ch {
	case '=':
		tok = l.handleCompoundToken(token.ASSIGN, '=', token.EQ)
	case '!':
		tok = l.handleCompoundToken(token.BANG, '=', token.NOT_EQ)
	case '<':
		tok = l.handleCompoundToken(token.LT, '=', token.LT_EQ)
	case '>':
		tok = l.handleCompoundToken(token.GT, '=', token.GT_EQ)
	case '+':
		tok = l.newToken(token.PLUS, startPosition)
	case '-':
		tok = l.newToken(token.MINUS, startPosition)
	case '*':
		tok = l.newToken(token.ASTERISK, startPosition)
	case '/':
		tok = l.newToken(token.SLASH, startPosition)
	case ';':
		tok = l.newToken(token.SEMICOLON, startPosition)
	case ',':
		tok = l.newToken(token.COMMA, startPosition)
	case '.':
		tok = l.newToken(token.PERIOD, startPosition)
	case '(':
		tok = l.newToken(token.LPAREN, startPosition)
	case ')':
		tok = l.newToken(token.RPAREN, startPosition)
	case '{':
		tok = l.newToken(token.LBRACE, startPosition)
	case '}':
		tok = l.newToken(token.RBRACE, startPosition)
	case '"':
		line := l.line
		value, ok := l.readString()
		if !ok {
			l.addError("Unterminated string.")
			return token.Token{Type: token.ILLEGAL, Lexeme: l.input[startPosition:l.position], Line: l.line, Position: startPosition}
		}
		tok = token.Token{
			Type:     token.STRING,
			Lexeme:   l.input[startPosition : l.position+1],
			Literal:  value,
			Line:     line,
			Position: startPosition,
		}
	case 0:
		return token.Token{Type: token.EOF, Line: l.line, Position: startPosition}
	default:
		if isLetter(l.ch) {
			ident := l.readIdentifier()
			return token.Token{Type: token.LookupIdent(ident), Lexeme: ident, Line: l.line, Position: startPosition}
		} else if isDigit(l.ch) {
			lexeme := l.readNumber()
			value, _ := strconv.ParseFloat(lexeme, 64)
			return token.Token{Type: token.NUMBER, Lexeme: lexeme, Literal: value, Line: l.line, Position: startPosition}
		}
		l.addError("Unexpected character.")
		tok = l.newToken(token.ILLEGAL, startPosition)
	}

	l.readChar()
	return tok
}
