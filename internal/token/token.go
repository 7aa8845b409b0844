package token

import "fmt"

type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers + literals
	IDENT  = "IDENT"  // foo, bar, x, y, ...
	NUMBER = "NUMBER" // 12, 12.5
	STRING = "STRING" // "foobar"

	// Single-character tokens
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	COMMA     = ","
	PERIOD    = "."
	MINUS     = "-"
	PLUS      = "+"
	SEMICOLON = ";"
	SLASH     = "/"
	ASTERISK  = "*"

	// One or two character tokens
	BANG   = "!"
	NOT_EQ = "!="
	ASSIGN = "="
	EQ     = "=="
	GT     = ">"
	GT_EQ  = ">="
	LT     = "<"
	LT_EQ  = "<="

	// Keywords
	AND    = "AND"
	CLASS  = "CLASS"
	ELSE   = "ELSE"
	FALSE  = "FALSE"
	FUN    = "FUN"
	FOR    = "FOR"
	IF     = "IF"
	NIL    = "NIL"
	OR     = "OR"
	PRINT  = "PRINT"
	RETURN = "RETURN"
	SUPER  = "SUPER"
	THIS   = "THIS"
	TRUE   = "TRUE"
	VAR    = "VAR"
	WHILE  = "WHILE"
)

type Token struct {
	Type     TokenType
	Lexeme   string
	Literal  any // float64 for NUMBER, string for STRING
	Line     int
	Position int // the src index of the token
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q %v", t.Type, t.Lexeme, t.Literal)
}

var keywords = map[string]TokenType{
	// constants
	"nil":   NIL,
	"true":  TRUE,
	"false": FALSE,

	// declarations
	"class": CLASS,
	"fun":   FUN,
	"var":   VAR,

	// flow control
	"if":     IF,
	"else":   ELSE,
	"for":    FOR,
	"while":  WHILE,
	"return": RETURN,

	// logical
	"and": AND,
	"or":  OR,

	"print": PRINT,
	"super": SUPER,
	"this":  THIS,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
