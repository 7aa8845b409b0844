package parser

import (
	"bytes"
	"lox/internal/ast"
	"lox/internal/lexer"
	"strings"
	"testing"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input))
	program := p.ParseProgram()
	checkParserErrors(t, p)
	return program
}

func checkParserErrors(t *testing.T, p *Parser) {
	t.Helper()
	errors := p.Errors()
	if len(errors) == 0 {
		return
	}

	t.Errorf("parser has %d errors", len(errors))
	for _, msg := range errors {
		t.Errorf("parser error: %q", msg.Error())
	}
	t.FailNow()
}

func TestOperatorPrecedenceParsing(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"-a * b;", "((-a) * b);"},
		{"!-a;", "(!(-a));"},
		{"a + b + c;", "((a + b) + c);"},
		{"a + b * c;", "(a + (b * c));"},
		{"a * b / c;", "((a * b) / c);"},
		{"5 > 4 == 3 < 4;", "((5 > 4) == (3 < 4));"},
		{"3 + 4 * 5 == 3 * 1 + 4 * 5;", "((3 + (4 * 5)) == ((3 * 1) + (4 * 5)));"},
		{"(5 + 5) * 2;", "((group (5 + 5)) * 2);"},
		{"a or b and c;", "(a or (b and c));"},
		{"a = b = c;", "(a = (b = c));"},
		{"a = b or c;", "(a = (b or c));"},
		{"a.b.c = d;", "(a.b.c = d);"},
		{"add(a, b * c)(d);", "add(a, (b * c))(d);"},
		{"a.b(c).d;", "a.b(c).d;"},
		{"super.method(1);", "super.method(1);"},
		{"this.x = -1;", "(this.x = (-1));"},
		{"x <= 1.5 != y >= 2;", "((x <= 1.5) != (y >= 2));"},
	}

	for _, tt := range tests {
		program := parse(t, tt.input)
		actual := strings.TrimSpace(program.String())
		if actual != tt.expected {
			t.Errorf("expected=%q, got=%q", tt.expected, actual)
		}
	}
}

func TestVarStatement(t *testing.T) {
	program := parse(t, "var x = 5; var y;")

	if len(program.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(program.Statements))
	}

	first, ok := program.Statements[0].(*ast.VarStatement)
	if !ok {
		t.Fatalf("stmt is not *ast.VarStatement. got=%T", program.Statements[0])
	}
	if first.Name.Lexeme != "x" {
		t.Errorf("name wrong. got=%q", first.Name.Lexeme)
	}
	if lit, ok := first.Initializer.(*ast.NumberLiteral); !ok || lit.Value != 5 {
		t.Errorf("initializer wrong. got=%v", first.Initializer)
	}

	second := program.Statements[1].(*ast.VarStatement)
	if second.Initializer != nil {
		t.Errorf("expected nil initializer, got %v", second.Initializer)
	}
}

func TestForDesugarsToWhile(t *testing.T) {
	program := parse(t, "for (var i = 0; i < 3; i = i + 1) print i;")

	outer, ok := program.Statements[0].(*ast.BlockStatement)
	if !ok {
		t.Fatalf("expected block wrapping the initializer, got %T", program.Statements[0])
	}
	if _, ok := outer.Statements[0].(*ast.VarStatement); !ok {
		t.Fatalf("expected initializer first, got %T", outer.Statements[0])
	}
	loop, ok := outer.Statements[1].(*ast.WhileStatement)
	if !ok {
		t.Fatalf("expected while loop, got %T", outer.Statements[1])
	}
	body, ok := loop.Body.(*ast.BlockStatement)
	if !ok || len(body.Statements) != 2 {
		t.Fatalf("expected body block with increment, got %v", loop.Body)
	}
	if _, ok := body.Statements[0].(*ast.PrintStatement); !ok {
		t.Errorf("expected print first, got %T", body.Statements[0])
	}
}

func TestForWithoutClauses(t *testing.T) {
	program := parse(t, "for (;;) print 1;")

	loop, ok := program.Statements[0].(*ast.WhileStatement)
	if !ok {
		t.Fatalf("expected bare while loop, got %T", program.Statements[0])
	}
	cond, ok := loop.Condition.(*ast.Boolean)
	if !ok || !cond.Value {
		t.Errorf("expected literal true condition, got %v", loop.Condition)
	}
}

func TestClassStatement(t *testing.T) {
	program := parse(t, `class B < A { init(x) { this.x = x; } greet() { return super.greet() + "B"; } }`)

	class, ok := program.Statements[0].(*ast.ClassStatement)
	if !ok {
		t.Fatalf("stmt is not *ast.ClassStatement. got=%T", program.Statements[0])
	}
	if class.Name.Lexeme != "B" {
		t.Errorf("class name wrong. got=%q", class.Name.Lexeme)
	}
	if class.Superclass == nil || class.Superclass.Token.Lexeme != "A" {
		t.Errorf("superclass wrong. got=%v", class.Superclass)
	}
	if len(class.Methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(class.Methods))
	}
	if class.Methods[0].Name.Lexeme != "init" || len(class.Methods[0].Parameters) != 1 {
		t.Errorf("init method wrong: %s", class.Methods[0].String())
	}
}

func TestFunctionStatement(t *testing.T) {
	program := parse(t, "fun add(a, b, c) { return a + b + c; }")

	fn, ok := program.Statements[0].(*ast.FunctionStatement)
	if !ok {
		t.Fatalf("stmt is not *ast.FunctionStatement. got=%T", program.Statements[0])
	}
	if len(fn.Parameters) != 3 {
		t.Fatalf("expected 3 params, got %d", len(fn.Parameters))
	}
	if _, ok := fn.Body[0].(*ast.ReturnStatement); !ok {
		t.Errorf("expected return statement, got %T", fn.Body[0])
	}
}

func TestIdenticalExpressionsAreDistinctNodes(t *testing.T) {
	program := parse(t, "a; a;")

	first := program.Statements[0].(*ast.ExpressionStatement).Expression
	second := program.Statements[1].(*ast.ExpressionStatement).Expression

	if first.String() != second.String() {
		t.Fatalf("expected structurally equal expressions")
	}
	if first == second {
		t.Fatalf("expected distinct node identities")
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"print 1", []string{"[line 1] Error at end: Expect ';' after value."}},
		{"var = 1;", []string{"[line 1] Error at '=': Expect variable name."}},
		{"1 + 2 = 3;", []string{"[line 1] Error at '=': Invalid assignment target."}},
		{"print );\nvar 1;", []string{
			"[line 1] Error at ')': Expect expression.",
			"[line 2] Error at '1': Expect variable name.",
		}},
		{"{ print 1; ", []string{"[line 1] Error at end: Expect '}' after block."}},
		{"class { }", []string{"[line 1] Error at '{': Expect class name."}},
		{"foo(1,;", []string{"[line 1] Error at ';': Expect expression."}},
		{"super;", []string{"[line 1] Error at ';': Expect '.' after 'super'."}},
	}

	for _, tt := range tests {
		p := New(lexer.New(tt.input))
		p.ParseProgram()

		errs := p.Errors()
		if len(errs) != len(tt.expected) {
			t.Errorf("%q: expected %d errors, got %d: %v", tt.input, len(tt.expected), len(errs), errs)
			continue
		}
		for i, e := range errs {
			if e.Error() != tt.expected[i] {
				t.Errorf("%q: error[%d] expected=%q, got=%q", tt.input, i, tt.expected[i], e.Error())
			}
		}
	}
}

func TestTooManyArguments(t *testing.T) {
	args := make([]string, 256)
	for i := range args {
		args[i] = "1"
	}
	p := New(lexer.New("f(" + strings.Join(args, ", ") + ");"))
	p.ParseProgram()

	errs := p.Errors()
	if len(errs) != 1 || errs[0].Message != "Can't have more than 255 arguments." {
		t.Fatalf("expected argument limit error, got %v", errs)
	}
}

func TestWriteASTToJSON(t *testing.T) {
	program := parse(t, "var a = 1; print a;")

	var buf bytes.Buffer
	if err := WriteASTToJSON(program, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"VarStatement"`, `"PrintStatement"`, `"Identifier"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output:\n%s", want, out)
		}
	}
}
