package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"lox/internal/ast"
	"reflect"
)

// WalkAST recursively traverses an AST and serializes it into a map structure for JSON output.
func WalkAST(node ast.Node) interface{} {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return nil
	}

	switch n := node.(type) {
	case *ast.Program:
		return map[string]interface{}{
			"0.type":       "Program",
			"1.statements": walkStatements(n.Statements),
		}

	case *ast.VarStatement:
		return map[string]interface{}{
			"0.type":        "VarStatement",
			"1.line":        n.Line(),
			"2.name":        n.Name.Lexeme,
			"3.initializer": WalkAST(n.Initializer),
		}

	case *ast.ReturnStatement:
		return map[string]interface{}{
			"0.type":        "ReturnStatement",
			"1.line":        n.Line(),
			"2.returnValue": WalkAST(n.ReturnValue),
		}

	case *ast.ExpressionStatement:
		return map[string]interface{}{
			"0.type":       "ExpressionStatement",
			"1.line":       n.Line(),
			"2.expression": WalkAST(n.Expression),
		}

	case *ast.PrintStatement:
		return map[string]interface{}{
			"0.type":       "PrintStatement",
			"1.line":       n.Line(),
			"2.expression": WalkAST(n.Expression),
		}

	case *ast.BlockStatement:
		return map[string]interface{}{
			"0.type":       "BlockStatement",
			"1.line":       n.Line(),
			"2.statements": walkStatements(n.Statements),
		}

	case *ast.IfStatement:
		return map[string]interface{}{
			"0.type":       "IfStatement",
			"1.line":       n.Line(),
			"2.condition":  WalkAST(n.Condition),
			"3.thenBranch": WalkAST(n.ThenBranch),
			"4.elseBranch": WalkAST(n.ElseBranch),
		}

	case *ast.WhileStatement:
		return map[string]interface{}{
			"0.type":      "WhileStatement",
			"1.line":      n.Line(),
			"2.condition": WalkAST(n.Condition),
			"3.body":      WalkAST(n.Body),
		}

	case *ast.FunctionStatement:
		params := make([]string, len(n.Parameters))
		for i, p := range n.Parameters {
			params[i] = p.Lexeme
		}
		return map[string]interface{}{
			"0.type":       "FunctionStatement",
			"1.line":       n.Line(),
			"2.name":       n.Name.Lexeme,
			"3.parameters": params,
			"4.body":       walkStatements(n.Body),
		}

	case *ast.ClassStatement:
		methods := make([]interface{}, len(n.Methods))
		for i, m := range n.Methods {
			methods[i] = WalkAST(m)
		}
		return map[string]interface{}{
			"0.type":       "ClassStatement",
			"1.line":       n.Line(),
			"2.name":       n.Name.Lexeme,
			"3.superclass": WalkAST(n.Superclass),
			"4.methods":    methods,
		}

	case *ast.Identifier:
		return map[string]interface{}{
			"0.type": "Identifier",
			"1.line": n.Line(),
			"2.name": n.Token.Lexeme,
		}

	case *ast.AssignExpression:
		return map[string]interface{}{
			"0.type":  "AssignExpression",
			"1.line":  n.Line(),
			"2.name":  n.Name.Lexeme,
			"3.value": WalkAST(n.Value),
		}

	case *ast.NumberLiteral:
		return map[string]interface{}{
			"0.type":  "NumberLiteral",
			"1.value": n.Value,
		}

	case *ast.StringLiteral:
		return map[string]interface{}{
			"0.type":  "StringLiteral",
			"1.value": n.Value,
		}

	case *ast.Boolean:
		return map[string]interface{}{
			"0.type":  "Boolean",
			"1.value": n.Value,
		}

	case *ast.Nil:
		return map[string]interface{}{
			"0.type": "Nil",
		}

	case *ast.GroupedExpression:
		return map[string]interface{}{
			"0.type":       "GroupedExpression",
			"1.expression": WalkAST(n.Expression),
		}

	case *ast.PrefixExpression:
		return map[string]interface{}{
			"0.type":     "PrefixExpression",
			"1.line":     n.Line(),
			"2.operator": n.Operator,
			"3.right":    WalkAST(n.Right),
		}

	case *ast.InfixExpression:
		return map[string]interface{}{
			"0.type":     "InfixExpression",
			"1.line":     n.Line(),
			"2.left":     WalkAST(n.Left),
			"3.operator": n.Operator,
			"4.right":    WalkAST(n.Right),
		}

	case *ast.LogicalExpression:
		return map[string]interface{}{
			"0.type":     "LogicalExpression",
			"1.line":     n.Line(),
			"2.left":     WalkAST(n.Left),
			"3.operator": n.Operator,
			"4.right":    WalkAST(n.Right),
		}

	case *ast.CallExpression:
		args := make([]interface{}, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = WalkAST(a)
		}
		return map[string]interface{}{
			"0.type":      "CallExpression",
			"1.line":      n.Line(),
			"2.function":  WalkAST(n.Function),
			"3.arguments": args,
		}

	case *ast.GetExpression:
		return map[string]interface{}{
			"0.type":   "GetExpression",
			"1.line":   n.Line(),
			"2.object": WalkAST(n.Object),
			"3.name":   n.Name.Lexeme,
		}

	case *ast.SetExpression:
		return map[string]interface{}{
			"0.type":   "SetExpression",
			"1.line":   n.Line(),
			"2.object": WalkAST(n.Object),
			"3.name":   n.Name.Lexeme,
			"4.value":  WalkAST(n.Value),
		}

	case *ast.ThisExpression:
		return map[string]interface{}{
			"0.type": "ThisExpression",
			"1.line": n.Line(),
		}

	case *ast.SuperExpression:
		return map[string]interface{}{
			"0.type":   "SuperExpression",
			"1.line":   n.Line(),
			"2.method": n.Method.Lexeme,
		}

	default:
		return map[string]interface{}{
			"0.type": "Unknown: " + n.String(),
		}
	}
}

func walkStatements(statements []ast.Statement) []interface{} {
	out := make([]interface{}, len(statements))
	for i, s := range statements {
		out[i] = WalkAST(s)
	}
	return out
}

// WriteASTToJSON renders a root AST node as indented JSON.
func WriteASTToJSON(node ast.Node, w io.Writer) error {
	astMap := WalkAST(node)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")  // Pretty-print the JSON
	encoder.SetEscapeHTML(false) // Disable escaping of characters like <, >, &

	if err := encoder.Encode(astMap); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
