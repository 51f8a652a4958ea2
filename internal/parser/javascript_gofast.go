// javascript_gofast.go implements a lightweight definition extractor for
// plain JavaScript (.js, .mjs, .jsx) using go-fAST instead of tree-sitter.
// Grounded directly on the teacher's own
// internal/analysis/javascript_gofast_analyzer.go: the same
// parser.ParseFile entrypoint, the same statement/class-element switch over
// ast.FunctionDeclaration/ast.ClassDeclaration/ast.VariableDeclaration/
// ast.MethodDefinition/ast.FieldDefinition, and the same byte-offset-to-
// line-number scan (getLineFromIdx there, lineAt here).
//
// Scope note, also inherited from the teacher's analyzer: this extracts
// declarations only. It does not resolve call sites, compute code stats, or
// track field types for DI inference — go-fAST's own parser does not
// support ES module syntax or TypeScript, so any file using either already
// fails to parse here and is reported as a parse error by the build driver,
// exactly as the teacher's analyzer comment describes ("go-fAST doesn't
// support ES6 modules or TypeScript... return the error"). Declarations
// also carry LineEnd == LineStart, since go-fAST's node positions (like the
// teacher's own symbol locations) only carry a start offset.
package parser

import (
	"github.com/t14raptor/go-fast/ast"
	"github.com/t14raptor/go-fast/parser"

	"github.com/codesift/codesift/internal/types"
)

var jsExtensions = map[string]bool{".js": true, ".mjs": true, ".jsx": true}

// ParseJS extracts definitions from source via go-fAST for the extensions
// NewTreeSitterParser has no tree-sitter grammar registered for.
func ParseJS(source []byte, fileID types.FileID) (*Result, error) {
	program, err := parser.ParseFile(string(source))
	if err != nil {
		return nil, err
	}
	w := &jsWalker{
		source: source,
		fileID: fileID,
		result: &Result{
			CallSites: map[int][]types.CallSite{},
			CodeStats: map[int]types.CodeStats{},
		},
	}
	for _, stmt := range program.Body {
		w.visitStatement(stmt.Stmt, "")
	}
	return w.result, nil
}

type jsWalker struct {
	source []byte
	fileID types.FileID
	result *Result
}

// lineAt mirrors the teacher's getLineFromIdx: a byte-offset scan counting
// newlines, since go-fAST positions are byte offsets, not (line, col) pairs.
func (w *jsWalker) lineAt(idx int) int {
	line := 1
	for i := 0; i < idx && i < len(w.source); i++ {
		if w.source[i] == '\n' {
			line++
		}
	}
	return line
}

func (w *jsWalker) addDef(name string, kind types.DefinitionKind, idx int, parent string) {
	line := w.lineAt(idx)
	w.result.Defs = append(w.result.Defs, types.Definition{
		FileID:    w.fileID,
		Name:      name,
		Kind:      kind,
		LineStart: line,
		LineEnd:   line,
		Parent:    parent,
	})
}

func (w *jsWalker) visitStatement(stmt ast.Stmt, parentClass string) {
	if stmt == nil {
		return
	}
	switch s := stmt.(type) {
	case *ast.FunctionDeclaration:
		if s.Function != nil && s.Function.Name != nil {
			w.addDef(s.Function.Name.Name, types.KindFunction, int(s.Function.Function), parentClass)
			if s.Function.Body != nil {
				for _, bodyStmt := range s.Function.Body.List {
					w.visitStatement(bodyStmt.Stmt, parentClass)
				}
			}
		}

	case *ast.ClassDeclaration:
		if s.Class != nil && s.Class.Name != nil {
			className := s.Class.Name.Name
			w.addDef(className, types.KindClass, int(s.Class.Class), parentClass)
			for _, element := range s.Class.Body {
				w.visitClassElement(element.Element, className)
			}
		}

	case *ast.VariableDeclaration:
		for _, decl := range s.List {
			if decl.Target == nil || decl.Target.Target == nil {
				continue
			}
			name := jsIdentifierName(decl.Target.Target)
			if name == "" || decl.Initializer == nil || decl.Initializer.Expr == nil {
				continue
			}
			switch decl.Initializer.Expr.(type) {
			case *ast.FunctionLiteral, *ast.ArrowFunctionLiteral:
				w.addDef(name, types.KindFunction, int(s.Idx), parentClass)
			}
		}

	case *ast.BlockStatement:
		for _, bodyStmt := range s.List {
			w.visitStatement(bodyStmt.Stmt, parentClass)
		}
	}
}

func (w *jsWalker) visitClassElement(element ast.Element, className string) {
	if element == nil {
		return
	}
	switch e := element.(type) {
	case *ast.MethodDefinition:
		if e.Key == nil || e.Key.Expr == nil {
			return
		}
		name := jsExpressionName(e.Key.Expr)
		if name == "" {
			return
		}
		kind := types.KindMethod
		if name == "constructor" {
			kind = types.KindConstructor
		}
		w.addDef(name, kind, int(e.Idx), className)

	case *ast.FieldDefinition:
		if e.Key == nil || e.Key.Expr == nil {
			return
		}
		name := jsExpressionName(e.Key.Expr)
		if name == "" {
			return
		}
		w.addDef(name, types.KindField, int(e.Idx), className)
	}
}

func jsIdentifierName(target ast.Target) string {
	if ident, ok := target.(*ast.Identifier); ok {
		return ident.Name
	}
	return ""
}

func jsExpressionName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Identifier:
		return e.Name
	case *ast.PrivateIdentifier:
		if e.Identifier != nil {
			return "#" + e.Identifier.Name
		}
	case *ast.StringLiteral:
		return e.Value
	}
	return ""
}
