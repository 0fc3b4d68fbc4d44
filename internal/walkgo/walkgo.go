// Package walkgo is the concrete AST event-feed driver (SPEC_FULL.md
// §C): it walks Go source annotated with "//ompdart:" pragma comments
// standing in for OpenMP target directives, and feeds the resulting
// events into an accesslog.Builder per function.
//
// Grounded on the teacher's cmd/racedetector/instrument/visitor.go
// (a go/ast.Visitor driving a two-pass collect-then-apply instrumentation
// pass) and instrument.go (parse → walk → print pipeline). Where the
// teacher's visitor decided where to inject race-detection calls, this
// walker decides which events to hand the Access-Log Builder; the
// builder and everything downstream of it never import go/ast.
package walkgo

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"sort"
	"strings"

	"github.com/kolkov/ompdart/internal/accesslog"
	"github.com/kolkov/ompdart/internal/event"
)

// pragmaPattern recognizes a "//ompdart:target ... private(a,b)" comment.
var pragmaPattern = regexp.MustCompile(`^ompdart:target\b.*?(?:private\(([^)]*)\))?\s*$`)

// topRange is one function's direct-child-of-body statement range,
// recorded for the StmtResolver (spec §4.4 TargetDataRegion extent needs
// "the outermost statement in the function body").
type topRange struct {
	rng     event.Pos2
	isBlock bool
}

// Resolver implements event.StmtResolver over one parsed Go file.
type Resolver struct {
	fset  *token.FileSet
	src   []byte
	top   []topRange
	step  string
}

func (r *Resolver) EnclosingStmt(pos event.Pos) event.Pos2 {
	for _, t := range r.top {
		if t.rng.Begin.Offset <= pos.Offset && pos.Offset < t.rng.End.Offset {
			return t.rng
		}
	}
	return event.Pos2{Begin: pos, End: pos}
}

func (r *Resolver) IsSemiTerminated(pos event.Pos) bool {
	for _, t := range r.top {
		if t.rng.Begin.Offset <= pos.Offset && pos.Offset < t.rng.End.Offset {
			return !t.isBlock
		}
	}
	return true
}

func (r *Resolver) IndentOf(pos event.Pos) string {
	off := pos.Offset
	if off > len(r.src) {
		off = len(r.src)
	}
	lineStart := 0
	for i := off - 1; i >= 0; i-- {
		if r.src[i] == '\n' {
			lineStart = i + 1
			break
		}
	}
	i := lineStart
	for i < len(r.src) && (r.src[i] == ' ' || r.src[i] == '\t') {
		i++
	}
	return string(r.src[lineStart:i])
}

func (r *Resolver) IndentStep() string { return r.step }

// AnalyzeFile parses src and returns one FunctionSummary per top-level
// function, plus the StmtResolver the pipeline needs for region extent
// and placement.
func AnalyzeFile(filename string, src []byte) (map[event.FuncID]*accesslog.FunctionSummary, *Resolver, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, nil, fmt.Errorf("walkgo: parse %s: %w", filename, err)
	}

	w := &walker{
		fset:         fset,
		src:          src,
		filename:     filename,
		funcIDByName: map[string]event.FuncID{},
		globalID:     map[string]event.VarID{},
		globalFacts:  map[event.VarID]typeFactsPair{},
		resolver:     &Resolver{fset: fset, src: src, step: "\t"},
	}

	var funcID event.FuncID
	ast.Inspect(file, func(n ast.Node) bool {
		if fd, ok := n.(*ast.FuncDecl); ok {
			w.funcIDByName[fd.Name.Name] = funcID
			funcID++
		}
		return true
	})

	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.VAR {
			continue
		}
		for _, spec := range gd.Specs {
			vs := spec.(*ast.ValueSpec)
			arith, ptr := typeFacts(vs.Type)
			for _, name := range vs.Names {
				id := w.nextVar()
				w.globalID[name.Name] = id
				w.globalFacts[id] = typeFactsPair{arithmetic: arith, pointer: ptr}
			}
		}
	}

	pragmas := buildPragmaIndex(fset, file)

	funcs := map[event.FuncID]*accesslog.FunctionSummary{}
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		sum := w.walkFunc(fd, pragmas)
		funcs[sum.Func] = sum
	}

	sort.Slice(w.resolver.top, func(i, j int) bool {
		return w.resolver.top[i].rng.Begin.Offset < w.resolver.top[j].rng.Begin.Offset
	})

	return funcs, w.resolver, nil
}

type walker struct {
	fset         *token.FileSet
	src          []byte
	filename     string
	funcIDByName map[string]event.FuncID
	globalID     map[string]event.VarID
	globalFacts  map[event.VarID]typeFactsPair
	nextVarID    int64
	resolver     *Resolver
}

// typeFactsPair caches a global declaration's type facts, resolved once
// at file-scan time rather than re-derived on every reference.
type typeFactsPair struct {
	arithmetic, pointer bool
}

func (w *walker) nextVar() event.VarID {
	w.nextVarID++
	return event.VarID(w.nextVarID)
}

func (w *walker) pos(p token.Pos) event.Pos {
	pp := w.fset.Position(p)
	return event.Pos{Offset: pp.Offset, File: pp.Filename, Line: pp.Line, Col: pp.Column}
}

type funcScope struct {
	ids     map[string]event.VarID
	walker  *walker
	b       *accesslog.Builder
	stmtSeq event.StmtID
}

func (w *walker) walkFunc(fd *ast.FuncDecl, pragmas map[int]pragma) *accesslog.FunctionSummary {
	fnID := w.funcIDByName[fd.Name.Name]
	b := accesslog.NewBuilder(fnID, fd.Name.Name)

	fs := &funcScope{ids: map[string]event.VarID{}, walker: w, b: b}

	var params []event.VarID
	var paramFacts []struct {
		arith, ptr bool
	}
	if fd.Type.Params != nil {
		for _, field := range fd.Type.Params.List {
			arith, ptr := typeFacts(field.Type)
			for _, name := range field.Names {
				id := w.nextVar()
				fs.ids[name.Name] = id
				params = append(params, id)
				paramFacts = append(paramFacts, struct{ arith, ptr bool }{arith, ptr})
			}
		}
	}
	for i, v := range params {
		b.RecordVarMeta(v, accesslog.VarMeta{
			Arithmetic: paramFacts[i].arith, PointerOrRef: paramFacts[i].ptr, IsParam: true,
		})
	}

	for _, stmt := range fd.Body.List {
		begin, end := w.pos(stmt.Pos()), w.pos(stmt.End())
		_, isBlockLike := blockLike(stmt)
		w.resolver.top = append(w.resolver.top, topRange{rng: event.Pos2{Begin: begin, End: end}, isBlock: isBlockLike})
	}

	for _, stmt := range fd.Body.List {
		fs.walkStmt(stmt, pragmas)
	}

	sum := b.Finish()
	sum.SetParams(params)
	return sum
}

// blockLike reports whether stmt is a brace-delimited construct (if/for/
// switch/block) as opposed to a simple, semicolon-terminated statement —
// the distinction the Placement Resolver needs (spec §4.5).
func blockLike(stmt ast.Stmt) (ast.Stmt, bool) {
	switch stmt.(type) {
	case *ast.BlockStmt, *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt, *ast.SwitchStmt, *ast.TypeSwitchStmt:
		return stmt, true
	default:
		return stmt, false
	}
}

type pragma struct {
	line    int
	private []string
}

// buildPragmaIndex scans every comment in the file for an
// "//ompdart:target [private(a,b)]" line and indexes it by the line
// number of the statement it immediately precedes, mirroring how the
// teacher's instrument.go keys injected instrumentation off a line
// number rather than an AST handle.
func buildPragmaIndex(fset *token.FileSet, file *ast.File) map[int]pragma {
	out := map[int]pragma{}
	for _, cg := range file.Comments {
		for _, c := range cg.List {
			text := strings.TrimPrefix(c.Text, "//")
			text = strings.TrimSpace(text)
			m := pragmaPattern.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			line := fset.Position(c.End()).Line + 1
			var priv []string
			if m[1] != "" {
				for _, p := range strings.Split(m[1], ",") {
					priv = append(priv, strings.TrimSpace(p))
				}
			}
			out[line] = pragma{line: line, private: priv}
		}
	}
	return out
}

// typeFacts reports whether t is an arithmetic type and whether it is a
// pointer (non-const reference analogue), using simple syntactic checks
// consistent with the teacher's lack of a go/types dependency anywhere
// in the pack.
func typeFacts(t ast.Expr) (arithmetic, pointer bool) {
	switch e := t.(type) {
	case *ast.StarExpr:
		return false, true
	case *ast.Ident:
		switch e.Name {
		case "int", "int8", "int16", "int32", "int64",
			"uint", "uint8", "uint16", "uint32", "uint64",
			"float32", "float64", "byte", "rune":
			return true, false
		}
		return false, false
	default:
		return false, false
	}
}
