package walkgo

import (
	"go/ast"
	"go/token"

	"github.com/kolkov/ompdart/internal/accesslog"
	"github.com/kolkov/ompdart/internal/event"
)

// resolveVar looks up name in the function's flat local table, falling
// back to the file's global table. Variable identity is name-keyed and
// flat across block scopes within one function — a deliberate
// simplification for this Go rendition of the analyzer, recorded in
// DESIGN.md: a real frontend would key identity off the declaring
// *ast.Object instead of the spelling.
func (fs *funcScope) resolveVar(name string) (event.VarID, bool) {
	if id, ok := fs.ids[name]; ok {
		return id, true
	}
	if id, ok := fs.walker.globalID[name]; ok {
		fs.b.RecordGlobal(id)
		facts := fs.walker.globalFacts[id]
		fs.b.RecordVarMeta(id, accesslog.VarMeta{IsGlobal: true, Arithmetic: facts.arithmetic, PointerOrRef: facts.pointer})
		return id, true
	}
	return 0, false
}

func (fs *funcScope) declareLocal(name string) event.VarID {
	if id, ok := fs.ids[name]; ok {
		return id
	}
	id := fs.walker.nextVar()
	fs.ids[name] = id
	fs.b.RecordLocal(id)
	return id
}

// privateVar resolves a name from a "private(...)" pragma clause,
// pre-declaring it if the walker has not reached its declaration yet
// (common for a loop index var mentioned before its ForStmt.Init runs).
func (fs *funcScope) privateVar(name string) event.VarID {
	if id, ok := fs.resolveVar(name); ok {
		return id
	}
	return fs.declareLocal(name)
}

func (fs *funcScope) nextStmtID() event.StmtID {
	fs.stmtSeq++
	return fs.stmtSeq
}

func (fs *funcScope) walkStmt(stmt ast.Stmt, pragmas map[int]pragma) {
	w := fs.walker
	line := w.fset.Position(stmt.Pos()).Line
	if p, ok := pragmas[line]; ok {
		begin, end := w.pos(stmt.Pos()), w.pos(stmt.End())
		var priv []event.VarID
		for _, name := range p.private {
			priv = append(priv, fs.privateVar(name))
		}
		fs.b.RecordTargetRegion(begin, end, &event.DirectiveInfo{
			Kind:          event.DirTarget,
			Private:       priv,
			CapturedBegin: begin,
			CapturedEnd:   end,
		})
	}
	fs.walkStmtInner(stmt)
}

func (fs *funcScope) walkStmtInner(stmt ast.Stmt) {
	w := fs.walker
	stmtID := fs.nextStmtID()

	switch s := stmt.(type) {
	case *ast.DeclStmt:
		gd, ok := s.Decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.VAR {
			return
		}
		for _, spec := range gd.Specs {
			vs := spec.(*ast.ValueSpec)
			arith, ptr := typeFacts(vs.Type)
			for i, name := range vs.Names {
				id := fs.declareLocal(name.Name)
				fs.b.RecordVarMeta(id, accesslog.VarMeta{
					Arithmetic: arith, PointerOrRef: ptr,
					DeclPos: w.pos(name.Pos()), HasDeclPos: true,
				})
				if i < len(vs.Values) {
					fs.walkExprRead(vs.Values[i])
					fs.b.RecordAccess(id, w.pos(name.Pos()), stmtID, accesslog.WRITE, false, true)
				}
			}
		}

	case *ast.AssignStmt:
		fs.walkAssign(s, stmtID)

	case *ast.IncDecStmt:
		if id, ok := fs.identVar(s.X); ok {
			fs.b.RecordAccess(id, w.pos(s.X.Pos()), stmtID, accesslog.READWRITE, false, true)
		}

	case *ast.ExprStmt:
		fs.walkExprRead(s.X)

	case *ast.ReturnStmt:
		for _, r := range s.Results {
			fs.walkExprRead(r)
		}

	case *ast.IfStmt:
		fs.walkIf(s)

	case *ast.ForStmt:
		fs.walkFor(s)

	case *ast.RangeStmt:
		fs.walkRange(s)

	case *ast.BlockStmt:
		for _, inner := range s.List {
			fs.walkStmtInner(inner)
		}

	case *ast.SwitchStmt:
		fs.walkSwitch(s)
	}
}

// identVar resolves a variable reference expression to a tracked VarID,
// unwrapping a single level of parens.
func (fs *funcScope) identVar(expr ast.Expr) (event.VarID, bool) {
	switch e := expr.(type) {
	case *ast.Ident:
		return fs.resolveVar(e.Name)
	case *ast.ParenExpr:
		return fs.identVar(e.X)
	default:
		return 0, false
	}
}

func (fs *funcScope) walkAssign(s *ast.AssignStmt, stmtID event.StmtID) {
	w := fs.walker

	for _, rhs := range s.Rhs {
		fs.walkExprRead(rhs)
	}

	mode := accesslog.WRITE
	if s.Tok != token.ASSIGN && s.Tok != token.DEFINE {
		mode = accesslog.READWRITE // compound assignment: read-modify-write
	}

	for _, lhs := range s.Lhs {
		switch l := lhs.(type) {
		case *ast.Ident:
			if l.Name == "_" {
				continue
			}
			var id event.VarID
			if s.Tok == token.DEFINE {
				id = fs.declareLocal(l.Name)
			} else {
				var ok bool
				id, ok = fs.resolveVar(l.Name)
				if !ok {
					id = fs.declareLocal(l.Name)
				}
			}
			fs.b.RecordAccess(id, w.pos(l.Pos()), stmtID, mode, false, true)

		case *ast.IndexExpr:
			fs.walkIndexExpr(l, stmtID, mode)
		}
	}
}

// walkIndexExpr handles a[i] appearing as an assignment target or as a
// read, attaching subscript info for the loop-hoist placement rule
// (spec §4.4).
func (fs *funcScope) walkIndexExpr(ix *ast.IndexExpr, stmtID event.StmtID, mode accesslog.Mode) {
	w := fs.walker
	base, ok := fs.identVar(ix.X)
	if !ok {
		return
	}
	pos := w.pos(ix.X.Pos())
	fs.b.RecordAccess(base, pos, stmtID, mode, false, true)

	indexVar, hasIndex := fs.identVar(ix.Index)
	fs.b.RecordArrayAccess(base, pos, indexVar, hasIndex)
	if hasIndex {
		fs.b.RecordAccess(indexVar, w.pos(ix.Index.Pos()), stmtID, accesslog.READ, false, false)
	}
}

func (fs *funcScope) walkExprRead(expr ast.Expr) {
	w := fs.walker
	switch e := expr.(type) {
	case *ast.Ident:
		if id, ok := fs.resolveVar(e.Name); ok {
			fs.b.RecordAccess(id, w.pos(e.Pos()), 0, accesslog.READ, false, false)
		}
	case *ast.ParenExpr:
		fs.walkExprRead(e.X)
	case *ast.UnaryExpr:
		fs.walkExprRead(e.X)
	case *ast.BinaryExpr:
		fs.walkExprRead(e.X)
		fs.walkExprRead(e.Y)
	case *ast.IndexExpr:
		fs.walkIndexExpr(e, 0, accesslog.READ)
	case *ast.CallExpr:
		fs.walkCall(e)
	case *ast.StarExpr:
		fs.walkExprRead(e.X)
	}
}

func (fs *funcScope) walkCall(call *ast.CallExpr) {
	w := fs.walker
	ident, ok := call.Fun.(*ast.Ident)
	if !ok {
		for _, a := range call.Args {
			fs.walkExprRead(a)
		}
		return
	}

	callee, resolved := w.funcIDByName[ident.Name]
	if !resolved {
		callee = event.FuncID(-1)
	}
	isAlloc := accesslog.IsAllocator(ident.Name)
	isDealloc := accesslog.IsDeallocator(ident.Name)

	var args []event.CallArg
	for _, a := range call.Args {
		arg := a
		mode := event.ParamRead
		var unary *ast.UnaryExpr
		if u, ok := arg.(*ast.UnaryExpr); ok && u.Op == token.AND {
			unary = u
			mode = event.ParamUnknown
		}
		target := arg
		if unary != nil {
			target = unary.X
		}
		if id, ok := fs.identVar(target); ok {
			args = append(args, event.CallArg{Var: id, Mode: mode})
		} else {
			args = append(args, event.CallArg{Var: event.NoArgVar, Mode: mode})
			fs.walkExprRead(arg)
		}
	}

	fs.b.RecordCallExpr(w.pos(call.Pos()), 0, callee, args, isAlloc, isDealloc)
}

func (fs *funcScope) walkIf(s *ast.IfStmt) {
	w := fs.walker
	begin := w.pos(s.Pos())
	end := fs.chainEnd(s)

	var arms []accesslog.CondArm
	fs.collectIfArms(s, &arms)

	fs.b.RecordCond(begin, end, arms)

	if s.Init != nil {
		fs.walkStmtInner(s.Init)
	}
	fs.walkExprRead(s.Cond)
	fs.walkStmtInner(s.Body)
	if s.Else != nil {
		fs.walkStmtInner(s.Else)
	}
}

func (fs *funcScope) chainEnd(s *ast.IfStmt) event.Pos {
	last := ast.Stmt(s)
	for {
		if next, ok := last.(*ast.IfStmt); ok && next.Else != nil {
			last = next.Else
			continue
		}
		break
	}
	return fs.walker.pos(last.End())
}

func (fs *funcScope) collectIfArms(s *ast.IfStmt, arms *[]accesslog.CondArm) {
	w := fs.walker
	switch e := s.Else.(type) {
	case *ast.IfStmt:
		*arms = append(*arms, accesslog.CondArm{Pos: w.pos(e.Pos()), Fallback: false})
		fs.collectIfArms(e, arms)
	case *ast.BlockStmt:
		*arms = append(*arms, accesslog.CondArm{Pos: w.pos(e.Pos()), Fallback: true})
	}
}

func (fs *funcScope) walkSwitch(s *ast.SwitchStmt) {
	w := fs.walker
	begin := w.pos(s.Pos())
	end := w.pos(s.End())

	var arms []accesslog.CondArm
	if s.Body != nil {
		for _, c := range s.Body.List {
			cc := c.(*ast.CaseClause)
			fallback := cc.List == nil // default
			arms = append(arms, accesslog.CondArm{Pos: w.pos(cc.Pos()), Fallback: fallback})
		}
	}
	fs.b.RecordCond(begin, end, arms)

	if s.Init != nil {
		fs.walkStmtInner(s.Init)
	}
	if s.Tag != nil {
		fs.walkExprRead(s.Tag)
	}
	if s.Body != nil {
		for _, c := range s.Body.List {
			cc := c.(*ast.CaseClause)
			for _, inner := range cc.Body {
				fs.walkStmtInner(inner)
			}
		}
	}
}

func (fs *funcScope) walkFor(s *ast.ForStmt) {
	w := fs.walker
	begin := w.pos(s.Pos())
	end := w.pos(s.End())

	bounds := extractBounds(fs, s)
	fs.b.RecordLoop(begin, end, bounds)

	if s.Init != nil {
		fs.walkStmtInner(s.Init)
	}
	if s.Cond != nil {
		fs.walkExprRead(s.Cond)
	}
	for _, inner := range s.Body.List {
		fs.walkStmtInner(inner)
	}
	if s.Post != nil {
		fs.walkStmtInner(s.Post)
	}
}

// extractBounds ports CommonUtils.cpp's counted-loop recognizer (spec
// §4.1 recordLoop): "for i := lower; i < upper; i++ { ... }" shapes, where
// the condition compares the index and the post statement is i++ or i--.
// Anything else yields no LoopBounds, which is always a safe fallback
// (the data-flow engine treats a bounds-less loop conservatively).
func extractBounds(fs *funcScope, s *ast.ForStmt) *event.LoopBounds {
	assign, ok := s.Init.(*ast.AssignStmt)
	if !ok || len(assign.Lhs) != 1 || len(assign.Rhs) != 1 {
		return nil
	}
	idxIdent, ok := assign.Lhs[0].(*ast.Ident)
	if !ok {
		return nil
	}
	// Pre-declare the index variable: Init hasn't been walked yet at this
	// point in walkFor, so this is its first sighting.
	idxID := fs.declareLocal(idxIdent.Name)

	cond, ok := s.Cond.(*ast.BinaryExpr)
	if !ok {
		return nil
	}
	if x, ok := cond.X.(*ast.Ident); !ok || x.Name != idxIdent.Name {
		return nil
	}
	post, ok := s.Post.(*ast.IncDecStmt)
	if !ok {
		return nil
	}
	if x, ok := post.X.(*ast.Ident); !ok || x.Name != idxIdent.Name {
		return nil
	}

	ascending := post.Tok == token.INC
	return &event.LoopBounds{
		IndexVar:  idxID,
		LowerExpr: exprText(assign.Rhs[0]),
		UpperExpr: exprText(cond.Y),
		Ascending: ascending,
	}
}

// exprText renders a bound expression for carry-through to placement
// text; the core never re-parses it (spec §3 LoopBounds).
func exprText(e ast.Expr) string {
	if id, ok := e.(*ast.Ident); ok {
		return id.Name
	}
	if lit, ok := e.(*ast.BasicLit); ok {
		return lit.Value
	}
	return "?"
}

func (fs *funcScope) walkRange(s *ast.RangeStmt) {
	w := fs.walker
	begin := w.pos(s.Pos())
	end := w.pos(s.End())
	fs.b.RecordLoop(begin, end, nil)

	if s.Tok == token.DEFINE {
		if key, ok := s.Key.(*ast.Ident); ok && key.Name != "_" {
			fs.declareLocal(key.Name)
		}
		if val, ok := s.Value.(*ast.Ident); ok && val.Name != "_" {
			fs.declareLocal(val.Name)
		}
	}
	fs.walkExprRead(s.X)
	for _, inner := range s.Body.List {
		fs.walkStmtInner(inner)
	}
}
