package ast

import "decaf/internal/types"

// Stmt is a statement.
type Stmt interface {
	Node
	stmt()
}

type (
	Block struct{ Stmts []Stmt }

	ExprStmt struct{ X Expr }

	// LocalDecl declares V, optionally initialized.
	LocalDecl struct {
		V    *Variable
		Init Expr
	}

	Return struct{ X Expr } // X is nil for void returns
	Throw  struct{ X Expr }

	// If has an optional Else. An Else holding a single If prints as else-if.
	If struct {
		Cond Expr
		Then *Block
		Else *Block
	}

	While struct {
		Cond Expr
		Body *Block
	}

	DoWhile struct {
		Body *Block
		Cond Expr
	}

	For struct {
		Init   []Stmt
		Cond   Expr
		Update []Expr
		Body   *Block
	}

	Switch struct {
		X     Expr
		Cases []*Case
	}

	// Case lists its keys in source order. Default marks the default label,
	// possibly sharing the body with keys.
	Case struct {
		Keys    []Expr
		Default bool
		Body    []Stmt
	}

	Break    struct{ Label string }
	Continue struct{ Label string }

	Labeled struct {
		Label string
		Body  Stmt
	}

	// Goto and Label form the fallback for control flow that could not be
	// structured.
	Goto  struct{ Label string }
	Label struct{ Name string }

	Try struct {
		Body    *Block
		Catches []*Catch
		Finally *Block
	}

	// Catch with a single nil type is a catch-any handler.
	Catch struct {
		Types []*types.T
		V     *Variable
		Body  *Block
	}

	// Monitor is an unstructured monitor enter or exit.
	Monitor struct {
		Enter bool
		X     Expr
	}

	// Comment is a line comment.
	Comment struct{ Text string }
)

func (*Block) node()     {}
func (*ExprStmt) node()  {}
func (*LocalDecl) node() {}
func (*Return) node()    {}
func (*Throw) node()     {}
func (*If) node()        {}
func (*While) node()     {}
func (*DoWhile) node()   {}
func (*For) node()       {}
func (*Switch) node()    {}
func (*Case) node()      {}
func (*Break) node()     {}
func (*Continue) node()  {}
func (*Labeled) node()   {}
func (*Goto) node()      {}
func (*Label) node()     {}
func (*Try) node()       {}
func (*Catch) node()     {}
func (*Monitor) node()   {}
func (*Comment) node()   {}

func (*Block) stmt()     {}
func (*ExprStmt) stmt()  {}
func (*LocalDecl) stmt() {}
func (*Return) stmt()    {}
func (*Throw) stmt()     {}
func (*If) stmt()        {}
func (*While) stmt()     {}
func (*DoWhile) stmt()   {}
func (*For) stmt()       {}
func (*Switch) stmt()    {}
func (*Break) stmt()     {}
func (*Continue) stmt()  {}
func (*Labeled) stmt()   {}
func (*Goto) stmt()      {}
func (*Label) stmt()     {}
func (*Try) stmt()       {}
func (*Monitor) stmt()   {}
func (*Comment) stmt()   {}

// Jumps reports whether control never falls out of s.
func Jumps(s Stmt) bool {
	switch s := s.(type) {
	case *Return, *Throw, *Break, *Continue, *Goto:
		return true
	case *Block:
		return len(s.Stmts) > 0 && Jumps(s.Stmts[len(s.Stmts)-1])
	case *If:
		return s.Else != nil && Jumps(s.Then) && Jumps(s.Else)
	}
	return false
}

// EndsWithJump reports whether the last statement of list never falls through.
func EndsWithJump(list []Stmt) bool {
	return len(list) > 0 && Jumps(list[len(list)-1])
}
