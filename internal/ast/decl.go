package ast

import (
	"decaf/internal/ir"
	"decaf/internal/types"
)

// CU is one compilation unit: a top-level type with its nested types.
type CU struct {
	Package string
	Imports []string          // sorted qualified names
	Names   map[string]string // qualified class name to the name printed
	Types   []*TypeDecl
}

type TypeKind uint8

const (
	ClassKind TypeKind = iota
	InterfaceKind
	EnumKind
	AnnotationKind
)

type TypeDecl struct {
	Name       string // simple name
	T          *types.T
	Kind       TypeKind
	Flags      ir.Flags
	TypeParams []*types.T
	Super      *types.T // nil when java.lang.Object or implied
	Interfaces []*types.T

	Fields  []*FieldDecl
	Methods []*MethodDecl
	Types   []*TypeDecl // member, local and non-inlined anonymous classes
}

type FieldDecl struct {
	Name  string
	T     *types.T
	Flags ir.Flags
	Init  Expr
}

// MethodDecl is a method, constructor or static initializer. Body is nil
// for abstract and native methods. Failed carries the error message of a
// method that could not be decompiled; Body then lists the operations.
type MethodDecl struct {
	Name       string
	Flags      ir.Flags
	TypeParams []*types.T
	Return     *types.T
	Params     []*Variable
	Throws     []*types.T
	Body       *Block
	Ctor       bool
	StaticInit bool
	Failed     string
}

func (*CU) node()         {}
func (*TypeDecl) node()   {}
func (*FieldDecl) node()  {}
func (*MethodDecl) node() {}
