// Package sqlexpr holds a small, immutable SQL expression tree. Nodes are values: every
// rewrite returns a new tree and leaves its input untouched.
package sqlexpr

import (
	"strings"

	"github.com/bruin-data/timerange-merge/pkg/dialect"
)

type Expr interface {
	writeSQL(d dialect.Dialect, b *strings.Builder)
	children() []Expr
	withChildren(children []Expr) Expr
}

// Column references a column, optionally qualified by a table or alias. Unquoted names are
// normalized per dialect when rendered; the table qualifier is always written verbatim.
type Column struct {
	Name   string
	Table  string
	Quoted bool
}

type LiteralKind int

const (
	StringLiteral LiteralKind = iota
	NumberLiteral
	NullLiteral
	BoolLiteral
)

type Literal struct {
	Kind  LiteralKind
	Value string
}

type Cast struct {
	Expr Expr
	Type DataType
}

type Between struct {
	Expr Expr
	Low  Expr
	High Expr
}

type And struct {
	Conds []Expr
}

type Or struct {
	Conds []Expr
}

type Not struct {
	Expr Expr
}

type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

type Func struct {
	Name string
	Args []Expr
}

type Paren struct {
	Expr Expr
}

type Tuple struct {
	Exprs []Expr
}

func Col(name string) Column {
	return Column{Name: name}
}

func String(v string) Literal {
	return Literal{Kind: StringLiteral, Value: v}
}

func Number(v string) Literal {
	return Literal{Kind: NumberLiteral, Value: v}
}

func Eq(left, right Expr) Binary {
	return Binary{Op: "=", Left: left, Right: right}
}

// AndOf joins conditions, dropping nils. A single condition is returned as is.
func AndOf(conds ...Expr) Expr {
	kept := make([]Expr, 0, len(conds))
	for _, c := range conds {
		if c != nil {
			kept = append(kept, c)
		}
	}

	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Conds: kept}
	}
}

// Render writes the expression as SQL for the given dialect.
func Render(e Expr, d dialect.Dialect) string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	e.writeSQL(d, &b)
	return b.String()
}

func (c Column) Identifier(d dialect.Dialect) string {
	if c.Quoted {
		return d.Quote(c.Name)
	}
	return d.Quote(d.NormalizeIdentifier(c.Name))
}

// Key identifies the column for comparisons, case-insensitive unless quoted.
func (c Column) Key() string {
	if c.Quoted {
		return c.Name
	}
	return strings.ToLower(c.Name)
}

func (c Column) writeSQL(d dialect.Dialect, b *strings.Builder) {
	if c.Table != "" {
		b.WriteString(d.Quote(c.Table))
		b.WriteString(".")
	}
	b.WriteString(c.Identifier(d))
}

func (c Column) children() []Expr {
	return nil
}

func (c Column) withChildren(_ []Expr) Expr {
	return c
}

func (l Literal) writeSQL(_ dialect.Dialect, b *strings.Builder) {
	switch l.Kind {
	case StringLiteral:
		b.WriteString("'")
		b.WriteString(strings.ReplaceAll(l.Value, "'", "''"))
		b.WriteString("'")
	case NullLiteral:
		b.WriteString("NULL")
	case BoolLiteral:
		b.WriteString(strings.ToUpper(l.Value))
	default:
		b.WriteString(l.Value)
	}
}

func (l Literal) children() []Expr {
	return nil
}

func (l Literal) withChildren(_ []Expr) Expr {
	return l
}

func (c Cast) writeSQL(d dialect.Dialect, b *strings.Builder) {
	b.WriteString("CAST(")
	c.Expr.writeSQL(d, b)
	b.WriteString(" AS ")
	b.WriteString(c.Type.SQL())
	b.WriteString(")")
}

func (c Cast) children() []Expr {
	return []Expr{c.Expr}
}

func (c Cast) withChildren(ch []Expr) Expr {
	return Cast{Expr: ch[0], Type: c.Type}
}

func (e Between) writeSQL(d dialect.Dialect, b *strings.Builder) {
	e.Expr.writeSQL(d, b)
	b.WriteString(" BETWEEN ")
	e.Low.writeSQL(d, b)
	b.WriteString(" AND ")
	e.High.writeSQL(d, b)
}

func (e Between) children() []Expr {
	return []Expr{e.Expr, e.Low, e.High}
}

func (e Between) withChildren(ch []Expr) Expr {
	return Between{Expr: ch[0], Low: ch[1], High: ch[2]}
}

func (a And) writeSQL(d dialect.Dialect, b *strings.Builder) {
	for i, c := range a.Conds {
		if i > 0 {
			b.WriteString(" AND ")
		}
		if _, ok := c.(Or); ok {
			Paren{Expr: c}.writeSQL(d, b)
			continue
		}
		c.writeSQL(d, b)
	}
}

func (a And) children() []Expr {
	return a.Conds
}

func (a And) withChildren(ch []Expr) Expr {
	return And{Conds: ch}
}

func (o Or) writeSQL(d dialect.Dialect, b *strings.Builder) {
	for i, c := range o.Conds {
		if i > 0 {
			b.WriteString(" OR ")
		}
		c.writeSQL(d, b)
	}
}

func (o Or) children() []Expr {
	return o.Conds
}

func (o Or) withChildren(ch []Expr) Expr {
	return Or{Conds: ch}
}

func (n Not) writeSQL(d dialect.Dialect, b *strings.Builder) {
	b.WriteString("NOT ")
	n.Expr.writeSQL(d, b)
}

func (n Not) children() []Expr {
	return []Expr{n.Expr}
}

func (n Not) withChildren(ch []Expr) Expr {
	return Not{Expr: ch[0]}
}

func (e Binary) writeSQL(d dialect.Dialect, b *strings.Builder) {
	e.Left.writeSQL(d, b)
	b.WriteString(" ")
	b.WriteString(e.Op)
	b.WriteString(" ")
	e.Right.writeSQL(d, b)
}

func (e Binary) children() []Expr {
	return []Expr{e.Left, e.Right}
}

func (e Binary) withChildren(ch []Expr) Expr {
	return Binary{Op: e.Op, Left: ch[0], Right: ch[1]}
}

func (f Func) writeSQL(d dialect.Dialect, b *strings.Builder) {
	b.WriteString(strings.ToUpper(f.Name))
	b.WriteString("(")
	writeList(f.Args, d, b)
	b.WriteString(")")
}

func (f Func) children() []Expr {
	return f.Args
}

func (f Func) withChildren(ch []Expr) Expr {
	return Func{Name: f.Name, Args: ch}
}

func (p Paren) writeSQL(d dialect.Dialect, b *strings.Builder) {
	b.WriteString("(")
	p.Expr.writeSQL(d, b)
	b.WriteString(")")
}

func (p Paren) children() []Expr {
	return []Expr{p.Expr}
}

func (p Paren) withChildren(ch []Expr) Expr {
	return Paren{Expr: ch[0]}
}

func (t Tuple) writeSQL(d dialect.Dialect, b *strings.Builder) {
	b.WriteString("(")
	writeList(t.Exprs, d, b)
	b.WriteString(")")
}

func (t Tuple) children() []Expr {
	return t.Exprs
}

func (t Tuple) withChildren(ch []Expr) Expr {
	return Tuple{Exprs: ch}
}

func writeList(exprs []Expr, d dialect.Dialect, b *strings.Builder) {
	for i, e := range exprs {
		if i > 0 {
			b.WriteString(", ")
		}
		e.writeSQL(d, b)
	}
}
