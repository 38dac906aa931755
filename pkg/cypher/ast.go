// Package cypher implements WyrmDB's Neo4j-flavored Cypher subset: AST types,
// a recursive-descent parser, and a query executor over the pkg/storage row
// store. It follows the teacher's (nornicdb) package layout of keeping
// grammar, parser, and executor in one package, but the grammar here is a
// genuine tree the executor walks rather than regex-routed query text.
package cypher

// Query is the root of a parsed statement: a sequence of clauses evaluated
// in source order, each able to see variables declared by earlier clauses.
type Query struct {
	Clauses []Clause
}

// Clause is implemented by every statement-level clause kind.
type Clause interface {
	clauseNode()
}

// MatchClause binds pattern variables against the storage view, optionally
// filtered by a WHERE expression. Optional marks an OPTIONAL MATCH, whose
// unmatched variables bind to nil instead of dropping the row.
type MatchClause struct {
	Optional bool
	Pattern  Pattern
	Where    Expression // nil if absent
}

func (*MatchClause) clauseNode() {}

// CreateClause materializes nodes and relationships described by Pattern.
type CreateClause struct {
	Pattern Pattern
}

func (*CreateClause) clauseNode() {}

// MergeClause is accepted by the grammar (spec.md's Parser production lists
// it as a Clause variant) but is outside the Cypher subset the executor
// accepts (spec.md §6); Execute rejects it with NotImplemented.
type MergeClause struct {
	Pattern Pattern
}

func (*MergeClause) clauseNode() {}

// ReturnClause projects bound variables/expressions into output records.
type ReturnClause struct {
	Distinct bool
	Items    []ReturnItem
}

func (*ReturnClause) clauseNode() {}

// ReturnItem is one projected expression with an optional alias.
type ReturnItem struct {
	Expr  Expression
	Alias string // empty if no "AS alias" given
}

// Pattern is a chain of node elements joined by relationship elements:
// len(Elements) == len(Rels)+1.
type Pattern struct {
	Elements []PatternElement
	Rels     []RelationshipPattern
}

// PatternElement is one node shape: `(var:Label1:Label2 {props})`.
type PatternElement struct {
	Variable   string // empty if anonymous
	Labels     []string
	Properties Expression // *MapLiteral, or nil
}

// Direction of a relationship pattern relative to its left-hand element.
type Direction int

const (
	DirRight Direction = iota // -[...]->
	DirLeft                   // <-[...]-
	DirEither                 // -[...]-
)

// RelationshipPattern is one edge shape: `-[var:TYPE1|TYPE2 {props}]->`.
type RelationshipPattern struct {
	Variable   string
	Types      []string
	Properties Expression // *MapLiteral, or nil
	Direction  Direction
}

// Expression is implemented by every AST expression node.
type Expression interface {
	exprNode()
}

// Literal is an integer, float, string, boolean, or null constant.
type Literal struct {
	Value interface{}
}

func (*Literal) exprNode() {}

// Parameter references a `$name` bound at execute time.
type Parameter struct {
	Name string
}

func (*Parameter) exprNode() {}

// Variable references a pattern-bound name.
type Variable struct {
	Name string
}

func (*Variable) exprNode() {}

// PropertyAccess reads `Base.Property`.
type PropertyAccess struct {
	Base     Expression
	Property string
}

func (*PropertyAccess) exprNode() {}

// BinaryOp is a two-operand operator application. Op is one of:
// "=", "<>", "<", ">", "<=", ">=", "+", "-", "*", "/", "%", "IN", "AND", "OR".
type BinaryOp struct {
	Op    string
	Left  Expression
	Right Expression
}

func (*BinaryOp) exprNode() {}

// UnaryOp is a one-operand operator application: "-" (negation) or "NOT".
type UnaryOp struct {
	Op      string
	Operand Expression
}

func (*UnaryOp) exprNode() {}

// FunctionCall is `name(arg, arg, ...)`; Name is stored lower-cased.
type FunctionCall struct {
	Name string
	Args []Expression
}

func (*FunctionCall) exprNode() {}

// MapLiteral is `{k: expr, k2: expr2}`; Keys preserves source order.
type MapLiteral struct {
	Keys    []string
	Entries map[string]Expression
}

func (*MapLiteral) exprNode() {}

// ListLiteral is `[expr, expr, ...]`.
type ListLiteral struct {
	Items []Expression
}

func (*ListLiteral) exprNode() {}
