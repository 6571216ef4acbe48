package parser

import "fmt"

// NodeType represents the type of AST node
type NodeType string

// Python AST node types
const (
	// Module structure
	NodeModule NodeType = "Module"

	// Definitions
	NodeFunctionDef NodeType = "FunctionDef"
	NodeLambda      NodeType = "Lambda"
	NodeClassDef    NodeType = "ClassDef"
	NodeParameter   NodeType = "Parameter"
	NodeDecorator   NodeType = "Decorator"

	// Statements
	NodeAssignment    NodeType = "Assignment"
	NodeAugAssignment NodeType = "AugAssignment"
	NodeExpressionStm NodeType = "ExpressionStatement"
	NodeIfStatement   NodeType = "IfStatement"
	NodeElseClause    NodeType = "ElseClause"
	NodeForStatement  NodeType = "ForStatement"
	NodeWhileLoop     NodeType = "WhileStatement"
	NodeWithStatement NodeType = "WithStatement"
	NodeTryStatement  NodeType = "TryStatement"
	NodeExceptClause  NodeType = "ExceptClause"
	NodeFinallyClause NodeType = "FinallyClause"
	NodeReturn        NodeType = "ReturnStatement"
	NodeRaise         NodeType = "RaiseStatement"
	NodeBreak         NodeType = "BreakStatement"
	NodeContinue      NodeType = "ContinueStatement"
	NodePass          NodeType = "PassStatement"
	NodeGlobal        NodeType = "GlobalStatement"
	NodeNonlocal      NodeType = "NonlocalStatement"
	NodeImport        NodeType = "ImportStatement"
	NodeImportFrom    NodeType = "ImportFromStatement"
	NodeDelete        NodeType = "DeleteStatement"
	NodeAssert        NodeType = "AssertStatement"

	// Expressions
	NodeCall        NodeType = "Call"
	NodeAttribute   NodeType = "Attribute"
	NodeSubscript   NodeType = "Subscript"
	NodeIdentifier  NodeType = "Identifier"
	NodeBinaryOp    NodeType = "BinaryOp"
	NodeBoolOp      NodeType = "BoolOp"
	NodeUnaryOp     NodeType = "UnaryOp"
	NodeComparison  NodeType = "Comparison"
	NodeConditional NodeType = "ConditionalExpression"
	NodeAwait       NodeType = "AwaitExpression"
	NodeYield       NodeType = "YieldExpression"
	NodeStarred     NodeType = "StarredExpression"
	NodeKeywordArg  NodeType = "KeywordArgument"

	// Literals and containers
	NodeNumberLiteral NodeType = "NumberLiteral"
	NodeStringLiteral NodeType = "StringLiteral"
	NodeBoolLiteral   NodeType = "BoolLiteral"
	NodeNoneLiteral   NodeType = "NoneLiteral"
	NodeList          NodeType = "List"
	NodeTuple         NodeType = "Tuple"
	NodeDict          NodeType = "Dict"
	NodeSet           NodeType = "Set"
	NodeComprehension NodeType = "Comprehension"

	// Fallback for constructs the evaluators do not model
	NodeGeneric NodeType = "Generic"
)

// ParamKind classifies a function parameter
type ParamKind string

const (
	ParamPositional  ParamKind = "positional"
	ParamKeywordOnly ParamKind = "keyword-only"
	ParamVararg      ParamKind = "vararg"
	ParamKwarg       ParamKind = "kwarg"
	ParamSelf        ParamKind = "self"
)

// Location represents the position of a node in the source code
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// String returns a string representation of the location
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.StartLine, l.StartCol)
}

// Node represents an AST node
type Node struct {
	Type     NodeType
	Children []*Node
	Location Location
	Parent   *Node

	// Name of function/class/parameter/identifier/attribute
	Name string

	// Function and class fields
	Params     []*Node // function parameters
	Body       []*Node // function/class/block body
	Decorators []*Node
	Bases      []*Node // class base expressions
	Async      bool

	// Parameter fields
	Kind       ParamKind
	Default    *Node // parameter default value
	Annotation *Node // type annotation expression

	// Control flow fields
	Test      *Node   // condition for if/while
	OrElse    []*Node // else branch
	Handlers  []*Node // except clauses
	Finalizer *Node   // finally block

	// Expression fields
	Left      *Node
	Right     *Node
	Operator  string
	Operand   *Node
	Arguments []*Node // call arguments
	Callee    *Node   // called expression
	Object    *Node   // object in attribute access
	Value     *Node   // assigned value, return value, subscript value

	// Literal fields
	Raw       string  // raw source text of the literal
	NumValue  float64 // parsed numeric value
	IsFString bool    // interpolated string literal
}

// NewNode creates a new AST node
func NewNode(nodeType NodeType) *Node {
	return &Node{Type: nodeType}
}

// AddChild adds a child node
func (n *Node) AddChild(child *Node) {
	if child == nil {
		return
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

// Walk traverses the AST depth-first and calls the visitor for each node.
// Returning false from the visitor stops traversal of that branch.
func (n *Node) Walk(visitor func(*Node) bool) {
	if n == nil {
		return
	}
	if !visitor(n) {
		return
	}

	for _, child := range n.Children {
		child.Walk(visitor)
	}
	for _, param := range n.Params {
		param.Walk(visitor)
	}
	for _, stmt := range n.Body {
		stmt.Walk(visitor)
	}
	for _, dec := range n.Decorators {
		dec.Walk(visitor)
	}
	for _, base := range n.Bases {
		base.Walk(visitor)
	}
	for _, stmt := range n.OrElse {
		stmt.Walk(visitor)
	}
	for _, h := range n.Handlers {
		h.Walk(visitor)
	}
	for _, arg := range n.Arguments {
		arg.Walk(visitor)
	}

	if n.Default != nil {
		n.Default.Walk(visitor)
	}
	if n.Annotation != nil {
		n.Annotation.Walk(visitor)
	}
	if n.Test != nil {
		n.Test.Walk(visitor)
	}
	if n.Finalizer != nil {
		n.Finalizer.Walk(visitor)
	}
	if n.Left != nil {
		n.Left.Walk(visitor)
	}
	if n.Right != nil {
		n.Right.Walk(visitor)
	}
	if n.Operand != nil {
		n.Operand.Walk(visitor)
	}
	if n.Callee != nil {
		n.Callee.Walk(visitor)
	}
	if n.Object != nil {
		n.Object.Walk(visitor)
	}
	if n.Value != nil {
		n.Value.Walk(visitor)
	}
}

// String returns a string representation of the node
func (n *Node) String() string {
	if n.Name != "" {
		return fmt.Sprintf("%s(%s) at %s", n.Type, n.Name, n.Location)
	}
	return fmt.Sprintf("%s at %s", n.Type, n.Location)
}

// IsStatement returns true if the node is a statement
func (n *Node) IsStatement() bool {
	switch n.Type {
	case NodeAssignment, NodeAugAssignment, NodeExpressionStm,
		NodeIfStatement, NodeForStatement, NodeWhileLoop,
		NodeWithStatement, NodeTryStatement, NodeReturn, NodeRaise,
		NodeBreak, NodeContinue, NodePass, NodeGlobal, NodeNonlocal,
		NodeImport, NodeImportFrom, NodeDelete, NodeAssert,
		NodeFunctionDef, NodeClassDef:
		return true
	}
	return false
}

// IsLiteral returns true if the node is a literal value
func (n *Node) IsLiteral() bool {
	switch n.Type {
	case NodeNumberLiteral, NodeStringLiteral, NodeBoolLiteral, NodeNoneLiteral:
		return true
	}
	return false
}

// IsFunction returns true if the node defines a function
func (n *Node) IsFunction() bool {
	return n.Type == NodeFunctionDef || n.Type == NodeLambda
}

// LineCount returns the number of source lines spanned by the node
func (n *Node) LineCount() int {
	return n.Location.EndLine - n.Location.StartLine + 1
}

// IsMethod reports whether a function definition sits directly inside a
// class body
func (n *Node) IsMethod() bool {
	if n.Type != NodeFunctionDef {
		return false
	}
	for p := n.Parent; p != nil; p = p.Parent {
		switch p.Type {
		case NodeClassDef:
			return true
		case NodeFunctionDef, NodeLambda:
			return false
		}
	}
	return false
}

// EnclosingClass returns the nearest class definition containing the node,
// or nil
func (n *Node) EnclosingClass() *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == NodeClassDef {
			return p
		}
	}
	return nil
}

// DecoratorNames returns the dotted names of the node's decorators
func (n *Node) DecoratorNames() []string {
	if len(n.Decorators) == 0 {
		return nil
	}
	names := make([]string, 0, len(n.Decorators))
	for _, d := range n.Decorators {
		names = append(names, d.Name)
	}
	return names
}

// PositionalParams returns the parameters a caller must pass by position,
// excluding the receiver
func (n *Node) PositionalParams() []*Node {
	var params []*Node
	for _, p := range n.Params {
		if p.Kind == ParamPositional {
			params = append(params, p)
		}
	}
	return params
}
