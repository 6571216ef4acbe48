package parser

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ASTBuilder builds our internal AST from the tree-sitter CST
type ASTBuilder struct {
	filename string
	source   []byte
}

// NewASTBuilder creates a new AST builder
func NewASTBuilder(filename string, source []byte) *ASTBuilder {
	return &ASTBuilder{
		filename: filename,
		source:   source,
	}
}

// Build builds the AST from a tree-sitter node
func (b *ASTBuilder) Build(tsNode *sitter.Node) *Node {
	return b.buildNode(tsNode)
}

// buildNode converts a tree-sitter node to our internal AST node
func (b *ASTBuilder) buildNode(tsNode *sitter.Node) *Node {
	if tsNode == nil {
		return nil
	}

	switch tsNode.Type() {
	case "module":
		return b.buildModule(tsNode)
	case "decorated_definition":
		return b.buildDecoratedDefinition(tsNode)
	case "function_definition":
		return b.buildFunctionDef(tsNode)
	case "lambda":
		return b.buildLambda(tsNode)
	case "class_definition":
		return b.buildClassDef(tsNode)
	case "expression_statement":
		return b.buildExpressionStatement(tsNode)
	case "assignment":
		return b.buildAssignment(tsNode, NodeAssignment)
	case "augmented_assignment":
		return b.buildAssignment(tsNode, NodeAugAssignment)
	case "if_statement":
		return b.buildIfStatement(tsNode)
	case "elif_clause":
		return b.buildIfStatement(tsNode)
	case "else_clause":
		return b.buildBlockNode(tsNode, NodeElseClause)
	case "for_statement":
		return b.buildForStatement(tsNode)
	case "while_statement":
		return b.buildWhileStatement(tsNode)
	case "with_statement":
		return b.buildWithStatement(tsNode)
	case "try_statement":
		return b.buildTryStatement(tsNode)
	case "except_clause":
		return b.buildExceptClause(tsNode)
	case "finally_clause":
		return b.buildBlockNode(tsNode, NodeFinallyClause)
	case "return_statement":
		return b.buildValueStatement(tsNode, NodeReturn)
	case "raise_statement":
		return b.buildValueStatement(tsNode, NodeRaise)
	case "delete_statement":
		return b.buildValueStatement(tsNode, NodeDelete)
	case "assert_statement":
		return b.buildValueStatement(tsNode, NodeAssert)
	case "break_statement":
		return b.buildLeaf(tsNode, NodeBreak)
	case "continue_statement":
		return b.buildLeaf(tsNode, NodeContinue)
	case "pass_statement":
		return b.buildLeaf(tsNode, NodePass)
	case "global_statement":
		return b.buildNameListStatement(tsNode, NodeGlobal)
	case "nonlocal_statement":
		return b.buildNameListStatement(tsNode, NodeNonlocal)
	case "import_statement":
		return b.buildGenericTyped(tsNode, NodeImport)
	case "import_from_statement":
		return b.buildGenericTyped(tsNode, NodeImportFrom)
	case "call":
		return b.buildCall(tsNode)
	case "attribute":
		return b.buildAttribute(tsNode)
	case "subscript":
		return b.buildSubscript(tsNode)
	case "identifier":
		return b.buildIdentifier(tsNode)
	case "binary_operator":
		return b.buildBinaryOp(tsNode, NodeBinaryOp)
	case "boolean_operator":
		return b.buildBinaryOp(tsNode, NodeBoolOp)
	case "comparison_operator":
		return b.buildComparison(tsNode)
	case "not_operator", "unary_operator":
		return b.buildUnaryOp(tsNode)
	case "conditional_expression":
		return b.buildGenericTyped(tsNode, NodeConditional)
	case "await":
		return b.buildAwait(tsNode)
	case "yield":
		return b.buildGenericTyped(tsNode, NodeYield)
	case "integer", "float":
		return b.buildNumberLiteral(tsNode)
	case "string", "concatenated_string":
		return b.buildStringLiteral(tsNode)
	case "true", "false":
		return b.buildBoolLiteral(tsNode)
	case "none":
		return b.buildLeaf(tsNode, NodeNoneLiteral)
	case "list":
		return b.buildGenericTyped(tsNode, NodeList)
	case "tuple":
		return b.buildGenericTyped(tsNode, NodeTuple)
	case "dictionary":
		return b.buildGenericTyped(tsNode, NodeDict)
	case "set":
		return b.buildGenericTyped(tsNode, NodeSet)
	case "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		return b.buildGenericTyped(tsNode, NodeComprehension)
	case "comment":
		return nil
	default:
		return b.buildGenericNode(tsNode)
	}
}

func (b *ASTBuilder) getLocation(tsNode *sitter.Node) Location {
	return Location{
		File:      b.filename,
		StartLine: int(tsNode.StartPoint().Row) + 1,
		StartCol:  int(tsNode.StartPoint().Column),
		EndLine:   int(tsNode.EndPoint().Row) + 1,
		EndCol:    int(tsNode.EndPoint().Column),
	}
}

func (b *ASTBuilder) content(tsNode *sitter.Node) string {
	return tsNode.Content(b.source)
}

func (b *ASTBuilder) isTrivia(tsNode *sitter.Node) bool {
	t := tsNode.Type()
	return t == "comment" || !tsNode.IsNamed()
}

// buildChildren builds all non-trivia children into the node's Body
func (b *ASTBuilder) buildChildren(node *Node, tsNode *sitter.Node) {
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil || b.isTrivia(child) {
			continue
		}
		if childNode := b.buildNode(child); childNode != nil {
			childNode.Parent = node
			node.Body = append(node.Body, childNode)
		}
	}
}

func (b *ASTBuilder) buildModule(tsNode *sitter.Node) *Node {
	node := NewNode(NodeModule)
	node.Location = b.getLocation(tsNode)
	b.buildChildren(node, tsNode)
	return node
}

// buildDecoratedDefinition attaches decorators to the wrapped definition
func (b *ASTBuilder) buildDecoratedDefinition(tsNode *sitter.Node) *Node {
	var decorators []*Node
	var def *Node

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "decorator":
			decorators = append(decorators, b.buildDecorator(child))
		case "function_definition", "class_definition":
			def = b.buildNode(child)
		}
	}
	if def == nil {
		return nil
	}
	for _, d := range decorators {
		d.Parent = def
	}
	def.Decorators = decorators
	return def
}

func (b *ASTBuilder) buildDecorator(tsNode *sitter.Node) *Node {
	node := NewNode(NodeDecorator)
	node.Location = b.getLocation(tsNode)

	// the expression after "@"
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil || !child.IsNamed() {
			continue
		}
		expr := b.buildNode(child)
		if expr != nil {
			node.AddChild(expr)
			node.Name = decoratorName(expr)
		}
		break
	}
	return node
}

// decoratorName extracts the dotted name of a decorator expression,
// dropping any call arguments
func decoratorName(expr *Node) string {
	switch expr.Type {
	case NodeCall:
		if expr.Callee != nil {
			return decoratorName(expr.Callee)
		}
	case NodeAttribute:
		if expr.Object != nil {
			return decoratorName(expr.Object) + "." + expr.Name
		}
		return expr.Name
	case NodeIdentifier:
		return expr.Name
	}
	return ""
}

func (b *ASTBuilder) buildFunctionDef(tsNode *sitter.Node) *Node {
	node := NewNode(NodeFunctionDef)
	node.Location = b.getLocation(tsNode)

	if nameNode := tsNode.ChildByFieldName("name"); nameNode != nil {
		node.Name = b.content(nameNode)
	}
	if paramsNode := tsNode.ChildByFieldName("parameters"); paramsNode != nil {
		node.Params = b.buildParameters(paramsNode)
		for _, p := range node.Params {
			p.Parent = node
		}
	}
	if bodyNode := tsNode.ChildByFieldName("body"); bodyNode != nil {
		node.Body = b.buildBlock(node, bodyNode)
	}
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		if c := tsNode.Child(i); c != nil && c.Type() == "async" {
			node.Async = true
		}
	}

	return node
}

func (b *ASTBuilder) buildLambda(tsNode *sitter.Node) *Node {
	node := NewNode(NodeLambda)
	node.Location = b.getLocation(tsNode)

	if paramsNode := tsNode.ChildByFieldName("parameters"); paramsNode != nil {
		node.Params = b.buildParameters(paramsNode)
		for _, p := range node.Params {
			p.Parent = node
		}
	}
	if bodyNode := tsNode.ChildByFieldName("body"); bodyNode != nil {
		if body := b.buildNode(bodyNode); body != nil {
			node.AddChild(body)
			node.Body = []*Node{body}
		}
	}
	return node
}

// buildParameters flattens a parameters node, classifying each entry.
// Keyword-only status flips once a bare "*" or *args separator is seen.
func (b *ASTBuilder) buildParameters(tsNode *sitter.Node) []*Node {
	var params []*Node
	keywordOnly := false

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "identifier":
			params = append(params, b.buildParam(child, b.content(child), paramKind(keywordOnly), nil, nil))
		case "default_parameter":
			name := ""
			if n := child.ChildByFieldName("name"); n != nil {
				name = b.content(n)
			}
			var def *Node
			if v := child.ChildByFieldName("value"); v != nil {
				def = b.buildNode(v)
			}
			params = append(params, b.buildParam(child, name, paramKind(keywordOnly), def, nil))
		case "typed_parameter":
			name := ""
			var ann *Node
			for j := 0; j < int(child.ChildCount()); j++ {
				c := child.Child(j)
				if c == nil {
					continue
				}
				if c.Type() == "identifier" && name == "" {
					name = b.content(c)
				}
			}
			if t := child.ChildByFieldName("type"); t != nil {
				ann = b.buildNode(t)
			}
			params = append(params, b.buildParam(child, name, paramKind(keywordOnly), nil, ann))
		case "typed_default_parameter":
			name := ""
			if n := child.ChildByFieldName("name"); n != nil {
				name = b.content(n)
			}
			var def, ann *Node
			if v := child.ChildByFieldName("value"); v != nil {
				def = b.buildNode(v)
			}
			if t := child.ChildByFieldName("type"); t != nil {
				ann = b.buildNode(t)
			}
			params = append(params, b.buildParam(child, name, paramKind(keywordOnly), def, ann))
		case "list_splat_pattern":
			name := strings.TrimPrefix(b.content(child), "*")
			params = append(params, b.buildParam(child, name, ParamVararg, nil, nil))
			keywordOnly = true
		case "dictionary_splat_pattern":
			name := strings.TrimPrefix(b.content(child), "**")
			params = append(params, b.buildParam(child, name, ParamKwarg, nil, nil))
		case "keyword_separator":
			keywordOnly = true
		}
	}

	return params
}

func paramKind(keywordOnly bool) ParamKind {
	if keywordOnly {
		return ParamKeywordOnly
	}
	return ParamPositional
}

func (b *ASTBuilder) buildParam(tsNode *sitter.Node, name string, kind ParamKind, def, ann *Node) *Node {
	p := NewNode(NodeParameter)
	p.Location = b.getLocation(tsNode)
	p.Name = name
	p.Kind = kind
	p.Default = def
	p.Annotation = ann
	if def != nil {
		def.Parent = p
	}
	if ann != nil {
		ann.Parent = p
	}
	return p
}

func (b *ASTBuilder) buildClassDef(tsNode *sitter.Node) *Node {
	node := NewNode(NodeClassDef)
	node.Location = b.getLocation(tsNode)

	if nameNode := tsNode.ChildByFieldName("name"); nameNode != nil {
		node.Name = b.content(nameNode)
	}
	if supers := tsNode.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.ChildCount()); i++ {
			child := supers.Child(i)
			if child == nil || !child.IsNamed() {
				continue
			}
			if base := b.buildNode(child); base != nil {
				base.Parent = node
				node.Bases = append(node.Bases, base)
			}
		}
	}
	if bodyNode := tsNode.ChildByFieldName("body"); bodyNode != nil {
		node.Body = b.buildBlock(node, bodyNode)
	}

	b.markReceivers(node)
	return node
}

// markReceivers reclassifies the leading self/cls parameter of methods so
// positional-count rules never count the receiver
func (b *ASTBuilder) markReceivers(class *Node) {
	for _, stmt := range class.Body {
		if stmt.Type != NodeFunctionDef || len(stmt.Params) == 0 {
			continue
		}
		if hasDecorator(stmt, "staticmethod") {
			continue
		}
		first := stmt.Params[0]
		if first.Kind == ParamPositional && (first.Name == "self" || first.Name == "cls") {
			first.Kind = ParamSelf
		}
	}
}

func hasDecorator(fn *Node, name string) bool {
	for _, d := range fn.Decorators {
		if d.Name == name {
			return true
		}
	}
	return false
}

// buildBlock builds a block's statements and parents them to owner
func (b *ASTBuilder) buildBlock(owner *Node, tsNode *sitter.Node) []*Node {
	var stmts []*Node
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil || b.isTrivia(child) {
			continue
		}
		if stmt := b.buildNode(child); stmt != nil {
			stmt.Parent = owner
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func (b *ASTBuilder) buildExpressionStatement(tsNode *sitter.Node) *Node {
	// unwrap single-expression statements so assignments surface directly
	if tsNode.NamedChildCount() == 1 {
		child := tsNode.NamedChild(0)
		if child != nil && (child.Type() == "assignment" || child.Type() == "augmented_assignment") {
			return b.buildNode(child)
		}
	}

	node := NewNode(NodeExpressionStm)
	node.Location = b.getLocation(tsNode)
	b.buildChildren(node, tsNode)
	return node
}

func (b *ASTBuilder) buildAssignment(tsNode *sitter.Node, t NodeType) *Node {
	node := NewNode(t)
	node.Location = b.getLocation(tsNode)

	if left := tsNode.ChildByFieldName("left"); left != nil {
		node.Left = b.buildNode(left)
		if node.Left != nil {
			node.Left.Parent = node
		}
	}
	if right := tsNode.ChildByFieldName("right"); right != nil {
		node.Right = b.buildNode(right)
		if node.Right != nil {
			node.Right.Parent = node
		}
	}
	if op := tsNode.ChildByFieldName("operator"); op != nil {
		node.Operator = b.content(op)
	}
	return node
}

func (b *ASTBuilder) buildIfStatement(tsNode *sitter.Node) *Node {
	node := NewNode(NodeIfStatement)
	node.Location = b.getLocation(tsNode)

	if cond := tsNode.ChildByFieldName("condition"); cond != nil {
		node.Test = b.buildNode(cond)
		if node.Test != nil {
			node.Test.Parent = node
		}
	}
	if cons := tsNode.ChildByFieldName("consequence"); cons != nil {
		node.Body = b.buildBlock(node, cons)
	}
	// elif and else clauses are flat siblings in the grammar; chain them so
	// each branch hangs off the one before it
	current := node
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "elif_clause":
			if alt := b.buildIfStatement(child); alt != nil {
				alt.Parent = current
				current.OrElse = append(current.OrElse, alt)
				current = alt
			}
		case "else_clause":
			if alt := b.buildNode(child); alt != nil {
				alt.Parent = current
				current.OrElse = append(current.OrElse, alt)
			}
		}
	}
	return node
}

func (b *ASTBuilder) buildForStatement(tsNode *sitter.Node) *Node {
	node := NewNode(NodeForStatement)
	node.Location = b.getLocation(tsNode)

	if left := tsNode.ChildByFieldName("left"); left != nil {
		node.Left = b.buildNode(left)
		if node.Left != nil {
			node.Left.Parent = node
		}
	}
	if right := tsNode.ChildByFieldName("right"); right != nil {
		node.Right = b.buildNode(right)
		if node.Right != nil {
			node.Right.Parent = node
		}
	}
	if body := tsNode.ChildByFieldName("body"); body != nil {
		node.Body = b.buildBlock(node, body)
	}
	if alt := tsNode.ChildByFieldName("alternative"); alt != nil {
		if elseNode := b.buildNode(alt); elseNode != nil {
			elseNode.Parent = node
			node.OrElse = append(node.OrElse, elseNode)
		}
	}
	return node
}

func (b *ASTBuilder) buildWhileStatement(tsNode *sitter.Node) *Node {
	node := NewNode(NodeWhileLoop)
	node.Location = b.getLocation(tsNode)

	if cond := tsNode.ChildByFieldName("condition"); cond != nil {
		node.Test = b.buildNode(cond)
		if node.Test != nil {
			node.Test.Parent = node
		}
	}
	if body := tsNode.ChildByFieldName("body"); body != nil {
		node.Body = b.buildBlock(node, body)
	}
	return node
}

func (b *ASTBuilder) buildWithStatement(tsNode *sitter.Node) *Node {
	node := NewNode(NodeWithStatement)
	node.Location = b.getLocation(tsNode)

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == "with_clause" {
			for j := 0; j < int(child.ChildCount()); j++ {
				item := child.Child(j)
				if item == nil || !item.IsNamed() {
					continue
				}
				if ctx := b.buildNode(item); ctx != nil {
					node.AddChild(ctx)
				}
			}
		}
	}
	if body := tsNode.ChildByFieldName("body"); body != nil {
		node.Body = b.buildBlock(node, body)
	}
	return node
}

func (b *ASTBuilder) buildTryStatement(tsNode *sitter.Node) *Node {
	node := NewNode(NodeTryStatement)
	node.Location = b.getLocation(tsNode)

	if body := tsNode.ChildByFieldName("body"); body != nil {
		node.Body = b.buildBlock(node, body)
	}
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "except_clause", "except_group_clause":
			if h := b.buildExceptClause(child); h != nil {
				h.Parent = node
				node.Handlers = append(node.Handlers, h)
			}
		case "finally_clause":
			if f := b.buildNode(child); f != nil {
				f.Parent = node
				node.Finalizer = f
			}
		case "else_clause":
			if e := b.buildNode(child); e != nil {
				e.Parent = node
				node.OrElse = append(node.OrElse, e)
			}
		}
	}
	return node
}

func (b *ASTBuilder) buildExceptClause(tsNode *sitter.Node) *Node {
	node := NewNode(NodeExceptClause)
	node.Location = b.getLocation(tsNode)

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil || b.isTrivia(child) {
			continue
		}
		if child.Type() == "block" {
			node.Body = b.buildBlock(node, child)
			continue
		}
		if expr := b.buildNode(child); expr != nil {
			node.AddChild(expr)
			if node.Name == "" {
				node.Name = b.content(child)
			}
		}
	}
	return node
}

func (b *ASTBuilder) buildValueStatement(tsNode *sitter.Node, t NodeType) *Node {
	node := NewNode(t)
	node.Location = b.getLocation(tsNode)

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil || b.isTrivia(child) {
			continue
		}
		if expr := b.buildNode(child); expr != nil {
			expr.Parent = node
			if node.Value == nil {
				node.Value = expr
			} else {
				node.AddChild(expr)
			}
		}
	}
	return node
}

func (b *ASTBuilder) buildNameListStatement(tsNode *sitter.Node, t NodeType) *Node {
	node := NewNode(t)
	node.Location = b.getLocation(tsNode)

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child != nil && child.Type() == "identifier" {
			id := b.buildIdentifier(child)
			node.AddChild(id)
		}
	}
	return node
}

func (b *ASTBuilder) buildCall(tsNode *sitter.Node) *Node {
	node := NewNode(NodeCall)
	node.Location = b.getLocation(tsNode)

	if fn := tsNode.ChildByFieldName("function"); fn != nil {
		node.Callee = b.buildNode(fn)
		if node.Callee != nil {
			node.Callee.Parent = node
			node.Name = calleeName(node.Callee)
		}
	}
	if args := tsNode.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.ChildCount()); i++ {
			child := args.Child(i)
			if child == nil || !child.IsNamed() || child.Type() == "comment" {
				continue
			}
			var arg *Node
			if child.Type() == "keyword_argument" {
				arg = NewNode(NodeKeywordArg)
				arg.Location = b.getLocation(child)
				if n := child.ChildByFieldName("name"); n != nil {
					arg.Name = b.content(n)
				}
				if v := child.ChildByFieldName("value"); v != nil {
					arg.Value = b.buildNode(v)
					if arg.Value != nil {
						arg.Value.Parent = arg
					}
				}
			} else {
				arg = b.buildNode(child)
			}
			if arg != nil {
				arg.Parent = node
				node.Arguments = append(node.Arguments, arg)
			}
		}
	}
	return node
}

// calleeName returns the dotted name of the called expression
func calleeName(callee *Node) string {
	switch callee.Type {
	case NodeIdentifier:
		return callee.Name
	case NodeAttribute:
		if callee.Object != nil {
			if prefix := calleeName(callee.Object); prefix != "" {
				return prefix + "." + callee.Name
			}
		}
		return callee.Name
	}
	return ""
}

func (b *ASTBuilder) buildAttribute(tsNode *sitter.Node) *Node {
	node := NewNode(NodeAttribute)
	node.Location = b.getLocation(tsNode)

	if obj := tsNode.ChildByFieldName("object"); obj != nil {
		node.Object = b.buildNode(obj)
		if node.Object != nil {
			node.Object.Parent = node
		}
	}
	if attr := tsNode.ChildByFieldName("attribute"); attr != nil {
		node.Name = b.content(attr)
	}
	return node
}

func (b *ASTBuilder) buildSubscript(tsNode *sitter.Node) *Node {
	node := NewNode(NodeSubscript)
	node.Location = b.getLocation(tsNode)

	if v := tsNode.ChildByFieldName("value"); v != nil {
		node.Value = b.buildNode(v)
		if node.Value != nil {
			node.Value.Parent = node
		}
	}
	if sub := tsNode.ChildByFieldName("subscript"); sub != nil {
		if s := b.buildNode(sub); s != nil {
			node.AddChild(s)
		}
	}
	return node
}

func (b *ASTBuilder) buildIdentifier(tsNode *sitter.Node) *Node {
	node := NewNode(NodeIdentifier)
	node.Location = b.getLocation(tsNode)
	node.Name = b.content(tsNode)
	return node
}

func (b *ASTBuilder) buildBinaryOp(tsNode *sitter.Node, t NodeType) *Node {
	node := NewNode(t)
	node.Location = b.getLocation(tsNode)

	if left := tsNode.ChildByFieldName("left"); left != nil {
		node.Left = b.buildNode(left)
		if node.Left != nil {
			node.Left.Parent = node
		}
	}
	if right := tsNode.ChildByFieldName("right"); right != nil {
		node.Right = b.buildNode(right)
		if node.Right != nil {
			node.Right.Parent = node
		}
	}
	if op := tsNode.ChildByFieldName("operator"); op != nil {
		node.Operator = b.content(op)
	}
	return node
}

func (b *ASTBuilder) buildComparison(tsNode *sitter.Node) *Node {
	node := NewNode(NodeComparison)
	node.Location = b.getLocation(tsNode)

	var operands []*Node
	var ops []string
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil {
			continue
		}
		if child.IsNamed() {
			if operand := b.buildNode(child); operand != nil {
				operand.Parent = node
				operands = append(operands, operand)
			}
		} else {
			ops = append(ops, child.Type())
		}
	}
	if len(operands) > 0 {
		node.Left = operands[0]
	}
	if len(operands) > 1 {
		node.Right = operands[1]
	}
	for _, extra := range operands[min(len(operands), 2):] {
		node.AddChild(extra)
	}
	node.Operator = strings.Join(ops, " ")
	return node
}

func (b *ASTBuilder) buildUnaryOp(tsNode *sitter.Node) *Node {
	node := NewNode(NodeUnaryOp)
	node.Location = b.getLocation(tsNode)

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil {
			continue
		}
		if child.IsNamed() {
			node.Operand = b.buildNode(child)
			if node.Operand != nil {
				node.Operand.Parent = node
			}
		} else {
			node.Operator = child.Type()
		}
	}

	// fold unary minus into a negative number literal
	if node.Operator == "-" && node.Operand != nil && node.Operand.Type == NodeNumberLiteral {
		lit := node.Operand
		lit.NumValue = -lit.NumValue
		lit.Raw = "-" + lit.Raw
		lit.Location = node.Location
		lit.Parent = nil
		return lit
	}
	return node
}

func (b *ASTBuilder) buildAwait(tsNode *sitter.Node) *Node {
	node := NewNode(NodeAwait)
	node.Location = b.getLocation(tsNode)

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child != nil && child.IsNamed() {
			node.Operand = b.buildNode(child)
			if node.Operand != nil {
				node.Operand.Parent = node
			}
		}
	}
	return node
}

func (b *ASTBuilder) buildNumberLiteral(tsNode *sitter.Node) *Node {
	node := NewNode(NodeNumberLiteral)
	node.Location = b.getLocation(tsNode)
	node.Raw = b.content(tsNode)
	node.NumValue = parseNumber(node.Raw)
	return node
}

// parseNumber handles Python numeric literal forms, including underscores
// and non-decimal bases
func parseNumber(raw string) float64 {
	s := strings.ReplaceAll(raw, "_", "")
	s = strings.TrimSuffix(strings.TrimSuffix(s, "j"), "J")
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return float64(v)
	}
	if v, err := strconv.ParseUint(s, 0, 64); err == nil {
		return float64(v)
	}
	return 0
}

func (b *ASTBuilder) buildStringLiteral(tsNode *sitter.Node) *Node {
	node := NewNode(NodeStringLiteral)
	node.Location = b.getLocation(tsNode)
	node.Raw = b.content(tsNode)
	node.Name = unquoteString(node.Raw)
	node.IsFString = isFString(node.Raw)
	return node
}

func isFString(raw string) bool {
	for _, c := range raw {
		switch c {
		case 'f', 'F':
			return true
		case '"', '\'':
			return false
		}
	}
	return false
}

// unquoteString strips string prefixes and quotes to recover the value
func unquoteString(raw string) string {
	s := raw
	for len(s) > 0 {
		c := s[0]
		if c == 'r' || c == 'R' || c == 'b' || c == 'B' || c == 'f' || c == 'F' || c == 'u' || c == 'U' {
			s = s[1:]
			continue
		}
		break
	}
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

func (b *ASTBuilder) buildBoolLiteral(tsNode *sitter.Node) *Node {
	node := NewNode(NodeBoolLiteral)
	node.Location = b.getLocation(tsNode)
	node.Raw = b.content(tsNode)
	node.Name = node.Raw
	return node
}

func (b *ASTBuilder) buildLeaf(tsNode *sitter.Node, t NodeType) *Node {
	node := NewNode(t)
	node.Location = b.getLocation(tsNode)
	return node
}

func (b *ASTBuilder) buildBlockNode(tsNode *sitter.Node, t NodeType) *Node {
	node := NewNode(t)
	node.Location = b.getLocation(tsNode)
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child != nil && child.Type() == "block" {
			node.Body = b.buildBlock(node, child)
		}
	}
	return node
}

func (b *ASTBuilder) buildGenericTyped(tsNode *sitter.Node, t NodeType) *Node {
	node := NewNode(t)
	node.Location = b.getLocation(tsNode)
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil || b.isTrivia(child) {
			continue
		}
		if childNode := b.buildNode(child); childNode != nil {
			node.AddChild(childNode)
		}
	}
	return node
}

// buildGenericNode handles constructs the rules do not model, keeping
// their children reachable for traversal
func (b *ASTBuilder) buildGenericNode(tsNode *sitter.Node) *Node {
	node := b.buildGenericTyped(tsNode, NodeGeneric)
	node.Name = tsNode.Type()
	return node
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
