package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/connascence/conscan/domain"
)

// File is a parsed source file ready for rule evaluation
type File struct {
	Path   string
	Source []byte
	Lines  int
	AST    *Node
}

// Snippet returns the source text of a node, trimmed to a single line
func (f *File) Snippet(n *Node) string {
	if n == nil || n.Location.StartLine < 1 || n.Location.StartLine > f.Lines {
		return ""
	}
	lines := strings.Split(string(f.Source), "\n")
	line := strings.TrimSpace(lines[n.Location.StartLine-1])
	if len(line) > 120 {
		line = line[:120]
	}
	return line
}

// Parser wraps tree-sitter for Python source files
type Parser struct {
	parser   *sitter.Parser
	language *sitter.Language
}

// NewParser creates a new Python parser
func NewParser() *Parser {
	parser := sitter.NewParser()
	lang := python.GetLanguage()
	parser.SetLanguage(lang)

	return &Parser{
		parser:   parser,
		language: lang,
	}
}

// ParseFile parses Python source into a File. Syntax errors fail the
// parse; callers record them as diagnostics rather than aborting the run.
func (p *Parser) ParseFile(ctx context.Context, filename string, source []byte) (*File, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if tree == nil {
		return nil, domain.NewParseError(filename, err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode == nil {
		return nil, domain.NewParseError(filename, nil)
	}
	if rootNode.HasError() {
		return nil, domain.NewParseError(filename, errSyntax(filename, rootNode, source))
	}

	builder := NewASTBuilder(filename, source)
	ast := builder.Build(rootNode)

	return &File{
		Path:   filename,
		Source: source,
		Lines:  countLines(source),
		AST:    ast,
	}, nil
}

// ParseString parses Python source code from a string
func (p *Parser) ParseString(source string) (*File, error) {
	return p.ParseFile(context.Background(), "<input>", []byte(source))
}

// Close closes the parser and frees resources
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

func countLines(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	n := 1
	for _, b := range source {
		if b == '\n' {
			n++
		}
	}
	if source[len(source)-1] == '\n' {
		n--
	}
	return n
}

// errSyntax locates the first error node for a useful message
func errSyntax(filename string, root *sitter.Node, source []byte) error {
	var bad *sitter.Node
	var find func(n *sitter.Node)
	find = func(n *sitter.Node) {
		if bad != nil || n == nil {
			return
		}
		if n.IsError() || n.IsMissing() {
			bad = n
			return
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			find(n.Child(i))
		}
	}
	find(root)

	if bad == nil {
		return domain.NewDomainError(domain.ErrCodeParseError, "syntax error in "+filename, nil)
	}
	loc := Location{
		File:      filename,
		StartLine: int(bad.StartPoint().Row) + 1,
		StartCol:  int(bad.StartPoint().Column),
	}
	return domain.NewDomainError(domain.ErrCodeParseError, "syntax error at "+loc.String(), nil)
}
