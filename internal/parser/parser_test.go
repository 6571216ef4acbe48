package parser

import (
	"testing"
)

func TestParseSimpleFunction(t *testing.T) {
	code := "def hello():\n    return 42\n"

	parser := NewParser()
	defer parser.Close()

	file, err := parser.ParseString(code)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if file.AST == nil {
		t.Fatal("AST is nil")
	}
	if file.AST.Type != NodeModule {
		t.Errorf("Expected NodeModule, got %s", file.AST.Type)
	}
	if len(file.AST.Body) == 0 {
		t.Fatal("Expected at least one statement in body")
	}

	funcNode := file.AST.Body[0]
	if funcNode.Type != NodeFunctionDef {
		t.Errorf("Expected NodeFunctionDef, got %s", funcNode.Type)
	}
	if funcNode.Name != "hello" {
		t.Errorf("Expected function name 'hello', got '%s'", funcNode.Name)
	}
	if file.Lines != 2 {
		t.Errorf("Lines = %d, want 2", file.Lines)
	}
}

func TestParseSyntaxError(t *testing.T) {
	code := "def broken(:\n    pass\n"

	parser := NewParser()
	defer parser.Close()

	if _, err := parser.ParseString(code); err == nil {
		t.Fatal("expected error for invalid syntax")
	}
}

func TestParseParameters(t *testing.T) {
	code := "def f(a, b=1, *args, c, **kwargs):\n    pass\n"

	parser := NewParser()
	defer parser.Close()

	file, err := parser.ParseString(code)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	fn := file.AST.Body[0]
	if len(fn.Params) != 5 {
		t.Fatalf("expected 5 params, got %d", len(fn.Params))
	}

	tests := []struct {
		name string
		kind ParamKind
	}{
		{"a", ParamPositional},
		{"b", ParamPositional},
		{"args", ParamVararg},
		{"c", ParamKeywordOnly},
		{"kwargs", ParamKwarg},
	}
	for i, tt := range tests {
		p := fn.Params[i]
		if p.Name != tt.name {
			t.Errorf("param %d name = %q, want %q", i, p.Name, tt.name)
		}
		if p.Kind != tt.kind {
			t.Errorf("param %q kind = %s, want %s", p.Name, p.Kind, tt.kind)
		}
	}
	if fn.Params[1].Default == nil {
		t.Error("param b should carry its default value")
	}
}

func TestParseMethodReceiver(t *testing.T) {
	code := `class Point:
    def move(self, dx, dy):
        pass

    @staticmethod
    def origin():
        pass

    @classmethod
    def from_tuple(cls, t):
        pass
`

	parser := NewParser()
	defer parser.Close()

	file, err := parser.ParseString(code)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	class := file.AST.Body[0]
	if class.Type != NodeClassDef || class.Name != "Point" {
		t.Fatalf("expected class Point, got %s(%s)", class.Type, class.Name)
	}

	move := class.Body[0]
	if move.Params[0].Kind != ParamSelf {
		t.Errorf("self receiver kind = %s, want %s", move.Params[0].Kind, ParamSelf)
	}
	if got := len(move.PositionalParams()); got != 2 {
		t.Errorf("move positional params = %d, want 2", got)
	}
	if !move.IsMethod() {
		t.Error("move should be a method")
	}

	fromTuple := class.Body[2]
	if fromTuple.Params[0].Kind != ParamSelf {
		t.Errorf("cls receiver kind = %s, want %s", fromTuple.Params[0].Kind, ParamSelf)
	}
}

func TestParseDecorators(t *testing.T) {
	code := `@app.route("/users")
@cached
def list_users():
    pass
`

	parser := NewParser()
	defer parser.Close()

	file, err := parser.ParseString(code)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	fn := file.AST.Body[0]
	if fn.Type != NodeFunctionDef {
		t.Fatalf("expected function, got %s", fn.Type)
	}
	names := fn.DecoratorNames()
	if len(names) != 2 || names[0] != "app.route" || names[1] != "cached" {
		t.Errorf("decorator names = %v", names)
	}
}

func TestParseLiterals(t *testing.T) {
	code := "x = 0x1F\ny = 1_000\nz = -42\ns = \"hello\"\nf = f\"v={x}\"\n"

	parser := NewParser()
	defer parser.Close()

	file, err := parser.ParseString(code)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var numbers []float64
	var strs []*Node
	file.AST.Walk(func(n *Node) bool {
		switch n.Type {
		case NodeNumberLiteral:
			numbers = append(numbers, n.NumValue)
		case NodeStringLiteral:
			strs = append(strs, n)
		}
		return true
	})

	want := []float64{31, 1000, -42}
	if len(numbers) != len(want) {
		t.Fatalf("numbers = %v, want %v", numbers, want)
	}
	for i := range want {
		if numbers[i] != want[i] {
			t.Errorf("number %d = %v, want %v", i, numbers[i], want[i])
		}
	}

	if len(strs) != 2 {
		t.Fatalf("expected 2 string literals, got %d", len(strs))
	}
	if strs[0].Name != "hello" {
		t.Errorf("string value = %q, want hello", strs[0].Name)
	}
	if strs[0].IsFString {
		t.Error("plain string flagged as f-string")
	}
	if !strs[1].IsFString {
		t.Error("f-string not detected")
	}
}

func TestParseControlFlow(t *testing.T) {
	code := `def check(n):
    if n > 0:
        return "positive"
    elif n < 0:
        return "negative"
    else:
        return "zero"
`

	parser := NewParser()
	defer parser.Close()

	file, err := parser.ParseString(code)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var ifNode *Node
	file.AST.Walk(func(n *Node) bool {
		if n.Type == NodeIfStatement && ifNode == nil {
			ifNode = n
			return false
		}
		return true
	})
	if ifNode == nil {
		t.Fatal("if statement not found")
	}
	if ifNode.Test == nil {
		t.Error("if statement has no condition")
	}
	if len(ifNode.OrElse) != 1 {
		t.Fatalf("OrElse branches = %d, want 1 (elif chain)", len(ifNode.OrElse))
	}
	elif := ifNode.OrElse[0]
	if elif.Type != NodeIfStatement {
		t.Fatalf("elif type = %s, want %s", elif.Type, NodeIfStatement)
	}
	if len(elif.OrElse) != 1 || elif.OrElse[0].Type != NodeElseClause {
		t.Errorf("else clause not nested under final elif, got %d branches", len(elif.OrElse))
	}
}

func TestWalkVisitsEachNodeOnce(t *testing.T) {
	code := `x = 1
print(x)
if x:
    y = 2
`

	parser := NewParser()
	defer parser.Close()

	file, err := parser.ParseString(code)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	counts := map[*Node]int{}
	file.AST.Walk(func(n *Node) bool {
		counts[n]++
		return true
	})
	for n, c := range counts {
		if c != 1 {
			t.Errorf("%s at %s visited %d times", n.Type, n.Location, c)
		}
	}
}

func TestParseTryStatement(t *testing.T) {
	code := `def load(path):
    try:
        f = open(path)
    except OSError as e:
        raise
    finally:
        cleanup()
`

	parser := NewParser()
	defer parser.Close()

	file, err := parser.ParseString(code)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var try *Node
	file.AST.Walk(func(n *Node) bool {
		if n.Type == NodeTryStatement {
			try = n
			return false
		}
		return true
	})
	if try == nil {
		t.Fatal("try statement not found")
	}
	if len(try.Handlers) != 1 {
		t.Errorf("handlers = %d, want 1", len(try.Handlers))
	}
	if try.Finalizer == nil {
		t.Error("finally clause not captured")
	}
}

func TestParseCallNames(t *testing.T) {
	code := "time.sleep(5)\nprint(x)\n"

	parser := NewParser()
	defer parser.Close()

	file, err := parser.ParseString(code)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var names []string
	file.AST.Walk(func(n *Node) bool {
		if n.Type == NodeCall {
			names = append(names, n.Name)
		}
		return true
	})
	if len(names) != 2 || names[0] != "time.sleep" || names[1] != "print" {
		t.Errorf("call names = %v", names)
	}
}

func TestSnippet(t *testing.T) {
	code := "x = 1\ny =    2\n"

	parser := NewParser()
	defer parser.Close()

	file, err := parser.ParseString(code)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	second := file.AST.Body[1]
	if got := file.Snippet(second); got != "y =    2" {
		t.Errorf("Snippet = %q", got)
	}
}
