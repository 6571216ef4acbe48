package analyzer

import (
	"context"
	"reflect"
	"testing"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/parser"
	"github.com/connascence/conscan/internal/policy"
)

func parseSource(t *testing.T, path, code string) *parser.File {
	t.Helper()
	p := parser.NewParser()
	defer p.Close()
	file, err := p.ParseFile(context.Background(), path, []byte(code))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return file
}

func standardPolicy(t *testing.T) *policy.Policy {
	t.Helper()
	pol, err := policy.NewEngine().Resolve("standard")
	if err != nil {
		t.Fatal(err)
	}
	return pol
}

func findingsOf(findings []domain.Finding, rule domain.Rule) []domain.Finding {
	var out []domain.Finding
	for _, f := range findings {
		if f.Type == rule {
			out = append(out, f)
		}
	}
	return out
}

func TestPositionFiveParams(t *testing.T) {
	code := "def transfer(src, dst, amount, currency, memo):\n    pass\n"
	file := parseSource(t, "bank.py", code)
	pol := standardPolicy(t)
	pol.Thresholds.MaxPositionalParams = 4

	findings := (&PositionEvaluator{}).Evaluate(file, pol)
	if len(findings) != 1 {
		t.Fatalf("expected exactly one finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Type != domain.RulePosition {
		t.Errorf("rule = %s, want %s", f.Type, domain.RulePosition)
	}
	if f.Location.StartLine != 1 {
		t.Errorf("line = %d, want 1", f.Location.StartLine)
	}
	if f.Context["parameter_count"] != "5" {
		t.Errorf("parameter_count = %s, want 5", f.Context["parameter_count"])
	}
}

func TestPositionReceiverExcluded(t *testing.T) {
	code := `class Account:
    def transfer(self, dst, amount, currency):
        pass
`
	file := parseSource(t, "bank.py", code)
	pol := standardPolicy(t)
	pol.Thresholds.MaxPositionalParams = 3

	if findings := (&PositionEvaluator{}).Evaluate(file, pol); len(findings) != 0 {
		t.Errorf("self should not count as a positional parameter: %v", findings)
	}
}

func TestParameterBomb(t *testing.T) {
	code := "def build(a, b, c, d, e, f, g, h):\n    pass\n"
	file := parseSource(t, "x.py", code)
	pol := standardPolicy(t)
	pol.Thresholds.MaxPositionalParams = 3

	findings := (&PositionEvaluator{}).Evaluate(file, pol)
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %d", len(findings))
	}
	if findings[0].Type != domain.RuleParameterBomb {
		t.Errorf("rule = %s, want %s", findings[0].Type, domain.RuleParameterBomb)
	}
	if findings[0].Severity != domain.SeverityCritical {
		t.Errorf("severity = %s, want critical", findings[0].Severity)
	}
}

func TestMagicLiteralConstantExempt(t *testing.T) {
	code := "SESSION_TTL = 3600\n\ndef expire(ts):\n    return ts + 3600\n"
	file := parseSource(t, "session.py", code)
	pol := standardPolicy(t)

	findings := (&MeaningEvaluator{}).Evaluate(file, pol)
	if len(findings) != 1 {
		t.Fatalf("expected one finding for the bare literal, got %d: %v", len(findings), findings)
	}
	if findings[0].Location.StartLine != 4 {
		t.Errorf("line = %d, want 4 (the non-constant use)", findings[0].Location.StartLine)
	}
}

func TestMagicLiteralWhitelist(t *testing.T) {
	code := "def status():\n    return 200\n"
	file := parseSource(t, "api.py", code)
	pol := standardPolicy(t)

	if findings := (&MeaningEvaluator{}).Evaluate(file, pol); len(findings) != 0 {
		t.Errorf("whitelisted 200 should not be flagged: %v", findings)
	}
}

func TestMagicLiteralSeverityContexts(t *testing.T) {
	tests := []struct {
		name string
		code string
		sev  domain.Severity
	}{
		{
			"security context",
			"def login(user):\n    password = \"hunter22\"\n",
			domain.SeverityCritical,
		},
		{
			"conditional context",
			"def retry(n):\n    if n > 7777:\n        return\n",
			domain.SeverityHigh,
		},
		{
			"general context",
			"def area(r):\n    return r * 31415\n",
			domain.SeverityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := parseSource(t, "app.py", tt.code)
			findings := (&MeaningEvaluator{}).Evaluate(file, standardPolicy(t))
			if len(findings) != 1 {
				t.Fatalf("expected one finding, got %d: %v", len(findings), findings)
			}
			if findings[0].Severity != tt.sev {
				t.Errorf("severity = %s, want %s", findings[0].Severity, tt.sev)
			}
		})
	}
}

func TestMagicLiteralFixtureConfidence(t *testing.T) {
	code := "def test_expiry():\n    assert ttl() == 7321\n"

	prod := parseSource(t, "app/session.py", code)
	fixture := parseSource(t, "tests/test_session.py", code)
	pol := standardPolicy(t)

	prodFindings := (&MeaningEvaluator{}).Evaluate(prod, pol)
	fixtureFindings := (&MeaningEvaluator{}).Evaluate(fixture, pol)
	if len(prodFindings) != 1 || len(fixtureFindings) != 1 {
		t.Fatalf("expected one finding each, got %d and %d", len(prodFindings), len(fixtureFindings))
	}
	if fixtureFindings[0].Confidence >= prodFindings[0].Confidence {
		t.Errorf("fixture confidence %f should be below production %f",
			fixtureFindings[0].Confidence, prodFindings[0].Confidence)
	}
}

func TestDocstringExempt(t *testing.T) {
	code := "\"\"\"Module docstring long enough to be magic.\"\"\"\n\ndef f():\n    \"\"\"Function docstring also long.\"\"\"\n    pass\n"
	file := parseSource(t, "doc.py", code)

	if findings := (&MeaningEvaluator{}).Evaluate(file, standardPolicy(t)); len(findings) != 0 {
		t.Errorf("docstrings should be exempt: %v", findings)
	}
}

func godClassSource() string {
	code := "class OrderManager:\n"
	for _, m := range []string{
		"validate", "reserve", "charge", "refund", "ship", "track",
		"cancel", "archive", "notify", "audit", "export", "import_",
		"merge", "split", "lock", "unlock", "sync", "report",
		"escalate", "reconcile", "forecast",
	} {
		code += "    def " + m + "(self):\n        pass\n"
	}
	return code
}

func TestGodObject(t *testing.T) {
	file := parseSource(t, "orders.py", godClassSource())
	pol := standardPolicy(t)

	findings := findingsOf((&GodObjectEvaluator{}).Evaluate(file, pol), domain.RuleGodObject)
	if len(findings) != 1 {
		t.Fatalf("expected one god-object finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Severity != domain.SeverityCritical {
		t.Errorf("severity = %s, want critical", f.Severity)
	}
	if f.Context["context"] != "business-logic" {
		t.Errorf("context = %s, want business-logic", f.Context["context"])
	}
	if f.Context["heuristic"] == "" {
		t.Error("classification heuristic must be reported")
	}
}

func TestGodObjectDataHolderLeniency(t *testing.T) {
	code := "class ServerConfig:\n"
	for i := 0; i < 21; i++ {
		code += "    def get_v" + string(rune('a'+i)) + "(self):\n        return 1\n"
	}
	file := parseSource(t, "config.py", code)
	pol := standardPolicy(t)

	findings := (&GodObjectEvaluator{}).Evaluate(file, pol)
	if len(findings) != 0 {
		t.Errorf("data holder within lenient threshold should pass: %v", findings)
	}
}

func TestAlgorithmDuplication(t *testing.T) {
	code := `def load_users(db):
    rows = db.query("users")
    out = []
    for r in rows:
        out.append(r)
    return out

def load_orders(db):
    rows = db.query("orders")
    out = []
    for r in rows:
        out.append(r)
    return out
`
	file := parseSource(t, "repo.py", code)
	pol := standardPolicy(t)
	pol.Thresholds.MinDuplicateStatements = 3
	pol.Thresholds.MinDuplicateTokens = 10
	pol.Thresholds.SimilarityThreshold = 0.85

	findings := (&AlgorithmEvaluator{}).Evaluate(file, pol)
	if len(findings) != 2 {
		t.Fatalf("expected both duplicates flagged, got %d", len(findings))
	}
	if findings[0].Context["similar_to"] != "load_orders" {
		t.Errorf("similar_to = %s, want load_orders", findings[0].Context["similar_to"])
	}
}

func TestAlgorithmShortFunctionFloor(t *testing.T) {
	code := "def a():\n    return 1\n\ndef b():\n    return 2\n"
	file := parseSource(t, "tiny.py", code)
	pol := standardPolicy(t)

	if findings := (&AlgorithmEvaluator{}).Evaluate(file, pol); len(findings) != 0 {
		t.Errorf("short functions below the floor must not be flagged: %v", findings)
	}
}

func TestTypeChecks(t *testing.T) {
	code := `def render(v):
    if isinstance(v, int):
        pass
    if isinstance(v, str):
        pass
    if isinstance(v, list):
        pass
    if type(v) == dict:
        pass
`
	file := parseSource(t, "render.py", code)
	pol := standardPolicy(t)
	pol.Thresholds.MaxTypeChecks = 3

	findings := (&TypeEvaluator{}).Evaluate(file, pol)
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %d", len(findings))
	}
	if findings[0].Context["type_check_count"] != "4" {
		t.Errorf("type_check_count = %s, want 4", findings[0].Context["type_check_count"])
	}
}

func TestExecutionUnprotectedProtocol(t *testing.T) {
	code := `def save(conn, data):
    tx = conn.begin()
    tx.write(data)
    tx.commit()
`
	file := parseSource(t, "db.py", code)

	findings := (&ExecutionEvaluator{}).Evaluate(file, standardPolicy(t))
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %d", len(findings))
	}
	if findings[0].Context["protocol"] != "begin/commit" {
		t.Errorf("protocol = %s", findings[0].Context["protocol"])
	}
}

func TestExecutionProtectedProtocolPasses(t *testing.T) {
	code := `def save(conn, data):
    try:
        tx = conn.begin()
        tx.write(data)
        tx.commit()
    finally:
        conn.rollback()
`
	file := parseSource(t, "db.py", code)

	if findings := (&ExecutionEvaluator{}).Evaluate(file, standardPolicy(t)); len(findings) != 0 {
		t.Errorf("protected protocol should not be flagged: %v", findings)
	}
}

func TestTimingPatterns(t *testing.T) {
	code := `import time

def wait_ready(svc):
    while not svc.ready():
        time.sleep(1)

def pause():
    time.sleep(5)
`
	file := parseSource(t, "wait.py", code)

	findings := (&TimingEvaluator{}).Evaluate(file, standardPolicy(t))
	if len(findings) != 2 {
		t.Fatalf("expected polling loop + bare sleep, got %d: %v", len(findings), findings)
	}
	patterns := map[string]bool{}
	for _, f := range findings {
		patterns[f.Context["pattern"]] = true
	}
	if !patterns["polling-loop"] || !patterns["sleep"] {
		t.Errorf("patterns = %v", patterns)
	}
}

func TestValueDuplicateLiterals(t *testing.T) {
	code := `def a():
    return "eu-west-1"

def b():
    return "eu-west-1"

def c():
    return "eu-west-1"
`
	file := parseSource(t, "region.py", code)
	pol := standardPolicy(t)

	findings := findingsOf((&ValueEvaluator{}).Evaluate(file, pol), domain.RuleValue)
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %d", len(findings))
	}
	if findings[0].Severity != domain.SeverityLow {
		t.Errorf("3 occurrences should be low severity, got %s", findings[0].Severity)
	}
	if findings[0].Context["usage_count"] != "3" {
		t.Errorf("usage_count = %s", findings[0].Context["usage_count"])
	}
}

func TestIdentitySharedGlobal(t *testing.T) {
	code := `counter = {}

def bump(k):
    global counter
    counter[k] = counter.get(k, 0) + 1

def reset():
    global counter
    counter = {}
`
	file := parseSource(t, "state.py", code)

	findings := (&IdentityEvaluator{}).Evaluate(file, standardPolicy(t))
	shared := findingsOf(findings, domain.RuleIdentity)
	if len(shared) == 0 {
		t.Fatal("expected a shared-global finding")
	}
	if shared[0].Context["name"] != "counter" {
		t.Errorf("name = %s, want counter", shared[0].Context["name"])
	}
}

func TestCorrelateGodObjectWithMagicLiterals(t *testing.T) {
	god := domain.Finding{
		ID:   "god1",
		Type: domain.RuleGodObject,
		Location: domain.Location{
			FilePath: "big.py", StartLine: 1, EndLine: 100,
		},
		Context: map[string]string{"class": "Everything"},
	}
	var findings []domain.Finding
	findings = append(findings, god)
	for i := 0; i < 4; i++ {
		findings = append(findings, domain.Finding{
			ID:       "m" + string(rune('0'+i)),
			Type:     domain.RuleMeaning,
			Location: domain.Location{FilePath: "big.py", StartLine: 10 + i},
		})
	}

	correlations := Correlate(findings)
	if len(correlations) != 1 {
		t.Fatalf("expected one correlation, got %d", len(correlations))
	}
	c := correlations[0]
	if c.Rule != CorrExtractConfiguration {
		t.Errorf("rule = %s", c.Rule)
	}
	if len(c.FindingIDs) != 5 {
		t.Errorf("finding ids = %d, want 5", len(c.FindingIDs))
	}
	if c.Score <= 0 || c.Score > 1 {
		t.Errorf("score = %f, want (0,1]", c.Score)
	}
}

func TestCorrelateIgnoresPseudoFindings(t *testing.T) {
	findings := []domain.Finding{
		{ID: "p1", Type: domain.RuleParseFailure, Location: domain.Location{FilePath: "bad.py", StartLine: 1}},
	}
	if got := Correlate(findings); len(got) != 0 {
		t.Errorf("pseudo-findings must not correlate: %v", got)
	}
}

func TestEvaluateAllDeterministic(t *testing.T) {
	code := `def transfer(src, dst, amount, currency, memo):
    fee = 12345
    if amount > 99999:
        return fee
    return 12345
`
	pol := standardPolicy(t)
	pol.Thresholds.MaxPositionalParams = 4

	first := EvaluateAll(parseSource(t, "pay.py", code), pol)
	second := EvaluateAll(parseSource(t, "pay.py", code), pol)

	domain.SortFindings(first)
	domain.SortFindings(second)
	if !reflect.DeepEqual(first, second) {
		t.Error("identical input must produce identical findings")
	}
	for _, f := range first {
		if f.ID == "" || len(f.ID) != 12 {
			t.Errorf("finding ID %q is not a 12-char fingerprint", f.ID)
		}
		if f.Weight <= 0 {
			t.Errorf("finding weight not set: %+v", f)
		}
	}
}

func TestFindingIDsUniqueWithinRun(t *testing.T) {
	code := "def price():\n    y = compute(37, 53)\n    return y\n"
	pol := standardPolicy(t)

	findings := EvaluateAll(parseSource(t, "shop.py", code), pol)
	magic := findingsOf(findings, domain.RuleMeaning)
	if len(magic) != 2 {
		t.Fatalf("expected two magic-literal findings on one line, got %d", len(magic))
	}
	seen := map[string]domain.Finding{}
	for _, f := range findings {
		if prev, ok := seen[f.ID]; ok {
			t.Errorf("duplicate ID %s shared by %s:%d:%d and %s:%d:%d",
				f.ID,
				prev.Location.FilePath, prev.Location.StartLine, prev.Location.StartColumn,
				f.Location.FilePath, f.Location.StartLine, f.Location.StartColumn)
		}
		seen[f.ID] = f
	}
}

func TestPositionTotalParameterCap(t *testing.T) {
	code := "def configure(a, b, *, retries=1, backoff=2, jitter=3, budget=4, verbose=5):\n    pass\n"
	file := parseSource(t, "conf.py", code)
	pol := standardPolicy(t)
	pol.Thresholds.MaxPositionalParams = 3
	pol.Thresholds.MaxFunctionParams = 5

	findings := findingsOf((&PositionEvaluator{}).Evaluate(file, pol), domain.RulePosition)
	if len(findings) != 1 {
		t.Fatalf("expected one finding for 7 total parameters, got %d", len(findings))
	}
	if findings[0].Severity != domain.SeverityMedium {
		t.Errorf("severity = %s, want medium", findings[0].Severity)
	}
	if findings[0].Context["parameter_count"] != "7" {
		t.Errorf("parameter_count = %s, want 7", findings[0].Context["parameter_count"])
	}
}

func TestMagicLiteralDensityAggregate(t *testing.T) {
	code := `def tune():
    a = 37
    b = 41
    c = 53
    d = 67
`
	file := parseSource(t, "tuning.py", code)
	pol := standardPolicy(t)
	pol.Thresholds.MaxMagicLiteralsPerFunction = 3

	findings := (&MeaningEvaluator{}).Evaluate(file, pol)
	var aggregate []domain.Finding
	for _, f := range findings {
		if f.Context["literal_count"] != "" {
			aggregate = append(aggregate, f)
		}
	}
	if len(aggregate) != 1 {
		t.Fatalf("expected one aggregate finding, got %d", len(aggregate))
	}
	if aggregate[0].Context["function"] != "tune" {
		t.Errorf("function = %s, want tune", aggregate[0].Context["function"])
	}
	if aggregate[0].Severity != domain.SeverityHigh {
		t.Errorf("severity = %s, want high", aggregate[0].Severity)
	}
	// The four per-literal findings are still present
	if got := len(findings) - len(aggregate); got != 4 {
		t.Errorf("expected 4 per-literal findings, got %d", got)
	}
}

func TestNestingDepth(t *testing.T) {
	code := `def deep(items):
    for a in items:
        if a:
            while a:
                if a > 1:
                    with open(a):
                        a -= 1
`
	file := parseSource(t, "deep.py", code)
	pol := standardPolicy(t)
	pol.Thresholds.MaxNestingDepth = 4
	pol.Thresholds.GodFunctionLines = 100

	findings := findingsOf((&GodObjectEvaluator{}).Evaluate(file, pol), domain.RuleGodObject)
	if len(findings) != 1 {
		t.Fatalf("expected one nesting finding, got %d", len(findings))
	}
	if findings[0].Context["nesting_depth"] != "5" {
		t.Errorf("nesting_depth = %s, want 5", findings[0].Context["nesting_depth"])
	}
}

func TestNestingDepthWithinLimitPasses(t *testing.T) {
	code := `def shallow(items):
    for a in items:
        if a:
            return a
`
	file := parseSource(t, "shallow.py", code)
	pol := standardPolicy(t)
	pol.Thresholds.MaxNestingDepth = 4
	pol.Thresholds.GodFunctionLines = 100

	if findings := (&GodObjectEvaluator{}).Evaluate(file, pol); len(findings) != 0 {
		t.Errorf("expected no findings, got %d", len(findings))
	}
}

func TestStricterPolicyFindsAtLeastAsMuch(t *testing.T) {
	code := `def process(order, customer, warehouse, carrier, priority):
    if order > 7919:
        return order * 86461
    return 0
`
	file := parseSource(t, "orders.py", code)
	engine := policy.NewEngine()

	counts := make(map[string]int)
	for _, name := range []string{"lenient", "standard", "strict"} {
		pol, err := engine.Resolve(name)
		if err != nil {
			t.Fatal(err)
		}
		counts[name] = len(EvaluateAll(file, pol))
	}

	if counts["strict"] < counts["standard"] {
		t.Errorf("strict found %d, standard found %d", counts["strict"], counts["standard"])
	}
	if counts["standard"] < counts["lenient"] {
		t.Errorf("standard found %d, lenient found %d", counts["standard"], counts["lenient"])
	}
}
