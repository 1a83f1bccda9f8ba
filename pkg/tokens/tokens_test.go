package tokens

import (
	"reflect"
	"testing"

	"github.com/l3aro/go-testsight/pkg/types"
)

func TestSplitWord(t *testing.T) {
	tok := NewTokenizer(DefaultConfig())
	cases := []struct {
		word string
		want []string
	}{
		{"invoice_renderer", []string{"invoice", "invoice_renderer", "renderer"}},
		{"order-history", []string{"history", "order", "order_history"}},
		{"OrderHistory", []string{"history", "order", "orderhistory"}},
		{"service", []string{"service"}},
		// "test" is a stopword; the compound survives.
		{"test_service", []string{"service", "test_service"}},
		// Short fragments fall below the minimum length.
		{"db_io", []string{"db_io"}},
		// Long plurals contribute their stem.
		{"strings", []string{"string", "strings"}},
	}
	for _, tc := range cases {
		if got := tok.SplitWord(tc.word); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitWord(%q) = %v, want %v", tc.word, got, tc.want)
		}
	}
}

func TestSplitWordPluralStem(t *testing.T) {
	// Only the crude trailing-s stem is applied, and only to tokens
	// longer than four characters.
	tok := NewTokenizer(DefaultConfig())
	got := tok.SplitWord("invoices")
	want := []string{"invoice", "invoices"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitWord(invoices) = %v, want %v", got, want)
	}
}

func TestPathTokensWeights(t *testing.T) {
	tok := NewTokenizer(DefaultConfig())
	set := tok.PathTokens("billing/service.py")

	if set["service"] != FilenameWeight {
		t.Errorf("service weight = %d, want %d", set["service"], FilenameWeight)
	}
	if set["billing"] != DirWeight {
		t.Errorf("billing weight = %d, want %d", set["billing"], DirWeight)
	}
	if _, ok := set["py"]; ok {
		t.Error("extension must not produce a token")
	}
}

func TestPathTokensFilenameWeightWinsOverDir(t *testing.T) {
	tok := NewTokenizer(DefaultConfig())
	set := tok.PathTokens("billing/billing.py")
	if set["billing"] != FilenameWeight {
		t.Errorf("billing weight = %d, want filename weight to win", set["billing"])
	}
}

func TestScoreRelatedPaths(t *testing.T) {
	tok := NewTokenizer(DefaultConfig())

	// Shared "service" from both filenames (2x7) plus shared directory
	// "billing" (1x7).
	score := Score(tok.PathTokens("billing/service.py"), tok.PathTokens("billing/test_service.py"))
	if score < DefaultConfig().Threshold {
		t.Errorf("related paths score %d, want >= %d", score, DefaultConfig().Threshold)
	}
	if score != 21 {
		t.Errorf("score = %d, want 21", score)
	}
}

func TestScoreUnrelatedPaths(t *testing.T) {
	tok := NewTokenizer(DefaultConfig())
	score := Score(tok.PathTokens("billing/service.py"), tok.PathTokens("shipping/test_label.py"))
	if score != 0 {
		t.Errorf("unrelated paths score %d, want 0", score)
	}
}

func TestScoreSurvivesStopwordDirectories(t *testing.T) {
	// "util" and "tests" are stopwords, so only filename tokens remain;
	// they must still clear the threshold on their own.
	tok := NewTokenizer(DefaultConfig())
	score := Score(tok.PathTokens("util/strings.py"), tok.PathTokens("tests/test_strings.py"))
	if score < DefaultConfig().Threshold {
		t.Errorf("score = %d, want >= %d", score, DefaultConfig().Threshold)
	}
}

func TestMatcherOrdersByScoreThenPath(t *testing.T) {
	tests := []*types.ModuleRecord{
		{ID: "tests.test_billing_service", Path: "tests/test_billing_service.py", IsTest: true},
		{ID: "tests.test_service", Path: "tests/test_service.py", IsTest: true},
		{ID: "tests.test_shipping", Path: "tests/test_shipping.py", IsTest: true},
	}
	m := NewMatcher(tests, DefaultConfig())

	matches := m.Match("billing/service.py")
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(matches), matches)
	}
	// test_billing_service shares both "billing" and "service" at
	// filename weight and must outrank test_service.
	if matches[0].Path != "tests/test_billing_service.py" {
		t.Errorf("first match = %s", matches[0].Path)
	}
	if matches[1].Path != "tests/test_service.py" {
		t.Errorf("second match = %s", matches[1].Path)
	}
	if matches[0].Score <= matches[1].Score {
		t.Errorf("scores not descending: %d then %d", matches[0].Score, matches[1].Score)
	}
}

func TestMatcherTieBreaksByPath(t *testing.T) {
	tests := []*types.ModuleRecord{
		{ID: "tests.b_test_invoice", Path: "tests/b/test_invoice.py", IsTest: true},
		{ID: "tests.a_test_invoice", Path: "tests/a/test_invoice.py", IsTest: true},
	}
	m := NewMatcher(tests, DefaultConfig())

	matches := m.Match("billing/invoice.py")
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Score != matches[1].Score {
		t.Fatalf("expected equal scores, got %d and %d", matches[0].Score, matches[1].Score)
	}
	if matches[0].Path != "tests/a/test_invoice.py" {
		t.Errorf("tie must break by path; first = %s", matches[0].Path)
	}
}

func TestMatcherUsesUnresolvedImportTokens(t *testing.T) {
	// The test file's own name shares nothing with the change, but it
	// imports "invoice_renderer", which the index could not resolve.
	rec := &types.ModuleRecord{
		ID:     "tests.test_output",
		Path:   "tests/test_output.py",
		IsTest: true,
		Imports: []types.ImportRef{
			{Raw: "invoice_renderer"},
		},
	}
	m := NewMatcher([]*types.ModuleRecord{rec}, DefaultConfig())

	matches := m.Match("rendering/invoice_renderer.py")
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].ID != "tests.test_output" {
		t.Errorf("matched %s", matches[0].ID)
	}
}

func TestMatcherBelowThreshold(t *testing.T) {
	tests := []*types.ModuleRecord{
		{ID: "tests.test_db", Path: "tests/test_db.py", IsTest: true},
	}
	m := NewMatcher(tests, DefaultConfig())
	// The only shared vocabulary would be too short to score.
	if matches := m.Match("storage/db.py"); len(matches) != 0 {
		t.Errorf("got %+v, want no matches below threshold", matches)
	}
}
