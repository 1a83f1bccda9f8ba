package pyimports

import (
	"os"
	"path/filepath"
	"testing"
)

func parseSource(t *testing.T, src string) []Import {
	t.Helper()
	imports, err := NewParser().Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return imports
}

func TestPlainImports(t *testing.T) {
	imports := parseSource(t, `import os
import billing.invoice
import a.b, c
import numpy as np
`)

	want := []string{"os", "billing.invoice", "a.b", "c", "numpy"}
	if len(imports) != len(want) {
		t.Fatalf("got %d imports, want %d: %+v", len(imports), len(want), imports)
	}
	for i, module := range want {
		if imports[i].Module != module {
			t.Errorf("import %d: got %q, want %q", i, imports[i].Module, module)
		}
		if imports[i].IsFrom {
			t.Errorf("import %d (%s): IsFrom should be false", i, module)
		}
		if len(imports[i].Names) != 0 {
			t.Errorf("import %d (%s): plain import should carry no names", i, module)
		}
	}
}

func TestFromImports(t *testing.T) {
	imports := parseSource(t, `from billing.invoice import Invoice, render
from util import helpers as h
from models import *
`)

	if len(imports) != 3 {
		t.Fatalf("got %d imports, want 3: %+v", len(imports), imports)
	}

	first := imports[0]
	if first.Module != "billing.invoice" || !first.IsFrom {
		t.Errorf("got %+v, want from billing.invoice", first)
	}
	if len(first.Names) != 2 || first.Names[0] != "Invoice" || first.Names[1] != "render" {
		t.Errorf("names: got %v, want [Invoice render]", first.Names)
	}

	if imports[1].Module != "util" || len(imports[1].Names) != 1 || imports[1].Names[0] != "helpers" {
		t.Errorf("aliased from-import: got %+v", imports[1])
	}

	if imports[2].Module != "models" || len(imports[2].Names) != 1 || imports[2].Names[0] != "*" {
		t.Errorf("wildcard import: got %+v", imports[2])
	}
}

func TestRelativeImports(t *testing.T) {
	imports := parseSource(t, `from . import sibling
from .models import Order
from ..common import base
from ... import far
`)

	cases := []struct {
		module string
		level  int
	}{
		{".", 1},
		{".models", 1},
		{"..common", 2},
		{"...", 3},
	}
	if len(imports) != len(cases) {
		t.Fatalf("got %d imports, want %d: %+v", len(imports), len(cases), imports)
	}
	for i, tc := range cases {
		if imports[i].Module != tc.module {
			t.Errorf("import %d: got module %q, want %q", i, imports[i].Module, tc.module)
		}
		if got := imports[i].RelativeLevel(); got != tc.level {
			t.Errorf("import %d: got level %d, want %d", i, got, tc.level)
		}
	}
}

func TestNestedImportsAreFound(t *testing.T) {
	imports := parseSource(t, `def handler():
    import json
    if True:
        from collections import OrderedDict
`)

	if len(imports) != 2 {
		t.Fatalf("got %d imports, want 2: %+v", len(imports), imports)
	}
	if imports[0].Module != "json" {
		t.Errorf("got %q, want json", imports[0].Module)
	}
	if imports[1].Module != "collections" {
		t.Errorf("got %q, want collections", imports[1].Module)
	}
}

func TestLineNumbers(t *testing.T) {
	imports := parseSource(t, `"""doc"""

import first

from second import thing
`)

	if len(imports) != 2 {
		t.Fatalf("got %d imports, want 2", len(imports))
	}
	if imports[0].Line != 3 {
		t.Errorf("first import line: got %d, want 3", imports[0].Line)
	}
	if imports[1].Line != 5 {
		t.Errorf("second import line: got %d, want 5", imports[1].Line)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.py")
	if err := os.WriteFile(path, []byte("import os\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	imports, err := NewParser().ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(imports) != 1 || imports[0].Module != "os" {
		t.Errorf("got %+v, want single import of os", imports)
	}

	if _, err := NewParser().ParseFile(filepath.Join(dir, "missing.py")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSyntaxErrorsAreTolerated(t *testing.T) {
	// tree-sitter produces a best-effort tree for broken sources; imports
	// before the damage should still be visible.
	imports := parseSource(t, `import os
def broken(:
`)
	if len(imports) != 1 || imports[0].Module != "os" {
		t.Errorf("got %+v, want the import preceding the syntax error", imports)
	}
}
