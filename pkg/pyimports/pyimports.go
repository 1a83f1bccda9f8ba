// Package pyimports extracts Python import statements using tree-sitter.
// It performs no execution and no module resolution; it only reports the
// raw dotted names a file declares, leaving resolution to the indexer.
package pyimports

import (
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Import is one import statement found in a source file.
type Import struct {
	// Module is the dotted module reference. Relative imports keep their
	// leading dots (".sibling", "..pkg.mod", or just ".." for a bare
	// "from .. import x").
	Module string
	// Names are the imported symbols for from-imports ("*" for wildcard);
	// empty for plain "import a.b" statements.
	Names []string
	// IsFrom distinguishes "from m import x" from "import m".
	IsFrom bool
	// Line is the 1-based source line of the statement.
	Line int
}

// RelativeLevel returns the number of leading dots of the module
// reference; zero for absolute imports.
func (i Import) RelativeLevel() int {
	level := 0
	for _, ch := range i.Module {
		if ch != '.' {
			break
		}
		level++
	}
	return level
}

// Parser parses Python sources. A Parser is not safe for concurrent use;
// create one per worker.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a parser configured with the Python grammar.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{parser: p}
}

// ParseFile extracts all imports from the file at path.
func (p *Parser) ParseFile(path string) ([]Import, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return p.Parse(content)
}

// Parse extracts all imports from Python source bytes.
func (p *Parser) Parse(content []byte) ([]Import, error) {
	tree := p.parser.Parse(nil, content)
	if tree == nil {
		return nil, fmt.Errorf("parsing failed")
	}
	defer tree.Close()

	var imports []Import
	walk(tree.RootNode(), content, &imports)
	return imports, nil
}

// walk visits every node looking for import statements. Imports nested in
// functions or conditionals count the same as top-level ones: if the file
// can reach the module at all, a change to it can affect the file.
func walk(node *sitter.Node, content []byte, imports *[]Import) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "import_statement":
		*imports = append(*imports, parseImport(node, content)...)
	case "import_from_statement":
		if imp, ok := parseFromImport(node, content); ok {
			*imports = append(*imports, imp)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), content, imports)
	}
}

// parseImport handles "import a.b, c as d". Each listed module becomes
// its own Import entry.
func parseImport(node *sitter.Node, content []byte) []Import {
	line := int(node.StartPoint().Row) + 1
	var imports []Import

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		var module string
		switch child.Type() {
		case "dotted_name":
			module = nodeText(child, content)
		case "aliased_import":
			module = aliasedModule(child, content)
		}
		if module != "" {
			imports = append(imports, Import{Module: module, Line: line})
		}
	}
	return imports
}

// parseFromImport handles "from m import a, b as c" and relative forms.
func parseFromImport(node *sitter.Node, content []byte) (Import, bool) {
	imp := Import{IsFrom: true, Line: int(node.StartPoint().Row) + 1}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			// The first dotted_name is the module; the rest are names.
			text := nodeText(child, content)
			if imp.Module == "" {
				imp.Module = text
			} else {
				imp.Names = append(imp.Names, text)
			}
		case "relative_import":
			imp.Module = relativeModule(child, content)
		case "wildcard_import":
			imp.Names = append(imp.Names, "*")
		case "aliased_import":
			if name := aliasedName(child, content); name != "" {
				imp.Names = append(imp.Names, name)
			}
		}
	}

	if imp.Module == "" {
		return Import{}, false
	}
	return imp, true
}

// aliasedModule returns the original module of "m as alias"; the alias
// changes the binding but the dependency is still on m.
func aliasedModule(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == "dotted_name" {
			return nodeText(child, content)
		}
	}
	return ""
}

// aliasedName returns the original name of "x as y" inside a from-import.
func aliasedName(node *sitter.Node, content []byte) string {
	return aliasedModule(node, content)
}

// relativeModule reassembles ".." + optional dotted name.
func relativeModule(node *sitter.Node, content []byte) string {
	var prefix, module string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "import_prefix":
			prefix = nodeText(child, content)
		case "dotted_name":
			module = nodeText(child, content)
		}
	}
	return prefix + module
}

func nodeText(node *sitter.Node, content []byte) string {
	start, end := node.StartByte(), node.EndByte()
	if start >= uint32(len(content)) || end > uint32(len(content)) {
		return ""
	}
	return strings.TrimSpace(string(content[start:end]))
}
