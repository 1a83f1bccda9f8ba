package indexer

import (
	"path/filepath"
	"strings"
)

// NamingRules decides which source files are test modules.
type NamingRules struct {
	// DirectoryMarkers are directory names that mark their contents as
	// test territory ("tests").
	DirectoryMarkers []string `yaml:"directory-markers"`
	// FilePrefixes are filename prefixes identifying tests ("test_").
	FilePrefixes []string `yaml:"filename-prefixes"`
	// FileSuffixes are filename suffixes identifying tests ("_test.py").
	FileSuffixes []string `yaml:"filename-suffixes"`
}

// DefaultNamingRules returns the pytest conventions.
func DefaultNamingRules() NamingRules {
	return NamingRules{
		DirectoryMarkers: []string{"tests"},
		FilePrefixes:     []string{"test_"},
		FileSuffixes:     []string{"_test.py"},
	}
}

// IsTest reports whether the root-relative path names a test module.
// Inside a marked directory either a prefix or a suffix match counts;
// outside, a prefix needs a recognized extension while a suffix match
// is sufficient on its own (the suffix already carries the extension).
func (n NamingRules) IsTest(relPath string, suffixes []string) bool {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	name := parts[len(parts)-1]

	inMarkedDir := false
	for _, dir := range parts[:len(parts)-1] {
		for _, marker := range n.DirectoryMarkers {
			if dir == marker {
				inMarkedDir = true
			}
		}
	}

	hasPrefix := false
	for _, prefix := range n.FilePrefixes {
		if strings.HasPrefix(name, prefix) {
			hasPrefix = true
		}
	}
	hasSuffix := false
	for _, suffix := range n.FileSuffixes {
		if strings.HasSuffix(name, suffix) {
			hasSuffix = true
		}
	}
	extensionOK := len(suffixes) == 0
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			extensionOK = true
		}
	}

	if inMarkedDir {
		return (hasPrefix || hasSuffix) && extensionOK
	}
	return (hasPrefix && extensionOK) || hasSuffix
}
