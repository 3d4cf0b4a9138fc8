// Package arch_test checks structural rules of the module: package layering,
// an I/O-free dependency core, documented exports and read-only package
// state.
package arch_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
)

const modulePath = "github.com/papapumpkin/taskmaster"

// internalDir returns the absolute path of internal/, found by walking up
// from the test's working directory to go.mod.
func internalDir(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "internal")
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found above the working directory")
		}
		dir = parent
	}
}

// internalPackages lists the directory names of internal packages that have
// non-test sources, sorted.
func internalPackages(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(internalDir(t))
	if err != nil {
		t.Fatalf("reading internal/: %v", err)
	}
	var pkgs []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "arch_test" {
			continue
		}
		if len(parsePackage(t, e.Name())) > 0 {
			pkgs = append(pkgs, e.Name())
		}
	}
	sort.Strings(pkgs)
	return pkgs
}

// sourceFile is one parsed non-test file.
type sourceFile struct {
	path string
	ast  *ast.File
}

// parsePackage parses the non-test Go files of internal/<pkg> with comments.
func parsePackage(t *testing.T, pkg string) []sourceFile {
	t.Helper()
	dir := filepath.Join(internalDir(t), pkg)
	matches, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		t.Fatalf("glob %s: %v", dir, err)
	}
	fset := token.NewFileSet()
	var files []sourceFile
	for _, path := range matches {
		if strings.HasSuffix(path, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			t.Fatalf("parsing %s: %v", path, err)
		}
		files = append(files, sourceFile{path: path, ast: f})
	}
	return files
}

// importsOf returns the sorted, de-duplicated import paths of a package.
func importsOf(t *testing.T, pkg string) []string {
	t.Helper()
	seen := make(map[string]bool)
	for _, f := range parsePackage(t, pkg) {
		for _, imp := range f.ast.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				t.Fatalf("%s: bad import %s", f.path, imp.Path.Value)
			}
			seen[path] = true
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// internalName returns the internal package name of an import path.
func internalName(path string) (string, bool) {
	return strings.CutPrefix(path, modulePath+"/internal/")
}

// rel shortens a path for messages.
func rel(path string) string {
	if i := strings.Index(path, "internal"+string(filepath.Separator)); i >= 0 {
		return path[i:]
	}
	return path
}
