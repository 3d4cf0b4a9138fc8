package arch_test

import "testing"

// layers assigns each internal package to a layer. A package may import
// packages of its own layer or below.
var layers = map[string]int{
	"config":    0,
	"dag":       0,
	"taskid":    0,
	"telemetry": 0,
	"watch":     0,

	"tasks": 1,

	"depgraph": 2,
	"store":    2,

	"taskfiles": 3,
	"ui":        3,

	"manager": 4,

	"mcpserver": 5,
}

func TestDependencyLayering(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		from, ok := layers[pkg]
		if !ok {
			t.Errorf("package %s has no layer; add it to the layers map", pkg)
			continue
		}
		for _, path := range importsOf(t, pkg) {
			imp, ok := internalName(path)
			if !ok {
				continue
			}
			if to := layers[imp]; to > from {
				t.Errorf("%s (layer %d) imports %s (layer %d)", pkg, from, imp, to)
			}
		}
	}
}

func TestLayersHavePackages(t *testing.T) {
	t.Parallel()

	present := make(map[string]bool)
	for _, pkg := range internalPackages(t) {
		present[pkg] = true
	}
	for pkg := range layers {
		if !present[pkg] {
			t.Errorf("layers map names %s, which no longer exists", pkg)
		}
	}
}
