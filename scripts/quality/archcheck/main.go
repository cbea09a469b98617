package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePrefix = "ex-wechaty/"

type listedPackage struct {
	ImportPath   string
	Imports      []string
	TestImports  []string
	XTestImports []string
}

func main() {
	packages, err := listPackages()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "arch-check: %v\n", err)
		os.Exit(2)
	}

	violations := collectViolations(packages)
	if len(violations) == 0 {
		_, _ = fmt.Fprintf(os.Stdout, "arch-check: passed\n")
		return
	}

	_, _ = fmt.Fprintf(os.Stdout, "arch-check: architecture violations:\n")
	for _, violation := range violations {
		_, _ = fmt.Fprintf(os.Stdout, "  - %s\n", violation)
	}
	os.Exit(1)
}

func listPackages() ([]listedPackage, error) {
	cmd := exec.Command("go", "list", "-json", "-test", "./...")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("go list -json -test ./...: %w", err)
	}

	return decodePackages(&stdout)
}

// decodePackages reads the concatenated JSON objects printed by go list.
func decodePackages(r io.Reader) ([]listedPackage, error) {
	decoder := json.NewDecoder(r)
	result := make([]listedPackage, 0, 64)
	for {
		var pkg listedPackage
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode go list output: %w", err)
		}
		// -test also lists recompiled variants and test mains; their
		// imports are covered by the base package's test import lists.
		if pkg.ImportPath == "" || strings.Contains(pkg.ImportPath, " [") ||
			strings.HasSuffix(pkg.ImportPath, ".test") {
			continue
		}
		result = append(result, pkg)
	}

	return result, nil
}

// layerRule forbids packages under from importing packages under to.
// except carves a subtree out of to; testExempt stays reachable from tests.
type layerRule struct {
	from       []string
	to         string
	except     string
	testExempt string
	reason     string
}

var layerRules = []layerRule{
	{
		from:   []string{"pkg/puppet"},
		to:     "",
		except: "pkg/puppet",
		reason: "pkg/puppet must not import other packages of the module",
	},
	{
		from:   []string{"internal/kernel"},
		to:     "internal/driver",
		reason: "internal/kernel must not import internal/driver/*",
	},
	{
		from:   []string{"internal/cache", "internal/query"},
		to:     "internal/kernel",
		reason: "internal/cache and internal/query must not import internal/kernel",
	},
	{
		from:   []string{"internal/driver"},
		to:     "pkg/wechaty",
		reason: "internal/driver/* must not import pkg/wechaty",
	},
	{
		from:       []string{"modules/"},
		to:         "internal/",
		testExempt: "internal/driver/mock",
		reason:     "modules/* must not import internal/*",
	},
}

func collectViolations(packages []listedPackage) []string {
	found := make(map[string]struct{})
	add := func(importer string, imports []string, test bool) {
		for _, imported := range imports {
			if reason := violationReason(importer, imported, test); reason != "" {
				found[fmt.Sprintf("%s -> %s (%s)", importer, imported, reason)] = struct{}{}
			}
		}
	}

	for _, pkg := range packages {
		add(pkg.ImportPath, pkg.Imports, false)
		add(pkg.ImportPath, pkg.TestImports, true)
		add(pkg.ImportPath, pkg.XTestImports, true)
	}

	violations := make([]string, 0, len(found))
	for violation := range found {
		violations = append(violations, violation)
	}
	sort.Strings(violations)

	return violations
}

// violationReason returns the first layer rule broken when importer imports
// imported, or "" when the edge is allowed.
func violationReason(importer, imported string, test bool) string {
	importerPath, ok := strings.CutPrefix(importer, modulePrefix)
	if !ok {
		return ""
	}
	importedPath, ok := strings.CutPrefix(imported, modulePrefix)
	if !ok {
		return ""
	}

	for _, rule := range layerRules {
		if !rule.applies(importerPath) || !strings.HasPrefix(importedPath, rule.to) {
			continue
		}
		if rule.except != "" && strings.HasPrefix(importedPath, rule.except) {
			continue
		}
		if test && rule.testExempt != "" && strings.HasPrefix(importedPath, rule.testExempt) {
			continue
		}
		return rule.reason
	}

	return ""
}

func (r layerRule) applies(importerPath string) bool {
	for _, prefix := range r.from {
		if strings.HasPrefix(importerPath, prefix) {
			return true
		}
	}

	return false
}
