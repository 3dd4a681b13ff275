// Package storefront_test enforces project-level structural invariants that
// unit tests cannot catch: packages nothing imports and schema tables no
// store reads.
//
// Run: go test -run 'TestNoDeadPackages|TestMigrationTablesHaveConsumers' .
package storefront_test

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modulePath = "github.com/txn2/storefront"

// goFiles returns the Go files under root, split by test and non-test.
func goFiles(t *testing.T, root string) (src, tests []string) {
	t.Helper()
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "_") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		if strings.HasSuffix(path, "_test.go") {
			tests = append(tests, path)
		} else {
			src = append(src, path)
		}
		return nil
	})
	require.NoError(t, err)
	return src, tests
}

func importPathOf(t *testing.T, root, file string) string {
	t.Helper()
	rel, err := filepath.Rel(root, filepath.Dir(file))
	require.NoError(t, err)
	return modulePath + "/" + filepath.ToSlash(rel)
}

// importedBy collects the module packages imported by files.
func importedBy(t *testing.T, files []string) map[string]bool {
	t.Helper()
	importRe := regexp.MustCompile(`"(` + regexp.QuoteMeta(modulePath) + `/[^"]+)"`)
	imported := map[string]bool{}
	for _, f := range files {
		content, err := os.ReadFile(f) //nolint:gosec // test reads source files
		require.NoError(t, err)
		for _, m := range importRe.FindAllStringSubmatch(string(content), -1) {
			imported[m[1]] = true
		}
	}
	return imported
}

// TestNoDeadPackages verifies that every library package under pkg/ and
// internal/ is imported by non-test code. Test helpers under
// internal/testutil only need a test importer.
func TestNoDeadPackages(t *testing.T) {
	root, err := filepath.Abs(".")
	require.NoError(t, err)

	var src, tests []string
	for _, dir := range []string{"pkg", "internal", "cmd"} {
		s, ts := goFiles(t, filepath.Join(root, dir))
		src = append(src, s...)
		tests = append(tests, ts...)
	}

	bySource := importedBy(t, src)
	byTests := importedBy(t, tests)

	packages := map[string]bool{}
	for _, f := range src {
		if strings.HasPrefix(f, filepath.Join(root, "cmd")+string(filepath.Separator)) {
			continue
		}
		packages[importPathOf(t, root, f)] = true
	}
	require.NotEmpty(t, packages)

	for pkg := range packages {
		if strings.Contains(pkg, "/internal/testutil/") {
			assert.True(t, byTests[pkg], "test helper %q is never used", pkg)
			continue
		}
		assert.True(t, bySource[pkg],
			"package %q is never imported by non-test code. Wire it in or delete it.", pkg)
	}
}

// TestMigrationTablesHaveConsumers verifies that every table created by a
// migration is named in non-test code outside the migrate package.
func TestMigrationTablesHaveConsumers(t *testing.T) {
	root, err := filepath.Abs(".")
	require.NoError(t, err)

	ups, err := filepath.Glob(filepath.Join(root, "pkg", "database", "migrate", "migrations", "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, ups)

	createRe := regexp.MustCompile(`(?i)CREATE TABLE (?:IF NOT EXISTS )?(\w+)`)
	var tables []string
	for _, f := range ups {
		content, err := os.ReadFile(f) //nolint:gosec // test reads migration files
		require.NoError(t, err)
		for _, m := range createRe.FindAllStringSubmatch(string(content), -1) {
			tables = append(tables, m[1])
		}
	}
	require.NotEmpty(t, tables)

	src, _ := goFiles(t, filepath.Join(root, "pkg"))
	var corpus strings.Builder
	for _, f := range src {
		if strings.Contains(f, filepath.Join("database", "migrate")) {
			continue
		}
		content, err := os.ReadFile(f) //nolint:gosec // test reads source files
		require.NoError(t, err)
		corpus.Write(content)
	}

	for _, table := range tables {
		assert.Contains(t, corpus.String(), fmt.Sprintf("%q", table),
			"table %q is created by a migration but no store names it", table)
	}
}
