package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shibukawa/sqldoctest"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	assert.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	return path
}

func TestMatchesExtension(t *testing.T) {
	exts := []string{"md", "sql", "c", "h", "go"}

	assert.True(t, matchesExtension(exts, "docs/guide.md"))
	assert.True(t, matchesExtension(exts, "src/query.SQL"))
	assert.True(t, matchesExtension(exts, "lib/store.c"))
	assert.False(t, matchesExtension(exts, "notes.txt"))
	assert.False(t, matchesExtension(exts, "Makefile"))
}

func TestResolveSourcesWalksDirectories(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "a.md", "")
	writeFile(t, dir, "sub/b.sql", "")
	writeFile(t, dir, "sub/skip.txt", "")
	writeFile(t, dir, ".hidden/c.md", "")

	config := sqldoctest.DefaultConfig()

	sources, err := resolveSources(config, []string{dir})
	assert.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.md"),
		filepath.Join(dir, "sub", "b.sql"),
	}, sources)
}

func TestResolveSourcesWalksExplicitHiddenDirectory(t *testing.T) {
	dir := t.TempDir()

	hidden := filepath.Join(dir, ".hidden-docs")
	path := writeFile(t, hidden, "a.md", "")
	writeFile(t, hidden, ".nested/b.md", "")

	config := sqldoctest.DefaultConfig()

	sources, err := resolveSources(config, []string{hidden})
	assert.NoError(t, err)
	assert.Equal(t, []string{path}, sources)
}

func TestResolveSourcesKeepsExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "")

	config := sqldoctest.DefaultConfig()

	sources, err := resolveSources(config, []string{path})
	assert.NoError(t, err)
	assert.Equal(t, []string{path}, sources)
}

func TestResolveSourcesMissingPath(t *testing.T) {
	config := sqldoctest.DefaultConfig()

	_, err := resolveSources(config, []string{filepath.Join(t.TempDir(), "nope")})
	assert.Error(t, err)
}

func TestCollectTestFiles(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "guide.md", "# Users\n\n```sql\nSELECT 1\n```\n\n```output\n a\n---\n 1\n```\n")
	writeFile(t, dir, "empty.md", "plain prose, no tests\n")
	writeFile(t, dir, "store.c", "/*--[sql-tests]\n# Store\n\n```sql\nSELECT 2\n```\n*/\nint main(void) { return 0; }\n")

	config := sqldoctest.DefaultConfig()

	files, errs := collectTestFiles(config, []string{dir})
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, 2, len(files))

	assert.Equal(t, filepath.Join(dir, "guide.md"), files[0].Name)
	assert.Equal(t, 1, len(files[0].Tests))
	assert.Equal(t, "`Users`", files[0].Tests[0].Header)
	assert.Equal(t, [][]string{{"1"}}, files[0].Tests[0].Output)

	assert.Equal(t, filepath.Join(dir, "store.c"), files[1].Name)
	assert.Equal(t, "`Store`", files[1].Tests[0].Header)
	assert.True(t, files[1].Tests[0].IgnoreOutput)
}

func TestCollectTestFilesReportsMarkerErrors(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "bad.c", "/*--[sql-tests]\n# Dangling\n\n```sql\nSELECT 1\n```\n")

	config := sqldoctest.DefaultConfig()

	_, errs := collectTestFiles(config, []string{dir})
	assert.Equal(t, 1, len(errs))
}
