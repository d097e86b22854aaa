package ruleset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlRules = `version: "1"
name: demo
sections:
  - name: Files
    rules:
      - id: files.manifest
        check: exists
        resources: ["file:manifest.json"]
      - id: manifest.version
        check: json_equals
        resources: ["json:manifest.json"]
        pointer: /manifest_version
        value: 3
        severity: warning
`

const jsonRules = `{
  "version": "1",
  "name": "demo-json",
  "sections": [{
    "name": "Scripts",
    "rules": [{
      "id": "js.popup",
      "check": "contains_any",
      "values": ["chrome.", "browser."],
      "resources": ["text:popup.js"]
    }]
  }]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestParse_YAML(t *testing.T) {
	f, err := Parse([]byte(yamlRules), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "demo", f.Name)
	require.Len(t, f.Sections, 1)
	require.Len(t, f.Sections[0].Rules, 2)

	r := f.Sections[0].Rules[1]
	assert.Equal(t, "manifest.version", r.ID)
	assert.Equal(t, "/manifest_version", r.Pointer)
	assert.Equal(t, 3, r.Value)
	assert.Equal(t, "warning", r.Severity)
	assert.Equal(t, []string{"json:manifest.json"}, r.Resources)
}

func TestParse_JSON(t *testing.T) {
	f, err := Parse([]byte(jsonRules), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "demo-json", f.Name)
	assert.Equal(t, []any{"chrome.", "browser."},
		f.Sections[0].Rules[0].Values)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte(`version: "1"
sections:
  - name: x
    rules:
      - id: a
        chek: exists
`), FormatYAML)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chek")

	_, err = Parse([]byte(`{"version": "1", "bogus": true}`), FormatJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(nil, FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, f.Sections)

	_, err = Parse(nil, Format("toml"))
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromPath("rules/a.JSON"))
	assert.Equal(t, FormatYAML, FormatFromPath("rules/a.yml"))
	assert.Equal(t, FormatYAML, FormatFromPath("rules/a"))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "rules.yaml", yamlRules)

	f, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "demo", f.Name)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read rule file")

	bad := writeFile(t, dir, "bad.json", `{"version":`)
	_, err = LoadFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.json")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", yamlRules)
	writeFile(t, dir, "b.json", jsonRules)
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	files, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "demo", files[0].Name)
	assert.Equal(t, "demo-json", files[1].Name)

	_, err = LoadDir(filepath.Join(dir, "nope"))
	assert.Error(t, err)
}

func TestLoadPaths(t *testing.T) {
	dir := t.TempDir()
	rulesDir := filepath.Join(dir, "rules.d")
	require.NoError(t, os.Mkdir(rulesDir, 0o755))
	writeFile(t, rulesDir, "b.json", jsonRules)
	single := writeFile(t, dir, "main.yaml", yamlRules)

	f, err := LoadPaths(single, rulesDir)
	require.NoError(t, err)
	assert.Equal(t, "demo", f.Name)
	require.Len(t, f.Sections, 2)
	assert.Equal(t, "Files", f.Sections[0].Name)
	assert.Equal(t, "Scripts", f.Sections[1].Name)

	_, err = LoadPaths(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))
	_, err = LoadPaths(empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rule files")
}
