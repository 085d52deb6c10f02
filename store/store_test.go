package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

// lxmlStore is a document as lxml pretty-prints it, stylesheet instruction included.
const lxmlStore = `<?xml-stylesheet type="text/xsl" href="style.xsl"?>
<results>
  <group>
    <i>0</i>
    <tags>normal</tags>
    <file>
      <name>blur_0.c</name>
      <return_code>0</return_code>
      <elapsed_time>12.345</elapsed_time>
      <stdout>Done: BackendVerification (at 10:00:00, duration: 00:00:07)</stdout>
      <stderr></stderr>
    </file>
    <file>
      <name>blur_1.c</name>
      <return_code>3</return_code>
      <elapsed_time>3600.2</elapsed_time>
      <stdout/>
      <stderr>timeout</stderr>
    </file>
  </group>
</results>
`

func TestOpen_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xml")

	s, err := Open(path, testLogger())
	require.NoError(t, err)
	assert.Empty(t, s.Groups())
	assert.NoFileExists(t, path, "opening must not create the file")
}

func TestOpen_ExistingDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xml")
	require.NoError(t, os.WriteFile(path, []byte(lxmlStore), 0644))

	s, err := Open(path, testLogger())
	require.NoError(t, err)
	require.Len(t, s.Groups(), 1)

	g := s.Groups()[0]
	assert.Equal(t, 0, g.Repetition)
	assert.Equal(t, "normal", g.Tag)
	require.Len(t, g.Records, 2)
	assert.Equal(t, "blur_0.c", g.Records[0].Name)
	assert.Equal(t, 0, g.Records[0].ReturnCode)
	assert.InDelta(t, 12.345, g.Records[0].ElapsedTime, 1e-9)
	assert.Equal(t, "", g.Records[1].Stdout)
	assert.Equal(t, 3, g.Records[1].ReturnCode)

	rec, ok := s.Lookup(SkipByRepetition, 0, "normal", "blur_1.c")
	require.True(t, ok)
	assert.Equal(t, "timeout", rec.Stderr)
}

func TestOpen_CorruptFileMovedAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xml")
	require.NoError(t, os.WriteFile(path, []byte("<results><group><i>0</i>"), 0644))

	s, err := Open(path, testLogger())
	require.NoError(t, err)
	assert.Empty(t, s.Groups())
	assert.NoFileExists(t, path)
	assert.FileExists(t, path+CorruptSuffix)
}

func TestOpen_CorruptFileKeepsEarlierBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xml")

	for i, content := range []string{"<results><group>", "<results><file>", "not xml at all <"} {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644), "round %d", i)
		_, err := Open(path, testLogger())
		require.NoError(t, err)
	}

	first, err := os.ReadFile(path + CorruptSuffix)
	require.NoError(t, err)
	assert.Equal(t, "<results><group>", string(first))

	second, err := os.ReadFile(path + CorruptSuffix + ".1")
	require.NoError(t, err)
	assert.Equal(t, "<results><file>", string(second))

	third, err := os.ReadFile(path + CorruptSuffix + ".2")
	require.NoError(t, err)
	assert.Equal(t, "not xml at all <", string(third))
	assert.NoFileExists(t, path)
}

func TestGroup_FindOrCreate(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "results.xml"), testLogger())
	require.NoError(t, err)

	a := s.Group(0, "normal")
	b := s.Group(0, "_non_unique")
	c := s.Group(0, "normal")
	d := s.Group(1, "normal")

	assert.Same(t, a, c)
	assert.NotSame(t, a, b)
	assert.NotSame(t, a, d)
	assert.Len(t, s.Groups(), 3)
}

func TestAppend_RewritesAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.xml")
	s, err := Open(path, testLogger())
	require.NoError(t, err)

	g := s.Group(2, "_mem")
	require.NoError(t, s.Append(g, Record{
		Name:        "conv_layer_0_mem.c",
		ReturnCode:  1,
		ElapsedTime: 42.5,
		Stdout:      "line one\nline two & <three>",
		Stderr:      "warn\x00ing\x1b",
	}))

	assert.FileExists(t, path)
	assert.NoFileExists(t, path+".tmp")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), StylesheetInstruction))

	reloaded, err := Open(path, testLogger())
	require.NoError(t, err)
	require.Len(t, reloaded.Groups(), 1)
	rec := reloaded.Groups()[0].Find("conv_layer_0_mem.c")
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.ReturnCode)
	assert.InDelta(t, 42.5, rec.ElapsedTime, 1e-9)
	assert.Equal(t, "line one\nline two & <three>", rec.Stdout)
	assert.Equal(t, "warning", rec.Stderr, "characters XML cannot carry are dropped")
	assert.Equal(t, 2, reloaded.Groups()[0].Repetition)
	assert.Equal(t, "_mem", reloaded.Groups()[0].Tag)
}

func TestLookup_Policies(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "results.xml"), testLogger())
	require.NoError(t, err)

	require.NoError(t, s.Append(s.Group(0, "normal"), Record{Name: "a.c", ReturnCode: 0}))

	// The repetition policy ignores the tag.
	_, ok := s.Lookup(SkipByRepetition, 0, "_non_unique", "a.c")
	assert.True(t, ok)

	_, ok = s.Lookup(SkipByTag, 0, "_non_unique", "a.c")
	assert.False(t, ok)
	_, ok = s.Lookup(SkipByTag, 0, "normal", "a.c")
	assert.True(t, ok)

	_, ok = s.Lookup(SkipByRepetition, 1, "normal", "a.c")
	assert.False(t, ok)
}

func TestLoad_Strict(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.xml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(bad, []byte("not xml at all <"), 0644))
	_, err = Load(bad)
	require.Error(t, err)
	assert.FileExists(t, bad, "Load never moves files")

	good := filepath.Join(dir, "good.xml")
	require.NoError(t, os.WriteFile(good, []byte(lxmlStore), 0644))
	doc, err := Load(good)
	require.NoError(t, err)
	assert.Len(t, doc.Groups[0].Records, 2)
}

func TestSkipPolicyIsValid(t *testing.T) {
	assert.True(t, SkipByRepetition.IsValid())
	assert.True(t, SkipByTag.IsValid())
	assert.False(t, SkipPolicy("bogus").IsValid())
}

func TestXMLSafe(t *testing.T) {
	assert.Equal(t, "plain", xmlSafe("plain"))
	assert.Equal(t, "tab\tnl\ncr\r", xmlSafe("tab\tnl\ncr\r"))
	assert.Equal(t, "ab", xmlSafe("a\x01\x1fb"))
	assert.Equal(t, "ünïcødé ✓", xmlSafe("ünïcødé ✓"))
}
