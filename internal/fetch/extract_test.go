package fetch

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	b, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(b)
}

func TestExtractGem(t *testing.T) {
	fs := afero.NewMemMapFs()
	gem := gemBytes(t, []entry{
		{name: "lib", dir: true},
		{name: "lib/rack.rb", content: "module Rack; end\n"},
		{name: "lib/rack/version.rb", content: "VERSION = '3.0.0'\n"},
		{name: "lib/link.rb", link: "rack.rb"},
	})

	require.NoError(t, ExtractGem(fs, bytes.NewReader(gem), "/out"))

	assert.Equal(t, "module Rack; end\n", readFile(t, fs, "/out/lib/rack.rb"))
	assert.Equal(t, "VERSION = '3.0.0'\n", readFile(t, fs, "/out/lib/rack/version.rb"))
	exists, err := afero.Exists(fs, "/out/lib/link.rb")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = afero.Exists(fs, "/out/metadata.gz")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExtractGem_GzippedOuterArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	gem := gzipBytes(t, gemBytes(t, []entry{{name: "a.rb", content: "a"}}))

	require.NoError(t, ExtractGem(fs, bytes.NewReader(gem), "/out"))
	assert.Equal(t, "a", readFile(t, fs, "/out/a.rb"))
}

func TestExtractGem_MissingData(t *testing.T) {
	gem := tarBytes(t, []entry{{name: "metadata.gz", content: "x"}})
	err := ExtractGem(afero.NewMemMapFs(), bytes.NewReader(gem), "/out")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data.tar.gz")
}

func TestExtractGem_RejectsTraversal(t *testing.T) {
	fs := afero.NewMemMapFs()
	gem := gemBytes(t, []entry{{name: "../../etc/cron.d/evil", content: "x"}})

	err := ExtractGem(fs, bytes.NewReader(gem), "/out")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
	exists, _ := afero.Exists(fs, "/etc/cron.d/evil")
	assert.False(t, exists)
}

func TestExtractZip_StripsTopLevel(t *testing.T) {
	fs := afero.NewMemMapFs()
	zr := zipReader(t, zipBytes(t, []entry{
		{name: "rack-3.0.0/", dir: true},
		{name: "rack-3.0.0/lib/rack.rb", content: "rack"},
		{name: "rack-3.0.0/.gitignore", content: "tmp"},
	}))

	require.NoError(t, ExtractZip(fs, zr, "/src", ""))
	assert.Equal(t, "rack", readFile(t, fs, "/src/lib/rack.rb"))
	assert.Equal(t, "tmp", readFile(t, fs, "/src/.gitignore"))
}

func TestExtractZip_NoCommonTopLevel(t *testing.T) {
	fs := afero.NewMemMapFs()
	zr := zipReader(t, zipBytes(t, []entry{
		{name: "a/x.rb", content: "x"},
		{name: "b/y.rb", content: "y"},
	}))

	require.NoError(t, ExtractZip(fs, zr, "/src", ""))
	assert.Equal(t, "x", readFile(t, fs, "/src/a/x.rb"))
	assert.Equal(t, "y", readFile(t, fs, "/src/b/y.rb"))
}

func TestExtractZip_Subdirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	zr := zipReader(t, zipBytes(t, []entry{
		{name: "mono-1.0/README.md", content: "root"},
		{name: "mono-1.0/gems/foo/lib/foo.rb", content: "foo"},
		{name: "mono-1.0/gems/foobar/lib/foobar.rb", content: "foobar"},
		{name: "mono-1.0/gems/bar/lib/bar.rb", content: "bar"},
	}))

	require.NoError(t, ExtractZip(fs, zr, "/src", "gems/foo/"))
	assert.Equal(t, "foo", readFile(t, fs, "/src/lib/foo.rb"))
	for _, p := range []string{"/src/README.md", "/src/lib/bar.rb", "/src/lib/foobar.rb"} {
		exists, err := afero.Exists(fs, p)
		require.NoError(t, err)
		assert.False(t, exists, p)
	}
}

func TestExtractZip_RejectsTraversal(t *testing.T) {
	zr := zipReader(t, zipBytes(t, []entry{
		{name: "top/ok.rb", content: "ok"},
		{name: "top/../../evil.rb", content: "evil"},
	}))
	require.Error(t, ExtractZip(afero.NewMemMapFs(), zr, "/src", ""))
}
