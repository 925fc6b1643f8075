package rules

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Kinds(t *testing.T) {
	rs, err := Compile([]string{"test/", "*.md", "Gemfile"}, nil)
	require.NoError(t, err)

	got := rs.Rules()
	require.Len(t, got, 3)
	assert.Equal(t, DirectoryPrefix, got[0].Kind())
	assert.Equal(t, Wildcard, got[1].Kind())
	assert.Equal(t, Exact, got[2].Kind())
}

func TestCompile_EmptyPattern(t *testing.T) {
	_, err := Compile(nil, []string{""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestCompile_BareSlash(t *testing.T) {
	_, err := Compile([]string{"/"}, nil)
	require.Error(t, err)
}

func TestMatches_DirectoryPrefix(t *testing.T) {
	rs := MustCompile([]string{"test/"}, nil)

	assert.True(t, rs.Matches("test/foo.rb"))
	assert.True(t, rs.Matches("test"))
	assert.True(t, rs.Matches("test/deep/nested/file.rb"))
	assert.False(t, rs.Matches("testing/foo.rb"))
	assert.False(t, rs.Matches("lib/test/foo.rb"))
}

func TestMatches_DirectoryPrefixCaseInsensitive(t *testing.T) {
	rs := MustCompile([]string{"Spec/"}, nil)
	assert.True(t, rs.Matches("spec/a_spec.rb"))
	assert.True(t, rs.Matches("SPEC/a_spec.rb"))
}

func TestMatches_WildcardCrossesSeparators(t *testing.T) {
	rs := MustCompile([]string{"*.md"}, nil)

	assert.True(t, rs.Matches("README.md"))
	assert.True(t, rs.Matches("docs/guide/intro.md"))
	assert.True(t, rs.Matches("CHANGES.MD"))
	assert.False(t, rs.Matches("README.markdown"))
	assert.False(t, rs.Matches("lib/md.rb"))
}

func TestMatches_WildcardAnchored(t *testing.T) {
	rs := MustCompile([]string{"dev-*.gemspec"}, nil)

	assert.True(t, rs.Matches("dev-foo.gemspec"))
	assert.False(t, rs.Matches("foo/dev-foo.gemspec.bak"))
	assert.False(t, rs.Matches("xdev-foo.gemspec"))
}

func TestMatches_WildcardLiteralMetacharacters(t *testing.T) {
	rs := MustCompile([]string{"*.txt"}, nil)

	// "." in the pattern is literal, not "any character".
	assert.False(t, rs.Matches("notes_txt"))
	assert.True(t, rs.Matches("notes.txt"))
}

func TestMatches_WildcardStarRuns(t *testing.T) {
	rs := MustCompile([]string{".yard/**/*"}, nil)

	assert.True(t, rs.Matches(".yard/templates/default/layout.erb"))
	assert.False(t, rs.Matches(".yardopts"))
}

func TestMatches_Substring(t *testing.T) {
	rs := MustCompile([]string{"*license*"}, nil)

	assert.True(t, rs.Matches("LICENSE"))
	assert.True(t, rs.Matches("MIT-LICENSE"))
	assert.True(t, rs.Matches("docs/license.html"))
}

func TestMatches_Exact(t *testing.T) {
	rs := MustCompile([]string{"Gemfile"}, nil)

	assert.True(t, rs.Matches("Gemfile"))
	assert.True(t, rs.Matches("gemfile"))
	assert.False(t, rs.Matches("Gemfile.lock"))
	assert.False(t, rs.Matches("sub/Gemfile"))
}

func TestMatches_BackslashNormalized(t *testing.T) {
	rs := MustCompile([]string{"spec/"}, nil)
	assert.True(t, rs.Matches(`spec\models\user_spec.rb`))
}

func TestMatches_NilAndEmpty(t *testing.T) {
	var rs *RuleSet
	assert.False(t, rs.Matches("anything"))

	empty := MustCompile(nil, nil)
	assert.False(t, empty.Matches("anything"))
	assert.Zero(t, empty.Len())
}

func TestMatches_OrderIndependent(t *testing.T) {
	paths := []string{"test/a.rb", "README.md", "lib/a.rb", "Gemfile", "testing/b.rb"}
	a := MustCompile([]string{"test/", "*.md", "Gemfile"}, nil)
	b := MustCompile([]string{"Gemfile", "*.md", "test/"}, nil)

	for _, p := range paths {
		assert.Equal(t, a.Matches(p), b.Matches(p), p)
	}
}

func TestCompile_ExtraAppendedAfterDefaults(t *testing.T) {
	rs := MustCompile([]string{".git/"}, []string{"generated/", ".git/"})
	assert.Equal(t, []string{".git/", "generated/", ".git/"}, rs.Patterns())
	assert.True(t, rs.Matches("generated/schema.rb"))
}

func TestDefaultSourceRules(t *testing.T) {
	rs, err := SourceRules(nil)
	require.NoError(t, err)

	ignored := []string{
		".github/workflows/ci.yml",
		"Gemfile",
		"Gemfile.lock",
		"Rakefile",
		"spec/foo_spec.rb",
		"test/test_helper.rb",
		"README.md",
		"LICENSE.txt",
		"MIT-LICENSE",
		".env.production",
		"gemfiles/rails_7.gemfile",
		"foo-java.gemspec",
		"coverage/index.html",
		".DS_Store",
	}
	for _, p := range ignored {
		assert.True(t, rs.Matches(p), p)
	}

	kept := []string{
		"lib/foo.rb",
		"lib/foo/version.rb",
		"foo.gemspec",
		"ext/foo/extconf.rb",
	}
	for _, p := range kept {
		assert.False(t, rs.Matches(p), p)
	}
}

func TestDefaultArtifactRules(t *testing.T) {
	rs, err := ArtifactRules([]string{"checksums.yaml.gz"})
	require.NoError(t, err)

	assert.True(t, rs.Matches(".git/HEAD"))
	assert.True(t, rs.Matches("checksums.yaml.gz"))
	assert.False(t, rs.Matches("README.md"))
	assert.False(t, rs.Matches("spec/foo_spec.rb"))
}

func TestRuleSet_ConcurrentReads(t *testing.T) {
	rs, err := SourceRules(nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.True(t, rs.Matches("spec/a_spec.rb"))
				assert.False(t, rs.Matches("lib/a.rb"))
			}
		}()
	}
	wg.Wait()
}
