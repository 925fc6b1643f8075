package tags

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_ExactBeatsPrefixed(t *testing.T) {
	tag, err := Resolve("mygem", "1.0.0", []string{"mygem-1.0.0", "1.0.0"})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", tag.Name)
	assert.Equal(t, Exact, tag.Strategy)
	assert.Equal(t, "1.0.0", tag.Candidate)
}

func TestResolve_VPrefixBeatsReleaseSuffix(t *testing.T) {
	tag, err := Resolve("mygem", "2.3.1", []string{"2.3.1-release", "v2.3.1"})
	require.NoError(t, err)
	assert.Equal(t, "v2.3.1", tag.Name)
}

func TestResolve_ExactCandidateOrder(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want string
	}{
		{"plain", []string{"1.2.0"}, "1.2.0"},
		{"v prefix", []string{"v1.2.0"}, "v1.2.0"},
		{"project dash", []string{"foo_1.2.0", "foo-1.2.0"}, "foo-1.2.0"},
		{"project underscore", []string{"foo/1.2.0", "foo_1.2.0"}, "foo_1.2.0"},
		{"project slash", []string{"release-1.2.0", "foo/1.2.0"}, "foo/1.2.0"},
		{"release prefix", []string{"1.2.0-release", "release-1.2.0"}, "release-1.2.0"},
		{"release suffix", []string{"1.2.0-release"}, "1.2.0-release"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, err := Resolve("foo", "1.2.0", tt.tags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tag.Name)
			assert.Equal(t, Exact, tag.Strategy)
		})
	}
}

func TestResolve_PatternFallbacks(t *testing.T) {
	tests := []struct {
		name      string
		tags      []string
		want      string
		candidate string
	}{
		{"project v prefix", []string{"foo-v1.2.0"}, "foo-v1.2.0", `^foo[-_]?v?1\.2\.0$`},
		{"project no separator", []string{"foov1.2.0"}, "foov1.2.0", `^foo[-_]?v?1\.2\.0$`},
		{"version suffix", []string{"v1.2.0-final"}, "v1.2.0-final", `^v?1\.2\.0[-_].*$`},
		{"other prefix", []string{"bar-1.2.0"}, "bar-1.2.0", `.*[-_]v?1\.2\.0$`},
		{"non digit follows", []string{"1.2.0.rc1"}, "1.2.0.rc1", `^v?1\.2\.0[^0-9]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, err := Resolve("foo", "1.2.0", tt.tags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tag.Name)
			assert.Equal(t, Pattern, tag.Strategy)
			assert.Equal(t, tt.candidate, tag.Candidate)
		})
	}
}

func TestResolve_PatternDoesNotMatchLongerVersion(t *testing.T) {
	_, err := Resolve("foo", "1.2.0", []string{"1.2.01", "v1.2.00"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTagNotFound))
}

func TestResolve_EarlierPatternPreferred(t *testing.T) {
	// Both tags match a pattern; the project pattern comes before the
	// version-suffix pattern even though its tag is listed later.
	tag, err := Resolve("foo", "1.2.0", []string{"1.2.0-beta", "foo-v1.2.0"})
	require.NoError(t, err)
	assert.Equal(t, "foo-v1.2.0", tag.Name)
}

func TestResolve_FirstInInputOrderWithinPattern(t *testing.T) {
	tag, err := Resolve("foo", "1.2.0", []string{"1.2.0-b", "1.2.0-a"})
	require.NoError(t, err)
	assert.Equal(t, "1.2.0-b", tag.Name)
}

func TestResolve_VersionMetacharactersAreLiteral(t *testing.T) {
	// "." must not match "x".
	_, err := Resolve("foo", "1.2.0", []string{"1x2x0"})
	require.Error(t, err)

	_, err = Resolve("foo", "1.*", []string{"1.2.3-final"})
	require.Error(t, err)

	tag, err := Resolve("foo", "1.0+build", []string{"v1.0+build"})
	require.NoError(t, err)
	assert.Equal(t, "v1.0+build", tag.Name)
}

func TestResolve_UncompilableProjectSkipsProjectPattern(t *testing.T) {
	tag, err := Resolve("foo(", "1.2.0", []string{"x-1.2.0"})
	require.NoError(t, err)
	assert.Equal(t, "x-1.2.0", tag.Name)
}

func TestResolve_Deterministic(t *testing.T) {
	tagList := []string{"v0.9.0", "foo-1.0.0-rc", "release-1.0.0", "1.0.0-release"}
	first, err := Resolve("foo", "1.0.0", tagList)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Resolve("foo", "1.0.0", tagList)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolve_NotFoundSampleCapped(t *testing.T) {
	var many []string
	for i := 0; i < 30; i++ {
		many = append(many, fmt.Sprintf("0.0.%d", i))
	}

	_, err := Resolve("foo", "9.9.9", many)
	require.Error(t, err)

	var nf *TagNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Len(t, nf.Sample, 20)
	assert.Equal(t, 30, nf.Total)
	assert.Equal(t, "9.9.9", nf.Version)
	assert.Equal(t, "foo", nf.Project)
	assert.Contains(t, err.Error(), "0.0.19...")
	assert.NotContains(t, err.Error(), "0.0.20")
}

func TestResolve_NotFoundShortList(t *testing.T) {
	_, err := Resolve("foo", "2.0.0", []string{"v1.0.0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available tags: v1.0.0")
	assert.NotContains(t, err.Error(), "...")
}

func TestResolve_EmptyVersion(t *testing.T) {
	_, err := Resolve("foo", "", []string{"v1.0.0"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTagNotFound))
}

func TestCascade_Order(t *testing.T) {
	got := Cascade("foo", "1.0")
	require.Len(t, got, 12)
	assert.Equal(t, "exact 1.0", got[0])
	assert.Equal(t, "exact v1.0", got[1])
	assert.Equal(t, "exact 1.0-release", got[6])
	assert.Equal(t, `pattern ^v?1\.0$`, got[7])
	assert.Equal(t, `pattern ^v?1\.0[^0-9]`, got[11])
}
