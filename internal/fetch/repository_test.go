package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepositoryURL(t *testing.T) {
	tests := []struct {
		url  string
		want Repository
	}{
		{"https://github.com/rack/rack", Repository{Owner: "rack", Name: "rack"}},
		{"https://github.com/rack/rack.git", Repository{Owner: "rack", Name: "rack"}},
		{"git://github.com/rack/rack.git", Repository{Owner: "rack", Name: "rack"}},
		{"git@github.com:rack/rack.git", Repository{Owner: "rack", Name: "rack"}},
		{"http://github.com/rack/rack#readme", Repository{Owner: "rack", Name: "rack"}},
		{"https://github.com/rack/rack?tab=readme", Repository{Owner: "rack", Name: "rack"}},
		{"https://github.com/rack/rack/blob/main/CHANGELOG.md", Repository{Owner: "rack", Name: "rack"}},
		{"https://github.com/rails/rails/tree/main/activesupport", Repository{Owner: "rails", Name: "rails", Subdirectory: "activesupport"}},
		{"https://github.com/aws/aws-sdk-ruby/tree/version-3/gems/aws-sdk-s3/", Repository{Owner: "aws", Name: "aws-sdk-ruby", Subdirectory: "gems/aws-sdk-s3"}},
		{"https://github.com/rails/rails/tree/main/actionpack#readme", Repository{Owner: "rails", Name: "rails", Subdirectory: "actionpack"}},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ParseRepositoryURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRepositoryURL_NotGitHub(t *testing.T) {
	_, err := ParseRepositoryURL("https://gitlab.com/a/b")
	require.Error(t, err)
}

func TestParseRepository(t *testing.T) {
	got, err := ParseRepository("rack/rack")
	require.NoError(t, err)
	assert.Equal(t, "rack/rack", got.Slug())

	got, err = ParseRepository("https://github.com/rails/rails/tree/main/activerecord")
	require.NoError(t, err)
	assert.Equal(t, "rails/rails//activerecord", got.String())

	_, err = ParseRepository("not a repo")
	require.Error(t, err)
}
