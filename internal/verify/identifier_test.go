package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		name, version string
		want          Identifier
		wantErr       bool
	}{
		{"rack", "3.0.0", Identifier{"rack", "3.0.0"}, false},
		{"rack@3.0.0", "", Identifier{"rack", "3.0.0"}, false},
		{" aws-sdk-s3 ", " 1.2.0 ", Identifier{"aws-sdk-s3", "1.2.0"}, false},
		{"rack", "", Identifier{}, true},
		{"rack@", "", Identifier{}, true},
		{"", "1.0", Identifier{}, true},
		{"../etc", "1.0", Identifier{}, true},
		{"rack", "1.0/../../x", Identifier{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name+"_"+tt.version, func(t *testing.T) {
			got, err := ParseIdentifier(tt.name, tt.version)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentifier_Format(t *testing.T) {
	id := Identifier{Name: "rack", Version: "3.0.0"}
	assert.Equal(t, "rack-3.0.0", id.String())
	assert.Equal(t, "rack@3.0.0", id.Display())
}

func TestSplitFileName(t *testing.T) {
	tests := []struct {
		in   string
		want Identifier
		ok   bool
	}{
		{"rack-3.0.0", Identifier{"rack", "3.0.0"}, true},
		{"rack-3.0.0.gem", Identifier{"rack", "3.0.0"}, true},
		{"aws-sdk-s3-1.2.0", Identifier{"aws-sdk-s3", "1.2.0"}, true},
		{"net-http", Identifier{}, false},
		{"-1.0", Identifier{}, false},
		{"plain", Identifier{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := SplitFileName(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
