package supply

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath_Absolute(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	bin := filepath.Join(dir, "git")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755))

	resolved, err := ResolvePath(bin)
	require.NoError(t, err)
	assert.Equal(t, bin, resolved)
}

func TestResolvePath_LookPath(t *testing.T) {
	resolved, err := ResolvePath("ls")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(resolved))
}

func TestResolvePath_NotFound(t *testing.T) {
	_, err := ResolvePath("nonexistent-binary-that-does-not-exist-12345")
	require.Error(t, err)
}

func TestContained(t *testing.T) {
	require.NoError(t, Contained("/tmp/cache/rack-3.0.0", "/tmp/cache/rack-3.0.0/lib/rack.rb"))
	require.NoError(t, Contained("/tmp/cache/", "/tmp/cache"))

	err := Contained("/tmp/cache", "/etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is outside")

	require.Error(t, Contained("/tmp/cache", "/tmp/cache-evil/x"))
}

func TestWithin(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "tmp", "extract")

	tests := []struct {
		name    string
		entry   string
		want    string
		wantErr bool
	}{
		{"plain", "lib/rack.rb", filepath.Join(root, "lib", "rack.rb"), false},
		{"dot segments", "./lib/./rack.rb", filepath.Join(root, "lib", "rack.rb"), false},
		{"backslashes", `lib\rack.rb`, filepath.Join(root, "lib", "rack.rb"), false},
		{"parent traversal", "../etc/passwd", "", true},
		{"nested traversal", "lib/../../etc/passwd", "", true},
		{"absolute", "/etc/passwd", "", true},
		{"windows traversal", `..\evil`, "", true},
		{"empty", "", "", true},
		{"root only", "./", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Within(root, tt.entry)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
