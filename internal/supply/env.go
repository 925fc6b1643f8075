package supply

import "strings"

// diffEnvKeys are the variables an external diff tool inherits. Tokens such
// as GITHUB_TOKEN and repository overrides such as GIT_DIR never reach it.
var diffEnvKeys = map[string]bool{"PATH": true, "HOME": true, "LANG": true, "TMPDIR": true}

// diffEnvPinned keeps diff output stable across hosts: the C locale keeps
// "Binary files" and hunk headers untranslated, and user or system git
// config cannot install diff drivers or textconv filters.
var diffEnvPinned = []string{
	"LC_ALL=C",
	"GIT_CONFIG_NOSYSTEM=1",
	"GIT_CONFIG_GLOBAL=" + devNull,
	"GIT_PAGER=cat",
}

const devNull = "/dev/null"

// DiffEnv builds the environment for an external diff tool from environ,
// normally os.Environ(). Allowed entries keep their order and are followed
// by the pinned settings. Keys match case-sensitively and entries without
// '=' are dropped.
func DiffEnv(environ []string) []string {
	out := make([]string, 0, len(diffEnvKeys)+len(diffEnvPinned))
	for _, kv := range environ {
		if k, _, ok := strings.Cut(kv, "="); ok && diffEnvKeys[k] {
			out = append(out, kv)
		}
	}
	return append(out, diffEnvPinned...)
}
