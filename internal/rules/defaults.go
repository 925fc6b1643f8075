package rules

// DefaultArtifactPatterns excludes version-control metadata only; published
// artifacts rarely carry anything else that is not meant to be compared.
var DefaultArtifactPatterns = []string{
	".git/",
}

// DefaultSourcePatterns lists files conventionally present in a source
// checkout but left out of a published gem.
var DefaultSourcePatterns = []string{
	// version control
	".git/",
	".gitignore",
	".gitattributes",
	".gitmodules",

	// CI
	".github/",
	".circleci/",

	// development tooling
	"Gemfile",
	"Gemfile.lock",
	"Rakefile",
	"Guardfile",
	".rspec",

	"CHANGELOG.rst",

	// development-only gemspec variants
	"*-java.gemspec",
	"*_pure.gemspec",
	"*-dev.gemspec",
	"dev-*.gemspec",

	// development directories
	"bin/",
	"script/",
	"scripts/",
	"exe/",
	"test/",
	"tests/",
	"spec/",
	"specs/",
	"features/",
	"benchmark/",
	"benchmarks/",
	"example/",
	"examples/",
	"sample/",
	"samples/",
	"demo/",
	"demos/",
	"doc/",
	"docs/",

	// build output
	"pkg/",
	"vendor/",
	"coverage/",
	"tmp/",
	"log/",
	"logs/",

	// editors and OS files
	".vscode/",
	".idea/",
	"*.swp",
	"*.swo",
	".DS_Store",
	"Thumbs.db",

	"node_modules/",
	".bundle/",
	".yardoc/",

	// environment and containers
	".env",
	".env.*",
	"Dockerfile",
	".dockerignore",
	"Vagrantfile",

	".simplecov",
	".yardopts",
	".yard/**/*",

	// Bundler gemfiles for dependency matrices
	"gemfiles/",
	"gemfiles/**/*",

	// documentation and config by extension
	"*.md",
	"*.txt",
	"*.yml",
	"*.yaml",

	"*license*",
	"*licence*",
}

// ArtifactRules compiles the artifact-side defaults plus extra patterns.
func ArtifactRules(extra []string) (*RuleSet, error) {
	return Compile(DefaultArtifactPatterns, extra)
}

// SourceRules compiles the source-side defaults plus extra patterns.
func SourceRules(extra []string) (*RuleSet, error) {
	return Compile(DefaultSourcePatterns, extra)
}

// DisplayRules compiles the set used to hide packaging noise when listing
// files in reports. It starts from the source catalogue.
func DisplayRules(extra []string) (*RuleSet, error) {
	return Compile(DefaultSourcePatterns, extra)
}
