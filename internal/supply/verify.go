package supply

import "fmt"

// VerifyResult holds the outcome of an artifact checksum check.
type VerifyResult struct {
	Path         string
	ComputedHash string // "sha256:..."
	Checked      bool   // false when no expected hash was published
}

// Verify hashes the downloaded artifact at path and compares it with the
// checksum published by the registry. An empty expectedHash skips the
// comparison but still reports the computed digest.
func Verify(path, expectedHash string) (*VerifyResult, error) {
	computed, err := ComputeFileHash(path)
	if err != nil {
		return nil, fmt.Errorf("supply chain: %w", err)
	}

	result := &VerifyResult{
		Path:         path,
		ComputedHash: computed,
	}

	if expectedHash == "" {
		return result, nil
	}

	expected, err := NormalizeHash(expectedHash)
	if err != nil {
		return nil, fmt.Errorf("supply chain: published checksum: %w", err)
	}
	result.Checked = true

	if computed != expected {
		return nil, fmt.Errorf("supply chain: hash mismatch for %q: expected %s, computed %s",
			path, expected, computed)
	}

	return result, nil
}
