package fetch

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/benedictfischer09/sourcecode-verifier/internal/supply"
)

// gemDataEntry is the member of a .gem archive holding the installed files.
const gemDataEntry = "data.tar.gz"

// errNoGemData is returned when a .gem archive has no data member.
var errNoGemData = errors.New("could not find " + gemDataEntry + " in gem file")

// ExtractGem unpacks the data member of a .gem archive read from r into
// dest. The outer archive may be a plain or gzip-compressed tar.
func ExtractGem(fs afero.Fs, r io.Reader, dest string) error {
	outer, err := maybeGunzip(r)
	if err != nil {
		return fmt.Errorf("reading gem archive: %w", err)
	}

	tr := tar.NewReader(outer)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return errNoGemData
		}
		if err != nil {
			return fmt.Errorf("reading gem archive: %w", err)
		}
		if hdr.Name != gemDataEntry {
			continue
		}

		gz, err := gzip.NewReader(tr)
		if err != nil {
			return fmt.Errorf("opening %s: %w", gemDataEntry, err)
		}
		defer gz.Close()
		return extractTar(fs, tar.NewReader(gz), dest)
	}
}

func maybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		return gzip.NewReader(br)
	}
	return br, nil
}

// extractTar writes regular files and directories of tr below dest. Links
// and special files are skipped.
func extractTar(fs afero.Fs, tr *tar.Reader, dest string) error {
	if err := fs.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("creating %q: %w", dest, err)
	}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			target, err := supply.Within(dest, hdr.Name)
			if err != nil {
				return err
			}
			if err := fs.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating %q: %w", target, err)
			}
		case tar.TypeReg:
			target, err := supply.Within(dest, hdr.Name)
			if err != nil {
				return err
			}
			if err := writeFile(fs, target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		}
	}
}

// ExtractZip unpacks a source archive into dest. When every entry shares one
// top-level directory it is stripped. A non-empty subdir keeps only entries
// below that directory, re-rooted at dest.
func ExtractZip(fs afero.Fs, zr *zip.Reader, dest, subdir string) error {
	if err := fs.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("creating %q: %w", dest, err)
	}

	top := commonTopLevel(zr.File)
	subdir = strings.Trim(filepath.ToSlash(subdir), "/")

	for _, f := range zr.File {
		rel := f.Name
		if top != "" {
			rel = strings.TrimPrefix(rel, top+"/")
			if rel == f.Name || rel == "" {
				continue
			}
		}
		if subdir != "" {
			trimmed, ok := strings.CutPrefix(rel, subdir+"/")
			if !ok || trimmed == "" {
				continue
			}
			rel = trimmed
		}

		target, err := supply.Within(dest, rel)
		if err != nil {
			return err
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := fs.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating %q: %w", target, err)
			}
		case mode.IsRegular():
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("opening %q: %w", f.Name, err)
			}
			err = writeFile(fs, target, rc, mode.Perm())
			rc.Close()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func commonTopLevel(files []*zip.File) string {
	top := ""
	for _, f := range files {
		first, _, found := strings.Cut(f.Name, "/")
		if !found {
			return ""
		}
		if top == "" {
			top = first
		} else if first != top {
			return ""
		}
	}
	return top
}

func writeFile(fs afero.Fs, target string, r io.Reader, perm os.FileMode) error {
	if perm == 0 {
		perm = 0o644
	}
	if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating %q: %w", filepath.Dir(target), err)
	}
	f, err := fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating %q: %w", target, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("writing %q: %w", target, err)
	}
	return f.Close()
}
