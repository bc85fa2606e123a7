package registry

import (
	"archive/tar"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.trai.ch/grip/internal/core/domain"
	"go.trai.ch/zerr"
)

// PackArchive writes the package directory as a tar.gz stream with the
// recipe at the archive root. Entries are emitted in walk order, which is
// lexicographic, so packing is deterministic.
func PackArchive(dir string, w io.Writer) error {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		f, err := os.Open(path) //nolint:gosec // walking a trusted package directory
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return zerr.Wrap(err, "failed to pack archive")
	}
	if err := tw.Close(); err != nil {
		return zerr.Wrap(err, "failed to pack archive")
	}
	if err := gw.Close(); err != nil {
		return zerr.Wrap(err, "failed to pack archive")
	}
	return nil
}

// UnpackArchive extracts a tar.gz stream into dir. Entries escaping the
// target directory (absolute paths, "..") are rejected, and the archive
// must carry a recipe at its root to count as a valid package.
func UnpackArchive(r io.Reader, dir string) error {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return zerr.Wrap(err, domain.ErrInvalidArchive.Error())
	}
	defer gr.Close()

	sawRecipe := false
	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return zerr.Wrap(err, domain.ErrInvalidArchive.Error())
		}

		name := filepath.FromSlash(hdr.Name)
		if filepath.IsAbs(name) || strings.Contains(name, "..") {
			return zerr.With(domain.ErrInvalidArchive, "entry", hdr.Name)
		}
		target := filepath.Join(dir, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o750); err != nil {
				return zerr.Wrap(err, "failed to extract archive")
			}
		case tar.TypeReg:
			if name == domain.RecipeFileName {
				sawRecipe = true
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return zerr.Wrap(err, "failed to extract archive")
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, hdr.FileInfo().Mode().Perm()) //nolint:gosec // target is escape-checked above
			if err != nil {
				return zerr.Wrap(err, "failed to extract archive")
			}
			if _, err := io.Copy(f, tr); err != nil { //nolint:gosec // archives come from trusted registries
				_ = f.Close()
				return zerr.Wrap(err, "failed to extract archive")
			}
			if err := f.Close(); err != nil {
				return zerr.Wrap(err, "failed to extract archive")
			}
		default:
			// Symlinks and special files have no place in a package
			// archive.
			return zerr.With(domain.ErrInvalidArchive, "entry", hdr.Name)
		}
	}

	if !sawRecipe {
		return zerr.With(domain.ErrInvalidArchive, "reason", "archive has no recipe at its root")
	}
	return nil
}
