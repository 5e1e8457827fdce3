package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"golang.org/x/sys/unix"
)

// Write creates a tar.xz at out from entries. Entries are deduplicated and
// sorted, and every header carries mtime and root ownership so that the same
// inputs produce the same archive. It returns the bundle size.
func Write(out string, entries []Entry, mtime time.Time) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(out), dirMode); err != nil {
		return 0, err
	}
	tmp := out + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	if err := writeEntries(f, entries, mtime); err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("write %s: %w", filepath.Base(out), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, out); err != nil {
		return 0, err
	}
	info, err := os.Stat(out)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func writeEntries(w io.Writer, entries []Entry, mtime time.Time) error {
	byName := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byName[strings.TrimSuffix(e.Name, "/")] = e
	}
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	xw, err := xz.NewWriter(w)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(xw)
	for _, name := range names {
		e := byName[name]
		hdr := &tar.Header{
			Name:    name,
			Mode:    int64(e.Mode.Perm()),
			ModTime: mtime,
			Format:  tar.FormatPAX,
		}
		if e.Dir {
			hdr.Typeflag = tar.TypeDir
			hdr.Name += "/"
			if err := tw.WriteHeader(hdr); err != nil {
				return err
			}
			continue
		}
		data := e.Data
		if data == nil {
			if data, err = os.ReadFile(e.Source); err != nil {
				return err
			}
		}
		hdr.Typeflag = tar.TypeReg
		hdr.Size = int64(len(data))
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(data); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return xw.Close()
}

func (s *service) Extract(bundle, dest string) ([]string, error) {
	f, err := os.Open(bundle)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	xr, err := xz.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(bundle), err)
	}
	tr := tar.NewReader(xr)
	if err := os.MkdirAll(dest, dirMode); err != nil {
		return nil, err
	}

	var written []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, fmt.Errorf("read %s: %w", filepath.Base(bundle), err)
		}
		name := path.Clean(strings.TrimSuffix(hdr.Name, "/"))
		if err := checkName(name); err != nil {
			return written, err
		}
		target := filepath.Join(dest, filepath.FromSlash(name))
		mode := os.FileMode(hdr.Mode).Perm()

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := ensureDir(dest, name, mode); err != nil {
				return written, err
			}
		case tar.TypeReg:
			if dir := path.Dir(name); dir != "." {
				if err := ensureDir(dest, dir, dirMode); err != nil {
					return written, err
				}
			}
			if err := extractFile(tr, target, mode); err != nil {
				return written, err
			}
			written = append(written, target)
		default:
			return written, fmt.Errorf("%w: unsupported entry type %q for %s", ErrUnsafePath, hdr.Typeflag, name)
		}
	}
}

// ensureDir creates rel under dest one component at a time and refuses to
// descend through symlinks, since the tree may be owned by the service account.
func ensureDir(dest, rel string, mode os.FileMode) error {
	cur := dest
	for _, part := range strings.Split(rel, "/") {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if err := os.Mkdir(cur, mode); err != nil {
				return err
			}
		case err != nil:
			return err
		case info.Mode()&os.ModeSymlink != 0:
			return fmt.Errorf("%w: %s is a symlink", ErrUnsafePath, cur)
		case !info.IsDir():
			return fmt.Errorf("%w: %s is not a directory", ErrUnsafePath, cur)
		}
	}
	return nil
}

// extractFile replaces target with a fresh file. Whatever was there before,
// including a symlink, is unlinked rather than written through.
func extractFile(r io.Reader, target string, mode os.FileMode) error {
	if info, err := os.Lstat(target); err == nil {
		if info.IsDir() {
			return fmt.Errorf("%w: %s is a directory", ErrUnsafePath, target)
		}
		if err := os.Remove(target); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY|unix.O_NOFOLLOW, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	// OpenFile honours umask; pin the recorded mode on the open descriptor.
	if err := out.Chmod(mode); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
