// Package archive produces timestamped, exclusion-filtered tar.gz snapshots
// of a working tree.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Sentinel kinds for archiver failures.
var (
	ErrArchiveWrite = errors.New("archive write failed")
	ErrDestination  = errors.New("backup destination unavailable")
)

// ArchiveWriteError reports that the archive file could not be created or
// written (disk full, permission denied, unreadable source file).
type ArchiveWriteError struct {
	Path string
	Err  error
}

func (e *ArchiveWriteError) Error() string {
	return fmt.Sprintf("writing archive %q: %v", e.Path, e.Err)
}

func (e *ArchiveWriteError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrArchiveWrite) hold alongside the wrapped cause.
func (e *ArchiveWriteError) Is(target error) bool { return target == ErrArchiveWrite }

// DestinationError reports that the backup directory could not be created
// or the finished archive could not be moved into it.
type DestinationError struct {
	Dir string
	Err error
}

func (e *DestinationError) Error() string {
	return fmt.Sprintf("backup destination %q: %v", e.Dir, e.Err)
}

func (e *DestinationError) Unwrap() error { return e.Err }

func (e *DestinationError) Is(target error) bool { return target == ErrDestination }

// timestampLayout renders capture time as YYYYMMDD_HHMMSS. Two backups of
// the same project within one second collide on the archive name; that is a
// documented limitation, not retried or otherwise enforced against.
const timestampLayout = "20060102_150405"

// Request describes one backup run.
type Request struct {
	// Root is the working tree to snapshot. Its base name becomes the
	// project identifier in the archive name.
	Root string

	// ExcludePatterns are Matcher globs; any matching path is omitted.
	// Exclusion applies during the walk, so an excluded directory's
	// contents are never read at all.
	ExcludePatterns []string

	// DestinationDir receives the finished archive, created (recursively)
	// if absent. Relative paths are resolved under Root.
	DestinationDir string

	// Now overrides the capture-time source. Nil means time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Backup archives req.Root into {project}_{timestamp}.tar.gz and moves the
// file into the destination directory, returning the final archive path.
//
// The archive is first written in the process's current working directory
// and moved only once complete. A partial archive left behind by a failed
// run is not cleaned up.
func Backup(ctx context.Context, req Request) (string, error) {
	now := time.Now
	if req.Now != nil {
		now = req.Now
	}
	logger := req.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	project := filepath.Base(filepath.Clean(req.Root))
	stamp := now().Format(timestampLayout)
	name := fmt.Sprintf("%s_%s.tar.gz", project, stamp)

	matcher := NewMatcher(req.ExcludePatterns)

	logger.Info("backup started", "root", req.Root, "archive", name)
	if err := writeArchive(ctx, name, req.Root, matcher); err != nil {
		return "", err
	}

	dest := req.DestinationDir
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(req.Root, dest)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", &DestinationError{Dir: dest, Err: err}
	}

	final := filepath.Join(dest, name)
	if err := os.Rename(name, final); err != nil {
		return "", &DestinationError{Dir: dest, Err: err}
	}

	logger.Info("backup complete", "archive", final)
	return final, nil
}

// writeArchive streams the filtered tree into a gzip-compressed tar file at
// path.
func writeArchive(ctx context.Context, path, root string, matcher *Matcher) error {
	f, err := os.Create(path)
	if err != nil {
		return &ArchiveWriteError{Path: path, Err: err}
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if matcher.Excluded(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			// Sockets, devices and symlinks have no useful archive form
			// for a source-tree backup.
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

		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
	if walkErr != nil {
		return &ArchiveWriteError{Path: path, Err: walkErr}
	}

	if err := tw.Close(); err != nil {
		return &ArchiveWriteError{Path: path, Err: err}
	}
	if err := gz.Close(); err != nil {
		return &ArchiveWriteError{Path: path, Err: err}
	}
	return f.Close()
}
