package stevedore

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Download fetches one file out of a running or stopped container and
// writes its raw content to hostDir, named after the in-container file's
// base name. It returns the host path written.
//
// The pipeline runs three ordered stages against that one path: stage the
// engine's tar stream to disk, extract a member's content from it, then
// overwrite the path with the extracted bytes. It is not transactional; a
// failure during extraction leaves the staged tar bytes on disk.
func (s *Supervisor) Download(ctx context.Context, name, containerPath, hostDir string) (string, error) {
	handle, err := s.gw.Get(ctx, name)
	if err != nil {
		return "", err
	}

	stream, err := handle.Archive(ctx, containerPath)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	dest := filepath.Join(hostDir, filepath.Base(containerPath))

	if err := stageArchive(stream, dest); err != nil {
		return "", err
	}

	content, err := lastRegularFile(dest)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return "", fmt.Errorf("write extracted file: %w", err)
	}

	s.logger.Info("file downloaded", "name", name, "path", containerPath, "dest", dest)
	return dest, nil
}

// stageArchive copies the raw tar stream verbatim to dest. The caller's
// directory must already exist; none is created here.
func stageArchive(stream io.Reader, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("stage archive: %w", err)
	}

	if _, err := io.Copy(f, stream); err != nil {
		f.Close()
		return fmt.Errorf("stage archive: %w", err)
	}

	return f.Close()
}

// lastRegularFile returns the content of the last regular file member in
// the tar archive at path. Later members overwrite earlier ones: when the
// engine hands back an archive with several regular files, the one closest
// to the end of the stream wins. Returns ErrNoRegularFile when the archive
// holds no regular file at all.
func lastRegularFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	tr := tar.NewReader(f)

	var content []byte
	found := false

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		b, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read archive member %s: %w", hdr.Name, err)
		}
		content = b
		found = true
	}

	if !found {
		return nil, ErrNoRegularFile
	}
	return content, nil
}
