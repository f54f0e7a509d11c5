package recovery

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"filippo.io/age"

	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
)

// Exporter writes and reads recovery bundles: a tar archive of the small
// secrets a directory cannot be decrypted without (the wrapped-key blob
// and the derived-password records), encrypted with age's scrypt-based
// passphrase encryption. The bundle lets a user move to a new machine or
// survive a lost state directory — it still takes the recovery
// passphrase plus the main key to get anything out of it.
type Exporter struct {
	clock suprsafe.Clock
}

// NewExporter creates an Exporter. clock may be nil, in which case the
// real clock is used.
func NewExporter(clock suprsafe.Clock) *Exporter {
	if clock == nil {
		clock = suprsafe.RealClock{}
	}
	return &Exporter{clock: clock}
}

// Export writes an encrypted bundle of the given files to w. files maps
// archive-internal names to source paths; sources that do not exist are
// skipped. Returns the number of files bundled.
func (e *Exporter) Export(w io.Writer, passphrase string, files map[string]string) (int, error) {
	if passphrase == "" {
		return 0, fmt.Errorf("passphrase must not be empty: %w", suprsafe.ErrInvalidInput)
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return 0, fmt.Errorf("creating scrypt recipient: %w", err)
	}

	encWriter, err := age.Encrypt(w, recipient)
	if err != nil {
		return 0, fmt.Errorf("creating encrypted writer: %w", err)
	}

	tw := tar.NewWriter(encWriter)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	count := 0
	for _, name := range names {
		data, err := os.ReadFile(files[name])
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return count, fmt.Errorf("reading %s: %w", files[name], err)
		}

		hdr := &tar.Header{
			Name:    name,
			Mode:    0600,
			Size:    int64(len(data)),
			ModTime: e.clock.Now(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return count, fmt.Errorf("writing bundle header for %s: %w", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			return count, fmt.Errorf("writing bundle entry %s: %w", name, err)
		}
		count++
	}

	if err := tw.Close(); err != nil {
		return count, fmt.Errorf("finalizing bundle archive: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return count, fmt.Errorf("finalizing bundle encryption: %w", err)
	}
	return count, nil
}

// Import decrypts a bundle and writes its files under destDir, keyed by
// their archive names. A wrong passphrase is reported as
// ErrAuthentication. Returns the written paths.
func (e *Exporter) Import(r io.Reader, passphrase string, destDir string) ([]string, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase must not be empty: %w", suprsafe.ErrInvalidInput)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	decReader, err := age.Decrypt(r, identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting bundle: %w", suprsafe.ErrAuthentication)
	}

	tr := tar.NewReader(decReader)
	var written []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, fmt.Errorf("reading bundle archive: %w", err)
		}

		name := filepath.Clean(hdr.Name)
		if filepath.IsAbs(name) || strings.HasPrefix(name, "..") {
			return written, fmt.Errorf("bundle entry escapes destination: %s", hdr.Name)
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return written, fmt.Errorf("reading bundle entry %s: %w", name, err)
		}

		destPath := filepath.Join(destDir, name)
		if err := os.MkdirAll(filepath.Dir(destPath), 0700); err != nil {
			return written, fmt.Errorf("creating destination directory: %w", err)
		}
		if err := os.WriteFile(destPath, data, 0600); err != nil {
			return written, fmt.Errorf("writing %s: %w", destPath, err)
		}
		written = append(written, destPath)
	}

	return written, nil
}
