package runtime

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/taskcluster/slugid-go/slugid"
)

// TemporaryStorage can create temporary folders.
type TemporaryStorage interface {
	NewFolder() (TemporaryFolder, error)
}

// TemporaryFolder is a temporary folder that is backed by the filesystem.
// It is a typical expensive, disposable resource: creating it touches the
// disk and it must be removed exactly once.
type TemporaryFolder interface {
	TemporaryStorage
	Path() string
	Remove() error
}

type temporaryFolder struct {
	path string
}

// NewTemporaryStorage returns TemporaryStorage rooted in the given path.
func NewTemporaryStorage(path string) (TemporaryStorage, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create temporary storage at '%s'", path)
	}
	return &temporaryFolder{path: path}, nil
}

func (s *temporaryFolder) Path() string {
	return s.path
}

func (s *temporaryFolder) NewFolder() (TemporaryFolder, error) {
	path := filepath.Join(s.path, slugid.Nice())
	if err := os.Mkdir(path, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create temporary folder")
	}
	return &temporaryFolder{path: path}, nil
}

func (s *temporaryFolder) Remove() error {
	return os.RemoveAll(s.path)
}
