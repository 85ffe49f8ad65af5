package storage

import (
	"errors"

	"github.com/san-kum/resodyn/internal/sim"
)

var ErrRunNotFound = errors.New("storage: run not found")

// Repository persists sampled runs. Store keeps them as files, BadgerStore
// in an embedded key-value database.
type Repository interface {
	Save(info RunInfo, result *sim.Result) (string, error)
	List() ([]RunMetadata, error)
	Load(runID string) (*RunMetadata, error)
	LoadStates(runID string) ([][]float64, []float64, error)
}

var (
	_ Repository = (*Store)(nil)
	_ Repository = (*BadgerStore)(nil)
)
