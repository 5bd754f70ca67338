package util

import (
	"io/fs"

	"github.com/pkg/errors"
	"github.com/subosito/gotenv"
)

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already present in the environment win. A missing file is not an error.
func LoadEnvFile(path string) (bool, error) {
	if path == "" {
		return false, nil
	}

	if err := gotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, errors.Wrapf(err, "failed to load env file %s", path)
	}

	return true, nil
}
