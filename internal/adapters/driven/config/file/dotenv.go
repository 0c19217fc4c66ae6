package file

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// DefaultEnvFiles are read, in order, from the working directory.
var DefaultEnvFiles = []string{".env", ".env.prod"}

// LoadDotEnv loads variables from the given files into the process
// environment. Variables already set are never overridden and missing
// files are skipped. It returns the files actually read.
func LoadDotEnv(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		paths = DefaultEnvFiles
	}

	var loaded []string
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("%w: loading %s: %w", domain.ErrConfiguration, p, err)
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}
