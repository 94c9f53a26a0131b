// Copyright 2025, the fabdeploy authors.  All rights reserved.

package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultTrackingDir is where file checkpoints live, relative to the repository root.
const DefaultTrackingDir = ".deployment_tracking"

// fileStore keeps one plain-text file per environment.  The format is deliberately trivial so it
// stays diffable and human-recoverable: the revision is the first token of the file, and the
// remaining lines are `#` comments.
type fileStore struct {
	dir string
}

// NewFileStore creates a store rooted at the given directory.
func NewFileStore(dir string) Store {
	return &fileStore{dir: dir}
}

func (s *fileStore) path(env string) string {
	return filepath.Join(s.dir, env+"_last_commit.txt")
}

func (s *fileStore) Load(env string) (*Checkpoint, error) {
	raw, err := os.ReadFile(s.path(env))
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "reading checkpoint for environment '%s'", env)
	}

	c := &Checkpoint{}
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if ts, ok := strings.CutPrefix(line, "# Last deployment: "); ok {
				if t, terr := time.Parse(time.RFC3339, strings.TrimSpace(ts)); terr == nil {
					c.Time = t
				}
			}
			continue
		}
		// The revision is the first non-comment token.
		c.Revision = strings.Fields(line)[0]
		break
	}
	if c.Revision == "" {
		return nil, errors.Errorf("checkpoint file for environment '%s' contains no revision", env)
	}
	return c, nil
}

func (s *fileStore) Save(env string, c Checkpoint) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "creating tracking directory")
	}
	when := c.Time
	if when.IsZero() {
		when = time.Now()
	}
	content := fmt.Sprintf("%s\n# Last deployment: %s\n# Environment: %s\n",
		c.Revision, when.Format(time.RFC3339), env)
	if err := os.WriteFile(s.path(env), []byte(content), 0o644); err != nil {
		return errors.Wrapf(err, "writing checkpoint for environment '%s'", env)
	}
	return nil
}
