package dataset

import (
	"errors"
	"fmt"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Snapshot commits the current state of the data directory to a local git
// repository, initializing one on first use. Returns the commit hash, or an
// empty string when nothing changed since the last snapshot.
//
// Versioning the flat files this way gives a free history of how the
// community's discussions and network evolved between collection runs.
func Snapshot(dir, message string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(dir, false)
	}
	if err != nil {
		return "", fmt.Errorf("opening snapshot repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("checking worktree status: %w", err)
	}
	if status.IsClean() {
		return "", nil
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("staging datasets: %w", err)
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "reddit-film-communities",
			Email: "collector@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("committing snapshot: %w", err)
	}

	return hash.String(), nil
}
