package profile

import (
	"context"
	"errors"
	"fmt"
	"os"

	git "github.com/go-git/go-git/v5"
)

// Repository fetches profile definitions from a git remote into a local
// cache directory, mirroring how targets publish layout databases.
type Repository struct {
	URL string
	Dir string
}

// NewRepository describes a remote profile repository cached at dir.
func NewRepository(url, dir string) *Repository {
	return &Repository{URL: url, Dir: dir}
}

// Sync clones the repository on first use and pulls on subsequent calls.
// Returns true when new content was fetched.
func (r *Repository) Sync(ctx context.Context) (bool, error) {
	repo, err := git.PlainOpen(r.Dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(r.Dir, 0o755); err != nil {
			return false, fmt.Errorf("create profile cache dir: %w", err)
		}
		_, err = git.PlainCloneContext(ctx, r.Dir, false, &git.CloneOptions{URL: r.URL, Depth: 1})
		if err != nil {
			return false, fmt.Errorf("clone profile repository %s: %w", r.URL, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("open profile cache %s: %w", r.Dir, err)
	}

	tree, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("profile cache worktree: %w", err)
	}
	err = tree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update profile repository %s: %w", r.URL, err)
	}
	return true, nil
}

// Load returns a store populated from the cached repository contents.
func (r *Repository) Load() (*Store, error) {
	return LoadDir(r.Dir)
}
