package gitutils

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNothingToCommit is returned by CommitPaths when the files match HEAD.
var ErrNothingToCommit = errors.New("nothing to commit")

// CommitInfo describes the commit at HEAD of a content repository.
type CommitInfo struct {
	Branch     string
	CommitHash string
	Message    string
	CommitDate string // Formatted date string
}

// Signature identifies the author of import commits.
type Signature struct {
	Name  string
	Email string
}

// openRepo opens the repository containing path, searching parent
// directories for .git.
func openRepo(path string) (*git.Repository, error) {
	r, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repo at %s: %w", path, err)
	}
	return r, nil
}

// CommitPaths stages the given files and commits them to the repository
// containing dir.
func CommitPaths(dir string, paths []string, message string, author Signature) (plumbing.Hash, error) {
	r, err := openRepo(dir)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	w, err := r.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get worktree: %w", err)
	}
	root := w.Filesystem.Root()

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			return plumbing.ZeroHash, fmt.Errorf("%s is outside repository %s", p, root)
		}
		if _, err := w.Add(filepath.ToSlash(rel)); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to stage %s: %w", rel, err)
		}
	}

	status, err := w.Status()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get status: %w", err)
	}
	staged := false
	for _, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			staged = true
			break
		}
	}
	if !staged {
		return plumbing.ZeroHash, ErrNothingToCommit
	}

	hash, err := w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author.Name,
			Email: author.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to commit: %w", err)
	}
	slog.Info("Committed imported content", "repo", root, "commit", hash.String(), "files", len(paths))
	return hash, nil
}

// HeadInfo retrieves details about the commit at HEAD of the repository
// containing path.
func HeadInfo(path string) (*CommitInfo, error) {
	r, err := openRepo(path)
	if err != nil {
		return nil, err
	}

	headRef, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD reference: %w", err)
	}

	commit, err := r.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object: %w", err)
	}

	branch := ""
	if headRef.Name().IsBranch() {
		branch = headRef.Name().Short()
	}

	return &CommitInfo{
		Branch:     branch,
		CommitHash: commit.Hash.String(),
		Message:    strings.SplitN(commit.Message, "\n", 2)[0], // First line of message
		CommitDate: commit.Author.When.Format("2006-01-02 15:04"),
	}, nil
}
