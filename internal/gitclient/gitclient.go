// Package gitclient reads project descriptors from git repositories.
package gitclient

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Auth holds Basic Auth credentials.
// For Bitbucket Cloud access tokens, use "x-token-auth" as Username
// and the token as Password.
type Auth struct {
	Username string
	Password string // or Token
}

// Client holds a clone of a remote repository in memory.
type Client struct {
	repo *git.Repository
}

func New(url string, auth *Auth) (*Client, error) {
	c := &Client{}
	cloneOpts := &git.CloneOptions{
		URL:        url,
		NoCheckout: true, // Only the object database is needed.
	}
	if auth != nil {
		cloneOpts.Auth = &http.BasicAuth{
			Username: auth.Username,
			Password: auth.Password,
		}
	}

	repo, err := git.Clone(memory.NewStorage(), nil, cloneOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", url, err)
	}
	c.repo = repo
	return c, nil
}

// DefaultBranch returns the short name of the branch HEAD pointed to when cloning.
func (c *Client) DefaultBranch() (string, error) {
	head, err := c.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return head.Name().Short(), nil
}

// ListReferences returns the short names of all branches and tags.
// Remote branches are listed without their remote prefix.
func (c *Client) ListReferences() ([]string, error) {
	refMap := make(map[string]bool)

	refs, err := c.repo.References()
	if err != nil {
		return nil, err
	}
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name()
		if name.IsTag() || name.IsBranch() {
			refMap[name.Short()] = true
		} else if name.IsRemote() {
			// origin/main -> main
			short := name.Short()
			if i := strings.Index(short, "/"); i != -1 && short[i+1:] != "HEAD" {
				refMap[short[i+1:]] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	references := make([]string, 0, len(refMap))
	for v := range refMap {
		references = append(references, v)
	}
	return references, nil
}

func (c *Client) resolveRevision(revision string) (*plumbing.Hash, error) {
	hash, err := c.repo.ResolveRevision(plumbing.Revision(revision))
	if err == nil {
		return hash, nil
	}
	// Branches of a clone only exist as remote branches.
	if !strings.HasPrefix(revision, "refs/") {
		if hash, err := c.repo.ResolveRevision(plumbing.Revision("origin/" + revision)); err == nil {
			return hash, nil
		}
	}
	return nil, fmt.Errorf("revision %q not found: %w", revision, err)
}

// ReadFile reads filePath at the given revision. A missing file yields an
// error wrapping fs.ErrNotExist.
func (c *Client) ReadFile(revision, filePath string) ([]byte, error) {
	hash, err := c.resolveRevision(revision)
	if err != nil {
		return nil, err
	}
	commit, err := c.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("commit lookup failed: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get root tree: %w", err)
	}

	file, err := tree.File(filePath)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, fmt.Errorf("%s at %s: %w", filePath, revision, fs.ErrNotExist)
	}
	if err != nil {
		return nil, err
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

// IsModified reports whether path has uncommitted changes in the git
// worktree containing dir. Untracked files count as modified.
// It returns false and no error if dir is not inside a git worktree.
func IsModified(dir, path string) (bool, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to open git repository at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}

	abs, err := filepath.Abs(filepath.Join(dir, path))
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(wt.Filesystem.Root(), abs)
	if err != nil {
		return false, fmt.Errorf("%s is not inside the worktree: %w", abs, err)
	}
	rel = filepath.ToSlash(rel)

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree status: %w", err)
	}
	// Status.File would add an entry for clean files, so look it up directly.
	st, ok := status[rel]
	if !ok {
		return false, nil
	}
	return st.Worktree != git.Unmodified || st.Staging != git.Unmodified, nil
}
