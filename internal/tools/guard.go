package tools

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

var ErrPathDenied = errors.New("access denied")

// PathGuard decides which file system paths the file operations may touch.
// Restricted prefixes always win; when allowed prefixes are configured a
// path must sit under one of them.
type PathGuard struct {
	allowed    []string
	restricted []string
}

// NewPathGuard normalizes both prefix lists. Each prefix is kept in its
// cleaned form and, when it exists, in its symlink-resolved form too.
func NewPathGuard(allowed, restricted []string) (*PathGuard, error) {
	g := &PathGuard{}
	var err error
	if g.allowed, err = normalizeRoots(allowed); err != nil {
		return nil, fmt.Errorf("allowed paths: %w", err)
	}
	if g.restricted, err = normalizeRoots(restricted); err != nil {
		return nil, fmt.Errorf("restricted paths: %w", err)
	}
	return g, nil
}

func normalizeRoots(roots []string) ([]string, error) {
	out := make([]string, 0, len(roots)*2)
	seen := map[string]bool{}
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, r := range roots {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, err
		}
		add(abs)
		add(resolveExisting(abs))
	}
	return out, nil
}

// Resolve turns a caller supplied path into a cleaned absolute path and
// checks it. Relative paths are resolved inside the first allowed prefix.
func (g *PathGuard) Resolve(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", invalidArgf("path is required")
	}
	if !filepath.IsAbs(p) {
		var err error
		if len(g.allowed) > 0 {
			p, err = securejoin.SecureJoin(g.allowed[0], p)
		} else {
			p, err = filepath.Abs(p)
		}
		if err != nil {
			return "", err
		}
	}
	p = filepath.Clean(p)
	if err := g.check(p); err != nil {
		return "", err
	}
	if real := resolveExisting(p); real != p {
		if err := g.check(real); err != nil {
			return "", err
		}
	}
	return p, nil
}

func (g *PathGuard) check(p string) error {
	for _, r := range g.restricted {
		if within(r, p) {
			return fmt.Errorf("%w: %s is in restricted path %s", ErrPathDenied, p, r)
		}
	}
	if len(g.allowed) == 0 {
		return nil
	}
	for _, a := range g.allowed {
		if within(a, p) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is outside the allowed paths", ErrPathDenied, p)
}

func within(root, p string) bool {
	if root == string(filepath.Separator) {
		return true
	}
	return p == root || strings.HasPrefix(p, root+string(filepath.Separator))
}

// resolveExisting evaluates symlinks on the longest existing ancestor of p
// and re-attaches the remainder.
func resolveExisting(p string) string {
	cur := p
	for {
		if real, err := filepath.EvalSymlinks(cur); err == nil {
			rest, err := filepath.Rel(cur, p)
			if err != nil {
				return p
			}
			return filepath.Join(real, rest)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		cur = parent
	}
}
