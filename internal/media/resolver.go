// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media resolves animation video names against an ordered list of
// storage roots.
package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"

	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/metrics"
)

// DefaultMaxDepth is the deepest directory level descended into below a root.
const DefaultMaxDepth = 5

// ErrNotFound is returned when no root contains the requested name.
var ErrNotFound = errors.New("media not found")

// VideoExtensions lists the suffixes reported by ListAvailable (lower case, with dot).
var VideoExtensions = []string{".mp4", ".avi", ".mkv", ".mov", ".wmv", ".flv", ".3gp", ".webm", ".m4v"}

// skippedDirs are matched case-insensitively.
var skippedDirs = []string{"android", "lost+found"}

// ResolvedMedia is the result of one lookup.
type ResolvedMedia struct {
	DisplayName  string
	AbsolutePath string
}

// Video is one entry of a listing.
type Video struct {
	Name string `json:"name"`
}

// Resolver looks up names within roots in order.
type Resolver struct {
	roots    []string
	maxDepth int
	group    singleflight.Group
	logger   zerolog.Logger
}

// NewResolver creates a resolver over roots. Order is significant: the first
// root containing a name wins.
func NewResolver(roots []string, maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{
		roots:    slices.Clone(roots),
		maxDepth: maxDepth,
		logger:   log.WithComponent("media"),
	}
}

// Roots returns the configured roots in search order.
func (r *Resolver) Roots() []string {
	return slices.Clone(r.roots)
}

// Resolve finds the first file named exactly name. Roots are tried in order
// and each root is searched shallowest level first, so a file directly in a
// root beats one in its subdirectories. Names are compared after Unicode NFC
// normalization. Names with path separators never match.
func (r *Resolver) Resolve(ctx context.Context, name string) (ResolvedMedia, error) {
	want := norm.NFC.String(strings.TrimSpace(name))
	if want == "" || want == "." || want == ".." || strings.ContainsAny(want, `/\`) {
		metrics.RecordResolve("not_found")
		return ResolvedMedia{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	for _, root := range r.roots {
		found, err := r.findShallowest(ctx, root, want)
		if err != nil {
			metrics.RecordResolve("error")
			return ResolvedMedia{}, err
		}
		if found != "" {
			abs, absErr := filepath.Abs(found)
			if absErr != nil {
				abs = found
			}
			metrics.RecordResolve("found")
			return ResolvedMedia{DisplayName: want, AbsolutePath: abs}, nil
		}
	}

	metrics.RecordResolve("not_found")
	return ResolvedMedia{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// findShallowest searches root one directory level at a time, entries of a
// level in lexical order, and returns the first regular file named want.
// Unreadable directories are skipped; only context cancellation is returned.
func (r *Resolver) findShallowest(ctx context.Context, root, want string) (string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		r.logger.Debug().Err(err).Str("root", root).Msg("skipping unreadable media root")
		return "", nil
	}

	level := []string{root}
	for depth := 0; len(level) > 0; depth++ {
		var next []string
		for _, dir := range level {
			if err := ctx.Err(); err != nil {
				return "", fmt.Errorf("scan %s: %w", root, err)
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				r.logger.Debug().Err(err).Str("path", dir).Msg("media walk error")
			}
			for _, e := range entries {
				path := filepath.Join(dir, e.Name())
				if e.IsDir() {
					if depth < r.maxDepth && !skipDir(e.Name()) {
						next = append(next, path)
					}
					continue
				}
				if norm.NFC.String(e.Name()) == want && isRegular(path, e) {
					return path, nil
				}
			}
		}
		level = next
	}
	return "", nil
}

// ListAvailable returns the distinct names of video files in all roots,
// sorted ascending. Concurrent calls share one scan.
func (r *Resolver) ListAvailable(ctx context.Context) ([]Video, error) {
	v, err, _ := r.group.Do("list", func() (any, error) {
		return r.listAvailable(ctx)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]Video)), nil
}

func (r *Resolver) listAvailable(ctx context.Context) ([]Video, error) {
	start := time.Now()
	seen := make(map[string]struct{})
	for _, root := range r.roots {
		err := r.walk(ctx, root, func(_ string, d fs.DirEntry) error {
			if IsVideoName(d.Name()) {
				seen[norm.NFC.String(d.Name())] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	slices.Sort(names)

	out := make([]Video, len(names))
	for i, n := range names {
		out[i] = Video{Name: n}
	}
	metrics.SetVideosAvailable(len(out))
	metrics.ObserveScanDuration(time.Since(start).Seconds())
	return out, nil
}

// walk visits regular files below root within the depth bound. I/O errors
// skip the affected subtree; only context cancellation is returned.
func (r *Resolver) walk(ctx context.Context, root string, visit func(path string, d fs.DirEntry) error) error {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		r.logger.Debug().Err(err).Str("root", root).Msg("skipping unreadable media root")
		return nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			r.logger.Debug().Err(walkErr).Str("path", path).Msg("media walk error")
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if skipDir(d.Name()) || depth(root, path) > r.maxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if !isRegular(path, d) {
			return nil
		}
		return visit(path, d)
	})
	if err != nil && !errors.Is(err, fs.SkipAll) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("scan %s: %w", root, ctxErr)
		}
		r.logger.Debug().Err(err).Str("root", root).Msg("media walk aborted")
	}
	return nil
}

func isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// IsVideoName reports whether name carries one of VideoExtensions.
func IsVideoName(name string) bool {
	return slices.Contains(VideoExtensions, strings.ToLower(filepath.Ext(name)))
}

func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, s := range skippedDirs {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

// depth counts path elements between root and path; a direct child is 1.
func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(os.PathSeparator)) + 1
}
