// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// touch creates an empty file, creating parents as needed.
func touch(t *testing.T, parts ...string) string {
	t.Helper()
	p := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, nil, 0o644))
	return p
}

// standardRoots lays out the ordered roots below base like a device does.
func standardRoots(base string) []string {
	return []string{
		filepath.Join(base, "Movies"),
		filepath.Join(base, "DCIM"),
		filepath.Join(base, "Download"),
		filepath.Join(base, "Pictures"),
		base,
	}
}

func TestResolve_RootOrderWins(t *testing.T) {
	base := t.TempDir()
	touch(t, base, "x.mp4")
	touch(t, base, "Pictures", "x.mp4")
	touch(t, base, "Download", "nested", "x.mp4")
	dcim := touch(t, base, "DCIM", "Camera", "x.mp4")

	r := NewResolver(standardRoots(base), 0)
	got, err := r.Resolve(context.Background(), "x.mp4")
	require.NoError(t, err)
	assert.Equal(t, dcim, got.AbsolutePath)
	assert.Equal(t, "x.mp4", got.DisplayName)

	movies := touch(t, base, "Movies", "x.mp4")
	got, err = r.Resolve(context.Background(), "x.mp4")
	require.NoError(t, err)
	assert.Equal(t, movies, got.AbsolutePath)
}

func TestResolve_ShallowestMatchWithinRoot(t *testing.T) {
	base := t.TempDir()
	touch(t, base, "a", "x.mp4")
	touch(t, base, "a", "b", "y.mp4")
	top := touch(t, base, "x.mp4")
	mid := touch(t, base, "z", "y.mp4")

	r := NewResolver([]string{base}, 0)
	got, err := r.Resolve(context.Background(), "x.mp4")
	require.NoError(t, err)
	assert.Equal(t, top, got.AbsolutePath, "root level beats a subdirectory")

	got, err = r.Resolve(context.Background(), "y.mp4")
	require.NoError(t, err)
	assert.Equal(t, mid, got.AbsolutePath, "depth beats lexical order")
}

func TestResolve_CancelledContext(t *testing.T) {
	base := t.TempDir()
	touch(t, base, "x.mp4")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewResolver([]string{base}, 0).Resolve(ctx, "x.mp4")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve_NotFound(t *testing.T) {
	base := t.TempDir()
	touch(t, base, "Movies", "y.mp4")

	r := NewResolver(standardRoots(base), 0)
	for _, name := range []string{"x.mp4", "", "Movies/y.mp4", "..", "X.MP4"} {
		_, err := r.Resolve(context.Background(), name)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
}

func TestResolve_DepthBound(t *testing.T) {
	base := t.TempDir()
	// Directory depth 5 below the root is searched, depth 6 is not.
	touch(t, base, "1", "2", "3", "4", "5", "deep.mp4")
	touch(t, base, "1", "2", "3", "4", "5", "6", "deeper.mp4")

	r := NewResolver([]string{base}, 5)
	_, err := r.Resolve(context.Background(), "deep.mp4")
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), "deeper.mp4")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_SkipsHiddenAndSystemDirs(t *testing.T) {
	base := t.TempDir()
	touch(t, base, ".cache", "a.mp4")
	touch(t, base, "Android", "data", "b.mp4")
	touch(t, base, "LOST+FOUND", "c.mp4")
	touch(t, base, "visible", "d.mp4")

	r := NewResolver([]string{base}, 0)
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		_, err := r.Resolve(context.Background(), name)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
	_, err := r.Resolve(context.Background(), "d.mp4")
	assert.NoError(t, err)
}

func TestResolve_UnicodeNormalization(t *testing.T) {
	base := t.TempDir()
	// Decomposed "é" on disk, composed in the request.
	touch(t, base, "cafe\u0301.mp4")

	r := NewResolver([]string{base}, 0)
	_, err := r.Resolve(context.Background(), "caf\u00e9.mp4")
	assert.NoError(t, err)
}

func TestResolve_MissingRootsAreSkipped(t *testing.T) {
	base := t.TempDir()
	want := touch(t, base, "Pictures", "z.webm")

	r := NewResolver(standardRoots(base), 0)
	got, err := r.Resolve(context.Background(), "z.webm")
	require.NoError(t, err)
	assert.Equal(t, want, got.AbsolutePath)
}

func TestResolve_UnreadableDirectoryIsSkipped(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits not enforced")
	}
	base := t.TempDir()
	touch(t, base, "Movies", "locked", "a.mp4")
	want := touch(t, base, "DCIM", "a.mp4")
	locked := filepath.Join(base, "Movies", "locked")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	r := NewResolver(standardRoots(base), 0)
	got, err := r.Resolve(context.Background(), "a.mp4")
	require.NoError(t, err)
	assert.Equal(t, want, got.AbsolutePath)
}

func TestListAvailable_FiltersSortsAndDeduplicates(t *testing.T) {
	base := t.TempDir()
	touch(t, base, "Movies", "b.MKV")
	touch(t, base, "Movies", "notes.txt")
	touch(t, base, "DCIM", "a.mp4")
	touch(t, base, "Download", "c.3gp")
	touch(t, base, "Download", "archive.zip")
	touch(t, base, "Pictures", "photo.jpg")
	touch(t, base, "clip.webm")
	touch(t, base, ".hidden", "secret.mp4")

	r := NewResolver(standardRoots(base), 0)
	got, err := r.ListAvailable(context.Background())
	require.NoError(t, err)

	want := []Video{{Name: "a.mp4"}, {Name: "b.MKV"}, {Name: "c.3gp"}, {Name: "clip.webm"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListAvailable() mismatch (-want +got):\n%s", diff)
	}
}

func TestListAvailable_CancelledContext(t *testing.T) {
	base := t.TempDir()
	touch(t, base, "a.mp4")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewResolver([]string{base}, 0).ListAvailable(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsVideoName(t *testing.T) {
	for _, ext := range VideoExtensions {
		assert.True(t, IsVideoName("clip"+ext))
		assert.True(t, IsVideoName("clip"+strings.ToUpper(ext)))
	}
	assert.False(t, IsVideoName("clip.mp3"))
	assert.False(t, IsVideoName("mp4"))
}
