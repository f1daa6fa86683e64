package resolve

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"storyart/internal/fileutil"
	"storyart/internal/services"
)

const dateBucketLayout = "2006-01-02"

// Resolver locates backend artifact references under a single output root.
type Resolver struct {
	// OutputRoot is the backend's configured output directory.
	OutputRoot string
	// Now supplies the wall clock for date buckets. Nil means time.Now.
	Now func() time.Time
}

// New constructs a resolver rooted at the given directory.
func New(outputRoot string) *Resolver {
	return &Resolver{OutputRoot: outputRoot}
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Resolve maps one backend reference to an existing local file. References
// are tried as an absolute path, then relative to the output root, then as a
// bare filename inside the date buckets for today, the request start date,
// and yesterday. The first existing file wins.
//
// requestStart is when the generation request was issued; a request submitted
// just before midnight can land in a bucket dated either side of it.
func (r *Resolver) Resolve(ref string, requestStart time.Time) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", services.Wrap(services.ErrValidation, "resolve", "resolve", "empty artifact reference", nil)
	}

	candidates := r.candidates(ref, requestStart)
	for _, candidate := range candidates {
		if fileutil.FileExists(candidate) {
			return candidate, nil
		}
	}
	return "", services.Wrap(
		services.ErrNotFound,
		"resolve",
		"resolve",
		fmt.Sprintf("artifact %q not found; searched %s", ref, strings.Join(candidates, ", ")),
		nil,
	)
}

func (r *Resolver) candidates(ref string, requestStart time.Time) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(path string) {
		path = filepath.Clean(path)
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}

	if filepath.IsAbs(ref) {
		add(ref)
		return out
	}

	add(filepath.Join(r.OutputRoot, ref))

	// Bare filenames land in per-day buckets. The backend names the bucket
	// after its own local date, which may differ from the request start when
	// a run crosses midnight.
	name := filepath.Base(ref)
	now := r.now()
	for _, day := range []time.Time{now, requestStart, now.AddDate(0, 0, -1)} {
		if day.IsZero() {
			continue
		}
		add(filepath.Join(r.OutputRoot, day.Format(dateBucketLayout), name))
	}
	return out
}
