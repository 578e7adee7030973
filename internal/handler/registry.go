// ABOUTME: Discovers executable handlers on disk and indexes them by the URI schemes they claim.
package handler

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/orbnauticus/angler/internal/uri"
)

// Registry indexes discovered handler executables by the scheme(s) they claim.
type Registry struct {
	byScheme map[string]string // scheme -> executable path
}

// Discover enumerates every regular, executable file in searchPaths (in
// order), invokes "<file> list" for each, and registers it under every
// scheme it emits. Two handlers claiming the same scheme is a fatal
// *DuplicateHandlerError naming both files.
func Discover(ctx context.Context, searchPaths []string) (*Registry, error) {
	reg := &Registry{byScheme: make(map[string]string)}

	var candidates []string
	for _, dir := range searchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.Mode()&0o111 == 0 {
				continue
			}
			candidates = append(candidates, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(candidates)

	for _, path := range candidates {
		schemes, err := List(ctx, path)
		if err != nil {
			log.Printf("component=handler.registry action=discover_skip path=%s err=%v", path, err)
			continue
		}
		for _, scheme := range schemes {
			if existing, ok := reg.byScheme[scheme]; ok {
				return nil, &DuplicateHandlerError{Scheme: scheme, First: existing, Second: path}
			}
			reg.byScheme[scheme] = path
			log.Printf("component=handler.registry action=registered scheme=%s path=%s", scheme, path)
		}
	}

	return reg, nil
}

// HandlerFor returns the executable path registered for scheme, or "" if none.
func (r *Registry) HandlerFor(scheme string) (string, bool) {
	path, ok := r.byScheme[scheme]
	return path, ok
}

// HandlerForURI partitions the scheme out of u and looks it up.
func (r *Registry) HandlerForURI(u string) (string, error) {
	scheme, err := uri.Scheme(u)
	if err != nil {
		return "", err
	}
	path, ok := r.HandlerFor(scheme)
	if !ok {
		return "", &MissingHandlerError{Scheme: scheme, URI: u}
	}
	return path, nil
}

// Schemes returns every registered scheme, sorted.
func (r *Registry) Schemes() []string {
	schemes := make([]string, 0, len(r.byScheme))
	for s := range r.byScheme {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}
