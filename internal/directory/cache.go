package directory

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

// listingCache keeps raw listing responses on disk, one file per framework
// version. The LRU index bounds the number of files: an evicted entry is
// deleted from disk.
type listingCache struct {
	dir   string
	ttl   time.Duration
	now   func() time.Time
	index *lru.Cache[string, time.Time] // file name -> time written
}

// cacheSubdir returns the directory below root that holds the listings
// fetched from baseURL.
func cacheSubdir(root, baseURL string) string {
	sum := sha256.Sum256([]byte(baseURL))
	return filepath.Join(root, hex.EncodeToString(sum[:8]))
}

func cacheFileName(frameworkVersion string) string {
	if frameworkVersion == "" {
		return "listing.json"
	}
	return "listing-" + url.PathEscape(frameworkVersion) + ".json"
}

func isCacheFile(name string) bool {
	return strings.HasPrefix(name, "listing") && filepath.Ext(name) == ".json"
}

// openListingCache indexes the listings already present in dir, oldest
// first, so that a smaller size than before trims the oldest files.
func openListingCache(dir string, size int, ttl time.Duration) (*listingCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	lc := &listingCache{
		dir: dir,
		ttl: ttl,
		now: time.Now,
	}
	index, err := lru.NewWithEvict(size, lc.evicted)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing cache: %v", err)
	}
	lc.index = index

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}
	type cached struct {
		name    string
		written time.Time
	}
	var files []cached
	for _, e := range entries {
		if !e.Type().IsRegular() || !isCacheFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, cached{e.Name(), info.ModTime()})
	}
	slices.SortFunc(files, func(a, b cached) int {
		return a.written.Compare(b.written)
	})
	for _, f := range files {
		index.Add(f.name, f.written)
	}
	return lc, nil
}

func (lc *listingCache) evicted(name string, _ time.Time) {
	err := os.Remove(filepath.Join(lc.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("Failed to remove cached listing %s: %v", name, err)
	}
}

// get returns the cached response for frameworkVersion if it is younger
// than the cache TTL.
func (lc *listingCache) get(frameworkVersion string) ([]byte, bool) {
	name := cacheFileName(frameworkVersion)
	written, ok := lc.index.Get(name)
	if !ok {
		return nil, false
	}
	if lc.now().Sub(written) > lc.ttl {
		log.Debugf("Cached listing %s expired", name)
		lc.index.Remove(name)
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(lc.dir, name))
	if err != nil {
		log.Warnf("Failed to read cached listing: %v", err)
		lc.index.Remove(name)
		return nil, false
	}
	return data, true
}

// put stores data for frameworkVersion. The file is replaced atomically.
func (lc *listingCache) put(frameworkVersion string, data []byte) error {
	name := cacheFileName(frameworkVersion)
	f, err := os.CreateTemp(lc.dir, "listing-*.tmp")
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(f.Name(), filepath.Join(lc.dir, name))
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("failed to write cached listing %s: %w", name, err)
	}
	lc.index.Add(name, lc.now())
	return nil
}

func (lc *listingCache) remove(frameworkVersion string) {
	lc.index.Remove(cacheFileName(frameworkVersion))
}
