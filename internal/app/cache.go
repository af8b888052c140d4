package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/config"
)

// fileCache keeps processed clips in CACHE_DIR when KEEP_CACHE is set and
// deletes them otherwise.
type fileCache struct {
	keep bool
	dir  string
	now  func() time.Time
}

func newFileCache(cfg config.Config) *fileCache {
	return &fileCache{keep: cfg.KeepCache && cfg.CacheDir != "", dir: cfg.CacheDir, now: time.Now}
}

func (c *fileCache) Store(wavPath, uploadPath string, raw []byte, ok bool) {
	if !c.keep {
		if wavPath != "" {
			_ = os.Remove(wavPath)
		}
		if uploadPath != "" {
			_ = os.Remove(uploadPath)
		}
		return
	}

	base := "audio-" + c.now().Format("2006-01-02-15.04.05.000")
	c.move(wavPath, base)
	c.move(uploadPath, base)

	if ok && len(raw) > 0 {
		jsonPath := filepath.Join(c.dir, base+".json")
		if err := os.WriteFile(jsonPath, raw, 0644); err != nil {
			fmt.Printf("[cache] failed to write json to %s: %v\n", jsonPath, err)
		}
	}
}

func (c *fileCache) move(path, base string) {
	if path == "" {
		return
	}
	dst := filepath.Join(c.dir, base+filepath.Ext(path))
	if err := os.Rename(path, dst); err != nil {
		fmt.Printf("[cache] failed to move %s to %s: %v\n", path, dst, err)
		_ = os.Remove(path)
	}
}
