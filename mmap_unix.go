//go:build darwin || linux

package vpk

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapChunkCache memory-maps each chunk file the first time it's
// referenced and keeps the mapping until Close. Reads of the mapped
// region go through safeMappedCopy, which guards against a SIGBUS from a
// truncated or concurrently-modified backing file.
type mmapChunkCache struct {
	mappings map[uint16][]byte
}

func newChunkMapCache() chunkMapCache {
	return &mmapChunkCache{mappings: map[uint16][]byte{}}
}

func (c *mmapChunkCache) Map(key uint16, path string) ([]byte, error) {
	if b, ok := c.mappings[key]; ok {
		return b, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		c.mappings[key] = nil
		return nil, nil
	}

	b, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	c.mappings[key] = b
	return b, nil
}

func (c *mmapChunkCache) Close() error {
	var first error
	for key, b := range c.mappings {
		if len(b) == 0 {
			continue
		}
		if err := unix.Munmap(b); err != nil && first == nil {
			first = err
		}
		delete(c.mappings, key)
	}
	return first
}
