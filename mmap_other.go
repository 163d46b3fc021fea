//go:build !(darwin || linux)

package vpk

import "os"

// mmapChunkCache on platforms without unix.Mmap falls back to reading the
// whole file into memory once and caching the buffer, preserving the same
// interface the mmap-backed cache exposes elsewhere.
type mmapChunkCache struct {
	buffers map[uint16][]byte
}

func newChunkMapCache() chunkMapCache {
	return &mmapChunkCache{buffers: map[uint16][]byte{}}
}

func (c *mmapChunkCache) Map(key uint16, path string) ([]byte, error) {
	if b, ok := c.buffers[key]; ok {
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c.buffers[key] = b
	return b, nil
}

func (c *mmapChunkCache) Close() error {
	c.buffers = nil
	return nil
}
