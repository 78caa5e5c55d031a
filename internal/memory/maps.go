package memory

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// parseModuleBase scans /proc/<pid>/maps content for the lowest mapping of
// the named module. name matches either the full path or its base name.
func parseModuleBase(r io.Reader, name string) (uint64, error) {
	var (
		best  uint64
		found bool
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		// start-end perms offset dev inode path
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 {
			continue
		}
		path := strings.Join(fields[5:], " ")
		if path != name && filepath.Base(path) != name {
			continue
		}
		start, _, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}
		addr, err := strconv.ParseUint(start, 16, 64)
		if err != nil {
			return 0, fmt.Errorf("memory: maps: bad address %q: %w", fields[0], err)
		}
		if !found || addr < best {
			best = addr
			found = true
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("memory: maps: %w", err)
	}
	if !found {
		return 0, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return best, nil
}
