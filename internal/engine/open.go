package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/aethercask/aethercask/internal/keydir"
	"github.com/aethercask/aethercask/internal/logdir"
	"github.com/aethercask/aethercask/internal/record"
)

// replay reads every record from the given log file ids, in order, and
// rebuilds kd to reflect the store's live keys. It returns the number of
// dead (superseded or tombstone) bytes found across all files, seeding the
// engine's compaction trigger so a store reopened with a lot of stale data
// compacts promptly rather than waiting for fresh writes to accumulate it.
func replay(dir string, ids []uint64, kd *keydir.KeyDir) (uint64, error) {
	var deadBytes uint64

	for _, id := range ids {
		path := logdir.Path(dir, id)
		f, err := os.Open(path)
		if err != nil {
			return 0, fmt.Errorf("engine: replay open %s: %w", path, err)
		}

		dec := record.NewDecoder(bufio.NewReader(f))
		var prevOffset int64
		for {
			cmd, err := dec.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				_ = f.Close()
				return 0, fmt.Errorf("engine: replay %s: %w", path, err)
			}

			offset := prevOffset
			length := uint64(dec.Offset() - prevOffset)
			prevOffset = dec.Offset()

			switch cmd.Kind {
			case record.KindSet:
				if old, ok := kd.Get(cmd.Key); ok {
					deadBytes += old.Length
				}
				kd.Set(cmd.Key, keydir.Entry{FileID: id, Offset: offset, Length: length})
			case record.KindRemove:
				if old, ok := kd.Get(cmd.Key); ok {
					deadBytes += old.Length
				}
				kd.Delete(cmd.Key)
				deadBytes += length
			}
		}
		if err := f.Close(); err != nil {
			return 0, fmt.Errorf("engine: replay close %s: %w", path, err)
		}
	}

	return deadBytes, nil
}
