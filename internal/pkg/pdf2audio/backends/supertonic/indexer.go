package supertonic

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
)

// unknownID marks a code point the indexer table does not cover.
const unknownID = -1

// indexer maps code points to model vocabulary ids.
type indexer struct {
	table []int64
}

func loadIndexer(modelDir string) (*indexer, error) {
	path := filepath.Join(modelDir, indexerFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read unicode indexer: %w", err)
	}

	var table []int64
	if err := sonic.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("unicode indexer %s is empty", path)
	}
	return &indexer{table: table}, nil
}

// encode returns the id sequence of text and its all-ones mask.
func (x *indexer) encode(text string) ([]int64, []float32) {
	ids := make([]int64, 0, len(text))
	for _, r := range text {
		if r >= 0 && int(r) < len(x.table) {
			ids = append(ids, x.table[r])
		} else {
			ids = append(ids, unknownID)
		}
	}

	mask := make([]float32, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	return ids, mask
}
