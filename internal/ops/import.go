package ops

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/misnaej/the-jam-machine/internal/config"
	"github.com/misnaej/the-jam-machine/internal/errors"
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	// Dir is the directory to walk for MIDI files. Required.
	Dir string

	// Familize overrides the config's familize setting when non-nil.
	Familize *bool

	// Workers bounds the encoding pool; 0 uses the config value, and
	// failing that one worker per CPU.
	Workers int
}

// ImportFailure records one file that could not be encoded.
type ImportFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int             `json:"imported"`
	Failed   []ImportFailure `json:"failed,omitempty"`
	IDs      []string        `json:"ids,omitempty"`
}

// Import walks a directory tree, encodes every MIDI file it finds, and
// stores the results. Files are independent, so they are encoded by a
// bounded worker pool; one bad file fails that file, not the batch.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, tok Tokenizer, input ImportInput) (*ImportOutput, error) {
	if strings.TrimSpace(input.Dir) == "" {
		return nil, errors.NewInvalidRequest("dir is required")
	}

	var paths []string
	err := filepath.WalkDir(input.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isMIDIPath(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	if len(paths) == 0 {
		return nil, errors.NewInvalidRequest("no MIDI files found under " + input.Dir)
	}

	workers := input.Workers
	if workers <= 0 {
		workers = cfg.ImportWorkers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	jobs := make(chan string)
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		output ImportOutput
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				res, err := Encode(ctx, database, cfg, tok, EncodeInput{
					Path:     path,
					Familize: input.Familize,
					Store:    true,
				})
				mu.Lock()
				if err != nil {
					output.Failed = append(output.Failed, ImportFailure{Path: path, Error: err.Error()})
				} else {
					output.Imported++
					output.IDs = append(output.IDs, *res.ID)
				}
				mu.Unlock()
			}
		}()
	}

	for _, path := range paths {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, errors.NewInternal(ctx.Err())
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()

	// Deterministic output regardless of worker scheduling.
	sort.Strings(output.IDs)
	sort.Slice(output.Failed, func(i, j int) bool {
		return output.Failed[i].Path < output.Failed[j].Path
	})

	return &output, nil
}
