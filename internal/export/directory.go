package export

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"refboard/internal/item"
	"refboard/internal/scene"
)

// CollisionChoice is the caller's decision for one existing file.
type CollisionChoice int

const (
	CollisionSkip CollisionChoice = iota
	CollisionOverwrite
)

// CollisionFunc is asked when a target file already exists. Returning
// applyToAll makes the choice stick for the rest of the run.
type CollisionFunc func(path string) (choice CollisionChoice, applyToAll bool)

// DirectoryOptions controls a per-image export run.
type DirectoryOptions struct {
	Dir        string
	StartIndex int
	// OnCollision resolves existing files; nil means skip everything
	// that already exists.
	OnCollision CollisionFunc
	// OnProgress, when set, is called after each item with the counts
	// of processed and total items.
	OnProgress func(done, total int)
}

// DirectoryResult summarizes an export run.
type DirectoryResult struct {
	Written int
	Skipped int
}

// ExportDirectory writes every image item's original bytes to a
// sequentially numbered file in the target directory, starting at the
// configured index. Names keep the stored format's extension. Items in
// z-order, bottom first, so numbering follows the visual stack.
func ExportDirectory(sc *scene.Scene, opts DirectoryOptions, log zerolog.Logger) (DirectoryResult, error) {
	var images []*item.Image
	for _, it := range sc.ItemsByZ() {
		if img, ok := it.(*item.Image); ok {
			images = append(images, img)
		}
	}
	if len(images) == 0 {
		return DirectoryResult{}, ErrEmptyBoard
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return DirectoryResult{}, fmt.Errorf("create export directory: %w", err)
	}

	var res DirectoryResult
	var remembered *CollisionChoice
	index := opts.StartIndex
	if index < 1 {
		index = 1
	}

	for i, img := range images {
		name := fmt.Sprintf("%04d%s", index, extensionFor(img.EncodedBytes()))
		index++
		path := filepath.Join(opts.Dir, name)

		if _, err := os.Stat(path); err == nil {
			choice := CollisionSkip
			if remembered != nil {
				choice = *remembered
			} else if opts.OnCollision != nil {
				var all bool
				choice, all = opts.OnCollision(path)
				if all {
					c := choice
					remembered = &c
				}
			}
			if choice == CollisionSkip {
				res.Skipped++
				log.Debug().Str("path", path).Msg("export target exists, skipped")
				progress(opts, i+1, len(images))
				continue
			}
		}

		if err := os.WriteFile(path, img.EncodedBytes(), 0o644); err != nil {
			return res, fmt.Errorf("write %s: %w", path, err)
		}
		res.Written++
		progress(opts, i+1, len(images))
	}
	log.Info().Int("written", res.Written).Int("skipped", res.Skipped).Msg("directory export finished")
	return res, nil
}

func progress(opts DirectoryOptions, done, total int) {
	if opts.OnProgress != nil {
		opts.OnProgress(done, total)
	}
}

func extensionFor(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ".img"
	}
	switch format {
	case "jpeg":
		return ".jpg"
	default:
		return "." + format
	}
}
