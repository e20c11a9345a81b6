// Package app provides application lifecycle management: the open board
// file, dirty tracking, background imports and exports, and events the
// UI listens to.
package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"refboard/internal/command"
	"refboard/internal/export"
	"refboard/internal/imageio"
	"refboard/internal/item"
	"refboard/internal/scene"
	"refboard/internal/settings"
	"refboard/internal/store"
	"refboard/internal/worker"
	"refboard/pkg/geometry"
)

// ErrNoPath is returned by Save when the board has never been saved.
var ErrNoPath = errors.New("board has no file path yet")

// importCascade offsets successive imported images so they don't stack
// exactly on top of each other.
const importCascade = 20.0

// pasteOffset shifts pasted items off their source.
const pasteOffset = 10.0

// EventType identifies different application events.
type EventType int

const (
	EventBoardLoaded EventType = iota
	EventBoardSaved
	EventModified
	EventItemsImported
	EventProgress
	EventErrors
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// State holds the application state around one open board.
type State struct {
	mu sync.RWMutex

	FilePath string
	Modified bool

	Scene    *scene.Scene
	Settings *settings.Settings
	Decoder  *imageio.Decoder
	Runner   *worker.Runner

	log       zerolog.Logger
	listeners map[EventType][]EventListener
	clipboard []item.Item
	loading   bool
}

// NewState creates application state with an empty board.
func NewState(cfg *settings.Settings, log zerolog.Logger) *State {
	s := &State{
		Scene:     scene.New(cfg.UndoLimit()),
		Settings:  cfg,
		Decoder:   imageio.NewDecoder(cfg.ImageAllocLimit(), log),
		Runner:    worker.NewRunner(log),
		log:       log,
		listeners: make(map[EventType][]EventListener),
	}
	dirty := func(interface{}) {
		s.mu.RLock()
		loading := s.loading
		s.mu.RUnlock()
		if !loading {
			s.SetModified(true)
		}
	}
	s.Scene.On(scene.EventGeometryChanged, dirty)
	s.Scene.On(scene.EventMembershipChanged, dirty)
	return s
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()
	for _, listener := range listeners {
		listener(data)
	}
}

// SetModified marks the board as modified and emits an event.
func (s *State) SetModified(modified bool) {
	s.mu.Lock()
	changed := s.Modified != modified
	s.Modified = modified
	s.mu.Unlock()
	if changed {
		s.Emit(EventModified, modified)
	}
}

// Title returns the window title content: file name plus dirty marker.
func (s *State) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name := "unnamed board"
	if s.FilePath != "" {
		name = filepath.Base(s.FilePath)
	}
	if s.Modified {
		return name + " *"
	}
	return name
}

// NewBoard discards the current board for an empty one.
func (s *State) NewBoard() {
	s.Scene.Clear()
	s.mu.Lock()
	s.FilePath = ""
	s.mu.Unlock()
	s.SetModified(false)
	s.Emit(EventBoardLoaded, "")
}

// OpenBoard replaces the current board with the file's contents.
func (s *State) OpenBoard(path string) error {
	st, err := store.Open(path, s.log)
	if err != nil {
		return err
	}
	defer st.Close()

	items, err := st.Read(s.Decoder)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.Scene.Clear()
	for _, it := range items {
		s.Scene.AddItem(it)
	}
	s.mu.Lock()
	s.loading = false
	s.FilePath = path
	s.mu.Unlock()

	s.SetModified(false)
	s.Settings.AddRecentFile(path)
	s.Emit(EventBoardLoaded, path)
	return nil
}

// Save writes the board back to its file incrementally.
func (s *State) Save() error {
	s.mu.RLock()
	path := s.FilePath
	s.mu.RUnlock()
	if path == "" {
		return ErrNoPath
	}
	return s.saveTo(path, false)
}

// SaveAs writes the board to a new file and adopts the path.
func (s *State) SaveAs(path string) error {
	return s.saveTo(path, true)
}

func (s *State) saveTo(path string, fresh bool) error {
	var (
		st  *store.Store
		err error
	)
	if fresh {
		st, err = store.Create(path, s.log)
	} else if _, statErr := os.Stat(path); statErr != nil {
		st, err = store.Create(path, s.log)
	} else {
		st, err = store.Open(path, s.log)
	}
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Save(s.Scene.ItemsForSave()); err != nil {
		return err
	}
	s.mu.Lock()
	s.FilePath = path
	s.mu.Unlock()
	s.SetModified(false)
	s.Settings.AddRecentFile(path)
	s.Emit(EventBoardSaved, path)
	return nil
}

// ImportImages loads image files as new items in a background job,
// cascading them from pos. The insertion is pushed as one undo step when
// the job completes; per-file failures are reported via EventErrors.
func (s *State) ImportImages(paths []string, pos geometry.Point2D) context.CancelFunc {
	results := make([]item.Item, len(paths))
	policy := s.Settings.StorageFormat()

	return s.Runner.Start(worker.Job{
		Name:  "import images",
		Total: len(paths),
		Run: func(_ context.Context, i int) error {
			it, err := s.importOne(paths[i], policy)
			if err != nil {
				return err
			}
			results[i] = it
			return nil
		},
		OnProgress: func(p worker.Progress) {
			s.Emit(EventProgress, p)
		},
		OnDone: func(errs []error, canceled bool) {
			var items []item.Item
			for i, it := range results {
				if it == nil {
					continue
				}
				it.SetPosition(pos.Add(geometry.NewPoint2D(float64(i)*importCascade, float64(i)*importCascade)))
				it.SetZ(s.Scene.MaxZ() + 1 + float64(i))
				items = append(items, it)
			}
			if len(items) > 0 && !canceled {
				s.Scene.ClearSelection()
				s.Scene.Push(command.NewInsertItems(s.Scene, items))
				s.Emit(EventItemsImported, items)
			}
			if len(errs) > 0 {
				s.Emit(EventErrors, errs)
			}
		},
	})
}

func (s *State) importOne(path, policy string) (item.Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pixels, _, err := s.Decoder.Decode(raw)
	if err != nil {
		return nil, err
	}
	stored, _, err := imageio.EncodeForStorage(pixels, policy)
	if err != nil {
		return nil, err
	}
	return item.NewImage(stored, pixels, filepath.Base(path), imageio.HasAlpha(pixels)), nil
}

// AddText inserts a text item as an undoable step.
func (s *State) AddText(text string, pos geometry.Point2D) *item.Text {
	txt := item.NewText(text)
	txt.SetPosition(pos)
	txt.SetZ(s.Scene.MaxZ() + 1)
	s.Scene.ClearSelection()
	s.Scene.Push(command.NewInsertItems(s.Scene, []item.Item{txt}))
	return txt
}

// CopySelection snapshots the selected items onto the internal clipboard.
func (s *State) CopySelection() int {
	sel := s.Scene.SelectedItems()
	s.mu.Lock()
	s.clipboard = nil
	for _, it := range sel {
		if dup := it.Copy(); dup != nil {
			s.clipboard = append(s.clipboard, dup)
		}
	}
	n := len(s.clipboard)
	s.mu.Unlock()
	return n
}

// Paste inserts copies of the clipboard, slightly offset, as one undo
// step, and leaves them selected.
func (s *State) Paste() []item.Item {
	s.mu.RLock()
	src := s.clipboard
	s.mu.RUnlock()
	if len(src) == 0 {
		return nil
	}

	var items []item.Item
	z := s.Scene.MaxZ()
	for i, it := range src {
		dup := it.Copy()
		if dup == nil {
			continue
		}
		dup.SetPosition(dup.Position().Add(geometry.NewPoint2D(pasteOffset, pasteOffset)))
		dup.SetZ(z + 1 + float64(i))
		items = append(items, dup)
	}
	s.Scene.ClearSelection()
	s.Scene.Push(command.NewInsertItems(s.Scene, items))
	return items
}

// DeleteSelection removes the selected items as one undo step.
func (s *State) DeleteSelection() {
	sel := s.Scene.SelectedItems()
	if len(sel) == 0 {
		return
	}
	s.Scene.Push(command.NewDeleteItems(s.Scene, sel))
}

// ExportPNG renders the board to a PNG file.
func (s *State) ExportPNG(path string, width int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.WritePNG(s.Scene, width, f); err != nil {
		return err
	}
	s.log.Info().Str("path", path).Msg("png export written")
	return nil
}

// ExportSVG serializes the board to an SVG file.
func (s *State) ExportSVG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.WriteSVG(s.Scene, f); err != nil {
		return err
	}
	s.log.Info().Str("path", path).Msg("svg export written")
	return nil
}

// ExportImages writes each image item to a numbered file in dir.
func (s *State) ExportImages(dir string, startIndex int, onCollision export.CollisionFunc) (export.DirectoryResult, error) {
	return export.ExportDirectory(s.Scene, export.DirectoryOptions{
		Dir:         dir,
		StartIndex:  startIndex,
		OnCollision: onCollision,
		OnProgress: func(done, total int) {
			s.Emit(EventProgress, worker.Progress{Done: done, Total: total})
		},
	}, s.log)
}
