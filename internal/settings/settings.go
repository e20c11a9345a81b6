// Package settings provides JSON-based application settings with a typed
// key registry: every known key carries a default and a validator, so a
// hand-edited settings file can never feed garbage into the app.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"refboard/internal/imageio"
)

const settingsFile = "settings.json"

// Known setting keys.
const (
	KeyImageStorageFormat = "image_storage_format"
	KeyArrangeGap         = "arrange_gap"
	KeyImageAllocLimit    = "image_allocation_limit"
	KeyUndoLimit          = "undo_limit"
	KeyRecentFiles        = "recent_files"
)

// maxRecentFiles bounds the recent files list.
const maxRecentFiles = 10

type keySpec struct {
	def      interface{}
	validate func(v interface{}) bool
}

var registry = map[string]keySpec{
	KeyImageStorageFormat: {
		def: imageio.FormatOptimal,
		validate: func(v interface{}) bool {
			s, ok := v.(string)
			return ok && (s == imageio.FormatOptimal || s == imageio.FormatPNG || s == imageio.FormatJPEG)
		},
	},
	KeyArrangeGap: {
		def: 10.0,
		validate: func(v interface{}) bool {
			f, ok := v.(float64)
			return ok && f >= 0 && f <= 1000
		},
	},
	KeyImageAllocLimit: {
		// 256 MiB of decoded pixels
		def: float64(256 << 20),
		validate: func(v interface{}) bool {
			f, ok := v.(float64)
			return ok && f >= 0
		},
	},
	KeyUndoLimit: {
		def: 100.0,
		validate: func(v interface{}) bool {
			f, ok := v.(float64)
			return ok && f >= 1 && f == float64(int(f))
		},
	},
}

// Settings stores application settings as a validated key-value map.
type Settings struct {
	mu     sync.RWMutex
	values map[string]interface{}
	path   string
	log    zerolog.Logger
}

// Load reads settings from the user config directory. Unknown keys are
// kept verbatim; known keys failing validation fall back to defaults.
func Load(log zerolog.Logger) *Settings {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return LoadFrom(filepath.Join(configDir, "refboard", settingsFile), log)
}

// LoadFrom reads settings from an explicit path.
func LoadFrom(path string, log zerolog.Logger) *Settings {
	s := &Settings{
		values: make(map[string]interface{}),
		path:   path,
		log:    log,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("settings file unreadable, using defaults")
		s.values = make(map[string]interface{})
		return s
	}
	for key, spec := range registry {
		if v, ok := s.values[key]; ok && !spec.validate(v) {
			log.Warn().Str("key", key).Interface("value", v).Msg("invalid setting, using default")
			delete(s.values, key)
		}
	}
	return s
}

// Save writes settings to disk.
func (s *Settings) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.values, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

func (s *Settings) get(key string) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		if spec, known := registry[key]; !known || spec.validate(v) {
			return v
		}
	}
	if spec, ok := registry[key]; ok {
		return spec.def
	}
	return nil
}

// set stores a value after validation; invalid values are dropped.
func (s *Settings) set(key string, v interface{}) {
	if spec, ok := registry[key]; ok && !spec.validate(v) {
		s.log.Warn().Str("key", key).Interface("value", v).Msg("rejected invalid setting")
		return
	}
	s.mu.Lock()
	s.values[key] = v
	s.mu.Unlock()
}

// StorageFormat returns the image storage format policy.
func (s *Settings) StorageFormat() string { return s.get(KeyImageStorageFormat).(string) }

// SetStorageFormat stores the image storage format policy.
func (s *Settings) SetStorageFormat(v string) { s.set(KeyImageStorageFormat, v) }

// ArrangeGap returns the spacing used by the arrange operations.
func (s *Settings) ArrangeGap() float64 { return s.get(KeyArrangeGap).(float64) }

// SetArrangeGap stores the arrange spacing.
func (s *Settings) SetArrangeGap(v float64) { s.set(KeyArrangeGap, v) }

// ImageAllocLimit returns the decode allocation limit in bytes.
func (s *Settings) ImageAllocLimit() int64 { return int64(s.get(KeyImageAllocLimit).(float64)) }

// SetImageAllocLimit stores the decode allocation limit.
func (s *Settings) SetImageAllocLimit(v int64) { s.set(KeyImageAllocLimit, float64(v)) }

// UndoLimit returns the undo stack depth.
func (s *Settings) UndoLimit() int { return int(s.get(KeyUndoLimit).(float64)) }

// SetUndoLimit stores the undo stack depth.
func (s *Settings) SetUndoLimit(v int) { s.set(KeyUndoLimit, float64(v)) }

// RecentFiles returns the most recently opened board files, newest first.
func (s *Settings) RecentFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.values[KeyRecentFiles].([]interface{})
	if !ok {
		return nil
	}
	var files []string
	for _, v := range raw {
		if p, ok := v.(string); ok {
			files = append(files, p)
		}
	}
	return files
}

// AddRecentFile moves a path to the front of the recent files list.
func (s *Settings) AddRecentFile(path string) {
	files := s.RecentFiles()
	next := []interface{}{path}
	for _, f := range files {
		if f != path && len(next) < maxRecentFiles {
			next = append(next, f)
		}
	}
	s.mu.Lock()
	s.values[KeyRecentFiles] = next
	s.mu.Unlock()
}
