package editor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/inkwell-editor/inkwell/logging"
	"github.com/sirupsen/logrus"
)

// FileSurface implements Surface over a local scratch file edited by an
// external program. Writes to the file become change notifications. Used by
// `inkwell edit`, which launches $EDITOR on the scratch file.
type FileSurface struct {
	path    string
	watcher *fsnotify.Watcher
	changes chan string
	log     *logrus.Entry

	mu       sync.Mutex
	lastSet  string
	closed   bool
	debounce time.Duration
	pending  *time.Timer
}

var _ Surface = (*FileSurface)(nil)

// NewFileSurface creates the scratch file (if absent) and starts watching
// it. The file's directory is watched, not the file itself, so editors that
// replace-on-save are still seen.
func NewFileSurface(path string) (*FileSurface, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, nil, 0600); err != nil {
			return nil, err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	s := &FileSurface{
		path:     path,
		watcher:  watcher,
		changes:  make(chan string, 16),
		log:      logging.NewLogger("filesurface"),
		debounce: 100 * time.Millisecond,
	}
	go s.watchLoop()
	return s, nil
}

// Path returns the scratch file location.
func (s *FileSurface) Path() string {
	return s.path
}

func (s *FileSurface) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.scheduleRead()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("Watcher error")
		}
	}
}

// scheduleRead debounces rapid write bursts into a single notification.
func (s *FileSurface) scheduleRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.pending != nil {
		s.pending.Stop()
	}
	s.pending = time.AfterFunc(s.debounce, s.emitChange)
}

func (s *FileSurface) emitChange() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.log.WithError(err).Warn("Failed to read scratch file")
		return
	}
	html := string(data)

	s.mu.Lock()
	if s.closed || html == s.lastSet {
		// Our own SetContent write, not a user edit.
		s.mu.Unlock()
		return
	}
	select {
	case s.changes <- html:
	default:
		select {
		case <-s.changes:
		default:
		}
		s.changes <- html
	}
	s.mu.Unlock()
}

// GetContent implements Surface.
func (s *FileSurface) GetContent(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetContent implements Surface.
func (s *FileSurface) SetContent(ctx context.Context, html string, resetHistory bool) error {
	s.mu.Lock()
	s.lastSet = html
	s.mu.Unlock()
	return os.WriteFile(s.path, []byte(html), 0600)
}

// Changes implements Surface.
func (s *FileSurface) Changes() <-chan string {
	return s.changes
}

// Close implements Surface.
func (s *FileSurface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.pending != nil {
		s.pending.Stop()
	}
	close(s.changes)
	s.mu.Unlock()
	return s.watcher.Close()
}
