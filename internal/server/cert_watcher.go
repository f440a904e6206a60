package server

import (
	"crypto/tls"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"skillpick/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// CertReloader hands out the current TLS key pair
type CertReloader struct {
	certFile string
	keyFile  string
	current  atomic.Pointer[tls.Certificate]
	logger   *errors.Logger
}

// NewCertReloader loads the key pair; the server does not start without one
func NewCertReloader(certFile, keyFile string, logger *errors.Logger) (*CertReloader, error) {
	cr := &CertReloader{certFile: certFile, keyFile: keyFile, logger: logger}
	if err := cr.Reload(); err != nil {
		return nil, err
	}
	return cr, nil
}

// Reload swaps in the key pair currently on disk. On failure the previous
// pair keeps serving.
func (cr *CertReloader) Reload() error {
	pair, err := tls.LoadX509KeyPair(cr.certFile, cr.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS key pair %s / %s: %w", cr.certFile, cr.keyFile, err)
	}
	cr.current.Store(&pair)
	return nil
}

// GetCertificate satisfies tls.Config.GetCertificate
func (cr *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return cr.current.Load(), nil
}

// TLSConfig returns a server config that always presents the latest pair
func (cr *CertReloader) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: cr.GetCertificate,
	}
}

func (cr *CertReloader) reloadFromWatcher() {
	if err := cr.Reload(); err != nil {
		cr.logger.LogError(err, "Certificate reload failed, keeping previous certificate")
		return
	}
	cr.logger.Info("TLS certificate reloaded", "cert_file", cr.certFile)
}

// fileStamp identifies one version of a file on disk
type fileStamp struct {
	size    int64
	modTime time.Time
}

// CertWatcher calls onChange once a burst of filesystem events in the
// certificate directories has settled and a watched file actually differs.
// Directories are watched rather than files so replacements by rename, and
// symlink swaps as done by mounted secrets, are seen too.
type CertWatcher struct {
	files    []string
	delay    time.Duration
	onChange func()
	logger   *errors.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	done    chan struct{}
	stopped chan struct{}

	// owned by the loop goroutine once started
	stamps map[string]fileStamp
}

// NewCertWatcher creates a watcher for the given files; empty names are ignored
func NewCertWatcher(files []string, delay time.Duration, onChange func(), logger *errors.Logger) *CertWatcher {
	if delay <= 0 {
		delay = time.Second
	}
	return &CertWatcher{
		files:    slices.DeleteFunc(slices.Clone(files), func(f string) bool { return f == "" }),
		delay:    delay,
		onChange: onChange,
		logger:   logger,
		stamps:   make(map[string]fileStamp),
	}
}

// Start begins watching
func (cw *CertWatcher) Start() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.fsw != nil {
		return fmt.Errorf("certificate watcher is already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dirs := make([]string, 0, len(cw.files))
	for _, file := range cw.files {
		dirs = append(dirs, filepath.Dir(file))
	}
	slices.Sort(dirs)
	for _, dir := range slices.Compact(dirs) {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	for _, file := range cw.files {
		if stamp, ok := statFile(file); ok {
			cw.stamps[file] = stamp
		}
	}

	cw.fsw = fsw
	cw.done = make(chan struct{})
	cw.stopped = make(chan struct{})
	go cw.loop(fsw, cw.done, cw.stopped)

	cw.logger.Info("Certificate file watcher started", "files", cw.files, "debounce", cw.delay)
	return nil
}

// Stop ends watching and waits for the loop to exit. Safe to call twice.
func (cw *CertWatcher) Stop() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.fsw == nil {
		return nil
	}

	close(cw.done)
	err := cw.fsw.Close()
	<-cw.stopped
	cw.fsw = nil

	if err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}
	cw.logger.Info("Certificate file watcher stopped")
	return nil
}

func (cw *CertWatcher) loop(fsw *fsnotify.Watcher, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	timer := time.NewTimer(cw.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-done:
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				timer.Reset(cw.delay)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			cw.logger.LogError(err, "Certificate watcher error")

		case <-timer.C:
			if cw.refresh() {
				cw.logger.Info("Certificate files changed, reloading")
				cw.onChange()
			}
		}
	}
}

// refresh records the current stamps and reports whether any file changed.
// A file that disappears counts as unchanged until it comes back.
func (cw *CertWatcher) refresh() bool {
	changed := false
	for _, file := range cw.files {
		stamp, ok := statFile(file)
		if !ok {
			continue
		}
		if prev, seen := cw.stamps[file]; !seen || prev != stamp {
			cw.stamps[file] = stamp
			changed = true
		}
	}
	return changed
}

// statFile follows symlinks so a swapped link target counts as a change
func statFile(file string) (fileStamp, bool) {
	info, err := os.Stat(file)
	if err != nil {
		return fileStamp{}, false
	}
	return fileStamp{size: info.Size(), modTime: info.ModTime()}, true
}
