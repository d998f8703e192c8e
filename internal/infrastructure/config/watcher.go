package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/weatherbot/backend/internal/infrastructure/log"
)

// ReloadFunc 配置重新加载后的回调
type ReloadFunc func(cfg *Config)

// Watcher 监听配置文件变更并重新加载
// 监听所在目录而不是文件本身，编辑器的原子替换（rename）也能被捕获
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	mu        sync.Mutex
	listeners []ReloadFunc
	timer     *time.Timer

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWatcher 创建配置文件监听器
func NewWatcher() (*Watcher, error) {
	return NewWatcherForPath(ConfigPath(), 300*time.Millisecond)
}

// NewWatcherForPath 创建指定路径的配置文件监听器
func NewWatcherForPath(path string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		watcher:  fw,
		logger:   log.NewModuleLogger("config", "watcher"),
		stopCh:   make(chan struct{}),
	}, nil
}

// OnReload 注册重新加载回调
func (w *Watcher) OnReload(fn ReloadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Start 启动监听
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	w.logger.Info("Watching config file", "path", w.path)

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop 停止监听
func (w *Watcher) Stop() {
	close(w.stopCh)
	_ = w.watcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

// schedule 防抖：短时间内的多次写入只触发一次加载
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("Ignoring invalid config change", "path", w.path, "error", err)
		return
	}
	applyEnv(cfg)

	w.mu.Lock()
	listeners := make([]ReloadFunc, len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg)
	}
	w.logger.Info("Config reloaded", "path", w.path)
}
