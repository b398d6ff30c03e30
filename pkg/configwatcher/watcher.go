package configwatcher

import (
	"context"
	"path/filepath"
	"time"

	"quiz_master_backend/internal/config"
	"quiz_master_backend/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type ConfigReloader func(cfg *config.Config)

const configFile = "config.yaml"

// Watcher 监听配置目录而不是文件本身，编辑器先写临时文件再 rename 时也能收到事件
type Watcher struct {
	Dir      string
	Debounce time.Duration
	Reload   ConfigReloader
}

// WatchConfig 防抖 1 秒，ctx 取消时退出
func WatchConfig(ctx context.Context, configDir string, reloader ConfigReloader) error {
	w := &Watcher{Dir: configDir, Debounce: time.Second, Reload: reloader}
	return w.Start(ctx)
}

func (w *Watcher) Start(ctx context.Context) error {
	dir, err := filepath.Abs(w.Dir)
	if err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return err
	}

	go w.loop(ctx, fw, dir)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, dir string) {
	defer fw.Close()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(w.Debounce)
			}

		case <-pending:
			pending = nil
			w.reload(dir)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}

// reload 新配置校验失败时保留旧配置
func (w *Watcher) reload(dir string) {
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		logger.Log.Error("Ignoring invalid config change", zap.String("dir", dir), zap.Error(err))
		return
	}
	logger.Log.Info("Config reloaded", zap.String("dir", dir))
	w.Reload(cfg)
}
