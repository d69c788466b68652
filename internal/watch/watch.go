package watch

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 是合并一批文件事件的静默期。
const DefaultDebounce = 200 * time.Millisecond

// Change 是一批去抖后的目录变化。Files 为发生变化的文件名（basename，已排序）。
type Change struct {
	Files []string
}

// Watcher 监视单个目录（不递归）中的文件增删改。
//
// 规则：
// - 以 '.' 开头的文件（包括 fsx 的原子写临时文件）一律忽略
// - Ignore 返回 true 的文件忽略（通常是本程序自己写出的图集/manifest）
// - 静默期 Debounce 内的所有事件合并为一个 Change
type Watcher struct {
	Dir     string
	Changes <-chan Change

	// Ignore 和 Debounce 必须在 Start 之前设置。
	Ignore   func(name string) bool
	Debounce time.Duration

	changes  chan Change
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	watcher  *fsnotify.Watcher
}

func NewWatcher(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ch := make(chan Change, 1)
	return &Watcher{
		Dir:      dir,
		Changes:  ch,
		Debounce: DefaultDebounce,
		changes:  ch,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		watcher:  fw,
	}, nil
}

// Start 开始监视；目录不存在时返回错误。
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.Dir); err != nil {
		// 事件循环未启动：让 Stop 仍可正常返回。
		close(w.done)
		return err
	}
	go w.loop()
	return nil
}

// Stop 关闭 watcher 并等待事件循环退出，之后 Changes 被关闭。可重复调用。
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.quit)
		w.watcher.Close()
		<-w.done
		close(w.changes)
	})
}

func (w *Watcher) loop() {
	defer close(w.done)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	pending := make(map[string]struct{})
	var last time.Time
	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if w.ignored(name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[name] = struct{}{}
				last = time.Now()
			}

		case <-ticker.C:
			if len(pending) == 0 || time.Since(last) < debounce {
				continue
			}
			files := make([]string, 0, len(pending))
			for f := range pending {
				files = append(files, f)
			}
			sort.Strings(files)
			clear(pending)
			if !w.emit(Change{Files: files}) {
				return
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// 监视错误非致命，忽略。
		}
	}
}

func (w *Watcher) ignored(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return w.Ignore != nil && w.Ignore(name)
}

// emit 在 Stop 之后放弃发送，返回 false。
func (w *Watcher) emit(c Change) bool {
	select {
	case w.changes <- c:
		return true
	case <-w.quit:
		return false
	}
}
