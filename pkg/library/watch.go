package library

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"
)

// settle is how long Watch waits for a burst of events to end before rescanning.
var settle = 500 * time.Millisecond

// Watch rescans the library whenever a watched directory changes and passes the new
// snapshot to onChange. It blocks until ctx is done.
func (l *Library) Watch(ctx context.Context, onChange func(*Snapshot)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	dirs := slices.Clone(l.dirs)
	for _, root := range l.dirs {
		for _, a := range l.Snapshot().Albums {
			rel := a.InPath
			if len(l.dirs) > 1 {
				// albums carry their root's base name as the first element
				if len(a.Hier) == 0 || a.Hier[0] != filepath.Base(root) {
					continue
				}
				rel, _ = filepath.Rel(filepath.Base(root), a.InPath)
			}
			dirs = append(dirs, filepath.Join(root, rel), filepath.Dir(filepath.Join(root, rel)))
		}
	}

	slices.Sort(dirs)
	dirs = slices.Compact(dirs)

	klog.Infof("watching %d dirs ...", len(dirs))
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			klog.V(1).Infof("event: %s", event)
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				timer = time.After(settle)
			}
		case <-timer:
			timer = nil
			snap, err := l.Scan()
			if err != nil {
				klog.Errorf("rescan failed: %v", err)
				continue
			}
			onChange(snap)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}
