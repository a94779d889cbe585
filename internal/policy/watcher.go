package policy

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/logging"
)

// TableWatcher reloads an action-value table file into an Agent whenever the
// file is written or replaced. A table that fails to load leaves the agent's
// current table in place.
type TableWatcher struct {
	path    string
	agent   *Agent
	watcher *fsnotify.Watcher
	// onReload is called after every reload attempt; used by tests.
	onReload func(Table, error)
}

// NewTableWatcher watches the directory holding path so editors and trainers
// that replace the file by rename are still picked up.
func NewTableWatcher(path string, agent *Agent) (*TableWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create table watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	return &TableWatcher{
		path:    filepath.Clean(path),
		agent:   agent,
		watcher: w,
	}, nil
}

// Run processes file events until ctx is done.
func (tw *TableWatcher) Run(ctx context.Context) {
	defer tw.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != tw.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				tw.reload()
			}
		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("[Policy] Table watcher error: %v", err)
		}
	}
}

func (tw *TableWatcher) reload() {
	table, err := LoadTable(tw.path)
	if err != nil {
		logging.Warn("[Policy] Keeping current table, reload of %s failed: %v", tw.path, err)
	} else {
		tw.agent.SetTable(table)
		logging.Info("[Policy] Reloaded action-value table from %s (%d states)", tw.path, len(table))
	}
	if tw.onReload != nil {
		tw.onReload(table, err)
	}
}

// LoadOrDefault loads the table at path, falling back to DefaultTable when the
// path is empty or the file cannot be used.
func LoadOrDefault(path string) Table {
	if path == "" {
		logging.Info("[Policy] No table configured, using default table")
		return DefaultTable()
	}
	table, err := LoadTable(path)
	if err != nil {
		logging.Warn("[Policy] Could not load table: %v; using default table", err)
		return DefaultTable()
	}
	logging.Info("[Policy] Loaded action-value table from %s (%d states)", path, len(table))
	return table
}
