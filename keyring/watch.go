package keyring

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch loads path and reloads it whenever the file changes until ctx is
// done. A reload that fails to parse is logged and the previous keys stay in
// effect. The parent directory is watched so that editors and secret
// managers that replace the file atomically are handled.
func Watch(ctx context.Context, path string, log *slog.Logger) (*Ring, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}

	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				b, err := os.ReadFile(abs)
				if err != nil {
					log.WarnContext(ctx, "keyring.reload.read.fail", slog.String("err", err.Error()))
					continue
				}
				if err := r.replace(b); err != nil {
					log.WarnContext(ctx, "keyring.reload.fail", slog.String("err", err.Error()))
					continue
				}
				log.InfoContext(ctx, "keyring.reload.ok", slog.Int("keys", len(r.KeyIDs())))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.WarnContext(ctx, "keyring.watch.err", slog.String("err", err.Error()))
			}
		}
	}()
	return r, nil
}
