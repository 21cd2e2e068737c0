package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// follower reads the lines appended to a file after it was opened.
type follower struct {
	path    string
	file    *os.File
	reader  *bufio.Reader
	watcher *fsnotify.Watcher
	pending string
	logger  *slog.Logger
}

// newFollower opens path at its end and starts watching it. Lines appended
// from then on are delivered by run.
func newFollower(path string, logger *slog.Logger) (*follower, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open file: %w", err)
	}

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("cannot create watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		file.Close()
		return nil, fmt.Errorf("cannot add file to watcher: %w", err)
	}

	return &follower{
		path:    path,
		file:    file,
		reader:  bufio.NewReader(file),
		watcher: watcher,
		logger:  logger,
	}, nil
}

// run calls fn with every complete line, without its line ending, until ctx
// is done or the file goes away.
func (f *follower) run(ctx context.Context, fn func(line string)) error {
	defer f.file.Close()
	defer f.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-f.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				return fmt.Errorf("stopped following %s: %s", f.path, event.Op)
			}
			if !event.Has(fsnotify.Write) {
				f.logger.Debug("ignoring file event", "event", event.String())
				continue
			}
			if err := f.drain(fn); err != nil {
				return err
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// drain reads up to the end of the file. A trailing partial line is held
// back until the rest of it is written.
func (f *follower) drain(fn func(line string)) error {
	for {
		chunk, err := f.reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			f.pending += chunk
			return nil
		}
		if err != nil {
			return err
		}

		line := strings.TrimRight(f.pending+chunk, "\r\n")
		f.pending = ""
		fn(line)
	}
}
