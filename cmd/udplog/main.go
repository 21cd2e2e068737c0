// Command udplog ships log lines to a bulk UDP ingestion server.
//
//	udplog [-config FILE] [-level LEVEL] [-follow FILE] [message ...]
//
// The message arguments are sent as one record. Without them, every line
// read from stdin is sent as a record, or, with -follow, every line appended
// to FILE. The ELK_SERVER, ELK_PORT and ELK_SERVICE environment variables
// override the config file.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bitdabbler/bulkudp"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "udplog: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stderr io.Writer) error {
	fs := flag.NewFlagSet("udplog", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "path to config file")
	levelName := fs.String("level", "info", "level of the shipped records, and the lowest level sent")
	followPath := fs.String("follow", "", "ship the lines appended to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*levelName)); err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := bulkudp.NewClientContext(ctx, cfg.Host, cfg.clientOptions())
	if err != nil {
		return fmt.Errorf("cannot create client: %w", err)
	}
	opts := cfg.handlerOptions()
	opts.Level = level
	h := bulkudp.NewHandlerCustom(client, nil, opts)
	defer h.Shutdown(context.Background())

	var handler slog.Handler = h
	if cfg.Console {
		handler = newTeeHandler(h, tint.NewHandler(stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}))
	}
	logger := slog.New(handler).With("run_id", uuid.NewString())

	defer bulkudp.LogPanic(logger)

	ship := func(line string) {
		if len(strings.TrimSpace(line)) == 0 {
			return
		}
		logger.Log(ctx, level, line)
	}

	switch {
	case fs.NArg() > 0:
		ship(strings.Join(fs.Args(), " "))
		return nil

	case len(*followPath) > 0:
		f, err := newFollower(*followPath, slog.New(tint.NewHandler(stderr, &tint.Options{Level: slog.LevelInfo})))
		if err != nil {
			return err
		}
		err = f.run(ctx, ship)
		if ctx.Err() != nil {
			return nil
		}
		return err

	default:
		return scanLines(ctx, stdin, ship)
	}
}

// scanLines calls fn with each line of r until r is exhausted or ctx is
// done.
func scanLines(ctx context.Context, r io.Reader, fn func(line string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		fn(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("cannot read input: %w", err)
	}
	return nil
}
