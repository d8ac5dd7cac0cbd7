// gistvac is a CLI tool for offline maintenance of index files.
//
// Usage:
//
//	gistvac <indexfile>                # statistics pass
//	gistvac -reclaim <indexfile>       # also reclaim empty leaf pages
//	gistvac -wal out.wal <indexfile>   # write change records to a log file
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/x4m/gistvac"
	"github.com/x4m/gistvac/internal/logging"
	"github.com/x4m/gistvac/store"
	"github.com/x4m/gistvac/vacuum"
)

func main() {
	pageSize := flag.Int("page-size", 8192, "page size of the index file in bytes")
	reclaim := flag.Bool("reclaim", false, "reclaim empty leaf pages instead of only collecting statistics")
	walPath := flag.String("wal", "", "append change records to this file")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: gistvac [-reclaim] [-page-size n] [-wal file] <indexfile>")
		os.Exit(1)
	}

	if err := run(flag.Arg(0), *pageSize, *reclaim, *walPath, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(filename string, pageSize int, reclaim bool, walPath, logLevel string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(logging.Config{LogLevel: logLevel})
	defer logger.Sync()

	m, err := store.OpenMMap(filename, pageSize)
	if err != nil {
		return err
	}
	defer m.Close()

	log := store.NewLog(nil)
	if walPath != "" {
		f, err := os.OpenFile(walPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		log = store.NewLog(f)
	}

	fsm := new(store.FSM)
	info := &vacuum.Info{
		Store:  m,
		Log:    log,
		Oracle: new(store.SequenceOracle),
		FSM:    fsm,
		Logger: logger,
		Ctx:    ctx,

		// no heap row count is available offline, so never clamp
		EstimatedCount: true,
	}

	var stats *vacuum.Stats
	if reclaim {
		// a never-delete callback still retires already-empty leaves
		keepAll := gistvac.DeleteCheckerFunc(func(gistvac.HeapPointer) bool { return false })
		if stats, err = vacuum.BulkDelete(info, nil, keepAll); err != nil {
			return err
		}
	}
	if stats, err = vacuum.Cleanup(info, stats); err != nil {
		return err
	}
	if err := m.Sync(); err != nil {
		return err
	}

	fmt.Printf("pages:         %d\n", stats.NumPages)
	fmt.Printf("pages deleted: %d\n", stats.PagesDeleted)
	fmt.Printf("pages free:    %d\n", stats.PagesFree)
	fmt.Printf("live entries:  %.0f\n", stats.NumIndexTuples)
	fmt.Printf("removed:       %.0f\n", stats.TuplesRemoved)
	if n := fsm.Len(); n > 0 {
		fmt.Printf("recyclable:    %d\n", n)
	}
	return nil
}
