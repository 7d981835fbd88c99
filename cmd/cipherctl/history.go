package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/RowanDark/cipherkit/internal/history"
)

func runHistory(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "history subcommand required (list, show, delete)")
		return 2
	}
	switch args[0] {
	case "list":
		return runHistoryList(args[1:])
	case "show":
		return runHistoryShow(args[1:])
	case "delete", "rm":
		return runHistoryDelete(args[1:])
	default:
		fmt.Fprintf(stderr, "unknown history subcommand: %s\n", args[0])
		return 2
	}
}

func historyFlags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet("history "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("db", "", "history database (default from config)")
	return fs, path
}

func openHistory(override string) (*history.Store, error) {
	path := override
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.HistoryPath
	}
	if path == "" {
		return nil, errors.New("no history database configured (set history_path or pass -db)")
	}
	return history.New(path)
}

func runHistoryList(args []string) int {
	fs, path := historyFlags("list")
	kind := fs.String("kind", "", "only show recoveries of this cipher")
	digest := fs.String("digest", "", "only show recoveries of the ciphertext with this SHA-256")
	limit := fs.Int("limit", 20, "maximum number of records")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	store, err := openHistory(*path)
	if err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return 1
	}
	defer store.Close()

	records, err := store.List(context.Background(), history.Filter{Kind: *kind, Digest: *digest, Limit: *limit})
	if err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return 1
	}
	if len(records) == 0 {
		fmt.Fprintln(stdout, "no recoveries recorded")
		return 0
	}

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tKEY\tSCORE\tWHEN")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s\n", rec.ID, rec.Kind, rec.Key, rec.Score, rec.CreatedAt.Local().Format(time.DateTime))
	}
	return flushTable(w)
}

func runHistoryShow(args []string) int {
	fs, path := historyFlags("show")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: cipherctl history show [-db file] ID")
		return 2
	}

	store, err := openHistory(*path)
	if err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return 1
	}
	defer store.Close()

	rec, err := store.Get(context.Background(), fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		fmt.Fprintf(stderr, "encode record: %v\n", err)
		return 1
	}
	return 0
}

func runHistoryDelete(args []string) int {
	fs, path := historyFlags("delete")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: cipherctl history delete [-db file] ID")
		return 2
	}

	store, err := openHistory(*path)
	if err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := store.Delete(context.Background(), fs.Arg(0)); err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "deleted %s\n", fs.Arg(0))
	return 0
}
