// Command storectl inspects the configured storage backend.
//
//	storectl status          connection, collections, document counts, size
//	storectl users           every account, oldest first (no password hashes)
//	storectl email-index     MongoDB only: the users indexes and whether the
//	                         email index lets several email-less users coexist
//
// It reads the same .env / environment as the server. -driver overrides
// STORE_DRIVER for one run.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sakif/healthchat/internal/config"
	"github.com/sakif/healthchat/internal/repository"
	"github.com/sakif/healthchat/internal/repository/mongo"
	"github.com/sakif/healthchat/internal/server"
)

const usage = `usage: storectl [-driver auto|mongo|file|sqlite] [-json] <status|users|email-index>`

var errUsage = errors.New(usage)

// indexLister is implemented by the mongo store.
type indexLister interface {
	ListIndexes(ctx context.Context) ([]mongo.IndexInfo, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("storectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	driver := fs.String("driver", cfg.Store.Driver, "storage backend: auto, mongo, file or sqlite")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return errUsage
	}

	storeCfg := cfg.Store
	storeCfg.Driver = *driver

	// Diagnostics go to stderr so stdout stays machine-readable with -json.
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store, err := server.OpenStore(ctx, storeCfg, logger)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	switch fs.Arg(0) {
	case "status":
		return printStatus(ctx, store, stdout, *asJSON)
	case "users":
		return printUsers(ctx, store, stdout, *asJSON)
	case "email-index":
		return printEmailIndex(ctx, store, stdout, *asJSON)
	}
	return errUsage
}

func printStatus(ctx context.Context, store repository.Store, w io.Writer, asJSON bool) error {
	status, err := store.Status(ctx)
	if err != nil {
		return fmt.Errorf("storectl: status: %w", err)
	}
	if asJSON {
		return writeJSON(w, status)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "backend\t%s\n", status.Backend)
	fmt.Fprintf(tw, "connected\t%t\n", status.Connected)
	fmt.Fprintf(tw, "database\t%s\n", status.Database)
	fmt.Fprintf(tw, "size\t%s\n", status.SizeEstimate)
	fmt.Fprintf(tw, "message\t%s\n", status.Message)
	for _, name := range status.Collections {
		fmt.Fprintf(tw, "documents[%s]\t%d\n", name, status.DocumentCounts[name])
	}
	return tw.Flush()
}

func printUsers(ctx context.Context, store repository.Store, w io.Writer, asJSON bool) error {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("storectl: listing users: %w", err)
	}

	if asJSON {
		public := make([]any, 0, len(users))
		for i := range users {
			public = append(public, users[i].Public())
		}
		return writeJSON(w, public)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USER ID\tUSERNAME\tEMAIL\tFULL NAME\tCREATED")
	for _, u := range users {
		email := u.Email
		if email == "" {
			email = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Username, email, u.FullName, u.CreatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(tw, "\n%d user(s)\n", len(users))
	return tw.Flush()
}

func printEmailIndex(ctx context.Context, store repository.Store, w io.Writer, asJSON bool) error {
	lister, ok := store.(indexLister)
	if !ok {
		return fmt.Errorf("storectl: email-index needs the mongo backend, got %q", store.Name())
	}

	indexes, err := lister.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("storectl: listing indexes: %w", err)
	}
	if asJSON {
		return writeJSON(w, indexes)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKEY\tUNIQUE\tSPARSE\tPARTIAL\tEMAILLESS USERS")
	for _, idx := range indexes {
		verdict := "ok"
		if idx.BlocksMissingEmails() {
			verdict = "BLOCKED"
		}
		if !idx.HasKey("email") {
			verdict = "-"
		}
		fmt.Fprintf(tw, "%s\t%v\t%t\t%t\t%t\t%s\n",
			idx.Name, idx.Key, idx.Unique, idx.Sparse, len(idx.PartialFilter) > 0, verdict)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
