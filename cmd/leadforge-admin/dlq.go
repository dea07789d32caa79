package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/leadforge/leadforge/internal/core"
	"github.com/leadforge/leadforge/internal/domain/model"
	"github.com/leadforge/leadforge/internal/queue"
)

type dlqListOptions struct {
	Type           string
	UnresolvedOnly bool
	Limit          int
}

type dlqResolveOptions struct {
	ID    string
	Notes string
}

func runDLQ(cmdCtx *commandContext, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: dlq <list|retry|resolve> [flags]")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	store, closeStore, err := openStore(ctx, cmdCtx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil {
			cmdCtx.Logger.Warn("store close failed", "error", cerr)
		}
	}()

	switch args[0] {
	case "list":
		return runDLQList(ctx, store, args[1:])
	case "retry":
		return runDLQRetry(ctx, store, args[1:])
	case "resolve":
		return runDLQResolve(ctx, store, args[1:])
	default:
		return fmt.Errorf("unknown dlq subcommand %q (want list, retry, or resolve)", args[0])
	}
}

func runDLQList(ctx context.Context, store core.DeadLetterStore, args []string) error {
	opts, err := parseDLQListFlags(args)
	if err != nil {
		return err
	}

	filter := model.DeadLetterFilter{
		UnresolvedOnly: opts.UnresolvedOnly,
		Limit:          opts.Limit,
	}
	if opts.Type != "" {
		jt := model.JobType(opts.Type)
		if !jt.Valid() {
			return fmt.Errorf("invalid job type %q", opts.Type)
		}
		filter.JobType = jt
	}

	items, err := store.ListDeadLetters(ctx, filter)
	if err != nil {
		return fmt.Errorf("list dead letters: %w", err)
	}
	if len(items) == 0 {
		return writeln(os.Stdout, "dead-letter queue is empty for this filter")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "ID\tJob ID\tType\tAttempts\tFailed At\tResolved\tLast Error"); err != nil {
		return err
	}
	for _, item := range items {
		resolved := "no"
		if item.Resolved() {
			resolved = item.ResolvedAt.Format(time.RFC3339)
		}
		if err := writef(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			item.ID, item.JobID, item.JobType, item.Attempts,
			item.FailedAt.Format(time.RFC3339), resolved,
			truncate(item.LastError, 60),
		); err != nil {
			return err
		}
	}
	return w.Flush()
}

// runDLQRetry clones the quarantined payload into a brand-new job. The
// dead-letter item stays in place until an operator resolves it.
func runDLQRetry(ctx context.Context, store core.JobStore, args []string) error {
	id, err := parseIDFlag("dlq retry", args)
	if err != nil {
		return err
	}

	q, err := queue.New(queue.Options{Store: store})
	if err != nil {
		return fmt.Errorf("build queue: %w", err)
	}

	job, err := q.RetryFromDeadLetter(ctx, id)
	if err != nil {
		return fmt.Errorf("retry dead letter: %w", err)
	}
	return writef(os.Stdout, "dead letter %s requeued as job %s (type %s)\n", id, job.ID, job.Type)
}

func runDLQResolve(ctx context.Context, store core.DeadLetterStore, args []string) error {
	opts, err := parseDLQResolveFlags(args)
	if err != nil {
		return err
	}

	resolved, err := store.ResolveDeadLetter(ctx, opts.ID, opts.Notes)
	if err != nil {
		return fmt.Errorf("resolve dead letter: %w", err)
	}
	if !resolved {
		return writef(os.Stdout, "dead letter %s was already resolved\n", opts.ID)
	}
	return writef(os.Stdout, "dead letter %s resolved\n", opts.ID)
}

func parseDLQListFlags(args []string) (dlqListOptions, error) {
	var opts dlqListOptions
	fs := flag.NewFlagSet("dlq list", flag.ContinueOnError)
	fs.StringVar(&opts.Type, "type", "", "filter by job type")
	fs.BoolVar(&opts.UnresolvedOnly, "unresolved", false, "only unresolved items")
	fs.IntVar(&opts.Limit, "limit", 50, "maximum rows to print")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func parseDLQResolveFlags(args []string) (dlqResolveOptions, error) {
	var opts dlqResolveOptions
	fs := flag.NewFlagSet("dlq resolve", flag.ContinueOnError)
	fs.StringVar(&opts.ID, "id", "", "dead letter id")
	fs.StringVar(&opts.Notes, "notes", "", "resolution notes")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.ID == "" {
		return opts, errors.New("dlq resolve requires -id")
	}
	return opts, nil
}
