package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/leadforge/leadforge/internal/domain/model"
)

type jobListOptions struct {
	Type   string
	Status string
	Limit  int
}

// Narrow views of core.JobStore so subcommands state what they touch.
type jobReader interface {
	GetByID(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, filter model.JobFilter) ([]*model.Job, error)
}

type jobCanceller interface {
	Cancel(ctx context.Context, id string) (bool, error)
}

func runJobs(cmdCtx *commandContext, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: jobs <list|get|cancel> [flags]")
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
		return runJobsList(ctx, store, args[1:])
	case "get":
		return runJobsGet(ctx, store, args[1:])
	case "cancel":
		return runJobsCancel(ctx, store, args[1:])
	default:
		return fmt.Errorf("unknown jobs subcommand %q (want list, get, or cancel)", args[0])
	}
}

func runJobsList(ctx context.Context, store jobReader, args []string) error {
	opts, err := parseJobListFlags(args)
	if err != nil {
		return err
	}

	filter := model.JobFilter{Limit: opts.Limit}
	if opts.Type != "" {
		jt := model.JobType(opts.Type)
		if !jt.Valid() {
			return fmt.Errorf("invalid job type %q", opts.Type)
		}
		filter.Type = jt
	}
	if opts.Status != "" {
		js := model.JobStatus(opts.Status)
		if !js.Valid() {
			return fmt.Errorf("invalid job status %q", opts.Status)
		}
		filter.Status = js
	}

	jobs, err := store.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	if len(jobs) == 0 {
		return writeln(os.Stdout, "no jobs matched")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "ID\tType\tStatus\tPriority\tAttempts\tScheduled For\tLast Error"); err != nil {
		return err
	}
	for _, job := range jobs {
		if err := writef(w, "%s\t%s\t%s\t%d\t%d/%d\t%s\t%s\n",
			job.ID, job.Type, job.Status, job.Priority,
			job.Attempts, job.MaxAttempts,
			job.ScheduledFor.Format(time.RFC3339),
			truncate(strOrDash(job.LastError), 60),
		); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runJobsGet(ctx context.Context, store jobReader, args []string) error {
	id, err := parseIDFlag("jobs get", args)
	if err != nil {
		return err
	}

	job, err := store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	rows := []struct {
		label string
		value string
	}{
		{"ID", job.ID},
		{"Type", string(job.Type)},
		{"Status", string(job.Status)},
		{"Priority", fmt.Sprintf("%d", job.Priority)},
		{"Attempts", fmt.Sprintf("%d/%d", job.Attempts, job.MaxAttempts)},
		{"Scheduled For", job.ScheduledFor.Format(time.RFC3339)},
		{"Started At", timeOrDash(job.StartedAt)},
		{"Completed At", timeOrDash(job.CompletedAt)},
		{"Worker", strOrDash(job.WorkerID)},
		{"Last Error", strOrDash(job.LastError)},
		{"Created At", job.CreatedAt.Format(time.RFC3339)},
		{"Updated At", job.UpdatedAt.Format(time.RFC3339)},
		{"Payload", string(job.Payload)},
	}
	if len(job.Result) > 0 {
		rows = append(rows, struct {
			label string
			value string
		}{"Result", string(job.Result)})
	}
	for _, row := range rows {
		if err := writef(w, "%s\t%s\n", row.label, row.value); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runJobsCancel(ctx context.Context, store jobCanceller, args []string) error {
	id, err := parseIDFlag("jobs cancel", args)
	if err != nil {
		return err
	}

	cancelled, err := store.Cancel(ctx, id)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	if !cancelled {
		return writef(os.Stdout, "job %s already terminal, nothing to cancel\n", id)
	}
	return writef(os.Stdout, "job %s cancelled\n", id)
}

func runStats(cmdCtx *commandContext, _ []string) error {
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

	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	dlqCount, err := store.CountUnresolvedDeadLetters(ctx)
	if err != nil {
		return fmt.Errorf("count dead letters: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "Status\tCount"); err != nil {
		return err
	}
	statusRows := []struct {
		label string
		count int
	}{
		{"pending", stats.Pending},
		{"scheduled", stats.Scheduled},
		{"running", stats.Running},
		{"completed", stats.Completed},
		{"failed", stats.Failed},
		{"cancelled", stats.Cancelled},
		{"total", stats.Total},
	}
	for _, row := range statusRows {
		if err := writef(w, "%s\t%d\n", row.label, row.count); err != nil {
			return err
		}
	}
	if err := writef(w, "unresolved dead letters\t%d\n", dlqCount); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(stats.ByType) == 0 {
		return nil
	}
	if err := writef(os.Stdout, "\nBy type:\n"); err != nil {
		return err
	}
	types := make([]model.JobType, 0, len(stats.ByType))
	for jt := range stats.ByType {
		types = append(types, jt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, jt := range types {
		if err := writef(tw, "%s\t%d\n", jt, stats.ByType[jt]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func parseJobListFlags(args []string) (jobListOptions, error) {
	var opts jobListOptions
	fs := flag.NewFlagSet("jobs list", flag.ContinueOnError)
	fs.StringVar(&opts.Type, "type", "", "filter by job type")
	fs.StringVar(&opts.Status, "status", "", "filter by job status")
	fs.IntVar(&opts.Limit, "limit", 50, "maximum rows to print")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func parseIDFlag(name string, args []string) (string, error) {
	var id string
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&id, "id", "", "target id")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("%s requires -id", name)
	}
	return id, nil
}

func strOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func timeOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
