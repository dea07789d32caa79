package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/leadforge/leadforge/internal/alerting"
	"github.com/leadforge/leadforge/internal/bootstrap"
	"github.com/leadforge/leadforge/internal/core"
	"github.com/leadforge/leadforge/internal/domain/model"
)

const defaultFireAlertTimeout = 20 * time.Second

type fireAlertOptions struct {
	Type     string
	Severity string
	Title    string
	Message  string
	Data     string
	Timeout  time.Duration
}

func runAlerts(cmdCtx *commandContext, args []string) error {
	if len(args) == 0 || args[0] != "fire" {
		return errors.New("usage: alerts fire [flags]")
	}
	return runAlertsFire(cmdCtx, args[1:])
}

// runAlertsFire dispatches a synthetic alert through every configured channel
// so operators can verify delivery end to end.
func runAlertsFire(cmdCtx *commandContext, args []string) error {
	opts, err := parseFireAlertFlags(args)
	if err != nil {
		return err
	}

	alertType := model.AlertType(opts.Type)
	if !alertType.Valid() {
		return fmt.Errorf("invalid alert type %q", opts.Type)
	}
	severity := model.AlertSeverity(opts.Severity)
	if !severity.Valid() {
		return fmt.Errorf("invalid alert severity %q", opts.Severity)
	}
	data, err := parseAlertData(opts.Data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	channels, err := bootstrap.BuildAlertChannels(&cmdCtx.Config.Alerting, cmdCtx.Logger, nil)
	if err != nil {
		return err
	}
	manager := alerting.NewManager(alerting.Options{
		Channels: channels,
		Logger:   cmdCtx.Logger,
	})

	alert := manager.Send(ctx, core.SendAlertParams{
		Type:     alertType,
		Severity: severity,
		Title:    opts.Title,
		Message:  opts.Message,
		Data:     data,
	})

	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, ch.Name())
	}
	return writef(os.Stdout, "alert %s (%s/%s) dispatched via %s\n",
		alert.ID, alert.Type, alert.Severity, strings.Join(names, ", "))
}

func parseFireAlertFlags(args []string) (fireAlertOptions, error) {
	var opts fireAlertOptions
	fs := flag.NewFlagSet("alerts fire", flag.ContinueOnError)
	fs.StringVar(&opts.Type, "type", string(model.AlertTypeWorkerUnhealthy), "alert type")
	fs.StringVar(&opts.Severity, "severity", string(model.AlertSeverityWarning), "alert severity")
	fs.StringVar(&opts.Title, "title", "Leadforge channel test alert", "alert title")
	fs.StringVar(&opts.Message, "message", "Manual alert to verify channel delivery.", "alert message")
	fs.StringVar(&opts.Data, "data", "", "extra alert data as k=v,k2=v2")
	fs.DurationVar(&opts.Timeout, "timeout", defaultFireAlertTimeout, "delivery timeout")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func parseAlertData(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	data := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid data pair %q (want k=v)", pair)
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return data, nil
}
