// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Mokrovi/backServ/internal/notify"
)

func runNotificationsCLI(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printNotificationsUsage()
		return 0
	}

	switch args[0] {
	case "list":
		return runNotificationsList(args[1:])
	case "launch":
		return runNotificationAction(args[1:], "launch")
	case "dismiss":
		return runNotificationAction(args[1:], "dismiss")
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printNotificationsUsage()
		return 2
	}
}

func printNotificationsUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  backserv notifications list [--file|-f config.yaml]")
	fmt.Fprintln(os.Stderr, "  backserv notifications launch [--port 8080] <id>")
	fmt.Fprintln(os.Stderr, "  backserv notifications dismiss [--port 8080] <id>")
}

// runNotificationsList reads pending notifications straight from the store,
// so it works while the daemon is down.
func runNotificationsList(args []string) int {
	fs := flag.NewFlagSet("backserv notifications list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	fileFlags(fs, &file)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, configPath, err := loadConfigForCLI(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error in %q:\n  %v\n", configPath, err)
		return 1
	}

	store, err := notify.Open(cfg.Notifications.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", cfg.Notifications.Path, err)
		return 1
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pending, err := store.List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list notifications: %v\n", err)
		return 1
	}

	writeNotifications(stdout, pending)
	return 0
}

func writeNotifications(w io.Writer, pending []notify.Notification) {
	if len(pending) == 0 {
		fmt.Fprintln(w, "no pending notifications")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tCREATED\tREQUESTER\tTARGET\tREASON")
	for _, n := range pending {
		target := maskURL(n.PrimaryURL)
		if n.Kind == notify.KindRemote {
			target = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			n.ID, n.Kind, n.CreatedAt.Format(time.RFC3339), dash(n.Requester), target, dash(n.Reason))
	}
	_ = tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// runNotificationAction asks the running daemon to launch or dismiss a
// notification; only the daemon owns the surfaces.
func runNotificationAction(args []string, action string) int {
	fs := flag.NewFlagSet("backserv notifications "+action, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	port := fs.Int("port", 8080, "API port of the running daemon")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one notification id")
		return 2
	}

	base := fmt.Sprintf("http://localhost:%d", *port)
	code, body, err := notificationRequest(base, action, fs.Arg(0), *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		return 1
	}
	if code >= http.StatusBadRequest {
		fmt.Fprintf(os.Stderr, "%s failed (%d): %s\n", action, code, strings.TrimSpace(body))
		return 1
	}
	if body = strings.TrimSpace(body); body != "" {
		fmt.Fprintln(stdout, body)
	} else {
		fmt.Fprintf(stdout, "%s: %s\n", action, fs.Arg(0))
	}
	return 0
}

func notificationRequest(base, action, id string, timeout time.Duration) (int, string, error) {
	target := base + "/internal/notifications/" + url.PathEscape(id)
	method := http.MethodDelete
	if action == "launch" {
		target += "/launch"
		method = http.MethodPost
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(data), nil
}
