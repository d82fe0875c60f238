// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Mokrovi/backServ/internal/media"
)

// runVideosCLI lists the animation files the daemon would offer on /videos.
func runVideosCLI(args []string) int {
	fs := flag.NewFlagSet("backserv videos", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	fileFlags(fs, &file)
	asJSON := fs.Bool("json", false, "print the /videos JSON body")
	timeout := fs.Duration("timeout", 30*time.Second, "scan timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, configPath, err := loadConfigForCLI(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error in %q:\n  %v\n", configPath, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	videos, err := media.NewResolver(cfg.Media.SearchRoots(), cfg.Media.MaxDepth).ListAvailable(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list videos: %v\n", err)
		return 1
	}

	if *asJSON {
		if videos == nil {
			videos = []media.Video{}
		}
		if err := json.NewEncoder(stdout).Encode(videos); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}
	for _, v := range videos {
		fmt.Fprintln(stdout, v.Name)
	}
	return 0
}
