// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Mokrovi/backServ/internal/config"
)

// stdout is swapped in tests.
var stdout io.Writer = os.Stdout

func runConfigCLI(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage()
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:])
	case "dump":
		return runConfigDump(args[1:])
	case "set-debug":
		return runConfigSetDebug(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage()
		return 2
	}
}

func printConfigUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  backserv config validate [--file|-f config.yaml]")
	fmt.Fprintln(os.Stderr, "  backserv config dump --effective [--file|-f config.yaml] [--format=yaml|json]")
	fmt.Fprintln(os.Stderr, "  backserv config set-debug [--file|-f config.yaml] on|off")
}

// resolveDefaultConfigPath returns ${BACKSERV_DATA}/config.yaml when it exists.
func resolveDefaultConfigPath() string {
	dataDir := strings.TrimSpace(os.Getenv(config.EnvDataDir))
	if dataDir == "" {
		return ""
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

func fileFlags(fs *flag.FlagSet, file *string) {
	fs.StringVar(file, "file", "", "path to YAML configuration file")
	fs.StringVar(file, "f", "", "path to YAML configuration file (shorthand)")
}

// loadConfigForCLI loads the effective configuration. An empty path falls
// back to the auto path and then to ENV and defaults.
func loadConfigForCLI(file string) (config.AppConfig, string, error) {
	configPath := strings.TrimSpace(file)
	if configPath == "" {
		configPath = resolveDefaultConfigPath()
	}
	cfg, err := config.NewLoader(configPath, version).Load()
	return cfg, configPath, err
}

func runConfigValidate(args []string) int {
	fs := flag.NewFlagSet("backserv config validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	fileFlags(fs, &file)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := strings.TrimSpace(file)
	if configPath == "" {
		configPath = resolveDefaultConfigPath()
	}
	if configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required (no default config.yaml found in $BACKSERV_DATA)")
		return 2
	}

	if _, _, err := loadConfigForCLI(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}

	fmt.Fprintf(stdout, "✓ %s is valid\n", configPath)
	return 0
}

func runConfigDump(args []string) int {
	fs := flag.NewFlagSet("backserv config dump", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	var format string
	var effective bool

	fileFlags(fs, &file)
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	fs.BoolVar(&effective, "effective", false, "dump effective configuration (defaults + file + env)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if !effective {
		fmt.Fprintln(os.Stderr, "Error: --effective is required")
		return 2
	}

	cfg, configPath, err := loadConfigForCLI(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error in %q:\n  %v\n", configPath, err)
		return 1
	}

	// ToFileConfig never carries the relay password.
	fileCfg := config.ToFileConfig(cfg)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}

// runConfigSetDebug persists the player debug flag. A running daemon picks
// the change up through its config watcher.
func runConfigSetDebug(args []string) int {
	fs := flag.NewFlagSet("backserv config set-debug", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	fileFlags(fs, &file)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one argument: on or off")
		return 2
	}

	var debug bool
	switch strings.ToLower(fs.Arg(0)) {
	case "on", "true", "1":
		debug = true
	case "off", "false", "0":
		debug = false
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid value %q (use on or off)\n", fs.Arg(0))
		return 2
	}

	cfg, configPath, err := loadConfigForCLI(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error in %q:\n  %v\n", configPath, err)
		return 1
	}
	if configPath == "" {
		configPath = filepath.Join(cfg.DataDir, "config.yaml")
	}

	cfg.Player.Debug = debug
	if err := config.NewManager(configPath).Save(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save %s: %v\n", configPath, err)
		return 1
	}

	fmt.Fprintf(stdout, "debug mode %s (%s)\n", map[bool]string{true: "on", false: "off"}[debug], configPath)
	return 0
}
