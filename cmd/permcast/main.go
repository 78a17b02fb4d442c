package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/victorivanov/permcast/internal/client"
	"github.com/victorivanov/permcast/internal/config"
	"github.com/victorivanov/permcast/internal/console"
	"github.com/victorivanov/permcast/internal/gateway"
	"github.com/victorivanov/permcast/internal/manager"
	"github.com/victorivanov/permcast/internal/models"
	"github.com/victorivanov/permcast/internal/snowflake"
	"github.com/victorivanov/permcast/internal/storage"
)

// Set via -ldflags at build time.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		os.Exit(runInteractive())
	}

	switch os.Args[1] {
	case "export":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: permcast export <guild-id> [file]")
			fmt.Println()
			fmt.Println("Export a server's permission overwrites to a JSON file")
			fmt.Println("(default: <guild-id>-permissions.json).")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  SERVER_URL         Server base URL (default: http://localhost:8080)")
			fmt.Println("  PERMCAST_TOKEN     Access token, or:")
			fmt.Println("  PERMCAST_USERNAME  Account username")
			fmt.Println("  PERMCAST_PASSWORD  Account password")
			return
		}
		os.Exit(runExport(os.Args[2:]))
	case "audit":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: permcast audit <channel-id>")
			fmt.Println()
			fmt.Println("Print a channel's permission overwrites, one line per role.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  SERVER_URL         Server base URL (default: http://localhost:8080)")
			fmt.Println("  PERMCAST_TOKEN     Access token, or:")
			fmt.Println("  PERMCAST_USERNAME  Account username")
			fmt.Println("  PERMCAST_PASSWORD  Account password")
			return
		}
		os.Exit(runAudit(os.Args[2:]))
	case "health":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: permcast health")
			fmt.Println()
			fmt.Println("Check if the server is reachable.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  SERVER_URL  Server base URL (default: http://localhost:8080)")
			return
		}
		os.Exit(runHealth())
	case "version":
		fmt.Printf("permcast %s\n", version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: permcast [command]")
	fmt.Println()
	fmt.Println("Without a command, permcast starts the interactive console.")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  export   Export a server's permission overwrites to JSON")
	fmt.Println("  audit    Print a channel's permission overwrites")
	fmt.Println("  health   Check if the server is reachable")
	fmt.Println("  version  Print version info")
	fmt.Println()
	fmt.Println("Run 'permcast <command> --help' for details on a command.")
}

func hasFlag(flag string, args []string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

// newLogger writes structured logs to the configured file so they never
// interleave with console output.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	log := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.LogLevel}))
	return log, func() { f.Close() }, nil
}

// connect builds an authenticated API client from the environment.
func connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*client.Client, error) {
	api := client.New(cfg.ServerURL)
	if cfg.Token != "" {
		api.UseToken(cfg.Token)
		log.Info("using static token")
		return api, nil
	}
	user, err := api.Login(ctx, cfg.Username, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	log.Info("logged in", "username", user.Username)
	return api, nil
}

// --- interactive ---

func runInteractive() int {
	cfg := config.Load()

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api, err := connect(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	// Snapshot storage and the gateway connection are both optional;
	// the console degrades to plain REST without them.
	var store *storage.SnapshotStore
	if cfg.SnapshotsEnabled() {
		store, err = storage.NewSnapshotStore(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: snapshot storage unavailable: %v\n", err)
			log.Warn("snapshot storage unavailable", "error", err)
			store = nil
		}
	}

	var events <-chan gateway.Event
	if cfg.Token != "" {
		gw, err := gateway.Dial(ctx, cfg.ServerURL, cfg.Token, log)
		if err != nil {
			log.Warn("gateway connection failed, listings may go stale", "error", err)
		} else {
			defer gw.Close()
			events = gw.Events()
		}
	}

	mgr := manager.New(api, log)
	c := console.New(api, mgr, store, events, os.Stdin, os.Stdout, log)
	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// --- export ---

func runExport(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "error: guild id is required")
		fmt.Fprintln(os.Stderr, "usage: permcast export <guild-id> [file]")
		return 1
	}
	guildID, err := snowflake.Parse(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid guild id %q\n", args[0])
		return 1
	}

	cfg := config.Load()
	log, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api, err := connect(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	guilds, err := api.ListGuilds(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: listing servers: %v\n", err)
		return 1
	}
	var guild *models.Guild
	for i := range guilds {
		if guilds[i].ID == guildID {
			guild = &guilds[i]
			break
		}
	}
	if guild == nil {
		fmt.Fprintf(os.Stderr, "error: no server with id %s\n", guildID)
		return 1
	}

	mgr := manager.New(api, log)
	exported, err := mgr.ExportConfig(ctx, *guild)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: export failed: %v\n", err)
		return 1
	}

	path := fmt.Sprintf("%s-permissions.json", guildID)
	if len(args) > 1 {
		path = args[1]
	}
	data, err := json.MarshalIndent(exported, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error: writing %s: %v\n", path, err)
		return 1
	}
	fmt.Printf("exported %d channel(s) from %s to %s\n", len(exported.Channels), guild.Name, path)
	return 0
}

// --- audit ---

func runAudit(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "error: channel id is required")
		fmt.Fprintln(os.Stderr, "usage: permcast audit <channel-id>")
		return 1
	}
	channelID, err := snowflake.Parse(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid channel id %q\n", args[0])
		return 1
	}

	cfg := config.Load()
	log, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api, err := connect(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	channel, err := api.GetChannel(ctx, channelID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	overrides, err := api.GetChannelOverrides(ctx, channelID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Printf("#%s: %d overwrite(s)\n", channel.Name, len(overrides))
	for roleID, ow := range overrides {
		flags := ow.Flags()
		var allowed, denied []string
		for name, allow := range flags {
			if allow {
				allowed = append(allowed, name)
			} else {
				denied = append(denied, name)
			}
		}
		sort.Strings(allowed)
		sort.Strings(denied)
		fmt.Printf("  role %s  allow=[%s]  deny=[%s]\n",
			roleID, strings.Join(allowed, " "), strings.Join(denied, " "))
	}
	return 0
}

// --- health ---

func runHealth() int {
	serverURL := envOr("SERVER_URL", "http://localhost:8080")
	fmt.Printf("checking %s ...\n", serverURL)

	api := client.New(serverURL)
	if err := api.Health(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Println("server is healthy")
	return 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
