package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/victorivanov/permcast/internal/gateway"
	"github.com/victorivanov/permcast/internal/manager"
	"github.com/victorivanov/permcast/internal/models"
	"github.com/victorivanov/permcast/internal/storage"
)

// Platform is what the console needs from the API client: the manager's
// collaborator surface plus guild discovery.
type Platform interface {
	manager.Platform
	ListGuilds(ctx context.Context) ([]models.Guild, error)
}

// Console drives the interactive menu loop. Guild, role, and channel
// listings are cached per selected guild and invalidated by gateway
// events between operations.
type Console struct {
	api   Platform
	mgr   *manager.Manager
	store *storage.SnapshotStore // nil when snapshots are not configured
	log   *slog.Logger

	in  *bufio.Scanner
	out io.Writer

	events <-chan gateway.Event // nil without a gateway connection

	guild    *models.Guild
	roles    []models.Role
	channels []models.Channel
}

// New creates a Console reading from in and writing to out.
func New(api Platform, mgr *manager.Manager, store *storage.SnapshotStore, events <-chan gateway.Event, in io.Reader, out io.Writer, log *slog.Logger) *Console {
	return &Console{
		api:    api,
		mgr:    mgr,
		store:  store,
		log:    log,
		in:     bufio.NewScanner(in),
		out:    out,
		events: events,
	}
}

// Run executes the main menu loop until the user quits, input ends, or
// the context is cancelled.
func (c *Console) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		c.drainEvents()

		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, "permcast — permission overwrite manager")
		if c.guild != nil {
			fmt.Fprintf(c.out, "server: %s\n", c.guild.Name)
		}
		fmt.Fprintln(c.out, "1. Select server")
		fmt.Fprintln(c.out, "2. Manage permissions")
		fmt.Fprintln(c.out, "3. Export config")
		fmt.Fprintln(c.out, "4. Import config")
		fmt.Fprintln(c.out, "5. Rollback last operation")
		fmt.Fprintln(c.out, "6. Quit")

		choice, err := c.prompt("Choose an option")
		if err != nil {
			return nil
		}

		switch choice {
		case "1":
			c.selectServer(ctx)
		case "2":
			if !c.requireGuild() {
				continue
			}
			if err := c.managePermissions(ctx); err != nil {
				return nil
			}
		case "3":
			if !c.requireGuild() {
				continue
			}
			c.exportMode(ctx)
		case "4":
			if !c.requireGuild() {
				continue
			}
			c.importMode(ctx)
		case "5":
			c.rollbackMode(ctx)
		case "6":
			fmt.Fprintln(c.out, "bye")
			return nil
		default:
			fmt.Fprintln(c.out, "invalid option")
		}
	}
	return ctx.Err()
}

func (c *Console) managePermissions(ctx context.Context) error {
	for ctx.Err() == nil {
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, "Permission management")
		fmt.Fprintln(c.out, "1. Bulk role-to-channel permissions")
		fmt.Fprintln(c.out, "2. Pattern matching permissions")
		fmt.Fprintln(c.out, "3. Copy channel permissions")
		fmt.Fprintln(c.out, "4. Audit channel permissions")
		fmt.Fprintln(c.out, "5. Back to main menu")

		choice, err := c.prompt("Choose an option")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			c.bulkMode(ctx)
		case "2":
			c.patternMode(ctx)
		case "3":
			c.copyMode(ctx)
		case "4":
			c.auditMode(ctx)
		case "5":
			return nil
		default:
			fmt.Fprintln(c.out, "invalid option")
		}
	}
	return ctx.Err()
}

func (c *Console) requireGuild() bool {
	if c.guild == nil {
		fmt.Fprintln(c.out, "select a server first")
		return false
	}
	return true
}

func (c *Console) selectServer(ctx context.Context) {
	guilds, err := c.api.ListGuilds(ctx)
	if err != nil {
		c.printError(err)
		return
	}
	if len(guilds) == 0 {
		fmt.Fprintln(c.out, "no servers found")
		return
	}

	rows := make([][]string, len(guilds))
	for i, g := range guilds {
		rows[i] = []string{fmt.Sprintf("%d", i+1), g.Name, g.ID.String(), g.ID.Time().Format("2006-01-02")}
	}
	c.renderTable("Available servers", []string{"#", "NAME", "ID", "CREATED"}, rows)

	input, err := c.prompt("Select server by number")
	if err != nil {
		return
	}
	idx, ok := parseIndex(input, len(guilds))
	if !ok {
		fmt.Fprintln(c.out, "invalid selection")
		return
	}

	c.guild = &guilds[idx]
	c.roles = nil
	c.channels = nil
	fmt.Fprintf(c.out, "selected server: %s\n", c.guild.Name)
	c.log.Info("server selected", "guild", c.guild.Name, "id", c.guild.ID)
}

// ensureRoles fetches and caches the guild's roles, sorted by position
// (highest first).
func (c *Console) ensureRoles(ctx context.Context) ([]models.Role, error) {
	if c.roles != nil {
		return c.roles, nil
	}
	roles, err := c.api.ListRoles(ctx, c.guild.ID)
	if err != nil {
		return nil, err
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Position > roles[j].Position })
	c.roles = roles
	return roles, nil
}

// ensureChannels fetches and caches the guild's channels, sorted by
// type then position.
func (c *Console) ensureChannels(ctx context.Context) ([]models.Channel, error) {
	if c.channels != nil {
		return c.channels, nil
	}
	channels, err := c.api.ListChannels(ctx, c.guild.ID)
	if err != nil {
		return nil, err
	}
	sort.Slice(channels, func(i, j int) bool {
		if channels[i].Type != channels[j].Type {
			return channels[i].Type < channels[j].Type
		}
		return channels[i].Position < channels[j].Position
	})
	c.channels = channels
	return channels, nil
}

// drainEvents consumes pending gateway events and invalidates the
// affected caches so the next menu shows fresh listings.
func (c *Console) drainEvents() {
	if c.events == nil {
		return
	}
	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				c.events = nil
				return
			}
			switch ev.Name {
			case gateway.EventChannelCreate, gateway.EventChannelUpdate, gateway.EventChannelDelete:
				c.channels = nil
			case gateway.EventGuildRoleCreate, gateway.EventGuildRoleUpdate, gateway.EventGuildRoleDelete:
				c.roles = nil
			case gateway.EventGuildCreate, gateway.EventGuildUpdate, gateway.EventGuildDelete:
				c.roles = nil
				c.channels = nil
			}
		default:
			return
		}
	}
}

func (c *Console) printError(err error) {
	var opErr *manager.OpError
	if errors.As(err, &opErr) {
		fmt.Fprintf(c.out, "error: %s\n", opErr.Message)
		return
	}
	fmt.Fprintf(c.out, "error: %v\n", err)
}
