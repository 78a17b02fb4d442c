package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/victorivanov/permcast/internal/manager"
)

func (c *Console) bulkMode(ctx context.Context) {
	roles, err := c.ensureRoles(ctx)
	if err != nil {
		c.printError(err)
		return
	}
	channels, err := c.ensureChannels(ctx)
	if err != nil {
		c.printError(err)
		return
	}

	c.renderRoles(roles)
	input, err := c.prompt("Select role (number, ID, or name)")
	if err != nil {
		return
	}
	role, ok := findRole(roles, input)
	if !ok {
		fmt.Fprintln(c.out, "role not found")
		return
	}

	c.renderChannels(channels)
	input, err = c.prompt("Select channels (comma-separated numbers, IDs, or names)")
	if err != nil {
		return
	}
	targets, unknown := parseChannelList(channels, input)
	for _, u := range unknown {
		fmt.Fprintf(c.out, "unknown channel: %s\n", u)
	}
	if len(targets) == 0 {
		fmt.Fprintln(c.out, "no channels selected")
		return
	}

	requested, err := c.selectFlags()
	if err != nil {
		return
	}
	if len(requested) == 0 {
		fmt.Fprintln(c.out, "no permissions selected")
		return
	}

	names := make([]string, 0, len(targets))
	for _, ch := range targets {
		names = append(names, ch.Name)
	}
	fmt.Fprintf(c.out, "\nApplying %d permission(s) for role %q to: %s\n",
		len(requested), role.Name, strings.Join(names, ", "))
	if !c.confirm("Proceed") {
		fmt.Fprintln(c.out, "cancelled")
		return
	}

	results, err := c.mgr.ApplyRoleToChannels(ctx, *role, targets, requested)
	if err != nil {
		c.printError(err)
		return
	}
	c.renderResults(results)
	if results.Failed() {
		fmt.Fprintln(c.out, "some channels failed; rollback from the main menu undoes the successful writes")
	}
}

func (c *Console) patternMode(ctx context.Context) {
	rolePattern, err := c.prompt("Role name pattern (substring, case-insensitive)")
	if err != nil {
		return
	}
	channelPattern, err := c.prompt("Channel name pattern (substring, case-insensitive)")
	if err != nil {
		return
	}

	requested, err := c.selectFlags()
	if err != nil {
		return
	}
	if len(requested) == 0 {
		fmt.Fprintln(c.out, "no permissions selected")
		return
	}

	fmt.Fprintf(c.out, "\nApplying %d permission(s) for roles matching %q to channels matching %q\n",
		len(requested), rolePattern, channelPattern)
	if !c.confirm("Proceed") {
		fmt.Fprintln(c.out, "cancelled")
		return
	}

	results, err := c.mgr.ApplyPattern(ctx, c.guild.ID, rolePattern, channelPattern, requested)
	if err != nil {
		c.printError(err)
		return
	}
	c.renderResults(results)
}

func (c *Console) copyMode(ctx context.Context) {
	channels, err := c.ensureChannels(ctx)
	if err != nil {
		c.printError(err)
		return
	}
	c.renderChannels(channels)

	input, err := c.prompt("Copy from channel (number, ID, or name)")
	if err != nil {
		return
	}
	source, ok := findChannel(channels, input)
	if !ok {
		fmt.Fprintln(c.out, "channel not found")
		return
	}

	input, err = c.prompt("Copy to channel (number, ID, or name)")
	if err != nil {
		return
	}
	target, ok := findChannel(channels, input)
	if !ok {
		fmt.Fprintln(c.out, "channel not found")
		return
	}
	if source.ID == target.ID {
		fmt.Fprintln(c.out, "source and target are the same channel")
		return
	}

	fmt.Fprintf(c.out, "\nThis replaces ALL permission overwrites on #%s with those of #%s\n", target.Name, source.Name)
	if !c.confirm("Proceed") {
		fmt.Fprintln(c.out, "cancelled")
		return
	}

	if err := c.mgr.CopyOverwrites(ctx, *source, *target); err != nil {
		c.printError(err)
		return
	}
	fmt.Fprintf(c.out, "copied permission overwrites from #%s to #%s\n", source.Name, target.Name)
}

func (c *Console) auditMode(ctx context.Context) {
	channels, err := c.ensureChannels(ctx)
	if err != nil {
		c.printError(err)
		return
	}
	roles, err := c.ensureRoles(ctx)
	if err != nil {
		c.printError(err)
		return
	}

	c.renderChannels(channels)
	input, err := c.prompt("Audit channel (number, ID, or name)")
	if err != nil {
		return
	}
	channel, ok := findChannel(channels, input)
	if !ok {
		fmt.Fprintln(c.out, "channel not found")
		return
	}

	overrides, err := c.mgr.Audit(ctx, channel.ID)
	if err != nil {
		c.printError(err)
		return
	}
	c.renderAudit(channel, roles, overrides)
}

func (c *Console) exportMode(ctx context.Context) {
	path, err := c.prompt("Export file path")
	if err != nil {
		return
	}
	if path == "" {
		path = fmt.Sprintf("%s-permissions.json", c.guild.ID)
	}

	cfg, err := c.mgr.ExportConfig(ctx, *c.guild)
	if err != nil {
		c.printError(err)
		return
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		c.printError(err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.printError(err)
		return
	}
	fmt.Fprintf(c.out, "exported %d channel(s) to %s\n", len(cfg.Channels), path)
	c.log.Info("config exported", "guild", c.guild.Name, "path", path, "channels", len(cfg.Channels))

	if c.store == nil {
		return
	}
	if !c.confirm("Also upload a snapshot to object storage") {
		return
	}
	key, err := c.store.Put(ctx, c.guild.ID.Int64(), data)
	if err != nil {
		c.printError(err)
		return
	}
	fmt.Fprintf(c.out, "snapshot stored as %s\n", key)
}

func (c *Console) importMode(ctx context.Context) {
	source := "f"
	if c.store != nil {
		var err error
		source, err = c.prompt("Import from [f]ile or [s]napshot storage")
		if err != nil {
			return
		}
	}

	var name string
	var data []byte
	switch strings.ToLower(source) {
	case "s", "snapshot":
		keys, err := c.store.List(ctx, c.guild.ID.Int64())
		if err != nil {
			c.printError(err)
			return
		}
		if len(keys) == 0 {
			fmt.Fprintln(c.out, "no snapshots stored for this server")
			return
		}
		rows := make([][]string, len(keys))
		for i, k := range keys {
			rows[i] = []string{fmt.Sprintf("%d", i+1), k}
		}
		c.renderTable("Snapshots", []string{"#", "KEY"}, rows)
		input, err := c.prompt("Select snapshot by number")
		if err != nil {
			return
		}
		idx, ok := parseIndex(input, len(keys))
		if !ok {
			fmt.Fprintln(c.out, "invalid selection")
			return
		}
		name = keys[idx]
		data, err = c.store.Get(ctx, name)
		if err != nil {
			c.printError(err)
			return
		}
	default:
		path, err := c.prompt("Config file path")
		if err != nil {
			return
		}
		name = path
		data, err = os.ReadFile(path)
		if err != nil {
			c.printError(err)
			return
		}
	}

	fmt.Fprintf(c.out, "\nThis replaces permission overwrites on every channel named in %s\n", name)
	if !c.confirm("Proceed") {
		fmt.Fprintln(c.out, "cancelled")
		return
	}

	results, err := c.mgr.ImportConfig(ctx, c.guild.ID, name, data)
	if err != nil {
		c.printError(err)
		return
	}
	c.renderResults(results)
}

func (c *Console) rollbackMode(ctx context.Context) {
	op := c.mgr.LastOperation()
	if op == nil {
		fmt.Fprintln(c.out, "no operation to roll back")
		return
	}

	fmt.Fprintf(c.out, "\nLast operation: %s at %s, touching %d channel(s)\n",
		op.Type, op.StartedAt.Format("2006-01-02 15:04:05"), len(op.PreImage))
	if !c.confirm("Restore the prior permission state") {
		fmt.Fprintln(c.out, "cancelled")
		return
	}

	if err := c.mgr.Rollback(ctx); err != nil {
		if errors.Is(err, manager.ErrNothingToRollback) {
			fmt.Fprintln(c.out, "no operation to roll back")
			return
		}
		c.printError(err)
		return
	}
	fmt.Fprintln(c.out, "rollback complete")
}
