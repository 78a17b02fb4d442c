package console

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/victorivanov/permcast/internal/manager"
	"github.com/victorivanov/permcast/internal/models"
	"github.com/victorivanov/permcast/internal/permissions"
	"github.com/victorivanov/permcast/internal/snowflake"
)

func (c *Console) renderTable(title string, headers []string, rows [][]string) {
	fmt.Fprintf(c.out, "\n%s\n", title)
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

func (c *Console) renderRoles(roles []models.Role) {
	rows := make([][]string, len(roles))
	for i, r := range roles {
		rows[i] = []string{fmt.Sprintf("%d", i+1), r.Name, r.ID.String(), fmt.Sprintf("%d", r.Position)}
	}
	c.renderTable("Roles", []string{"#", "NAME", "ID", "POSITION"}, rows)
}

func (c *Console) renderChannels(channels []models.Channel) {
	categoryName := func(id *snowflake.ID) string {
		if id == nil {
			return "-"
		}
		for i := range channels {
			if channels[i].ID == *id {
				return channels[i].Name
			}
		}
		return id.String()
	}

	rows := make([][]string, len(channels))
	for i, ch := range channels {
		rows[i] = []string{fmt.Sprintf("%d", i+1), ch.Name, ch.Type.String(), categoryName(ch.ParentID), ch.ID.String()}
	}
	c.renderTable("Channels", []string{"#", "NAME", "TYPE", "CATEGORY", "ID"}, rows)
}

func (c *Console) renderFlagCatalog() {
	names := permissions.FlagNames()
	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{fmt.Sprintf("%d", i+1), name}
	}
	c.renderTable("Permissions", []string{"#", "PERMISSION"}, rows)
}

// renderResults prints per-target statuses sorted by target name.
func (c *Console) renderResults(results manager.Results) {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k, results[k]}
	}
	c.renderTable("Results", []string{"TARGET", "STATUS"}, rows)
}

// renderAudit prints one row per role holding an overwrite on the
// channel, with its explicit ALLOW and DENY flags spelled out.
func (c *Console) renderAudit(channel *models.Channel, roles []models.Role, overrides permissions.OverwriteMap) {
	roleName := func(id snowflake.ID) string {
		for i := range roles {
			if roles[i].ID == id {
				return roles[i].Name
			}
		}
		return id.String()
	}

	ids := make([]snowflake.ID, 0, len(overrides))
	for id, ow := range overrides {
		if ow.IsZero() {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return roleName(ids[i]) < roleName(ids[j]) })

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		ow := overrides[id]
		var allowed, denied []string
		for _, name := range permissions.FlagNames() {
			bit, _ := permissions.FlagBit(name)
			switch ow.StateOf(bit) {
			case permissions.StateAllow:
				allowed = append(allowed, name)
			case permissions.StateDeny:
				denied = append(denied, name)
			}
		}
		rows = append(rows, []string{
			roleName(id),
			flagList(allowed),
			flagList(denied),
		})
	}

	if len(rows) == 0 {
		fmt.Fprintf(c.out, "no permission overwrites on #%s; all roles inherit defaults\n", channel.Name)
		return
	}
	c.renderTable(fmt.Sprintf("Permission overwrites for #%s", channel.Name), []string{"ROLE", "ALLOW", "DENY"}, rows)
}

func flagList(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
