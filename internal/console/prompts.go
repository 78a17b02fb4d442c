package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/victorivanov/permcast/internal/models"
	"github.com/victorivanov/permcast/internal/permissions"
	"github.com/victorivanov/permcast/internal/snowflake"
)

// prompt prints a label and reads one trimmed line. Returns io.EOF when
// input is exhausted.
func (c *Console) prompt(label string) (string, error) {
	fmt.Fprintf(c.out, "%s: ", label)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

// confirm asks a yes/no question. Anything other than y/yes is a no.
func (c *Console) confirm(label string) bool {
	answer, err := c.prompt(label + " (y/n)")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}

// parseIndex interprets input as a 1-based index into a list of n items.
func parseIndex(input string, n int) (int, bool) {
	idx, err := strconv.Atoi(input)
	if err != nil || idx < 1 || idx > n {
		return 0, false
	}
	return idx - 1, true
}

// findRole resolves input against the role list: a 1-based index into
// the displayed ordering, a raw ID, or an exact name (case-insensitive).
func findRole(roles []models.Role, input string) (*models.Role, bool) {
	if idx, ok := parseIndex(input, len(roles)); ok {
		return &roles[idx], true
	}
	if id, err := snowflake.Parse(input); err == nil {
		for i := range roles {
			if roles[i].ID == id {
				return &roles[i], true
			}
		}
	}
	for i := range roles {
		if strings.EqualFold(roles[i].Name, input) {
			return &roles[i], true
		}
	}
	return nil, false
}

// findChannel resolves input against the channel list the same way
// findRole does for roles.
func findChannel(channels []models.Channel, input string) (*models.Channel, bool) {
	if idx, ok := parseIndex(input, len(channels)); ok {
		return &channels[idx], true
	}
	if id, err := snowflake.Parse(input); err == nil {
		for i := range channels {
			if channels[i].ID == id {
				return &channels[i], true
			}
		}
	}
	for i := range channels {
		if strings.EqualFold(channels[i].Name, input) {
			return &channels[i], true
		}
	}
	return nil, false
}

// parseChannelList resolves a comma-separated list of channel
// selections, deduplicating while preserving order. The second return
// lists the inputs that matched nothing.
func parseChannelList(channels []models.Channel, input string) ([]models.Channel, []string) {
	var selected []models.Channel
	var unknown []string
	seen := make(map[snowflake.ID]bool)
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ch, ok := findChannel(channels, part)
		if !ok {
			unknown = append(unknown, part)
			continue
		}
		if !seen[ch.ID] {
			seen[ch.ID] = true
			selected = append(selected, *ch)
		}
	}
	return selected, unknown
}

// normalizeFlagName maps loose user input ("View Channel", "view-channel")
// onto catalog spelling.
func normalizeFlagName(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

// parseFlagSelection interprets a flag selection against the catalog:
// "all" selects every flag, a comma-separated list of 1-based numbers
// selects by catalog position, and anything else is treated as flag
// names. The second return lists inputs that matched nothing.
func parseFlagSelection(input string) ([]string, []string) {
	names := permissions.FlagNames()
	input = strings.TrimSpace(input)
	if strings.EqualFold(input, "all") {
		return append([]string(nil), names...), nil
	}

	var selected []string
	var unknown []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var name string
		if idx, err := strconv.Atoi(part); err == nil {
			if idx < 1 || idx > len(names) {
				unknown = append(unknown, part)
				continue
			}
			name = names[idx-1]
		} else {
			candidate := normalizeFlagName(part)
			if _, ok := permissions.FlagBit(candidate); !ok {
				unknown = append(unknown, part)
				continue
			}
			name = candidate
		}
		if !seen[name] {
			seen[name] = true
			selected = append(selected, name)
		}
	}
	return selected, unknown
}

// selectFlags walks the user through picking flags and an allow/deny
// decision for them. Returns nil when nothing was selected.
func (c *Console) selectFlags() (map[string]bool, error) {
	c.renderFlagCatalog()

	input, err := c.prompt("Select permissions (numbers, names, or 'all')")
	if err != nil {
		return nil, err
	}
	selected, unknown := parseFlagSelection(input)
	for _, u := range unknown {
		fmt.Fprintf(c.out, "unknown permission: %s\n", u)
	}
	if len(selected) == 0 {
		return nil, nil
	}

	allow := c.confirm(fmt.Sprintf("Allow these %d permission(s)? (no = deny)", len(selected)))
	requested := make(map[string]bool, len(selected))
	for _, name := range selected {
		requested[name] = allow
	}
	return requested, nil
}
