package manager

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/victorivanov/permcast/internal/models"
	"github.com/victorivanov/permcast/internal/permissions"
	"github.com/victorivanov/permcast/internal/snowflake"
)

// ---------------------------------------------------------------------------
// Mock platform
// ---------------------------------------------------------------------------

type fakePlatform struct {
	roles     []models.Role
	channels  []models.Channel
	overrides map[snowflake.ID]permissions.OverwriteMap

	failSet map[snowflake.ID]error
	failGet map[snowflake.ID]error

	setCalls int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		overrides: map[snowflake.ID]permissions.OverwriteMap{},
		failSet:   map[snowflake.ID]error{},
		failGet:   map[snowflake.ID]error{},
	}
}

func (f *fakePlatform) ListRoles(ctx context.Context, guildID snowflake.ID) ([]models.Role, error) {
	return f.roles, nil
}

func (f *fakePlatform) ListChannels(ctx context.Context, guildID snowflake.ID) ([]models.Channel, error) {
	return f.channels, nil
}

func (f *fakePlatform) GetChannelOverrides(ctx context.Context, channelID snowflake.ID) (permissions.OverwriteMap, error) {
	if err := f.failGet[channelID]; err != nil {
		return nil, err
	}
	return f.overrides[channelID].Clone(), nil
}

func (f *fakePlatform) SetChannelOverrides(ctx context.Context, channelID snowflake.ID, m permissions.OverwriteMap) error {
	f.setCalls++
	if err := f.failSet[channelID]; err != nil {
		return err
	}
	// Store only explicit records, like the platform does.
	stored := permissions.OverwriteMap{}
	for roleID, o := range m {
		if !o.IsZero() {
			stored[roleID] = o
		}
	}
	f.overrides[channelID] = stored
	return nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const testGuildID = snowflake.ID(100)

var (
	everyoneRole = models.Role{ID: 200, GuildID: testGuildID, Name: "@everyone", IsDefault: true}
	modRole      = models.Role{ID: 201, GuildID: testGuildID, Name: "Moderators", Position: 1}
	botRole      = models.Role{ID: 202, GuildID: testGuildID, Name: "mod-bots", Position: 2}

	generalChannel = models.Channel{ID: 300, GuildID: testGuildID, Name: "general", Type: models.ChannelTypeText}
	modChannel     = models.Channel{ID: 301, GuildID: testGuildID, Name: "mod-log", Type: models.ChannelTypeText}
	voiceChannel   = models.Channel{ID: 302, GuildID: testGuildID, Name: "mod-voice", Type: models.ChannelTypeVoice}
)

func newTestManager() (*Manager, *fakePlatform) {
	f := newFakePlatform()
	f.roles = []models.Role{everyoneRole, modRole, botRole}
	f.channels = []models.Channel{generalChannel, modChannel, voiceChannel}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(f, log), f
}

var errRejected = fmt.Errorf("missing permission: manage_roles")
