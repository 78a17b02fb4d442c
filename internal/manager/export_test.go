package manager

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/victorivanov/permcast/internal/models"
	"github.com/victorivanov/permcast/internal/permissions"
)

var testGuild = models.Guild{ID: testGuildID, Name: "Demo Server", OwnerID: 1}

func TestExportOmitsInheritedFlags(t *testing.T) {
	m, f := newTestManager()
	ctx := context.Background()

	f.overrides[generalChannel.ID] = permissions.OverwriteMap{
		modRole.ID: {Allow: permissions.PermViewChannel, Deny: permissions.PermSendMessages},
	}

	cfg, err := m.ExportConfig(ctx, testGuild)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if cfg.GuildID != testGuildID.Int64() || cfg.GuildName != "Demo Server" {
		t.Errorf("unexpected guild header: %+v", cfg)
	}
	if len(cfg.Channels) != 3 {
		t.Fatalf("expected all 3 channels exported, got %d", len(cfg.Channels))
	}

	var general *ExportedChannel
	for i := range cfg.Channels {
		if cfg.Channels[i].Name == "general" {
			general = &cfg.Channels[i]
		}
	}
	if general == nil {
		t.Fatal("general channel missing from export")
	}

	flags := general.Overwrites[modRole.ID.String()]
	if len(flags) != 2 {
		t.Fatalf("expected only explicit flags, got %+v", flags)
	}
	if flags["view_channel"] != true || flags["send_messages"] != false {
		t.Errorf("unexpected flag values: %+v", flags)
	}

	// Inherited flags must be absent from the JSON, never null.
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["exported_at"]; !ok {
		t.Error("expected exported_at timestamp in output")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	m, f := newTestManager()
	ctx := context.Background()

	original := permissions.OverwriteMap{
		everyoneRole.ID: {Deny: permissions.PermViewChannel},
		modRole.ID:      {Allow: permissions.PermViewChannel | permissions.PermManageMessages},
	}
	f.overrides[modChannel.ID] = original.Clone()

	cfg, err := m.ExportConfig(ctx, testGuild)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Wipe the live state, then import the snapshot back.
	f.overrides[modChannel.ID] = permissions.OverwriteMap{}

	results, err := m.ImportConfig(ctx, testGuildID, "snapshot.json", data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if results[modChannel.Name] != StatusOK {
		t.Errorf("unexpected import results: %+v", results)
	}
	if !f.overrides[modChannel.ID].Equal(original) {
		t.Errorf("round trip mismatch: want %+v, got %+v", original, f.overrides[modChannel.ID])
	}
}

func TestImportSkipsMissingChannelsAndRoles(t *testing.T) {
	m, f := newTestManager()
	ctx := context.Background()

	cfg := ExportedConfig{
		GuildID:   testGuildID.Int64(),
		GuildName: "Demo Server",
		Channels: []ExportedChannel{
			{
				ID: generalChannel.ID.Int64(), Name: "general", Type: "text",
				Overwrites: map[string]map[string]bool{
					modRole.ID.String(): {"view_channel": true},
					"999999":            {"view_channel": false}, // deleted role
				},
			},
			{
				ID: 888888, Name: "deleted-channel", Type: "text", // deleted channel
				Overwrites: map[string]map[string]bool{
					modRole.ID.String(): {"speak": false},
				},
			},
		},
	}
	data, _ := json.Marshal(cfg)

	results, err := m.ImportConfig(ctx, testGuildID, "snapshot.json", data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if _, ok := results["deleted-channel"]; ok {
		t.Error("missing channel must be skipped silently, not reported")
	}
	if results[generalChannel.Name] != StatusOK {
		t.Errorf("expected live channel updated: %+v", results)
	}

	got := f.overrides[generalChannel.ID]
	if len(got) != 1 {
		t.Fatalf("expected only resolvable role imported, got %+v", got)
	}
	if got[modRole.ID].StateOf(permissions.PermViewChannel) != permissions.StateAllow {
		t.Error("expected imported allow for live role")
	}
}

func TestImportMalformedConfigAbortsBeforeWrites(t *testing.T) {
	m, f := newTestManager()
	ctx := context.Background()

	_, err := m.ImportConfig(ctx, testGuildID, "broken.json", []byte("{not json"))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if f.setCalls != 0 {
		t.Error("malformed config must abort before any write")
	}
	if m.LastOperation() != nil {
		t.Error("aborted import must not be recorded")
	}
}

func TestImportRollbackRestoresFullGuild(t *testing.T) {
	m, f := newTestManager()
	ctx := context.Background()

	before := permissions.OverwriteMap{
		botRole.ID: {Allow: permissions.PermConnect},
	}
	f.overrides[voiceChannel.ID] = before.Clone()

	cfg := ExportedConfig{
		GuildID: testGuildID.Int64(),
		Channels: []ExportedChannel{
			{
				ID: voiceChannel.ID.Int64(), Name: "mod-voice", Type: "voice",
				Overwrites: map[string]map[string]bool{
					botRole.ID.String(): {"connect": false, "speak": false},
				},
			},
		},
	}
	data, _ := json.Marshal(cfg)

	if _, err := m.ImportConfig(ctx, testGuildID, "snapshot.json", data); err != nil {
		t.Fatalf("import: %v", err)
	}
	if f.overrides[voiceChannel.ID].Equal(before) {
		t.Fatal("import should have replaced the overwrite map")
	}

	if err := m.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if !f.overrides[voiceChannel.ID].Equal(before) {
		t.Errorf("expected pre-import state restored, got %+v", f.overrides[voiceChannel.ID])
	}
}
