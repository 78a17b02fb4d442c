package permissions

import (
	"strings"
	"testing"
)

func TestHas(t *testing.T) {
	p := PermViewChannel | PermSendMessages
	if !p.Has(PermViewChannel) {
		t.Error("expected Has(PermViewChannel) to be true")
	}
	if !p.Has(PermSendMessages) {
		t.Error("expected Has(PermSendMessages) to be true")
	}
	if p.Has(PermManageMessages) {
		t.Error("expected Has(PermManageMessages) to be false")
	}
}

func TestAdd(t *testing.T) {
	p := PermViewChannel
	p = p.Add(PermSendMessages)
	if !p.Has(PermSendMessages) {
		t.Error("expected permission to be added")
	}
	if !p.Has(PermViewChannel) {
		t.Error("expected original permission to remain")
	}
}

func TestRemove(t *testing.T) {
	p := PermViewChannel | PermSendMessages
	p = p.Remove(PermSendMessages)
	if p.Has(PermSendMessages) {
		t.Error("expected permission to be removed")
	}
	if !p.Has(PermViewChannel) {
		t.Error("expected other permission to remain")
	}
}

func TestCatalogComplete(t *testing.T) {
	expected := []string{
		"create_instant_invite", "kick_members", "ban_members", "administrator",
		"manage_channels", "manage_guild", "add_reactions", "view_audit_log",
		"priority_speaker", "stream", "view_channel", "send_messages",
		"send_tts_messages", "manage_messages", "embed_links", "attach_files",
		"read_message_history", "mention_everyone", "use_external_emojis",
		"view_guild_insights", "connect", "speak", "mute_members", "deafen_members",
		"move_members", "use_vad", "change_nickname", "manage_nicknames",
		"manage_roles", "manage_webhooks", "manage_emojis_and_stickers",
		"use_application_commands", "request_to_speak", "manage_events",
		"manage_threads", "create_public_threads", "create_private_threads",
		"use_external_stickers", "send_messages_in_threads", "use_embedded_activities",
		"moderate_members", "view_creator_monetization_analytics", "use_soundboard",
		"send_voice_messages", "set_voice_channel_status", "use_external_sounds",
		"bypass_slowmode",
	}

	names := FlagNames()
	if len(names) != len(expected) {
		t.Fatalf("expected %d flags, got %d", len(expected), len(names))
	}
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("flag %d: expected %q, got %q", i, name, names[i])
		}
	}
}

func TestCatalogBitsDistinct(t *testing.T) {
	seen := make(map[Permission]string)
	for _, name := range FlagNames() {
		bit, ok := FlagBit(name)
		if !ok {
			t.Fatalf("catalog name %q has no bit", name)
		}
		if prev, dup := seen[bit]; dup {
			t.Errorf("flags %q and %q share bit %d", prev, name, bit)
		}
		seen[bit] = name
	}
}

func TestFlagBitUnknown(t *testing.T) {
	if _, ok := FlagBit("fly_to_the_moon"); ok {
		t.Error("expected unknown flag name to be rejected")
	}
}

func TestStringListsSetFlags(t *testing.T) {
	p := PermViewChannel | PermSendMessages
	s := p.String()
	if !strings.Contains(s, "view_channel") || !strings.Contains(s, "send_messages") {
		t.Errorf("expected flag names in %q", s)
	}
	if Permission(0).String() != "NONE" {
		t.Errorf("expected NONE for empty set, got %q", Permission(0).String())
	}
}
