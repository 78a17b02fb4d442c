package permissions

import "strings"

// Permission is a bitfield representing a set of permission flags.
type Permission int64

const (
	PermCreateInstantInvite              Permission = 1 << 0
	PermKickMembers                      Permission = 1 << 1
	PermBanMembers                       Permission = 1 << 2
	PermAdministrator                    Permission = 1 << 3
	PermManageChannels                   Permission = 1 << 4
	PermManageGuild                      Permission = 1 << 5
	PermAddReactions                     Permission = 1 << 6
	PermViewAuditLog                     Permission = 1 << 7
	PermPrioritySpeaker                  Permission = 1 << 8
	PermStream                           Permission = 1 << 9
	PermViewChannel                      Permission = 1 << 10
	PermSendMessages                     Permission = 1 << 11
	PermSendTTSMessages                  Permission = 1 << 12
	PermManageMessages                   Permission = 1 << 13
	PermEmbedLinks                       Permission = 1 << 14
	PermAttachFiles                      Permission = 1 << 15
	PermReadMessageHistory               Permission = 1 << 16
	PermMentionEveryone                  Permission = 1 << 17
	PermUseExternalEmojis                Permission = 1 << 18
	PermViewGuildInsights                Permission = 1 << 19
	PermConnect                          Permission = 1 << 20 // voice
	PermSpeak                            Permission = 1 << 21 // voice
	PermMuteMembers                      Permission = 1 << 22 // voice
	PermDeafenMembers                    Permission = 1 << 23 // voice
	PermMoveMembers                      Permission = 1 << 24 // voice
	PermUseVAD                           Permission = 1 << 25 // voice
	PermChangeNickname                   Permission = 1 << 26
	PermManageNicknames                  Permission = 1 << 27
	PermManageRoles                      Permission = 1 << 28
	PermManageWebhooks                   Permission = 1 << 29
	PermManageEmojisAndStickers          Permission = 1 << 30
	PermUseApplicationCommands           Permission = 1 << 31
	PermRequestToSpeak                   Permission = 1 << 32
	PermManageEvents                     Permission = 1 << 33
	PermManageThreads                    Permission = 1 << 34
	PermCreatePublicThreads              Permission = 1 << 35
	PermCreatePrivateThreads             Permission = 1 << 36
	PermUseExternalStickers              Permission = 1 << 37
	PermSendMessagesInThreads            Permission = 1 << 38
	PermUseEmbeddedActivities            Permission = 1 << 39
	PermModerateMembers                  Permission = 1 << 40
	PermViewCreatorMonetizationAnalytics Permission = 1 << 41
	PermUseSoundboard                    Permission = 1 << 42
	PermSendVoiceMessages                Permission = 1 << 43
	PermSetVoiceChannelStatus            Permission = 1 << 44
	PermUseExternalSounds                Permission = 1 << 45
	PermBypassSlowmode                   Permission = 1 << 46
)

// Has returns true if p contains all bits in perm.
func (p Permission) Has(perm Permission) bool { return p&perm == perm }

// Add returns p with the bits from perm set.
func (p Permission) Add(perm Permission) Permission { return p | perm }

// Remove returns p with the bits from perm cleared.
func (p Permission) Remove(perm Permission) Permission { return p &^ perm }

// catalog lists every flag in display order with its canonical name.
// The names double as keys in exported configs.
var catalog = []struct {
	bit  Permission
	name string
}{
	{PermCreateInstantInvite, "create_instant_invite"},
	{PermKickMembers, "kick_members"},
	{PermBanMembers, "ban_members"},
	{PermAdministrator, "administrator"},
	{PermManageChannels, "manage_channels"},
	{PermManageGuild, "manage_guild"},
	{PermAddReactions, "add_reactions"},
	{PermViewAuditLog, "view_audit_log"},
	{PermPrioritySpeaker, "priority_speaker"},
	{PermStream, "stream"},
	{PermViewChannel, "view_channel"},
	{PermSendMessages, "send_messages"},
	{PermSendTTSMessages, "send_tts_messages"},
	{PermManageMessages, "manage_messages"},
	{PermEmbedLinks, "embed_links"},
	{PermAttachFiles, "attach_files"},
	{PermReadMessageHistory, "read_message_history"},
	{PermMentionEveryone, "mention_everyone"},
	{PermUseExternalEmojis, "use_external_emojis"},
	{PermViewGuildInsights, "view_guild_insights"},
	{PermConnect, "connect"},
	{PermSpeak, "speak"},
	{PermMuteMembers, "mute_members"},
	{PermDeafenMembers, "deafen_members"},
	{PermMoveMembers, "move_members"},
	{PermUseVAD, "use_vad"},
	{PermChangeNickname, "change_nickname"},
	{PermManageNicknames, "manage_nicknames"},
	{PermManageRoles, "manage_roles"},
	{PermManageWebhooks, "manage_webhooks"},
	{PermManageEmojisAndStickers, "manage_emojis_and_stickers"},
	{PermUseApplicationCommands, "use_application_commands"},
	{PermRequestToSpeak, "request_to_speak"},
	{PermManageEvents, "manage_events"},
	{PermManageThreads, "manage_threads"},
	{PermCreatePublicThreads, "create_public_threads"},
	{PermCreatePrivateThreads, "create_private_threads"},
	{PermUseExternalStickers, "use_external_stickers"},
	{PermSendMessagesInThreads, "send_messages_in_threads"},
	{PermUseEmbeddedActivities, "use_embedded_activities"},
	{PermModerateMembers, "moderate_members"},
	{PermViewCreatorMonetizationAnalytics, "view_creator_monetization_analytics"},
	{PermUseSoundboard, "use_soundboard"},
	{PermSendVoiceMessages, "send_voice_messages"},
	{PermSetVoiceChannelStatus, "set_voice_channel_status"},
	{PermUseExternalSounds, "use_external_sounds"},
	{PermBypassSlowmode, "bypass_slowmode"},
}

var flagBits = func() map[string]Permission {
	m := make(map[string]Permission, len(catalog))
	for _, e := range catalog {
		m[e.name] = e.bit
	}
	return m
}()

// FlagNames returns every flag name in the catalog, in display order.
func FlagNames() []string {
	names := make([]string, len(catalog))
	for i, e := range catalog {
		names[i] = e.name
	}
	return names
}

// FlagBit returns the bit for a flag name, or false if the name is not
// in the catalog.
func FlagBit(name string) (Permission, bool) {
	bit, ok := flagBits[name]
	return bit, ok
}

// String returns a human-readable representation of the permission set,
// listing all set flag names separated by " | ".
func (p Permission) String() string {
	if p == 0 {
		return "NONE"
	}

	var names []string
	for _, e := range catalog {
		if p.Has(e.bit) {
			names = append(names, e.name)
		}
	}

	if len(names) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(names, " | ")
}
