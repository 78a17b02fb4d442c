package gateway

import "encoding/json"

// Op codes for gateway payloads.
const (
	OpDispatch     = 0
	OpHeartbeat    = 1
	OpIdentify     = 2
	OpHello        = 10
	OpHeartbeatAck = 11
)

// Event names for DISPATCH payloads the tool reacts to. Guild, channel,
// and role changes invalidate the console's cached listings.
const (
	EventReady            = "READY"
	EventGuildCreate      = "GUILD_CREATE"
	EventGuildUpdate      = "GUILD_UPDATE"
	EventGuildDelete      = "GUILD_DELETE"
	EventChannelCreate    = "CHANNEL_CREATE"
	EventChannelUpdate    = "CHANNEL_UPDATE"
	EventChannelDelete    = "CHANNEL_DELETE"
	EventGuildRoleCreate  = "GUILD_ROLE_CREATE"
	EventGuildRoleUpdate  = "GUILD_ROLE_UPDATE"
	EventGuildRoleDelete  = "GUILD_ROLE_DELETE"
)

// Payload is the envelope for all gateway messages.
type Payload struct {
	Op       int             `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int64          `json:"s,omitempty"`
	Event    *string         `json:"t,omitempty"`
}

// IdentifyData is sent by the client in an Op 2 IDENTIFY.
type IdentifyData struct {
	Token string `json:"token"`
}

// HelloData is sent by the server after WebSocket connect.
type HelloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

// Event is a dispatch event delivered to the consumer.
type Event struct {
	Name string
	Data json.RawMessage
}
