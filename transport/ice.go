// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"github.com/pion/webrtc/v4"

	"github.com/ion-signal/ion/lib/config"
)

// DefaultSTUNServers are used when the configuration names no ICE
// servers.
var DefaultSTUNServers = []string{
	"stun:stun1.l.google.com:19302",
	"stun:stun2.l.google.com:19302",
	"stun:stun3.l.google.com:19302",
}

// ICEConfig holds ICE server configuration for WebRTC PeerConnections.
// The zero value gathers host candidates only, which is enough on one
// machine or one LAN.
type ICEConfig struct {
	// Servers is the list of ICE servers (STUN + TURN) to use during
	// candidate gathering.
	Servers []webrtc.ICEServer
}

// DefaultICEConfig returns a config using the public STUN servers.
func DefaultICEConfig() ICEConfig {
	return ICEConfig{Servers: []webrtc.ICEServer{{URLs: DefaultSTUNServers}}}
}

// ICEConfigFromConfig converts the configured server list into pion ICE
// server entries. An empty list selects DefaultICEConfig.
func ICEConfigFromConfig(ice config.ICEConfig) ICEConfig {
	if len(ice.Servers) == 0 {
		return DefaultICEConfig()
	}
	servers := make([]webrtc.ICEServer, 0, len(ice.Servers))
	for _, server := range ice.Servers {
		entry := webrtc.ICEServer{URLs: server.URLs}
		if server.Username != "" || server.Credential != "" {
			entry.Username = server.Username
			entry.Credential = server.Credential
		}
		servers = append(servers, entry)
	}
	return ICEConfig{Servers: servers}
}
