// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/ion-signal/ion/rendezvous"
)

// Compile-time interface checks.
var (
	_ rendezvous.PeerTransport = (*WebRTC)(nil)
	_ rendezvous.Peer          = (*webrtcPeer)(nil)
)

// DataChannelLabel names the single data channel of every session.
const DataChannelLabel = "ion"

// ErrChannelNotOpen is returned by Send before the data channel opens
// and after it closes.
var ErrChannelNotOpen = errors.New("transport: data channel not open")

// WebRTCConfig configures a WebRTC transport.
type WebRTCConfig struct {
	ICE    ICEConfig
	Logger *slog.Logger
}

// WebRTC creates pion PeerConnections with one ordered, reliable data
// channel each. Negotiation uses trickle ICE: the offer or answer is
// emitted as soon as it is set locally and every candidate follows as
// its own signal, so the ledger's debounce batches them.
type WebRTC struct {
	config webrtc.Configuration
	api    *webrtc.API
	logger *slog.Logger
}

// NewWebRTC returns a transport sharing one pion API across peers.
func NewWebRTC(cfg WebRTCConfig) *WebRTC {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Loopback candidates let two participants on one machine connect
	// with no STUN server reachable.
	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(true)

	return &WebRTC{
		config: webrtc.Configuration{ICEServers: cfg.ICE.Servers},
		api:    webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine)),
		logger: logger,
	}
}

// NewPeer implements rendezvous.PeerTransport. An initiator creates
// the data channel and emits its offer before NewPeer returns; a
// responder waits for the remote offer.
func (w *WebRTC) NewPeer(options rendezvous.PeerOptions, events rendezvous.PeerEvents) (rendezvous.Peer, error) {
	pc, err := w.api.NewPeerConnection(w.config)
	if err != nil {
		return nil, fmt.Errorf("creating PeerConnection: %w", err)
	}

	peer := &webrtcPeer{
		connection: pc,
		events:     events,
		logger:     w.logger.With("peer", options.RemoteTag),
	}
	pc.OnICECandidate(peer.handleLocalCandidate)
	pc.OnConnectionStateChange(peer.handleStateChange)

	if !options.Initiator {
		pc.OnDataChannel(peer.attach)
		return peer, nil
	}

	ordered := true
	channel, err := pc.CreateDataChannel(DataChannelLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("creating data channel: %w", err)
	}
	peer.attach(channel)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("creating SDP offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return nil, fmt.Errorf("setting local description: %w", err)
	}
	if err := peer.emitDescription(offer); err != nil {
		pc.Close()
		return nil, err
	}
	return peer, nil
}

// webrtcPeer adapts one PeerConnection to rendezvous.Peer.
type webrtcPeer struct {
	connection *webrtc.PeerConnection
	events     rendezvous.PeerEvents
	logger     *slog.Logger

	mu      sync.Mutex
	channel *webrtc.DataChannel

	// Local candidates wait until our description has been emitted,
	// remote ones until the remote description is set.
	described        bool
	localCandidates  []rendezvous.Signal
	remoteSet        bool
	remoteCandidates []webrtc.ICECandidateInit

	// closedLocally suppresses OnClose for a Close we initiated.
	closedLocally bool
	closeReported bool
}

// Signal implements rendezvous.Peer.
func (p *webrtcPeer) Signal(signal rendezvous.Signal) error {
	switch signal.Kind {
	case rendezvous.SignalNegotiation:
		var description webrtc.SessionDescription
		if err := json.Unmarshal(signal.Data, &description); err != nil {
			return fmt.Errorf("parsing session description: %w", err)
		}
		return p.setRemoteDescription(description)
	case rendezvous.SignalCandidate:
		var candidate webrtc.ICECandidateInit
		if err := json.Unmarshal(signal.Data, &candidate); err != nil {
			return fmt.Errorf("parsing ICE candidate: %w", err)
		}
		p.mu.Lock()
		if !p.remoteSet {
			p.remoteCandidates = append(p.remoteCandidates, candidate)
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()
		if err := p.connection.AddICECandidate(candidate); err != nil {
			return fmt.Errorf("adding ICE candidate: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown signal kind %q", signal.Kind)
	}
}

func (p *webrtcPeer) setRemoteDescription(description webrtc.SessionDescription) error {
	if err := p.connection.SetRemoteDescription(description); err != nil {
		return fmt.Errorf("setting remote %s: %w", description.Type, err)
	}

	if description.Type == webrtc.SDPTypeOffer {
		answer, err := p.connection.CreateAnswer(nil)
		if err != nil {
			return fmt.Errorf("creating SDP answer: %w", err)
		}
		if err := p.connection.SetLocalDescription(answer); err != nil {
			return fmt.Errorf("setting local description: %w", err)
		}
		if err := p.emitDescription(answer); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.remoteSet = true
	queued := p.remoteCandidates
	p.remoteCandidates = nil
	p.mu.Unlock()

	for _, candidate := range queued {
		if err := p.connection.AddICECandidate(candidate); err != nil {
			p.logger.Warn("adding queued ICE candidate", "error", err)
		}
	}
	return nil
}

// emitDescription relays our offer or answer, then any candidates
// gathered while it was being set.
func (p *webrtcPeer) emitDescription(description webrtc.SessionDescription) error {
	data, err := json.Marshal(description)
	if err != nil {
		return fmt.Errorf("encoding session description: %w", err)
	}
	p.events.OnSignal(rendezvous.Signal{Kind: rendezvous.SignalNegotiation, Data: data})

	p.mu.Lock()
	p.described = true
	queued := p.localCandidates
	p.localCandidates = nil
	p.mu.Unlock()

	for _, signal := range queued {
		p.events.OnSignal(signal)
	}
	return nil
}

func (p *webrtcPeer) handleLocalCandidate(candidate *webrtc.ICECandidate) {
	// A nil candidate marks the end of gathering.
	if candidate == nil {
		return
	}
	data, err := json.Marshal(candidate.ToJSON())
	if err != nil {
		p.logger.Warn("encoding ICE candidate", "error", err)
		return
	}
	signal := rendezvous.Signal{Kind: rendezvous.SignalCandidate, Data: data}

	p.mu.Lock()
	if !p.described {
		p.localCandidates = append(p.localCandidates, signal)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.events.OnSignal(signal)
}

func (p *webrtcPeer) handleStateChange(state webrtc.PeerConnectionState) {
	p.logger.Debug("connection state change", "state", state.String())
	switch state {
	case webrtc.PeerConnectionStateFailed:
		p.events.OnError(errors.New("transport: peer connection failed"))
		p.reportClose()
	case webrtc.PeerConnectionStateClosed:
		p.reportClose()
	}
}

// attach wires the data channel's callbacks. The responder's channel
// arrives through OnDataChannel.
func (p *webrtcPeer) attach(channel *webrtc.DataChannel) {
	if channel.Label() != DataChannelLabel {
		p.logger.Warn("ignoring unexpected data channel", "label", channel.Label())
		return
	}
	p.mu.Lock()
	p.channel = channel
	p.mu.Unlock()

	channel.OnOpen(func() {
		p.logger.Debug("data channel open")
		p.events.OnConnect()
	})
	channel.OnMessage(func(message webrtc.DataChannelMessage) {
		p.events.OnData(message.Data)
	})
	channel.OnError(func(err error) {
		p.events.OnError(fmt.Errorf("data channel: %w", err))
	})
	channel.OnClose(p.reportClose)
}

func (p *webrtcPeer) reportClose() {
	p.mu.Lock()
	if p.closedLocally || p.closeReported {
		p.mu.Unlock()
		return
	}
	p.closeReported = true
	p.mu.Unlock()
	p.events.OnClose()
}

// Send implements rendezvous.Peer.
func (p *webrtcPeer) Send(data []byte) error {
	p.mu.Lock()
	channel := p.channel
	p.mu.Unlock()
	if channel == nil || channel.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	return channel.Send(data)
}

// Close implements rendezvous.Peer. It does not invoke OnClose.
func (p *webrtcPeer) Close() error {
	p.mu.Lock()
	p.closedLocally = true
	p.mu.Unlock()
	return p.connection.Close()
}
