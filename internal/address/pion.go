package address

import (
	"fmt"
	"io"

	"github.com/pion/webrtc/v4"
	"github.com/samber/lo"
)

// PionGatherer triggers candidate gathering through an offer on a pion
// peer connection. The data channel exists only so the offer carries an
// m-line; nothing is ever sent on it.
type PionGatherer struct {
	config webrtc.Configuration
}

// NewPionGatherer takes optional STUN/TURN URLs. Without any, only host
// candidates are gathered.
func NewPionGatherer(iceServers []string) *PionGatherer {
	urls := lo.Compact(iceServers)
	var cfg webrtc.Configuration
	if len(urls) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: urls}}
	}
	return &PionGatherer{config: cfg}
}

func (g *PionGatherer) Gather(onCandidate func(string), done func()) (io.Closer, error) {
	pc, err := webrtc.NewPeerConnection(g.config)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			done()
			return
		}
		onCandidate(c.ToJSON().Candidate)
	})

	if _, err := pc.CreateDataChannel("", nil); err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("create data channel: %w", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("create offer: %w", err)
	}

	if err := pc.SetLocalDescription(offer); err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("set local description: %w", err)
	}

	return pc, nil
}
