package monitor

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/coverfuzz/kernel/internal/events"
)

// relayEvent is the wire shape posted to a peer's relay endpoint.
type relayEvent struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields"`
}

// RelayMonitor aggregates stats locally and additionally forwards every
// fired event as JSON to a set of peer addresses over fasthttp,
// realizing independent fuzzer peers exchanging messages through an
// external event manager. Grounded on the teacher's
// internal/requester.Client fasthttp wrapper.
type RelayMonitor struct {
	stats   *Stats
	client  *fasthttp.Client
	peers   []string
	timeout time.Duration
}

// NewRelayMonitor builds a RelayMonitor posting to the given peer
// addresses (host:port, no scheme).
func NewRelayMonitor(peers []string) *RelayMonitor {
	return &RelayMonitor{
		stats: NewStats(),
		client: &fasthttp.Client{
			MaxConnsPerHost: 32,
		},
		peers:   peers,
		timeout: 2 * time.Second,
	}
}

// Fire implements events.Manager: records the event locally, then best-
// effort POSTs it to every configured peer. A peer being unreachable is
// not itself a fatal error for the local campaign.
func (m *RelayMonitor) Fire(e events.Event) error {
	m.stats.Record(e)

	if len(m.peers) == 0 {
		return nil
	}

	body, err := json.Marshal(relayEvent{Kind: e.Kind.String(), Message: e.Message, Fields: e.Fields})
	if err != nil {
		return err
	}

	for _, addr := range m.peers {
		m.post(addr, body)
	}
	return nil
}

func (m *RelayMonitor) post(addr string, body []byte) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://" + addr + "/events")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	_ = m.client.DoTimeout(req, resp, m.timeout)
}

// Process implements events.Manager as a no-op. RelayMonitor only sends;
// nothing in this module receives relay traffic.
func (m *RelayMonitor) Process() error { return nil }

// Snapshot returns the locally aggregated stats.
func (m *RelayMonitor) Snapshot() Snapshot { return m.stats.Snapshot() }
