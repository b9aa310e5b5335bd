package dispatch

import "go.uber.org/atomic"

// Stats are cumulative counters since the dispatcher was created.
type Stats struct {
	Ticks         uint64 `json:"ticks"`
	Admitted      uint64 `json:"admitted"`
	LocalSent     uint64 `json:"localSent"`
	LocalDropped  uint64 `json:"localDropped"`
	EncodeSkipped uint64 `json:"encodeSkipped"`
	RemoteSent    uint64 `json:"remoteSent"`
	RemoteFailed  uint64 `json:"remoteFailed"`
}

type stats struct {
	ticks         atomic.Uint64
	admitted      atomic.Uint64
	localSent     atomic.Uint64
	localDropped  atomic.Uint64
	encodeSkipped atomic.Uint64
	remoteSent    atomic.Uint64
	remoteFailed  atomic.Uint64
}

func (s *stats) snapshot() Stats {
	return Stats{
		Ticks:         s.ticks.Load(),
		Admitted:      s.admitted.Load(),
		LocalSent:     s.localSent.Load(),
		LocalDropped:  s.localDropped.Load(),
		EncodeSkipped: s.encodeSkipped.Load(),
		RemoteSent:    s.remoteSent.Load(),
		RemoteFailed:  s.remoteFailed.Load(),
	}
}
