package linksvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/neuroplastio/neio-split/pkg/bus"
	"go.uber.org/zap"
)

// Peer is a half that connected to this device at least once.
type Peer struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remoteAddr"`
	Connected   bool      `json:"connected"`
	Connections int       `json:"connections"`
	FirstSeenAt time.Time `json:"firstSeenAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

type PeerEventType uint8

const (
	PeerConnected PeerEventType = iota
	PeerDisconnected
)

func (t PeerEventType) String() string {
	if t == PeerConnected {
		return "connected"
	}
	return "disconnected"
}

type (
	PeerEvent struct {
		Type PeerEventType
		Peer Peer
	}
	PeerBus        = bus.Bus[string, PeerEvent]
	PeerSubscriber = bus.Subscriber[string, PeerEvent]
)

func NewPeerBus(log *zap.Logger) *PeerBus {
	return bus.NewBus[string, PeerEvent](log)
}

var ErrPeerNotFound = errors.New("peer not found")

// PeerRegistry persists known peers in badger and announces connection changes on the peer bus.
type PeerRegistry struct {
	log *zap.Logger
	db  *badger.DB
	now func() time.Time
	bus *PeerBus
}

func NewPeerRegistry(log *zap.Logger, db *badger.DB, now func() time.Time, bus *PeerBus) *PeerRegistry {
	return &PeerRegistry{
		log: log,
		db:  db,
		now: now,
		bus: bus,
	}
}

func peerKey(id string) []byte {
	return []byte(fmt.Sprintf("link/peers/%s", id))
}

func (r *PeerRegistry) Connected(ctx context.Context, id, remoteAddr string) (Peer, error) {
	peer, err := r.update(id, func(peer *Peer) {
		peer.RemoteAddr = remoteAddr
		peer.Connected = true
		peer.Connections++
	})
	if err != nil {
		return Peer{}, err
	}
	r.publish(ctx, PeerEvent{Type: PeerConnected, Peer: peer})
	return peer, nil
}

func (r *PeerRegistry) Disconnected(ctx context.Context, id string) (Peer, error) {
	peer, err := r.update(id, func(peer *Peer) {
		peer.Connected = false
	})
	if err != nil {
		return Peer{}, err
	}
	r.publish(ctx, PeerEvent{Type: PeerDisconnected, Peer: peer})
	return peer, nil
}

func (r *PeerRegistry) publish(ctx context.Context, event PeerEvent) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(ctx, event.Peer.ID, event)
}

func (r *PeerRegistry) update(id string, fn func(peer *Peer)) (Peer, error) {
	var peer Peer
	now := r.now()
	err := r.db.Update(func(txn *badger.Txn) error {
		key := peerKey(id)
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			peer = Peer{ID: id}
		case err != nil:
			return err
		default:
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &peer)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal peer: %w", err)
			}
		}
		if peer.FirstSeenAt.IsZero() {
			peer.FirstSeenAt = now
		}
		peer.LastSeenAt = now
		fn(&peer)
		b, err := json.Marshal(peer)
		if err != nil {
			return fmt.Errorf("failed to marshal peer: %w", err)
		}
		return txn.Set(key, b)
	})
	if err != nil {
		return Peer{}, fmt.Errorf("failed to update peer %s: %w", id, err)
	}
	return peer, nil
}

func (r *PeerRegistry) Get(id string) (Peer, error) {
	var peer Peer
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(peerKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPeerNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &peer)
		})
	})
	if err != nil {
		return Peer{}, fmt.Errorf("failed to get peer %s: %w", id, err)
	}
	return peer, nil
}

func (r *PeerRegistry) List() ([]Peer, error) {
	var peers []Peer
	err := r.db.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()
		prefix := []byte("link/peers/")
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			var peer Peer
			err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &peer)
			})
			if err != nil {
				return err
			}
			peers = append(peers, peer)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list peers: %w", err)
	}
	return peers, nil
}
