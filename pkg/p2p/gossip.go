package p2p

import (
	"context"
	"errors"
	"sync"

	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/uhyunpark/frmdex/pkg/sequencer"
	"github.com/uhyunpark/frmdex/pkg/transaction"
)

// TopicOrders carries drained batches from the sequencer to matcher nodes.
const TopicOrders = "frm-orders/1"

// BatchHandler receives verified batches published by a peer.
type BatchHandler func(ctx context.Context, from peer.ID, batch []sequencer.Sequenced)

// OrderGossip publishes sequenced batches over GossipSub.
type OrderGossip struct {
	h      host.Host
	ps     *pubsub.PubSub
	topic  *pubsub.Topic
	log    *zap.SugaredLogger
	verify *transaction.Verifier

	mu  sync.Mutex
	sub *pubsub.Subscription
}

type GossipConfig struct {
	ListenAddr string
	Bootstrap  []string
	Logger     *zap.SugaredLogger
}

// NewOrderGossip starts a libp2p host, joins TopicOrders and dials the
// bootstrap peers. Failed bootstrap dials are logged, not fatal.
func NewOrderGossip(ctx context.Context, cfg GossipConfig) (*OrderGossip, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	var opts []libp2p.Option
	if cfg.ListenAddr != "" {
		maddr, err := ma.NewMultiaddr(cfg.ListenAddr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, libp2p.ListenAddrs(maddr))
	}
	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, err
	}
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		return nil, err
	}
	topic, err := ps.Join(TopicOrders)
	if err != nil {
		h.Close()
		return nil, err
	}

	for _, bs := range cfg.Bootstrap {
		if err := connectMultiaddr(ctx, h, bs); err != nil {
			log.Warnw("bootstrap_connect_failed", "addr", bs, "err", err)
		}
	}

	log.Infow("libp2p_ready", "peer", h.ID().String(), "listen", cfg.ListenAddr, "topic", TopicOrders)
	return &OrderGossip{
		h:      h,
		ps:     ps,
		topic:  topic,
		log:    log,
		verify: transaction.NewVerifier(),
	}, nil
}

func connectMultiaddr(ctx context.Context, h host.Host, addr string) error {
	m, err := ma.NewMultiaddr(addr)
	if err != nil {
		return err
	}
	info, err := peer.AddrInfoFromP2pAddr(m)
	if err != nil {
		return err
	}
	return h.Connect(ctx, *info)
}

func (g *OrderGossip) Host() host.Host { return g.h }

// PublishBatch gossips a drained batch. Empty batches are not sent.
func (g *OrderGossip) PublishBatch(ctx context.Context, batch []sequencer.Sequenced) error {
	if len(batch) == 0 {
		return nil
	}
	data, err := gobEncode(toBatchWire(batch))
	if err != nil {
		return err
	}
	return g.topic.Publish(ctx, data)
}

// Subscribe delivers every batch on TopicOrders to handle until ctx ends.
// Orders that fail decoding or signature checks are dropped and logged.
func (g *OrderGossip) Subscribe(ctx context.Context, handle BatchHandler) error {
	g.mu.Lock()
	if g.sub != nil {
		g.mu.Unlock()
		return errors.New("already subscribed")
	}
	sub, err := g.topic.Subscribe()
	if err != nil {
		g.mu.Unlock()
		return err
	}
	g.sub = sub
	g.mu.Unlock()

	go g.handleBatches(ctx, sub, handle)
	return nil
}

func (g *OrderGossip) handleBatches(ctx context.Context, sub *pubsub.Subscription, handle BatchHandler) {
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			return
		}
		var w BatchWire
		if err := gobDecode(msg.Data, &w); err != nil {
			g.log.Warnw("gossip_batch_undecodable", "from", msg.ReceivedFrom.String(), "err", err)
			continue
		}

		batch := make([]sequencer.Sequenced, 0, len(w.Orders))
		for _, ow := range w.Orders {
			sq, err := fromOrderWire(ow, g.verify)
			if err != nil {
				g.log.Warnw("gossip_order_rejected",
					"from", msg.ReceivedFrom.String(),
					"kind", transaction.ErrorKind(err),
					"err", err)
				continue
			}
			batch = append(batch, sq)
		}
		if len(batch) > 0 {
			handle(ctx, msg.ReceivedFrom, batch)
		}
	}
}

// Close leaves the topic and shuts the host down.
func (g *OrderGossip) Close() error {
	g.mu.Lock()
	if g.sub != nil {
		g.sub.Cancel()
	}
	g.mu.Unlock()
	if err := g.topic.Close(); err != nil {
		g.log.Debugw("topic_close_failed", "err", err)
	}
	return g.h.Close()
}
