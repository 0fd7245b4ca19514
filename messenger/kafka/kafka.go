// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

// Package kafka is a sarama-backed collaborator.Messenger: every committee
// member publishes to, and consumes from, one shared topic, keyed by the
// receiver's executor key. Each consumer reads every partition of the topic
// and keeps the messages whose contract header matches its own contract.
// Mirrors the producer/consumer setup
// the node's own chaindatafetcher kafka client uses.
package kafka

import (
	"context"
	"sync"

	"github.com/Shopify/sarama"
	"github.com/pborman/uuid"

	"github.com/proximax-storage/xpx-supercontract-executor/collaborator"
	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/internal/log"
)

var logger = log.NewModuleLogger(log.ModuleCollab)

// tagHeader/senderHeader name the sarama message headers carrying
// MessageTag and the sender's executor key, since the payload itself is
// just the opinion's wire bytes.
const (
	tagHeader      = "tag"
	senderHeader   = "sender"
	contractHeader = "contract"
)

// Config configures the Messenger's brokers and topic.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Messenger implements collaborator.Messenger over one shared Kafka topic,
// scoped to a single contract. A committee member serving many contracts
// runs one Messenger per contract against the same brokers and topic; each
// joins its own consumer group (the configured GroupID suffixed with the
// contract key), so it reads every partition while each contract's runtime
// only ever sees its own traffic. Messages are not filtered by receiver:
// every message of the contract is delivered to the subscribers, whichever
// executor it was addressed to, carrying its sender.
type Messenger struct {
	cfg      Config
	self     common.ExecutorKey
	contract common.ContractKey
	producer sarama.SyncProducer
	consumer sarama.ConsumerGroup

	mu   sync.Mutex
	subs []collaborator.MessageSubscriber

	cancel context.CancelFunc
}

// New dials brokers and joins the consumer group, starting the background
// consume loop immediately. contract scopes both outbound headers and
// inbound filtering so several contracts can safely share one topic, each
// through its own Messenger.
func New(cfg Config, self common.ExecutorKey, contract common.ContractKey) (*Messenger, error) {
	producerCfg := sarama.NewConfig()
	producerCfg.Producer.Return.Successes = true
	producerCfg.Producer.RequiredAcks = sarama.WaitForAll
	producer, err := sarama.NewSyncProducer(cfg.Brokers, producerCfg)
	if err != nil {
		return nil, err
	}

	consumerCfg := sarama.NewConfig()
	consumerCfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	// Every contract gets its own consumer group derived from the
	// configured base group id, so two contracts sharing one topic each see
	// the full partition set instead of splitting it via group rebalancing.
	groupID := cfg.GroupID + "-" + contract.Hex()[:16]
	group, err := sarama.NewConsumerGroup(cfg.Brokers, groupID, consumerCfg)
	if err != nil {
		_ = producer.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Messenger{cfg: cfg, self: self, contract: contract, producer: producer, consumer: group, cancel: cancel}

	go m.consumeLoop(ctx)
	return m, nil
}

// SendMessage publishes one tagged opinion to the shared topic, partitioned
// by receiver so a committee with more members than partitions still
// spreads load evenly.
func (m *Messenger) SendMessage(receiver common.ExecutorKey, tag collaborator.MessageTag, content []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: m.cfg.Topic,
		Key:   sarama.StringEncoder(receiver.Hex()),
		Value: sarama.ByteEncoder(content),
		Headers: []sarama.RecordHeader{
			{Key: []byte(tagHeader), Value: []byte{byte(tag)}},
			{Key: []byte(senderHeader), Value: m.self[:]},
			{Key: []byte(contractHeader), Value: m.contract[:]},
		},
	}
	// id is attached purely for broker-side tracing; it is not interpreted
	// by any consumer.
	msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte("id"), Value: []byte(uuid.NewRandom().String())})

	_, _, err := m.producer.SendMessage(msg)
	return err
}

// Subscribe registers sub to receive every inbound message this consumer
// group delivers to this process, including copies addressed to other
// executors and messages this executor itself sent; nothing here filters
// those out.
func (m *Messenger) Subscribe(sub collaborator.MessageSubscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, sub)
}

func (m *Messenger) dispatch(msg collaborator.Message) {
	m.mu.Lock()
	subs := append([]collaborator.MessageSubscriber(nil), m.subs...)
	m.mu.Unlock()
	for _, sub := range subs {
		sub.OnMessage(msg)
	}
}

func (m *Messenger) consumeLoop(ctx context.Context) {
	handler := &consumerHandler{m: m}
	for {
		if err := m.consumer.Consume(ctx, []string{m.cfg.Topic}, handler); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("kafka messenger: consume error", "err", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Close releases the producer and consumer group.
func (m *Messenger) Close() error {
	m.cancel()
	pErr := m.producer.Close()
	cErr := m.consumer.Close()
	if pErr != nil {
		return pErr
	}
	return cErr
}

type consumerHandler struct{ m *Messenger }

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var tag collaborator.MessageTag
		var sender common.ExecutorKey
		var contract common.ContractKey
		for _, hdr := range msg.Headers {
			switch string(hdr.Key) {
			case tagHeader:
				if len(hdr.Value) == 1 {
					tag = collaborator.MessageTag(hdr.Value[0])
				}
			case senderHeader:
				copy(sender[:], hdr.Value)
			case contractHeader:
				copy(contract[:], hdr.Value)
			}
		}

		if contract == h.m.contract {
			h.m.dispatch(collaborator.Message{Sender: sender, Tag: tag, Content: msg.Value})
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
