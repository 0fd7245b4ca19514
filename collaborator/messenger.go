// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package collaborator

import "github.com/proximax-storage/xpx-supercontract-executor/common"

// MessageTag identifies the kind of opinion carried by a Message.
type MessageTag int

const (
	SuccessfulEndBatch MessageTag = iota
	UnsuccessfulEndBatch
)

func (t MessageTag) String() string {
	if t == SuccessfulEndBatch {
		return "SUCCESSFUL_END_BATCH"
	}
	return "UNSUCCESSFUL_END_BATCH"
}

// Message is an opaque tagged byte blob delivered by the Messenger
// collaborator; Content is the canonical serialization of the opinion
// named by Tag.
type Message struct {
	Sender  common.ExecutorKey
	Tag     MessageTag
	Content []byte
}

// MessageSubscriber receives inbound messages. Implementations must not
// block: the caller delivers on its own goroutine and expects OnMessage to
// hand off quickly, e.g. by pushing onto the executor's single event
// channel.
type MessageSubscriber interface {
	OnMessage(msg Message)
}

// Messenger is the one-shot peer-to-peer messenger collaborator.
type Messenger interface {
	SendMessage(receiver common.ExecutorKey, tag MessageTag, content []byte) error
	Subscribe(sub MessageSubscriber)
}
