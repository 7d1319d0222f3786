// notify.go: change notification fan-out
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"sync"
)

// EngineObserver receives engine change notifications.
type EngineObserver func(engine *Engine, verb NotificationVerb)

// TopicObserver receives service lifecycle notifications.
type TopicObserver func(topic string)

type engineSubscription struct {
	id int
	fn EngineObserver
}

type topicSubscription struct {
	id int
	fn TopicObserver
}

// Notifier fans change events out to subscribers. Delivery is
// synchronous, in registration order, and a panicking subscriber does
// not suppress delivery to the rest. No subscriber is required to
// exist: publishing into an empty notifier is free.
type Notifier struct {
	mu        sync.RWMutex
	nextID    int
	engineObs []engineSubscription
	topicObs  []topicSubscription
	logger    Logger
}

// NewNotifier creates a notifier logging subscriber panics to logger.
func NewNotifier(logger Logger) *Notifier {
	if logger == nil {
		logger = DefaultLogger()
	}
	return &Notifier{logger: logger}
}

// SubscribeEngine registers an engine observer and returns its
// subscription id.
func (n *Notifier) SubscribeEngine(fn EngineObserver) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.engineObs = append(n.engineObs, engineSubscription{id: n.nextID, fn: fn})
	return n.nextID
}

// SubscribeTopic registers a lifecycle observer and returns its
// subscription id.
func (n *Notifier) SubscribeTopic(fn TopicObserver) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.topicObs = append(n.topicObs, topicSubscription{id: n.nextID, fn: fn})
	return n.nextID
}

// Unsubscribe removes the subscription with the given id.
func (n *Notifier) Unsubscribe(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, sub := range n.engineObs {
		if sub.id == id {
			n.engineObs = append(n.engineObs[:i], n.engineObs[i+1:]...)
			return
		}
	}
	for i, sub := range n.topicObs {
		if sub.id == id {
			n.topicObs = append(n.topicObs[:i], n.topicObs[i+1:]...)
			return
		}
	}
}

// NotifyEngine delivers an engine change event to every subscriber.
func (n *Notifier) NotifyEngine(engine *Engine, verb NotificationVerb) {
	n.mu.RLock()
	subs := make([]engineSubscription, len(n.engineObs))
	copy(subs, n.engineObs)
	n.mu.RUnlock()

	for _, sub := range subs {
		n.deliverEngine(sub, engine, verb)
	}
}

func (n *Notifier) deliverEngine(sub engineSubscription, engine *Engine, verb NotificationVerb) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("engine observer panicked",
				"verb", string(verb), "panic", r)
		}
	}()
	sub.fn(engine, verb)
}

// NotifyTopic delivers a lifecycle event to every subscriber.
func (n *Notifier) NotifyTopic(topic string) {
	n.mu.RLock()
	subs := make([]topicSubscription, len(n.topicObs))
	copy(subs, n.topicObs)
	n.mu.RUnlock()

	for _, sub := range subs {
		n.deliverTopic(sub, topic)
	}
}

func (n *Notifier) deliverTopic(sub topicSubscription, topic string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("topic observer panicked",
				"topic", topic, "panic", r)
		}
	}()
	sub.fn(topic)
}
