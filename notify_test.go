// notify_test.go: notification hub tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifier_EngineObserversInOrder(t *testing.T) {
	n := NewNotifier(NewNoOpLogger())
	engine := &Engine{name: "Observed"}

	var order []int
	n.SubscribeEngine(func(e *Engine, verb NotificationVerb) {
		assert.Same(t, engine, e)
		assert.Equal(t, EngineAdded, verb)
		order = append(order, 1)
	})
	n.SubscribeEngine(func(e *Engine, verb NotificationVerb) {
		order = append(order, 2)
	})

	n.NotifyEngine(engine, EngineAdded)
	assert.Equal(t, []int{1, 2}, order, "observers run in registration order")
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := NewNotifier(NewNoOpLogger())

	calls := 0
	id := n.SubscribeEngine(func(e *Engine, verb NotificationVerb) {
		calls++
	})

	n.NotifyEngine(&Engine{name: "x"}, EngineChanged)
	n.Unsubscribe(id)
	n.NotifyEngine(&Engine{name: "x"}, EngineChanged)

	assert.Equal(t, 1, calls, "unsubscribed observers must not be called")
}

func TestNotifier_TopicObservers(t *testing.T) {
	n := NewNotifier(NewNoOpLogger())

	var topics []string
	n.SubscribeTopic(func(topic string) {
		topics = append(topics, topic)
	})

	n.NotifyTopic(TopicInitComplete)
	n.NotifyTopic(TopicCacheWritten)
	assert.Equal(t, []string{TopicInitComplete, TopicCacheWritten}, topics)
}

func TestNotifier_PanickingObserverIsIsolated(t *testing.T) {
	logger := NewTestLogger()
	n := NewNotifier(logger)

	n.SubscribeEngine(func(e *Engine, verb NotificationVerb) {
		panic("observer bug")
	})
	second := false
	n.SubscribeEngine(func(e *Engine, verb NotificationVerb) {
		second = true
	})

	assert.NotPanics(t, func() {
		n.NotifyEngine(&Engine{name: "x"}, EngineRemoved)
	})
	assert.True(t, second, "a panicking observer must not block the rest")
}
