package mqtt

import (
	"fmt"
	"slices"
)

func validate(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return fmt.Errorf("%w: got %d", ErrInvalidQoS, qos)
	}
	return nil
}

// Subscribe adds handler for topic (wildcards allowed). Several handlers
// may share a topic; each receives every message. The broker subscription
// is made once per topic at the highest QoS asked for, and is restored
// after every reconnect.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	entry := &handlerEntry{fn: handler}

	c.subsMu.Lock()
	sub, shared := c.subs[topic]
	if !shared {
		sub = &subscription{qos: qos}
		c.subs[topic] = sub
	}
	prevQoS := sub.qos
	sub.handlers = append(sub.handlers, entry)
	upgrade := qos > sub.qos
	if upgrade {
		sub.qos = qos
	}
	c.subsMu.Unlock()

	if shared && !upgrade {
		return nil
	}

	err := await(c.paho.Subscribe(topic, qos, c.dispatch(topic)), defaultPublishTimeout, ErrSubscribeFailed)
	if err != nil {
		c.remove(topic, entry, prevQoS)
	}
	return err
}

// remove undoes a failed Subscribe.
func (c *Client) remove(topic string, entry *handlerEntry, prevQoS byte) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	sub := c.subs[topic]
	if sub == nil {
		return
	}
	sub.handlers = slices.DeleteFunc(sub.handlers, func(h *handlerEntry) bool { return h == entry })
	sub.qos = prevQoS
	if len(sub.handlers) == 0 {
		delete(c.subs, topic)
	}
}

// Unsubscribe drops topic along with every handler registered for it.
// Messages paho has already queued may still arrive.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subsMu.Lock()
	delete(c.subs, topic)
	c.subsMu.Unlock()

	return await(c.paho.Unsubscribe(topic), defaultPublishTimeout, ErrUnsubscribeFailed)
}

// SubscriptionCount returns how many topics are remembered for restore.
func (c *Client) SubscriptionCount() int {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	return len(c.subs)
}

// HasSubscription reports whether topic, matched literally, is remembered.
func (c *Client) HasSubscription(topic string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	_, ok := c.subs[topic]
	return ok
}
