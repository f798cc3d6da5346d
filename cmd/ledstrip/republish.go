package main

import (
	"context"

	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-ledstrip/internal/light"
)

const republishQueueSize = 64

type jsonPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

type republishLogger interface {
	Warn(msg string, args ...any)
}

type stateUpdate struct {
	lightID string
	state   light.State
}

// statePublisher republishes every believed state change as retained JSON on
// the bridge's own light state topic. Publishing happens on its own goroutine
// because observers can run inside an MQTT message callback, where waiting for
// a publish acknowledgement would stall the client.
type statePublisher struct {
	client  jsonPublisher
	logger  republishLogger
	updates chan stateUpdate
}

func newStatePublisher(client jsonPublisher, logger republishLogger) *statePublisher {
	return &statePublisher{
		client:  client,
		logger:  logger,
		updates: make(chan stateUpdate, republishQueueSize),
	}
}

// Observe queues a state for publishing. It never blocks; when the queue is
// full the update is dropped, and the next change supersedes it anyway.
func (p *statePublisher) Observe(lightID string, state light.State) {
	select {
	case p.updates <- stateUpdate{lightID: lightID, state: state}:
	default:
		p.logger.Warn("republish queue full, dropping state", "light_id", lightID)
	}
}

// Run publishes queued states until ctx is cancelled.
func (p *statePublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-p.updates:
			if err := p.client.PublishJSON(mqtt.Topics{}.LightState(u.lightID), u.state, true); err != nil {
				p.logger.Warn("failed to republish light state", "light_id", u.lightID, "error", err)
			}
		}
	}
}
