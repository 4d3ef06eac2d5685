/**
 * @description
 * This file implements the control-plane consumer: incident tooling publishes
 * pause/unpause commands to the message bus and this consumer applies them to
 * the circuit breaker. Commands carry the issuing principal, which must hold
 * the pauser role; the normal authorization path is consulted, the bus grants
 * no extra privilege.
 *
 * @dependencies
 * - context, encoding/json, log, time: Standard Go libraries.
 * - internal/domain: For the control command payload.
 */

package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/transfa/custody-service/internal/domain"
)

// ControlConsumer applies breaker control commands received from the bus.
type ControlConsumer struct {
	service *Service
}

// ControlConsumer returns the handler set for the control routing keys.
func (s *Service) ControlConsumer() *ControlConsumer {
	return &ControlConsumer{service: s}
}

// HandlePause processes a custody.control.pause message. It returns true when
// the message should be acknowledged; malformed or unauthorized commands are
// dropped rather than re-queued since redelivery cannot fix them.
func (c *ControlConsumer) HandlePause(body []byte) bool {
	cmd, ok := decodeControlCommand(body)
	if !ok {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.service.Pause(ctx, cmd.Principal); err != nil {
		log.Printf("level=warn component=control_consumer msg=\"pause command rejected\" principal=%s reason=%q err=%v", cmd.Principal, cmd.Reason, err)
		return true
	}
	log.Printf("level=warn component=control_consumer msg=\"breaker paused via control plane\" principal=%s reason=%q", cmd.Principal, cmd.Reason)
	return true
}

// HandleUnpause processes a custody.control.unpause message.
func (c *ControlConsumer) HandleUnpause(body []byte) bool {
	cmd, ok := decodeControlCommand(body)
	if !ok {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.service.Unpause(ctx, cmd.Principal); err != nil {
		log.Printf("level=warn component=control_consumer msg=\"unpause command rejected\" principal=%s reason=%q err=%v", cmd.Principal, cmd.Reason, err)
		return true
	}
	log.Printf("level=info component=control_consumer msg=\"breaker unpaused via control plane\" principal=%s reason=%q", cmd.Principal, cmd.Reason)
	return true
}

func decodeControlCommand(body []byte) (domain.ControlCommand, bool) {
	var cmd domain.ControlCommand
	if err := json.Unmarshal(body, &cmd); err != nil {
		log.Printf("level=warn component=control_consumer msg=\"malformed control command dropped\" err=%v", err)
		return domain.ControlCommand{}, false
	}
	if cmd.Principal == "" {
		log.Printf("level=warn component=control_consumer msg=\"control command missing principal; dropped\"")
		return domain.ControlCommand{}, false
	}
	return cmd, true
}
