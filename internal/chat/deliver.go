package chat

import (
	"zipchat/internal/registry"
	"zipchat/pkg/logger"
)

// deliver enqueues a frame on every binding, skipping excludeConnID when set.
// A binding that cannot accept the frame is torn down on the spot; failure on
// one connection never affects delivery to the others. The returned bindings
// are the ones whose teardown removed the user's last connection: the caller
// owes the room a departure announcement for each, after releasing any keyed
// lock it holds.
func deliver(reg *registry.Registry, bindings []*registry.Binding, frame []byte, excludeConnID string) []*registry.Binding {
	var departed []*registry.Binding
	for _, b := range bindings {
		if b.ConnectionID == excludeConnID {
			continue
		}
		if !b.Sink.Enqueue(frame) {
			logger.Error("Dropping dead connection %s (user %s)", b.ConnectionID, b.UserID)
			removed, lastForUser := reg.Leave(b.ConnectionID)
			b.Sink.Close()
			if removed != nil && lastForUser {
				departed = append(departed, removed)
			}
		}
	}
	return departed
}
