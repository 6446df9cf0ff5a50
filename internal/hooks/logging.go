package hooks

import "log"

// LoggingHook logs session lifecycle events with the client id prefixed,
// mirroring `Tunnel %s disconnected: %v` phrasing.
type LoggingHook struct {
	Logger *log.Logger
}

func (h *LoggingHook) logger() *log.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return log.Default()
}

func (h *LoggingHook) OnConnect(clientID string, publicPort int) {
	h.logger().Printf("[%s] registered, public port %d", clientID, publicPort)
}

func (h *LoggingHook) OnDisconnect(clientID string, reason error) {
	if reason != nil {
		h.logger().Printf("[%s] disconnected: %v", clientID, reason)
		return
	}
	h.logger().Printf("[%s] disconnected", clientID)
}

func (h *LoggingHook) OnRequest(clientID string) {
	h.logger().Printf("[%s] request", clientID)
}
