// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the game handler.
const (
	BadSubprotocolError websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	SlowConsumerError   websocket.StatusCode = 3001 // Client could not keep up with outbound events.
	GameResetError      websocket.StatusCode = 3002 // An admin reset the room; seats must be rejoined.
	ShutdownError       websocket.StatusCode = 3003 // Server is going away.
)

// closeCode maps a kick reason from the room to a close code.
func closeCode(reason string) websocket.StatusCode {
	switch reason {
	case "too slow":
		return SlowConsumerError
	case "game reset":
		return GameResetError
	case "server shutting down":
		return ShutdownError
	}
	return websocket.StatusPolicyViolation
}
