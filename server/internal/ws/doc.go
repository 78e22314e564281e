// Package ws implements the WebSocket hub for the synthetics server.
//
// Hub manages a set of connected clients and broadcasts the current default
// rule status to all of them on a configurable interval (default 5s in
// production).
//
// New(source, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker and blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// status immediately on connect, then streams updates on each tick.
// Hub.Notify pushes a reconciliation result without waiting for the tick.
//
// Message format sent to clients:
//
//	{
//	  "event": "default_alerts" | "default_alerts_updated",
//	  "data":  { "status_rule": {...}, "tls_rule": {...} },
//	  "error": "..."   // only when the lookup failed
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The server mounts the hub at /ws.
package ws
