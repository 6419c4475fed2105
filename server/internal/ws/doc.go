// Package ws implements the WebSocket hub for linewatch-server.
//
// Hub manages a set of connected clients and pushes the refreshed line
// snapshot to all of them after every simulation tick.
//
// New(store) creates a Hub.
// Hub.Run(ctx, updates) forwards every snapshot received from the scheduler
// subscription; it blocks until ctx is cancelled or the subscription ends,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// snapshot immediately on connect, then streams updates.
//
// Message format sent to clients:
//
//	{
//	  "event": "snapshot",
//	  "data":  { /* same schema as GET /api/v1/snapshot */ }
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The endpoint is mounted at /ws/stream by the server.
package ws
