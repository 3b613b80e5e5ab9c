// Package model holds the local mirror of the server's device graph: the
// Driver at the root, its Controller, the Controller's Nodes, and each Node's
// Endpoints and Values.
//
// Entities keep their state as the raw JSON objects the server sent
// (map[string]any snapshots) and expose typed accessors over them. The server
// regularly extends these objects with new keys, so a closed struct would
// silently drop data; accessors return the zero value (or ok=false) for keys
// the snapshot does not carry.
//
// Mutation happens on the client's single listen goroutine, while any
// goroutine may read; each entity guards its state with a read-write lock, so
// accessors are safe to call concurrently and Data-style accessors return
// copies. Entities are event emitters: after a handler applies an event to
// the graph it emits the event to subscribers, annotated with the derived
// objects the handler built. No lock is held during emission.
package model
