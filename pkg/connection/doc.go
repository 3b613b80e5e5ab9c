// Package connection keeps a client session to a Z-Wave JS server alive.
//
// A Manager dials the server, runs the client's listen loop, and when the
// connection drops it rebuilds the session with exponential backoff:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds
//  4. Continue at 60s until successful
//  5. Reset to 1s once the driver graph is ready again
//
// Jitter is added to each delay so a fleet of clients does not reconnect
// in lockstep:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// A schema incompatibility reported by the server is terminal; retrying
// cannot fix it, so the manager gives up instead of spinning.
package connection
