// Package client implements the websocket client for a Z-Wave JS server.
//
// A Client dials the server, negotiates the API schema from the version
// frame, and runs a single listen loop that routes command results to
// their waiters and applies state events to the driver graph. The graph
// itself lives in package model; the client is the transport and the
// request/response bookkeeping around it.
package client
