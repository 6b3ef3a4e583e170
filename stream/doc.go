// Package stream serves the last buffer of a pipeline over WebSocket and
// reads such a stream back as a pipeline source.
//
// Handler upgrades a gin request, then repeatedly takes the next item from
// its source, encodes it and sends it as one binary message. When the
// source has nothing within the configured timeout the connection is kept
// alive with a ping. Remote is the client side: it dials a stream and
// yields decoded payloads, keeping only the newest ones when its reader
// outpaces the consumer.
package stream
