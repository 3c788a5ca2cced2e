// Package api exposes the chat pipeline over HTTP.
//
// The single chat endpoint accepts a conversation, runs the retrieval
// pipeline, and streams the response back as a line-delimited protocol
// (see stream.go), flushing each line to the client as it is produced.
// Input validation happens before any streaming starts; mid-stream
// failures are encoded as error-typed protocol lines because response
// headers are committed once streaming begins.
//
// The middleware stack (recovery, request ID, logging, CORS, per-IP
// rate limiting) wraps all API routes; health probes sit outside it.
package api
