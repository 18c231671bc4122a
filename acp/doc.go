// Package acp classifies observed Agent Client Protocol (ACP) traffic.
//
// ACP is an open standard for communication between code editors and
// AI coding agents, using newline-delimited JSON-RPC 2.0 over stdio.
// This package is the read-only half of that picture: it takes single
// wire lines captured off the editor/agent pipes and turns them into
// structured messages plus the protocol fields the tracing layer cares
// about (session ids, prompt text, streamed chunks, tool-call lifecycle
// fields, agent/client identity, stop reasons).
//
// Everything here is a pure function over one line or one params/result
// payload. Extraction never fails loudly: a missing or wrongly-typed
// field yields a not-ok result and the caller moves on. Lines that do
// not classify are simply invisible to telemetry; the proxy forwards
// them byte-for-byte regardless.
//
//	msg, ok := acp.Parse(line)
//	if !ok {
//	    return // not a JSON-RPC object, nothing to record
//	}
//	switch msg.Kind {
//	case acp.KindRequest:
//	    sid, _ := acp.SessionID(msg.Params)
//	    ...
//	}
package acp
