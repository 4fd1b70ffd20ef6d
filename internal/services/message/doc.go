// Package message is the top of the pipeline: callers send plaintext and
// receive decrypted messages.
//
// Send runs caller → session → ratchet → codec → gate → transport. Receive
// runs the reverse path: gate (dedupe/TTL), codec (verify+decrypt), session
// advance. Every message resolves to a definitive accept or reject;
// cryptographic rejects are audited and dead-lettered, never retried with
// the same key material.
package message
