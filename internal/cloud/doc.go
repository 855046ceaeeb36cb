// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud talks to the inference service that answers chat turns.
//
// The service exposes POST /api/chat, GET /api/languages and GET /health.
// Client.Send never retries and never panics: every failure comes back as a
// *DispatchError classified as Unreachable, ServerRejected or Unexpected, so
// the caller can always turn it into a visible assistant message.
//
// # Key Types
//
//   - Client: resty-based HTTP client with client-side rate limiting
//   - Request / Turn: one outgoing message and its answer
//   - DispatchError: categorised failure with a user-facing diagnosis
//
// # Usage
//
//	c := cloud.NewClient("http://localhost:8000", log).WithTimeout(60 * time.Second)
//	turn, err := c.Send(ctx, cloud.Request{Message: "explain recursion", Mode: router.ModeExplain})
//	if err != nil {
//	    reply = cloud.UserMessage(err)
//	}
//
// CLOUD: API keys are never logged; only their fingerprint is.
package cloud
