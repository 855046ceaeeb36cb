// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Conversations is an ordered chat list, newest first. Methods never modify
// the receiver; they return a new list.
type Conversations []Conversation

// Find returns the conversation with id.
func (cs Conversations) Find(id string) (Conversation, bool) {
	for _, c := range cs {
		if c.ID == id {
			return c, true
		}
	}
	return Conversation{}, false
}

// Index returns the position of id, or -1.
func (cs Conversations) Index(id string) int {
	for i, c := range cs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Upsert replaces the conversation with c's id in place, or prepends c when
// the list does not have it.
func (cs Conversations) Upsert(c Conversation) Conversations {
	if i := cs.Index(c.ID); i >= 0 {
		out := cs.Clone()
		out[i] = c
		return out
	}
	out := make(Conversations, 0, len(cs)+1)
	out = append(out, c)
	return append(out, cs...)
}

// Remove drops the conversation with id. The bool reports whether it was
// present.
func (cs Conversations) Remove(id string) (Conversations, bool) {
	out := make(Conversations, 0, len(cs))
	found := false
	for _, c := range cs {
		if c.ID == id {
			found = true
			continue
		}
		out = append(out, c)
	}
	return out, found
}

// Dedupe keeps the first conversation for every id and drops entries with
// no id at all.
func (cs Conversations) Dedupe() Conversations {
	seen := make(map[string]bool, len(cs))
	out := make(Conversations, 0, len(cs))
	for _, c := range cs {
		if c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

// Clone returns a deep copy of the list.
func (cs Conversations) Clone() Conversations {
	out := make(Conversations, len(cs))
	for i, c := range cs {
		out[i] = c.Clone()
	}
	return out
}

// IDs returns the conversation ids in order.
func (cs Conversations) IDs() []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}
