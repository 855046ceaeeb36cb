// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router classifies outgoing messages into conversation modes.
//
// Every message is routed to one of four modes before it is sent: code,
// chat, explain or roadmap. The classifier walks an ordered table of rule
// groups and the first group with a matching rule wins. Groups must appear
// in the order roadmap, code, explain; chat is the fallback and never has a
// group of its own.
//
// # Key Types
//
//   - Mode: the closed set of conversation modes
//   - RuleSet / RuleGroup: the rule table, loaded from TOML
//   - Classifier: concurrency-safe classifier over a swappable RuleSet
//   - RulesWatcher: fsnotify hot reload of a rules file
//
// # Usage
//
//	c := router.NewDefaultClassifier()
//	mode := c.Classify("write a function to reverse a string") // router.ModeCode
//
// Load rules from disk and keep them fresh:
//
//	rs, err := router.LoadRules(path)
//	c, err := router.NewClassifier(rs)
//	w, err := router.NewRulesWatcher(path, c, log)
//	err = w.Watch()
//	defer w.Close()
package router
