// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for modechat.
//
// Settings come from built-in defaults, then ~/.modechat/config.toml, then
// MODECHAT_* environment variables. Command line flags are applied last by
// the cli package.
//
// # Key Types
//
//   - Config: complete configuration, one struct per TOML section
//   - Duration: time.Duration that reads and writes as "2s" in TOML and env
//   - ValidationErrors: every problem Validate found
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	client := cloud.NewClient(cfg.Service.URL, log)
//
// # Environment
//
// Every key can be overridden with MODECHAT_<SECTION>_<KEY>, for example
// MODECHAT_SERVICE_URL or MODECHAT_SESSION_DEFAULT_MODE. MODECHAT_HOME
// replaces ~/.modechat.
package config
