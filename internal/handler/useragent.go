// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"github.com/mileusna/useragent"
)

// clientDevice summarises a User-Agent for auth event metadata.
func clientDevice(uaString string) map[string]string {
	ua := useragent.Parse(uaString)

	browser, os := ua.Name, ua.OS
	if browser == "" {
		browser = "unknown"
	}
	if os == "" {
		os = "unknown"
	}

	var device string
	switch {
	case ua.Bot:
		device = "bot"
	case ua.Mobile:
		device = "mobile"
	case ua.Tablet:
		device = "tablet"
	default:
		device = "desktop"
	}

	return map[string]string{"browser": browser, "os": os, "device": device}
}
