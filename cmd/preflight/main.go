// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	admin := strings.TrimSpace(os.Getenv("ADMIN_API_KEYS"))
	pub := strings.TrimSpace(os.Getenv("PUBLIC_API_KEYS"))
	addr := strings.TrimSpace(os.Getenv("ADDR"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	allowed := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS"))
	slack := strings.TrimSpace(os.Getenv("SLACK_WEBHOOK"))
	retention := strings.TrimSpace(os.Getenv("TICK_RETENTION_DAYS"))

	if admin == "" {
		fail("ADMIN_API_KEYS is empty (website/validator registration will 403).")
	}
	if pub == "" {
		fail("PUBLIC_API_KEYS is empty (status/tick read routes will 401).")
	}

	// Normalize and sanity-check lists (no spaces around commas).
	for name, v := range map[string]string{"ADMIN_API_KEYS": admin, "PUBLIC_API_KEYS": pub} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	if addr == "" {
		warn("ADDR is empty; the collector defaults to 127.0.0.1:8080.")
	} else {
		ok("ADDR=" + addr)
	}

	if db == "" {
		warn("DATABASE_URL empty — collector will use the in-memory store; ticks are lost on restart.")
	} else {
		ok("DATABASE_URL present")
	}

	if allowed == "" {
		warn("ALLOWED_ORIGINS empty — CORS allows all origins.")
	} else {
		ok("ALLOWED_ORIGINS=" + allowed)
	}

	if slack == "" {
		warn("SLACK_WEBHOOK empty — down/recovery alerts are disabled.")
	} else {
		ok("SLACK_WEBHOOK present")
	}

	if retention != "" {
		if n, err := strconv.Atoi(retention); err != nil || n < 0 {
			fail("TICK_RETENTION_DAYS must be a non-negative integer.")
		} else if n == 0 {
			warn("TICK_RETENTION_DAYS=0 — tick eviction is disabled; history grows unbounded.")
		} else {
			ok("TICK_RETENTION_DAYS=" + retention)
		}
	} else {
		warn("TICK_RETENTION_DAYS unset — tick eviction is disabled; history grows unbounded.")
	}

	ok("preflight passed")
}
