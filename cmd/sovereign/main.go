// Sovereign is a data governance engine for sovereign and regulated
// deployments.
//
// It classifies data, stores it under tenant-scoped encryption with
// role-based access and retention, checks data residency and cross-border
// compliance, and writes every decision to an append-only audit trail.
//
// Usage:
//
//	# Start the engine with the ops server and retention scheduler
//	sovereign run --config /etc/sovereign/config.yaml
//
//	# Classify a piece of text
//	sovereign classify "SSN 123-45-6789"
//
//	# Check a cross-border transfer
//	sovereign check --operation transfer --source IN --target US --sector government
//
//	# Export the audit trail
//	sovereign audit export --format csv --output audit.csv
//
//	# Generate a master key
//	sovereign keys generate
package main

import (
	"os"

	"mercator-hq/sovereign/pkg/cli"
)

func main() {
	os.Exit(cli.ExitCode(Execute()))
}
