// Package timeouts defines shared timeout constants used across commands.
// Centralizing these values prevents drift between subcommands and makes
// the durations discoverable.
package timeouts

import "time"

// TradeDeadline is the default validity window for swap and liquidity
// requests when the caller does not pass one.
const TradeDeadline = time.Minute

// TelemetryShutdown limits how long a command waits for the trace
// exporter to flush during shutdown.
const TelemetryShutdown = 5 * time.Second
