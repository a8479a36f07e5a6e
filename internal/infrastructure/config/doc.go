// Package config provides 12-factor configuration for netkit.
//
// Configuration starts from Default, is optionally overlaid by a YAML or
// TOML file, and is finally overridden by environment variables.
//
// Configuration Sections:
//   - Session: base URL, response header timeout, user agent, download directory
//   - Reachability: probed host, probe interval and timeout
//   - Logging: log level and output format
//   - RateLimit: client-side token bucket
//   - Breaker: transport circuit breaker thresholds
//
// Example Usage:
//
//	cfg, err := config.LoadFile("netkit.yaml")
//	if err != nil {
//		cfg = config.LoadOrDefault()
//	}
//
// Environment Variables:
//   - NETKIT_BASE_URL, NETKIT_TIMEOUT, NETKIT_USER_AGENT, NETKIT_DOWNLOAD_DIR
//   - NETKIT_REACHABILITY_HOST, NETKIT_REACHABILITY_INTERVAL
//   - NETKIT_LOG_LEVEL, NETKIT_LOG_DEV
//   - NETKIT_RATE_LIMIT_RPS, NETKIT_RATE_LIMIT_BURST
//   - NETKIT_BREAKER_ENABLED, NETKIT_BREAKER_FAILURES, NETKIT_BREAKER_TIMEOUT
package config
