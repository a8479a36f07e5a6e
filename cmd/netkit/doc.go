// Command netkit exercises the netkit client library from the shell.
//
// Configuration comes from NETKIT_* environment variables, optionally
// layered over a YAML or TOML file given with --config. Flags override
// both.
//
// Usage:
//
//	netkit --base-url https://api.example.com/v1 get items -p page=2
//	netkit --token $TOKEN post items -d '{"name":"ada"}'
//	netkit download https://example.com/archive.tar.gz -o /tmp/a.tgz
//	netkit get https://example.com/news --xpath '//h2'
//	netkit upload https://example.com/upload --file 'reports/**/*.pdf'
//	netkit reach example.com --watch
//
// Pass --trace to log a span per task and send X-Trace-ID headers, and
// --stats to print task totals on exit.
//
// Signals:
//   - SIGINT, SIGTERM: cancel running tasks and exit
package main
