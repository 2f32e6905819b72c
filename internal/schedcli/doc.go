// Package schedcli wraps systemctl to enumerate scheduled timer units.
//
// Client prefers the structured JSON output of systemctl list-timers and
// falls back to parsing the plain-text table when the installed systemd does
// not support machine-readable output.
package schedcli
