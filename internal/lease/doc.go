// Package lease implements the cooperative run lock used by pipeline workers.
//
// A lease is a small JSON file naming its holder and acquisition time. Holders
// that stop renewing eventually go stale and may be overridden, so a crashed
// worker never blocks the pipeline permanently.
package lease
