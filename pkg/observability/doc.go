/*
Package observability provides tools for monitoring the Rekitter engine.

It turns scheduler lifecycle hooks into Prometheus metrics and structured audit logs,
so a running debate can be watched from a dashboard or a log stream.
*/
package observability
