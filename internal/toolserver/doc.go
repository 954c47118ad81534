// Package toolserver exposes the plugin, upstream and scaffold operations as
// named tools for agents. Each tool takes a JSON object and returns a JSON
// document as text. Two transports share one dispatcher: an MCP server over
// stdio, and a small HTTP API with Prometheus metrics.
package toolserver
