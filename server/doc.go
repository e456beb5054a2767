// Package server exposes a toolset.Set as an MCP server.
//
// Two transports are supported: a single session over standard input and
// output ([Server.ServeStdio]), and streamable HTTP at /mcp alongside a
// /healthz probe ([Server.Handler], [Server.ListenAndServe]).
//
// Standard output carries the protocol in stdio mode, so nothing else may be
// written there.
package server
