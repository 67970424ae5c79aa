// Command oguricap runs the request resolution engine and its inspection
// surfaces. `oguricap run` processes line-oriented inbound commands against
// the shared store; the remaining subcommands inspect requests, library
// items, contributions, and configuration.
package main
