// Package common provides helpers shared by the MCP tool packages: profile
// argument handling, argument parsing and the instrumented handler wrapper.
package common
