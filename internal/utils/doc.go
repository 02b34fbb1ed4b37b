// Package utils provides shared helpers for the Kōwhai CLI.
//
// # System Utilities
//
//   - GetUsername, GetHostname: facts about the current machine
//   - SanitizeDeviceName, GenerateDeviceName: default device aliases
//
// # String Utilities
//
//   - IsValidEmail, IsValidDeviceName: input validation
//   - FormatPaths: indented path lists for command output
//
// # I/O and Terminal Utilities
//
//   - ReadStdin: reads piped note bodies
//   - IsTerminal, IsStdoutTerminal: decide between prompts, spinners and pipes
package utils
