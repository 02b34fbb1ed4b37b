// Package logger provides leveled logging for Kōwhai CLI commands.
//
// # Verbosity Levels
//
// Logging behavior is controlled by two flags:
//
//   - --verbose: Shows info and warning messages
//   - --debug: Shows all messages including debug details and errors
//
// Without flags, only WarnfAlways output is shown. Errors are reported to
// the user by the command itself, so Errorf is a debug aid.
//
// # Usage
//
//	log := Logger{Verbose: verbose, Debug: debug}
//	log.Infof("Syncing %d devices", count)
//	return log.ErrorfAndReturn(err, "failed to load state")
package logger
