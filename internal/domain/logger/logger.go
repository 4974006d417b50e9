// Package logger holds the program logger.
package logger

import "tubeshelf/internal/logging"

// Pl holds the global *ProgramLogger variable.
var Pl = new(logging.ProgramLogger)
