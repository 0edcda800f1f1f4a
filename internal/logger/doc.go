// Package logger wraps zap for the pkpass binaries:
//   - a global sugared logger writing to stderr (console or JSON),
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level and format parsing for flags and config,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Services take a context and log through the logger it carries, so a build
// started for one destination tags every line with that destination.
package logger
