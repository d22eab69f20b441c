// Package logger builds the zap logger shared by the CLI and the server.
package logger
