// Package log provides structured logging for ferret built on zerolog.
//
// A single global logger is initialized once at process startup from the
// LOG_LEVEL configuration; packages derive child loggers carrying a
// component field (and worker/doc ids on the data path) so that coordinator
// and worker logs can be filtered by origin.
package log
