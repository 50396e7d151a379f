// Package utils provides common utility functions for the diary service.
// It includes helpers for query parameter conversion and for the date and
// episode identifier formats shared by the HTTP layer, the CLI and the
// remote sources.
package utils
