// Package server holds the HTTP server configuration.
//
// The start command reads the port, API key and timeouts from here when it
// builds the Fiber application. Timezone decides which calendar day "today"
// and quick notes fall on.
package server
