// Package server holds the HTTP server configuration.
//
// The main application entry point handles the server startup; this package only
// defines the settings it reads: the listen port, the API key checked by the auth
// middleware and the graceful shutdown timeout.
package server
