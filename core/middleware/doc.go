// Package middleware holds the fiber middleware mounted in front of every route.
//
// rayid tags each request with an id that handlers add to their log entries. auth
// checks the X-API-Key header when an API key is configured and lets the skip list
// (the metrics endpoint) through.
package middleware
