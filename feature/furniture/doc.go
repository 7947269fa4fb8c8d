// Package furniture keeps a local cache of the furniture catalogue in sync with the
// FurnitureData.json gamedata object of the storage bucket.
//
// # Components
//
//   - GamedataSource: reads and decodes the gamedata object, reusing the decoded
//     catalogue while the object ETag is unchanged.
//   - Service: runs a provider over the cache partition and keeps a listing sorted
//     by classname up to date through an observer.
//   - Handler: exposes the catalogue over HTTP.
//   - Feature: registers the feature with the loader.
//
// # HTTP Endpoints
//
//   - GET  /furniture             : sorted listing of the cached catalogue.
//   - GET  /furniture/count       : number of cached items.
//   - POST /furniture/refresh     : reconcile now, returns the change summary.
//   - GET  /furniture/pages/:page : fetch one gamedata page into the cache.
//   - GET  /furniture/:identifier : fetch one item by classname (?cached=true reads the cache).
package furniture
