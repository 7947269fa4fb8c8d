// Package database is the storage engine of the synchronization layer.
//
// All persisted collections share one "records" table, partitioned by domain. Each row
// holds an opaque payload plus a sort key used for ordered slices.
//
// # Connect
//
// Connect opens a MySQL or sqlite connection through GORM. sqlite is used for local
// runs and tests (":memory:" keeps the store in process).
//
// # Engine
//
// Open wraps a connection behind a single serial access queue. Initialization (connect
// and migration) is the first job on that queue, so work submitted early simply waits.
//
//	engine := database.Open(cfg.Database, log)
//	err := engine.Write(ctx, func(tx *database.WriteTx) error {
//	    return tx.Upsert(database.Record{Domain: "furniture", ID: "1", Payload: raw})
//	})
//
// Write runs inside a transaction. Change events recorded by the WriteTx reach
// observers registered with Observe only after the transaction committed.
//
// # Schema Inspection
//
// TableColumns and Engine.Columns report the live table layout. CheckSchema uses them
// to validate stores opened with SkipMigrate, whose schema is managed elsewhere.
package database
