// Package postgres provides PostgreSQL implementations of the store
// interfaces defined in the store package.
//
// Each store accepts a store.DBTX, so the same implementation runs against
// a plain connection pool or inside a transaction obtained through WithTx.
// Balance mutations rely on SELECT ... FOR UPDATE row locks taken inside
// store.RunInTransaction; the stores here map the resulting PostgreSQL
// error codes onto the store package's sentinel errors so services can
// retry contention without knowing database details.
package postgres
