// Package database provides connection management for the persistent store backends.
//
//   - PostgreSQL (pgxpool): shared deployments, several instances per database
//   - SQLite (modernc.org/sqlite): single-instance local runs
package database
