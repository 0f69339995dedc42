// Package database manages the Bun connection for the member store: driver
// selection, versioned migrations with configurable foreign keys, SQL seed
// files, query hooks, health checks and error classification.
package database
