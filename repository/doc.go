// Package repository provides a generic repository abstraction built on Bun
// for CRUD operations, querying, pagination and transactions, plus the member
// and team stores with the member/team search queries.
package repository
