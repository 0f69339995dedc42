// Package model holds the member and team tables and the search types built
// over them. Importing it registers both tables for migration.
package model
