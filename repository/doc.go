// Package repository provides a generic repository built on Bun for CRUD
// operations and pagination, and the place store on top of it.
package repository
