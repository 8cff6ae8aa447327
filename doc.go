// Package bus is the place catalogue of the bus network: a paginated,
// case-insensitive name search and the find, insert, update and delete
// operations over places, with store failures normalized to
// ResourceNotFoundError and DatabaseError.
package bus
