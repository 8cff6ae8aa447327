// Package entity holds the persisted models and their transfer shapes.
package entity
