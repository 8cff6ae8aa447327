// Package database provides connection management, migrations, SQL seed
// files, configuration types, query hooks, logging, health checks and driver
// error classification built on top of Bun.
package database
