// Package migration applies versioned SQL migrations to the jVC SQLite database.
//
// Migration files live in an fs.FS (normally embedded into the binary) and follow
// the naming convention {version}_{description}.sql, e.g. "001_members.sql".
// Applied versions are tracked in a schema_migrations table; every migration runs
// inside its own transaction and is recorded only after it commits.
//
// Example usage:
//
//	scanner := migration.NewFileScanner(migrationsFS)
//	executor := migration.NewSQLiteExecutor(db)
//	manager := migration.NewMigrationManager(scanner, executor, "migrations", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
