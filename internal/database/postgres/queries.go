package postgres

// SQL used by the connector itself.
const (
	// queryTableNames maps result column TableOIDs to relation names. $1 is
	// a text array literal such as {16384,16390}.
	queryTableNames = `
		SELECT oid::int8, relname
		FROM pg_catalog.pg_class
		WHERE oid = ANY($1::oid[])`

	// maintenanceDatabase is connected to while creating the operating
	// database.
	maintenanceDatabase = "postgres"
)

// SQLSTATE codes the connector reacts to.
const (
	codeInvalidCatalogName = "3D000"
	codeDuplicateDatabase  = "42P04"
)
