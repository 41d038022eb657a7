package customer

import "fmt"

const createTableTemplate = `CREATE TABLE IF NOT EXISTS customers (
    id %s,
    name VARCHAR(100),
    country_of_birth VARCHAR(50),
    country_of_residence VARCHAR(50),
    segment VARCHAR(50)
)`

// createTableStatement returns the bootstrap DDL for a gorm dialector name
func createTableStatement(dialect string) (string, error) {
	var idColumn string
	switch dialect {
	case "mysql":
		idColumn = "INT AUTO_INCREMENT PRIMARY KEY"
	case "postgres":
		idColumn = "SERIAL PRIMARY KEY"
	case "sqlite":
		idColumn = "INTEGER PRIMARY KEY AUTOINCREMENT"
	default:
		return "", fmt.Errorf("no customers schema for dialect %q", dialect)
	}
	return fmt.Sprintf(createTableTemplate, idColumn), nil
}
