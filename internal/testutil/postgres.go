//go:build integration

package testutil

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/lib/pq" // registers the postgres driver
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// sourceSchema mirrors the operational AIMS and AMOS tables read by the extractor.
const sourceSchema = `
CREATE SCHEMA "AIMS";
CREATE SCHEMA "AMOS";

CREATE TABLE "AIMS".flights (
	id                   CHAR(30) PRIMARY KEY,
	aircraftregistration CHAR(6) NOT NULL,
	scheduleddeparture   TIMESTAMP NOT NULL,
	scheduledarrival     TIMESTAMP NOT NULL,
	actualdeparture      TIMESTAMP,
	actualarrival        TIMESTAMP,
	cancelled            BOOLEAN NOT NULL,
	delaycode            CHAR(2)
);

CREATE TABLE "AIMS".maintenance (
	id                   CHAR(30) PRIMARY KEY,
	aircraftregistration CHAR(6) NOT NULL,
	scheduleddeparture   TIMESTAMP NOT NULL,
	scheduledarrival     TIMESTAMP NOT NULL,
	programmed           BOOLEAN NOT NULL
);

CREATE TABLE "AMOS".postflightreports (
	pfrid                INTEGER PRIMARY KEY,
	aircraftregistration CHAR(6) NOT NULL,
	reportingdate        TIMESTAMP NOT NULL,
	reporteurclass       VARCHAR(5) NOT NULL,
	reporteurid          INTEGER NOT NULL,
	executionplace       CHAR(3),
	tlborder             BIGINT
);

CREATE TABLE "AMOS".technicallogbookorders (
	workorderid          BIGINT PRIMARY KEY,
	aircraftregistration CHAR(6) NOT NULL,
	reportingdate        TIMESTAMP NOT NULL,
	executionplace       CHAR(3),
	reporteurid          INTEGER NOT NULL
);
`

// PostgresConnection holds connection details for the source database container.
type PostgresConnection struct {
	DB  *sql.DB
	DSN string
}

// NewPostgresContainer starts a PostgreSQL container with empty AIMS and AMOS
// schemas. The container is automatically terminated when the test completes.
func NewPostgresContainer(t *testing.T) *PostgresConnection {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("fleet"),
		postgres.WithUsername("fleet"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start PostgreSQL container: %v", err)
	}

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open PostgreSQL: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close PostgreSQL: %v", err)
		}
	})

	if _, err := db.ExecContext(ctx, sourceSchema); err != nil {
		t.Fatalf("failed to create source schema: %v", err)
	}

	return &PostgresConnection{DB: db, DSN: dsn}
}
