package warehouse

import (
	"fmt"

	"github.com/ethpandaops/fleetdw/pkg/dimension"
	"github.com/ethpandaops/fleetdw/pkg/rendering"
)

// dateReference returns the table and key column facts reference for dates.
func dateReference(hierarchy dimension.Hierarchy) (table, column string) {
	if hierarchy == dimension.HierarchySnowflake {
		return TableDays, "Day_ID"
	}

	return TableDates, "Date_ID"
}

// dropOrder lists every star schema table of either hierarchy, facts
// before the dimensions they reference.
//
//nolint:gochecknoglobals // Static table order
var dropOrder = []string{
	TableLogbooks,
	TableAircraftMonthlySummary,
	TableFlightOperationsDaily,
	TableReporters,
	TableDays,
	TableDates,
	TableMonths,
	TableAircrafts,
}

// duckDBSchema returns the statements that rebuild the star schema, dropping
// facts before the dimensions they reference.
func duckDBSchema(hierarchy dimension.Hierarchy) []string {
	statements := make([]string, 0, len(dropOrder)+len(starTables(hierarchy))+1)
	for _, table := range dropOrder {
		statements = append(statements, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
	}

	dateTable, dateColumn := dateReference(hierarchy)

	statements = append(statements,
		`CREATE TABLE Aircrafts (
			Aircraft_ID                 BIGINT PRIMARY KEY,
			Aircraft_Registration_Code  VARCHAR NOT NULL UNIQUE,
			Manufacturer_Serial_Number  VARCHAR NOT NULL,
			Aircraft_Model              VARCHAR NOT NULL,
			Aircraft_Manufacturer_Class VARCHAR NOT NULL CHECK (Aircraft_Manufacturer_Class IN ('Airbus', 'Boeing'))
		)`,
		`CREATE TABLE Months (
			Month_ID  BIGINT PRIMARY KEY,
			Month_Num INTEGER NOT NULL CHECK (Month_Num BETWEEN 1 AND 12),
			Year      INTEGER NOT NULL,
			UNIQUE (Year, Month_Num)
		)`,
	)

	if hierarchy == dimension.HierarchySnowflake {
		statements = append(statements, `CREATE TABLE Days (
			Day_ID   BIGINT PRIMARY KEY,
			Month_ID BIGINT NOT NULL REFERENCES Months (Month_ID),
			Day_Num  INTEGER NOT NULL CHECK (Day_Num BETWEEN 1 AND 31),
			UNIQUE (Month_ID, Day_Num)
		)`)
	} else {
		statements = append(statements, `CREATE TABLE Dates (
			Date_ID   BIGINT PRIMARY KEY,
			Full_Date DATE NOT NULL UNIQUE,
			Day_Num   INTEGER NOT NULL,
			Month_Num INTEGER NOT NULL,
			Year      INTEGER NOT NULL
		)`)
	}

	statements = append(statements,
		`CREATE TABLE Reporters (
			Reporter_ID         BIGINT PRIMARY KEY,
			Reporter_Class      VARCHAR NOT NULL CHECK (Reporter_Class IN ('PIREP', 'MAREP')),
			Report_Airport_Code VARCHAR NOT NULL,
			UNIQUE (Reporter_Class, Report_Airport_Code)
		)`,
		fmt.Sprintf(`CREATE TABLE Flight_Operations_Daily (
			Date_ID     BIGINT NOT NULL REFERENCES %s (%s),
			Aircraft_ID BIGINT NOT NULL REFERENCES Aircrafts (Aircraft_ID),
			FH          DOUBLE NOT NULL CHECK (FH >= 0),
			Takeoffs    BIGINT NOT NULL CHECK (Takeoffs >= 0),
			DFC         BIGINT NOT NULL CHECK (DFC >= 0),
			CFC         BIGINT NOT NULL CHECK (CFC >= 0),
			TDM         BIGINT NOT NULL CHECK (TDM >= 0),
			PRIMARY KEY (Date_ID, Aircraft_ID)
		)`, dateTable, dateColumn),
		`CREATE TABLE Aircraft_Monthly_Summary (
			Month_ID    BIGINT NOT NULL REFERENCES Months (Month_ID),
			Aircraft_ID BIGINT NOT NULL REFERENCES Aircrafts (Aircraft_ID),
			ADIS        DOUBLE NOT NULL,
			ADOSS       DOUBLE NOT NULL CHECK (ADOSS >= 0),
			ADOSU       DOUBLE NOT NULL CHECK (ADOSU >= 0),
			PRIMARY KEY (Month_ID, Aircraft_ID)
		)`,
		`CREATE TABLE Logbooks (
			Month_ID    BIGINT NOT NULL REFERENCES Months (Month_ID),
			Aircraft_ID BIGINT NOT NULL REFERENCES Aircrafts (Aircraft_ID),
			Reporter_ID BIGINT NOT NULL REFERENCES Reporters (Reporter_ID),
			Log_Count   BIGINT NOT NULL CHECK (Log_Count > 0),
			PRIMARY KEY (Month_ID, Aircraft_ID, Reporter_ID)
		)`,
		`CREATE TABLE IF NOT EXISTS ETL_Runs (
			Run_ID      VARCHAR PRIMARY KEY,
			Started_At  TIMESTAMP NOT NULL,
			Finished_At TIMESTAMP NOT NULL,
			Status      VARCHAR NOT NULL,
			Error       VARCHAR,
			Cleaned     BOOLEAN NOT NULL,
			Fact_Rows   BIGINT NOT NULL,
			Skipped     BIGINT NOT NULL,
			Violations  BIGINT NOT NULL
		)`,
	)

	return statements
}

//nolint:gochecknoglobals // Static DDL templates
var clickHouseTables = map[string]string{
	TableAircrafts: `CREATE TABLE {{ .database }}.Aircrafts (
		Aircraft_ID                 Int64,
		Aircraft_Registration_Code  String,
		Manufacturer_Serial_Number  String,
		Aircraft_Model              String,
		Aircraft_Manufacturer_Class Enum8('Airbus' = 1, 'Boeing' = 2)
	) ENGINE = MergeTree ORDER BY Aircraft_ID`,
	TableMonths: `CREATE TABLE {{ .database }}.Months (
		Month_ID  Int64,
		Month_Num UInt8,
		Year      UInt16
	) ENGINE = MergeTree ORDER BY Month_ID`,
	TableDates: `CREATE TABLE {{ .database }}.Dates (
		Date_ID   Int64,
		Full_Date Date,
		Day_Num   UInt8,
		Month_Num UInt8,
		Year      UInt16
	) ENGINE = MergeTree ORDER BY Date_ID`,
	TableDays: `CREATE TABLE {{ .database }}.Days (
		Day_ID   Int64,
		Month_ID Int64,
		Day_Num  UInt8
	) ENGINE = MergeTree ORDER BY Day_ID`,
	TableReporters: `CREATE TABLE {{ .database }}.Reporters (
		Reporter_ID         Int64,
		Reporter_Class      Enum8('PIREP' = 1, 'MAREP' = 2),
		Report_Airport_Code LowCardinality(String)
	) ENGINE = MergeTree ORDER BY Reporter_ID`,
	TableFlightOperationsDaily: `CREATE TABLE {{ .database }}.Flight_Operations_Daily (
		Date_ID     Int64,
		Aircraft_ID Int64,
		FH          Float64,
		Takeoffs    Int64,
		DFC         Int64,
		CFC         Int64,
		TDM         Int64
	) ENGINE = MergeTree ORDER BY (Date_ID, Aircraft_ID)`,
	TableAircraftMonthlySummary: `CREATE TABLE {{ .database }}.Aircraft_Monthly_Summary (
		Month_ID    Int64,
		Aircraft_ID Int64,
		ADIS        Float64,
		ADOSS       Float64,
		ADOSU       Float64
	) ENGINE = MergeTree ORDER BY (Month_ID, Aircraft_ID)`,
	TableLogbooks: `CREATE TABLE {{ .database }}.Logbooks (
		Month_ID    Int64,
		Aircraft_ID Int64,
		Reporter_ID Int64,
		Log_Count   Int64
	) ENGINE = MergeTree ORDER BY (Month_ID, Aircraft_ID, Reporter_ID)`,
	TableRuns: `CREATE TABLE IF NOT EXISTS {{ .database }}.ETL_Runs (
		Run_ID      String,
		Started_At  DateTime,
		Finished_At DateTime,
		Status      LowCardinality(String),
		Error       String,
		Cleaned     Bool,
		Fact_Rows   Int64,
		Skipped     Int64,
		Violations  Int64
	) ENGINE = MergeTree ORDER BY (Started_At, Run_ID)`,
}

// clickHouseSchema renders the statements that rebuild the star schema in database.
func clickHouseSchema(engine *rendering.TemplateEngine, database string, hierarchy dimension.Hierarchy, reset bool) ([]string, error) {
	variables := map[string]interface{}{"database": database}
	statements := []string{}

	if reset {
		statements = append(statements, fmt.Sprintf("DROP DATABASE IF EXISTS %s", database))
	}

	statements = append(statements, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database))

	for _, table := range dropOrder {
		statements = append(statements, fmt.Sprintf("DROP TABLE IF EXISTS %s.%s", database, table))
	}

	for _, table := range append(starTables(hierarchy), TableRuns) {
		statement, err := engine.Render(table, clickHouseTables[table], variables)
		if err != nil {
			return nil, err
		}

		statements = append(statements, statement)
	}

	return statements, nil
}
