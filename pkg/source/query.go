package source

import (
	"fmt"
	"maps"

	"github.com/ethpandaops/fleetdw/pkg/rendering"
)

// Query names
const (
	QueryFlights     = "flights"
	QueryMaintenance = "maintenance"
	QueryReports     = "postflightreports"
	QueryLogbook     = "technicallogbookorders"
)

// defaultQueries select the columns each scanner expects, in order.
//
//nolint:gochecknoglobals // Static query templates
var defaultQueries = map[string]string{
	QueryFlights: `SELECT id::text, aircraftregistration, scheduleddeparture, scheduledarrival,
		actualdeparture, actualarrival, cancelled, delaycode
	FROM {{ .schemas.aims | pgIdent }}.flights`,
	QueryMaintenance: `SELECT id::text, aircraftregistration, scheduleddeparture, scheduledarrival, programmed
	FROM {{ .schemas.aims | pgIdent }}.maintenance`,
	QueryReports: `SELECT pfrid::text, aircraftregistration, reportingdate, reporteurclass,
		reporteurid::text, executionplace, tlborder
	FROM {{ .schemas.amos | pgIdent }}.postflightreports`,
	QueryLogbook: `SELECT workorderid, aircraftregistration, reportingdate, executionplace, reporteurid::text
	FROM {{ .schemas.amos | pgIdent }}.technicallogbookorders`,
}

// queryVariables exposes the configured schemas to query templates.
func queryVariables(cfg *PostgresConfig) map[string]interface{} {
	return map[string]interface{}{
		"schemas": map[string]interface{}{
			"aims": cfg.Schemas.AIMS,
			"amos": cfg.Schemas.AMOS,
		},
	}
}

// renderQueries renders every extraction query, preferring configured overrides.
func renderQueries(engine *rendering.TemplateEngine, cfg *PostgresConfig) (map[string]string, error) {
	templates := maps.Clone(defaultQueries)
	maps.Copy(templates, cfg.Queries)

	queries, err := engine.RenderAll(templates, queryVariables(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to render source queries: %w", err)
	}

	return queries, nil
}
