package rendering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateEngine_Render(t *testing.T) {
	engine := NewTemplateEngine()

	tests := []struct {
		name      string
		content   string
		variables map[string]interface{}
		want      string
		wantErr   bool
	}{
		{
			name:      "quoted identifier",
			content:   `SELECT id FROM {{ .schema | quote }}.flights`,
			variables: map[string]interface{}{"schema": "AIMS"},
			want:      `SELECT id FROM "AIMS".flights`,
		},
		{
			name:      "postgres identifier",
			content:   `SELECT id FROM {{ .schema | pgIdent }}.flights`,
			variables: map[string]interface{}{"schema": `odd"name`},
			want:      `SELECT id FROM "odd""name".flights`,
		},
		{
			name:      "clickhouse identifier",
			content:   `SELECT count() FROM {{ .database | chIdent }}.Logbooks`,
			variables: map[string]interface{}{"database": "fleet_dw"},
			want:      "SELECT count() FROM `fleet_dw`.Logbooks",
		},
		{
			name:      "trims surrounding whitespace",
			content:   "\n\tSELECT 1\n",
			variables: map[string]interface{}{},
			want:      "SELECT 1",
		},
		{
			name:      "nested variables",
			content:   `CREATE TABLE {{ .clickhouse.database }}.Months`,
			variables: map[string]interface{}{"clickhouse": map[string]interface{}{"database": "fleet_dw"}},
			want:      `CREATE TABLE fleet_dw.Months`,
		},
		{
			name:      "sprig default",
			content:   `{{ .limit | default 100 }}`,
			variables: map[string]interface{}{"limit": nil},
			want:      `100`,
		},
		{
			name:      "missing variable",
			content:   `{{ .missing }}`,
			variables: map[string]interface{}{},
			wantErr:   true,
		},
		{
			name:    "parse error",
			content: `{{ .schema `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Render("test", tt.content, tt.variables)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplateEngine_RenderAll(t *testing.T) {
	engine := NewTemplateEngine()

	rendered, err := engine.RenderAll(map[string]string{
		"flights":     `SELECT * FROM {{ .schema | pgIdent }}.flights`,
		"maintenance": `SELECT * FROM {{ .schema | pgIdent }}.maintenance`,
	}, map[string]interface{}{"schema": "AIMS"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"flights":     `SELECT * FROM "AIMS".flights`,
		"maintenance": `SELECT * FROM "AIMS".maintenance`,
	}, rendered)

	_, err = engine.RenderAll(map[string]string{
		"ok":     `SELECT 1`,
		"broken": `{{ .missing }}`,
	}, map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}
