package cli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/frobware/go-pagecache/cmd/pagecache/cli"
)

func TestOutputFlags_Format(t *testing.T) {
	tests := []struct {
		output   string
		wantFmt  cli.OutputFormat
		wantExpr string
		wantErr  bool
	}{
		{output: "table", wantFmt: cli.OutputFormatTable},
		{output: "", wantFmt: cli.OutputFormatTable},
		{output: "json", wantFmt: cli.OutputFormatJSON},
		{output: "jsonpath={.cached}", wantFmt: cli.OutputFormatJSONPath, wantExpr: "{.cached}"},
		{output: "jsonpath=", wantFmt: cli.OutputFormatTable, wantErr: true},
		{output: "yaml", wantFmt: cli.OutputFormatTable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			f := cli.OutputFlags{Output: tt.output}
			assert.Equal(t, tt.wantFmt, f.Format())
			assert.Equal(t, tt.wantExpr, f.JSONPathExpr())
			if tt.wantErr {
				assert.Error(t, f.Validate())
			} else {
				assert.NoError(t, f.Validate())
			}
		})
	}
}
