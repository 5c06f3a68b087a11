package cli

import (
	"fmt"
	"strings"
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	OutputFormatTable    OutputFormat = "table"
	OutputFormatJSON     OutputFormat = "json"
	OutputFormatJSONPath OutputFormat = "jsonpath"
)

const jsonPathPrefix = "jsonpath="

// OutputFlags provides output formatting flags.
type OutputFlags struct {
	Output string `short:"o" help:"Output format: table, json, jsonpath=EXPR." default:"table"`
}

// Format returns the base format type.
func (f *OutputFlags) Format() OutputFormat {
	switch {
	case f.Output == "json":
		return OutputFormatJSON
	case strings.HasPrefix(f.Output, jsonPathPrefix) && len(f.Output) > len(jsonPathPrefix):
		return OutputFormatJSONPath
	default:
		return OutputFormatTable
	}
}

// JSONPathExpr returns the JSONPath expression if format is jsonpath=EXPR.
func (f *OutputFlags) JSONPathExpr() string {
	if f.Format() == OutputFormatJSONPath {
		return f.Output[len(jsonPathPrefix):]
	}
	return ""
}

// Validate is called by kong after parsing.
func (f *OutputFlags) Validate() error {
	switch {
	case f.Output == "", f.Output == "table", f.Output == "json":
		return nil
	case f.Format() == OutputFormatJSONPath:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or jsonpath=EXPR)", f.Output)
	}
}
