package main

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/fatih/structs"
	"github.com/olekukonko/tablewriter"
)

// renderTable prints rows, all of the same struct type, one per line. The
// header comes from the structs tags; untagged, "-" and nested fields are
// left out.
func renderTable(w io.Writer, rows []interface{}) {
	table := tablewriter.NewWriter(w)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for i, row := range rows {
		header, values := columns(row)
		if i == 0 {
			table.SetHeader(header)
		}
		table.Append(values)
	}

	table.Render()
}

func columns(row interface{}) ([]string, []string) {
	header, values := []string{}, []string{}
	for _, f := range structs.New(row).Fields() {
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag("structs"), ",")
		if name == "" || name == "-" {
			continue
		}
		switch f.Kind() {
		case reflect.Ptr, reflect.Struct, reflect.Slice, reflect.Map:
			continue
		}
		header = append(header, strings.ToUpper(name))
		values = append(values, formatValue(f.Value()))
	}
	return header, values
}

func formatValue(v interface{}) string {
	switch vv := v.(type) {
	case float64:
		return strconv.FormatFloat(vv, 'f', 3, 64)
	case fmt.Stringer:
		return vv.String()
	default:
		return fmt.Sprint(v)
	}
}

func renderJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}
