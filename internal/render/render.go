// Package render writes search results, facets and load reports as text
// tables, JSON, GeoJSON or YAML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/pantry-finder/internal/odm"
	"github.com/sells-group/pantry-finder/internal/pantry"
	"github.com/sells-group/pantry-finder/internal/tabular"
)

// Format names an output encoding.
type Format string

const (
	Table   Format = "table"
	JSON    Format = "json"
	GeoJSON Format = "geojson"
	YAML    Format = "yaml"
)

// ParseFormat validates a format name. Empty means Table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return Table, nil
	case Table, JSON, GeoJSON, YAML:
		return f, nil
	default:
		return "", eris.Errorf("render: unknown format %q", s)
	}
}

// Response writes a search response.
func Response(w io.Writer, f Format, resp *pantry.Response) error {
	switch f {
	case Table:
		return responseTable(w, resp)
	case GeoJSON:
		fc, err := FeatureCollection(resp)
		if err != nil {
			return err
		}
		return encodeJSON(w, fc)
	default:
		return encode(w, f, resp)
	}
}

// Facets writes the category facets.
func Facets(w io.Writer, f Format, facets []odm.Facet) error {
	if f != Table {
		return encode(w, f, facets)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILTER 1\tFILTER 2")
	for _, fc := range facets {
		fmt.Fprintf(tw, "%s\t%s\n", fc.Filter1, strings.Join(fc.Filter2, ", "))
	}
	return eris.Wrap(tw.Flush(), "render: flush facets")
}

// Reports writes table load reports.
func Reports(w io.Writer, f Format, reports []tabular.Report) error {
	if f != Table {
		return encode(w, f, reports)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tROWS\tLOADED\tSKIPPED")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", r.Source, r.Rows, r.Loaded, r.Skipped)
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "render: flush reports")
	}
	for _, r := range reports {
		for _, issue := range r.Issues {
			fmt.Fprintf(w, "  %s: %s\n", r.Source, issue)
		}
	}
	return nil
}

func responseTable(w io.Writer, resp *pantry.Response) error {
	if resp.Message != "" {
		fmt.Fprintln(w, resp.Message)
	}
	if len(resp.Rows) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENCY\tCITY\tADDRESS\tHOURS\tPHONE\tMINUTES\tMILES")
	for _, r := range resp.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\t%.2f\n",
			r.Agency, r.City, r.Address, r.Window, r.Phone, r.TravelMinutes, r.DistanceMiles)
	}
	return eris.Wrap(tw.Flush(), "render: flush rows")
}

// Value writes v as JSON or YAML. Table is not supported.
func Value(w io.Writer, f Format, v any) error {
	return encode(w, f, v)
}

func encode(w io.Writer, f Format, v any) error {
	switch f {
	case JSON, GeoJSON:
		return encodeJSON(w, v)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "render: encode yaml")
		}
		return eris.Wrap(enc.Close(), "render: close yaml")
	default:
		return eris.Errorf("render: format %q is not supported here", f)
	}
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "render: encode json")
}
