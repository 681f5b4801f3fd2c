package hcl_adapter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/specialistvlad/globalplanner/internal/ctxlog"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional hcl.Expression fields with
// zero-width placeholder expressions, so a nil check is insufficient.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

// parseFile parses src, or the file at filename when src is nil.
func parseFile(filename string, src []byte) (*hcl.File, error) {
	parser := hclparse.NewParser()
	var (
		file  *hcl.File
		diags hcl.Diagnostics
	)
	if src == nil {
		file, diags = parser.ParseHCLFile(filename)
	} else {
		file, diags = parser.ParseHCL(src, filename)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return file, nil
}

// durationOr parses s, returning fallback when s is nil.
func durationOr(s *string, fallback time.Duration, attr string) (time.Duration, error) {
	if s == nil {
		return fallback, nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return 0, fmt.Errorf("attribute %q: %w", attr, err)
	}
	return d, nil
}

// decodeDurationMap evaluates an object such as { "2" = "10s" } into a map of
// integer keys to durations.
func decodeDurationMap(ctx context.Context, expr hcl.Expression, attr string) (map[int]time.Duration, error) {
	if !isExprDefined(ctx, expr, attr) {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("attribute %q: %w", attr, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	val, err := convert.Convert(val, cty.Map(cty.String))
	if err != nil {
		return nil, fmt.Errorf("attribute %q must map indexes to durations: %w", attr, err)
	}
	out := make(map[int]time.Duration, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		idx, err := strconv.Atoi(k.AsString())
		if err != nil {
			return nil, fmt.Errorf("attribute %q: key %q is not an index", attr, k.AsString())
		}
		d, err := time.ParseDuration(v.AsString())
		if err != nil {
			return nil, fmt.Errorf("attribute %q: key %q: %w", attr, k.AsString(), err)
		}
		out[idx] = d
	}
	return out, nil
}

func labelID(kind, label string) (int, error) {
	id, err := strconv.Atoi(label)
	if err != nil {
		return 0, fmt.Errorf("%s %q: label must be an integer id", kind, label)
	}
	return id, nil
}
