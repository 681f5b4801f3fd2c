package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"

	"github.com/specialistvlad/globalplanner/internal/geom"
	"github.com/specialistvlad/globalplanner/internal/goals"
)

// destinationsFile is an HCL destination list:
//
//	start_index = 0
//	destination "depot" {
//	  x     = 10
//	  y     = 0
//	  dwell = "5s"
//	}
type destinationsFile struct {
	StartIndex   *int                `hcl:"start_index,optional"`
	Destinations []*destinationBlock `hcl:"destination,block"`
}

type destinationBlock struct {
	Label string  `hcl:"label,label"`
	X     float64 `hcl:"x"`
	Y     float64 `hcl:"y"`
	Z     float64 `hcl:"z,optional"`
	Yaw   float64 `hcl:"yaw,optional"`
	Dwell *string `hcl:"dwell,optional"`
}

// DecodeDestinationsFile parses an HCL destination list. Every failure wraps
// goals.ErrInvalidDestinationFile.
func DecodeDestinationsFile(ctx context.Context, path string) (*goals.File, error) {
	return decodeDestinations(path, nil)
}

// DecodeDestinationsSource is DecodeDestinationsFile for an in-memory document.
func DecodeDestinationsSource(ctx context.Context, filename string, src []byte) (*goals.File, error) {
	return decodeDestinations(filename, src)
}

func decodeDestinations(filename string, src []byte) (*goals.File, error) {
	file, err := parseFile(filename, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", goals.ErrInvalidDestinationFile, err)
	}
	var root destinationsFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %v", goals.ErrInvalidDestinationFile, filename, diags)
	}
	if len(root.Destinations) == 0 {
		return nil, fmt.Errorf("%w: %s: no destinations", goals.ErrInvalidDestinationFile, filename)
	}

	out := &goals.File{}
	set(&out.StartIndex, root.StartIndex)
	for i, d := range root.Destinations {
		dest := goals.Destination{
			Index: i,
			Pose:  geom.NewPose(d.X, d.Y, d.Z, d.Yaw),
			Label: d.Label,
		}
		if d.Dwell != nil {
			dwell, err := durationOr(d.Dwell, 0, "dwell")
			if err != nil {
				return nil, fmt.Errorf("%w: destination %q: %v", goals.ErrInvalidDestinationFile, d.Label, err)
			}
			dest.Dwell = goals.DwellOf(dwell)
		}
		out.Destinations = append(out.Destinations, dest)
	}
	return out, nil
}
