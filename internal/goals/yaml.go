package goals

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/globalplanner/internal/geom"
)

type yamlFile struct {
	StartIndex   int               `yaml:"start_index"`
	Destinations []yamlDestination `yaml:"destinations"`
}

type yamlDestination struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Z     float64 `yaml:"z"`
	Yaw   float64 `yaml:"yaw"`
	Dwell string  `yaml:"dwell"`
	Label string  `yaml:"label"`
}

// File is a decoded destinations file.
type File struct {
	StartIndex   int
	Destinations []Destination
}

// DecodeYAML parses a YAML destinations document:
//
//	start_index: 0
//	destinations:
//	  - {x: 10, y: 0, yaw: 0, dwell: 5s, label: depot}
func DecodeYAML(data []byte) (*File, error) {
	var raw yamlFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDestinationFile, err)
	}
	if len(raw.Destinations) == 0 {
		return nil, fmt.Errorf("%w: no destinations", ErrInvalidDestinationFile)
	}
	out := &File{StartIndex: raw.StartIndex}
	for i, d := range raw.Destinations {
		dest := Destination{Index: i, Pose: geom.NewPose(d.X, d.Y, d.Z, d.Yaw), Label: d.Label}
		if d.Dwell != "" {
			dwell, err := time.ParseDuration(d.Dwell)
			if err != nil {
				return nil, fmt.Errorf("%w: destination %d: %v", ErrInvalidDestinationFile, i, err)
			}
			dest.Dwell = DwellOf(dwell)
		}
		out.Destinations = append(out.Destinations, dest)
	}
	return out, nil
}
