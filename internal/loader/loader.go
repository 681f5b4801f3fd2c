// Package loader reads file-backed inputs: road network descriptions, prebuilt
// network blobs and destination lists. It dispatches on the file extension to
// the HCL, OSM XML and YAML decoders.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/globalplanner/internal/ctxlog"
	"github.com/specialistvlad/globalplanner/internal/fsutil"
	"github.com/specialistvlad/globalplanner/internal/goals"
	"github.com/specialistvlad/globalplanner/internal/hcl_adapter"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
)

// ErrUnsupportedFormat is returned for a file extension no decoder handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Map reads a road network description. path may be an .hcl file, an .osm or
// .xml lanelet-style OSM file, or a directory whose .hcl files are merged.
// It satisfies roadnet.FileParser.
func Map(ctx context.Context, path string) (*roadnet.Bundle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing map path %s: %w", path, err)
	}
	if info.IsDir() {
		return mapDir(ctx, path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return hcl_adapter.DecodeMapFile(ctx, path)
	case ".osm", ".xml":
		return OSMFile(ctx, path)
	}
	return nil, fmt.Errorf("%w: map file %s", ErrUnsupportedFormat, path)
}

func mapDir(ctx context.Context, dir string) (*roadnet.Bundle, error) {
	files, err := fsutil.FindFilesByExtension(dir, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl map files in %s", dir)
	}
	out := &roadnet.Bundle{}
	for _, f := range files {
		b, err := hcl_adapter.DecodeMapFile(ctx, f)
		if err != nil {
			return nil, err
		}
		out.Merge(b)
	}
	ctxlog.FromContext(ctx).Debug("Merged map directory.", "dir", dir, "files", len(files))
	return out, nil
}

// Blob reads a prebuilt network blob.
func Blob(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map blob %s: %w", path, err)
	}
	return data, nil
}

// Destinations reads a destination list from an .hcl, .yaml or .yml file.
// Every failure wraps goals.ErrInvalidDestinationFile.
func Destinations(ctx context.Context, path string) (*goals.File, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return hcl_adapter.DecodeDestinationsFile(ctx, path)
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", goals.ErrInvalidDestinationFile, err)
		}
		return goals.DecodeYAML(data)
	}
	return nil, fmt.Errorf("%w: %w: destinations file %s", goals.ErrInvalidDestinationFile, ErrUnsupportedFormat, path)
}
