// Package export renders synthesized trips as KML, CSV and GeoJSON.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"trip-synth/internal/synth"
)

type Format string

const (
	KML     Format = "kml"
	CSV     Format = "csv"
	GeoJSON Format = "geojson"
)

var AllFormats = []Format{KML, CSV, GeoJSON}

var (
	ErrUnknownFormat = errors.New("unknown export format")
	ErrOutputDir     = errors.New("output directory unavailable")
	ErrFileName      = errors.New("invalid output file name")
)

// ParseFormats accepts a comma separated list such as "kml,csv". An empty
// string selects every format.
func ParseFormats(s string) ([]Format, error) {
	if strings.TrimSpace(s) == "" {
		return AllFormats, nil
	}
	var out []Format
	for _, part := range strings.Split(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		switch f {
		case KML, CSV, GeoJSON:
			out = append(out, f)
		case "json":
			out = append(out, GeoJSON)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, part)
		}
	}
	return out, nil
}

func (f Format) Ext() string {
	if f == GeoJSON {
		return ".geojson"
	}
	return "." + string(f)
}

func (f Format) ContentType() string {
	switch f {
	case KML:
		return "application/vnd.google-earth.kml+xml"
	case CSV:
		return "text/csv"
	default:
		return "application/geo+json"
	}
}

// Write renders trip in format f.
func Write(w io.Writer, f Format, name string, trip *synth.Trip) error {
	switch f {
	case KML:
		return WriteKML(w, name, trip)
	case CSV:
		return WriteCSV(w, trip)
	case GeoJSON:
		return WriteGeoJSON(w, trip)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// CheckDir fails unless dir exists and is a directory.
func CheckDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrOutputDir, dir)
	}
	return nil
}

// SafeName turns a trip or route name into a base file name: path
// separators become underscores and "." or ".." yield "".
func SafeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// WriteFiles writes dir/name.<ext> for each format and returns the paths
// written. The directory and name are checked before anything is created;
// name must stay inside dir.
func WriteFiles(dir, name string, trip *synth.Trip, formats []Format) ([]string, error) {
	if name == "" || SafeName(name) != name {
		return nil, fmt.Errorf("%w: %q", ErrFileName, name)
	}
	if err := CheckDir(dir); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := filepath.Join(dir, name+f.Ext())
		if err := writeFile(path, f, name, trip); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, f Format, name string, trip *synth.Trip) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(file, f, name, trip); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}
