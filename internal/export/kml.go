package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"trip-synth/internal/synth"
)

const kmlNamespace = "http://www.opengis.net/kml/2.2"

type kmlDocument struct {
	XMLName  xml.Name `xml:"kml"`
	Xmlns    string   `xml:"xmlns,attr"`
	Document struct {
		Name      string         `xml:"name"`
		Placemark []kmlPlacemark `xml:"Placemark"`
	} `xml:"Document"`
}

type kmlPlacemark struct {
	Name        string         `xml:"name"`
	Description string         `xml:"description,omitempty"`
	Point       *kmlPoint      `xml:"Point,omitempty"`
	LineString  *kmlLineString `xml:"LineString,omitempty"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlLineString struct {
	Tessellate   int    `xml:"tessellate"`
	AltitudeMode string `xml:"altitudeMode"`
	Coordinates  string `xml:"coordinates"`
}

// kmlCoord renders lon,lat,alt as KML expects.
func kmlCoord(s synth.Sample) string {
	return strconv.FormatFloat(s.Position.Lon, 'f', 7, 64) + "," +
		strconv.FormatFloat(s.Position.Lat, 'f', 7, 64) + "," +
		strconv.FormatFloat(s.Altitude, 'f', 2, 64)
}

// WriteKML writes the trip as a KML document: one LineString over every
// sample, followed by one Placemark per sample carrying its kinematics.
func WriteKML(w io.Writer, name string, trip *synth.Trip) error {
	var doc kmlDocument
	doc.Xmlns = kmlNamespace
	doc.Document.Name = name

	coords := make([]string, len(trip.Samples))
	for i, s := range trip.Samples {
		coords[i] = kmlCoord(s)
	}
	doc.Document.Placemark = append(doc.Document.Placemark, kmlPlacemark{
		Name: name,
		LineString: &kmlLineString{
			Tessellate:   1,
			AltitudeMode: "absolute",
			Coordinates:  strings.Join(coords, " "),
		},
	})
	for i, s := range trip.Samples {
		doc.Document.Placemark = append(doc.Document.Placemark, kmlPlacemark{
			Name: strconv.Itoa(i),
			Description: fmt.Sprintf("t=%.3fs bearing=%.2f velocity=%.3f slope=%.4f ax=%.4f ay=%.4f az=%.4f",
				trip.Offset(i).Seconds(), s.Bearing, s.Velocity, s.Slope,
				s.Acceleration[0], s.Acceleration[1], s.Acceleration[2]),
			Point: &kmlPoint{Coordinates: coords[i]},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode kml: %w", err)
	}
	return enc.Close()
}
