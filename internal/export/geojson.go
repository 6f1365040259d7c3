package export

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"trip-synth/internal/geo"
	"trip-synth/internal/synth"
)

// LineString converts points to an orb line in lon/lat order.
func LineString(points []geo.Point) orb.LineString {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = orb.Point{p.Lon, p.Lat}
	}
	return ls
}

// FeatureCollection holds the trip path as a LineString feature followed by
// one Point feature per sample.
func FeatureCollection(trip *synth.Trip) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	path := geojson.NewFeature(LineString(trip.Positions()))
	path.Properties["id"] = trip.ID
	path.Properties["name"] = trip.Name
	path.Properties["frequency"] = trip.Frequency
	path.Properties["distance"] = trip.Distance()
	path.Properties["duration"] = trip.Duration().Seconds()
	fc.Append(path)

	for i, s := range trip.Samples {
		f := geojson.NewFeature(orb.Point{s.Position.Lon, s.Position.Lat})
		f.Properties["t"] = trip.Offset(i).Seconds()
		f.Properties["altitude"] = s.Altitude
		f.Properties["bearing"] = s.Bearing
		f.Properties["velocity"] = s.Velocity
		f.Properties["deltaDistance"] = s.DeltaDistance
		f.Properties["slope"] = s.Slope
		f.Properties["acceleration"] = s.Acceleration[:]
		fc.Append(f)
	}
	return fc
}

func WriteGeoJSON(w io.Writer, trip *synth.Trip) error {
	data, err := FeatureCollection(trip).MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal geojson: %w", err)
	}
	_, err = w.Write(data)
	return err
}
