package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"trip-synth/internal/synth"
)

var csvHeader = []string{
	"t", "lat", "lon", "altitude", "bearing", "velocity",
	"delta_distance", "slope", "ax", "ay", "az",
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// WriteCSV writes one row per sample, prefixed by a header row. The t column
// is seconds since the first sample.
func WriteCSV(w io.Writer, trip *synth.Trip) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i, s := range trip.Samples {
		row := []string{
			ff(trip.Offset(i).Seconds()),
			ff(s.Position.Lat), ff(s.Position.Lon), ff(s.Altitude),
			ff(s.Bearing), ff(s.Velocity), ff(s.DeltaDistance), ff(s.Slope),
			ff(s.Acceleration[0]), ff(s.Acceleration[1]), ff(s.Acceleration[2]),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
