package telemetry

import (
	"strconv"
)

// Encoder serializes a Record into the single-line wire format consumed by
// the ground system:
//
//	device_id=<string>,ambient_temp=<f.2>,humidity=<f.2>,soil_moisture=<f.1>,
//	soil_temp=<f.1>,wind_speed=<f.1>,longitude=<f.6>,latitude=<f.6>\r\n
//
// Field order, per-field fraction digits and the CRLF terminator are part of
// the wire contract and never vary with value magnitude or locale. Encode is
// pure: every record maps to exactly one output string.
type Encoder struct{}

// Encode renders the record as one CRLF-terminated ASCII line.
func (Encoder) Encode(r *Record) string {
	b := make([]byte, 0, 160)

	b = append(b, "device_id="...)
	b = append(b, r.DeviceID...)
	b = appendField(b, "ambient_temp", r.AmbientTemp.Value, 2)
	b = appendField(b, "humidity", r.Humidity.Value, 2)
	b = appendField(b, "soil_moisture", r.SoilMoisture.Value, 1)
	b = appendField(b, "soil_temp", r.SoilTemp.Value, 1)
	b = appendField(b, "wind_speed", r.WindSpeed.Value, 1)
	b = appendField(b, "longitude", r.Longitude.Value, 6)
	b = appendField(b, "latitude", r.Latitude.Value, 6)
	b = append(b, '\r', '\n')

	return string(b)
}

func appendField(b []byte, key string, value float64, precision int) []byte {
	b = append(b, ',')
	b = append(b, key...)
	b = append(b, '=')
	return strconv.AppendFloat(b, value, 'f', precision, 64)
}
