package wfdb

import (
	"encoding/binary"
	"fmt"
	"math"
)

// decodeSamples unpacks raw signal bytes into digital samples for the given
// storage format. Samples are returned in file order (frames interleaved).
func decodeSamples(format int, data []byte) ([]int32, error) {
	switch format {
	case 8:
		out := make([]int32, len(data))
		for i, b := range data {
			out[i] = int32(int8(b))
		}
		return out, nil
	case 80:
		out := make([]int32, len(data))
		for i, b := range data {
			out[i] = int32(b) - 128
		}
		return out, nil
	case 16:
		out := make([]int32, len(data)/2)
		for i := range out {
			out[i] = int32(int16(binary.LittleEndian.Uint16(data[2*i:])))
		}
		return out, nil
	case 61:
		out := make([]int32, len(data)/2)
		for i := range out {
			out[i] = int32(int16(binary.BigEndian.Uint16(data[2*i:])))
		}
		return out, nil
	case 24:
		out := make([]int32, len(data)/3)
		for i := range out {
			v := int32(data[3*i]) | int32(data[3*i+1])<<8 | int32(data[3*i+2])<<16
			if v&0x800000 != 0 {
				v -= 1 << 24
			}
			out[i] = v
		}
		return out, nil
	case 32:
		out := make([]int32, len(data)/4)
		for i := range out {
			out[i] = int32(binary.LittleEndian.Uint32(data[4*i:]))
		}
		return out, nil
	case 212:
		n := len(data) / 3 * 2
		if len(data)%3 == 2 {
			n++
		}
		out := make([]int32, 0, n)
		for i := 0; i+2 < len(data); i += 3 {
			s0 := int32(data[i]) | int32(data[i+1]&0x0f)<<8
			if s0 > 2047 {
				s0 -= 4096
			}
			s1 := int32(data[i+2]) | int32(data[i+1]&0xf0)<<4
			if s1 > 2047 {
				s1 -= 4096
			}
			out = append(out, s0, s1)
		}
		if len(data)%3 == 2 {
			i := len(data) - 2
			s0 := int32(data[i]) | int32(data[i+1]&0x0f)<<8
			if s0 > 2047 {
				s0 -= 4096
			}
			out = append(out, s0)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported signal format %d", format)
	}
}

// invalidValue returns the sentinel digital value marking a missing sample for
// the format, if the format defines one. Format 8 stores differences and has none.
func invalidValue(format int) (int32, bool) {
	switch format {
	case 16, 61:
		return -32768, true
	case 212:
		return -2048, true
	case 80:
		return -128, true
	case 24:
		return -(1 << 23), true
	case 32:
		return math.MinInt32, true
	}
	return 0, false
}

// physical converts a digital sample using gain and baseline. Sentinel samples
// come back as NaN.
func physical(d int32, spec SignalSpec, sentinel int32, hasSentinel bool) float64 {
	if hasSentinel && d == sentinel {
		return math.NaN()
	}
	return (float64(d) - float64(spec.Baseline)) / spec.Gain
}
