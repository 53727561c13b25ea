package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
)

func putFloat32(v float64) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, math.Float32bits(float32(v)))
	return buf
}

func getFloat32(b []byte) (float64, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("%w: expected 4-byte float, got %d", ErrCodec, len(b))
	}
	return float64(math.Float32frombits(binary.BigEndian.Uint32(b))), nil
}

func putVec2(v geo.Vec2) []byte {
	buf := make([]byte, 8)
	copy(buf[0:4], putFloat32(v.X))
	copy(buf[4:8], putFloat32(v.Y))
	return buf
}

func getVec2(b []byte) (geo.Vec2, error) {
	if len(b) != 8 {
		return geo.Vec2{}, fmt.Errorf("%w: expected 8-byte vec2, got %d", ErrCodec, len(b))
	}
	x, err := getFloat32(b[0:4])
	if err != nil {
		return geo.Vec2{}, err
	}
	y, err := getFloat32(b[4:8])
	if err != nil {
		return geo.Vec2{}, err
	}
	return geo.Vec2{X: x, Y: y}, nil
}

func putNodeID(id identity.NodeID) []byte {
	b := id.Bytes()
	return b[:]
}

func getNodeID(b []byte) (identity.NodeID, error) {
	if len(b) != 6 {
		return 0, fmt.Errorf("%w: expected 6-byte node id, got %d", ErrCodec, len(b))
	}
	var arr [6]byte
	copy(arr[:], b)
	return identity.NodeIDFromBytes(arr), nil
}

func putUint32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

func getUint32(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("%w: expected 4-byte uint32, got %d", ErrCodec, len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

func putUint16(v uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return buf
}

func getUint16(b []byte) (uint16, error) {
	if len(b) != 2 {
		return 0, fmt.Errorf("%w: expected 2-byte uint16, got %d", ErrCodec, len(b))
	}
	return binary.BigEndian.Uint16(b), nil
}
