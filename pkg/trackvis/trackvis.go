// Package trackvis serializes streamlines to the TrackVis .trk format:
// a fixed 1000-byte little-endian header carrying the volume geometry,
// followed by each track as a point count and packed float32 coordinates.
// Coordinates are stored in the voxel-mm convention (voxel index times
// voxel size). A reader is provided so written bundles can be verified.
package trackvis

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/golang/geo/r3"

	"dwitract/pkg/streamline"
)

const (
	headerSize = 1000
	version    = 2
)

var magic = [6]byte{'T', 'R', 'A', 'C', 'K', 0}

// header is the on-disk .trk header layout. Field order and sizes follow
// the TrackVis specification; the struct is written packed.
type header struct {
	IDString         [6]byte
	Dim              [3]int16
	VoxelSize        [3]float32
	Origin           [3]float32
	NScalars         int16
	ScalarNames      [10][20]byte
	NProperties      int16
	PropertyNames    [10][20]byte
	VoxToRAS         [4][4]float32
	Reserved         [444]byte
	VoxelOrder       [4]byte
	Pad2             [4]byte
	ImageOrientation [6]float32
	Pad1             [2]byte
	InvertX          byte
	InvertY          byte
	InvertZ          byte
	SwapXY           byte
	SwapYZ           byte
	SwapZX           byte
	NCount           int32
	Version          int32
	HdrSize          int32
}

// Geometry describes the volume grid a track file refers back to.
type Geometry struct {
	// Dim is the grid size in voxels.
	Dim [3]int

	// VoxelSize is the physical voxel extent in mm.
	VoxelSize [3]float64

	// VoxToRAS is the row-major 4x4 voxel-to-world transform stored in the
	// header for coordinate reconstruction.
	VoxToRAS [16]float64
}

// Write serializes the streamlines to path. Point coordinates are written
// as given; the pipeline produces them in voxel-mm space.
func Write(path string, tracks []streamline.Streamline, geom Geometry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create track file: %v", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	hdr := header{
		IDString:   magic,
		NCount:     int32(len(tracks)),
		Version:    version,
		HdrSize:    headerSize,
		VoxelOrder: [4]byte{'L', 'P', 'S', 0},
	}
	for i := 0; i < 3; i++ {
		hdr.Dim[i] = int16(geom.Dim[i])
		hdr.VoxelSize[i] = float32(geom.VoxelSize[i])
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			hdr.VoxToRAS[i][j] = float32(geom.VoxToRAS[i*4+j])
		}
	}

	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("failed to write track header: %v", err)
	}

	for _, track := range tracks {
		if err := binary.Write(w, binary.LittleEndian, int32(len(track))); err != nil {
			return fmt.Errorf("failed to write track length: %v", err)
		}

		points := make([]float32, 0, 3*len(track))
		for _, p := range track {
			points = append(points, float32(p.X), float32(p.Y), float32(p.Z))
		}
		if err := binary.Write(w, binary.LittleEndian, points); err != nil {
			return fmt.Errorf("failed to write track points: %v", err)
		}
	}

	return w.Flush()
}

// Read parses a .trk file back into streamlines and its geometry.
func Read(path string) ([]streamline.Streamline, Geometry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Geometry{}, fmt.Errorf("failed to open track file: %v", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var hdr header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, Geometry{}, fmt.Errorf("failed to read track header: %v", err)
	}

	if hdr.IDString != magic {
		return nil, Geometry{}, fmt.Errorf("not a TrackVis file: bad magic %q", hdr.IDString[:])
	}
	if hdr.HdrSize != headerSize {
		return nil, Geometry{}, fmt.Errorf("unsupported track header size %d", hdr.HdrSize)
	}
	if hdr.NScalars != 0 || hdr.NProperties != 0 {
		return nil, Geometry{}, fmt.Errorf("track files with scalars or properties are not supported")
	}

	geom := Geometry{}
	for i := 0; i < 3; i++ {
		geom.Dim[i] = int(hdr.Dim[i])
		geom.VoxelSize[i] = float64(hdr.VoxelSize[i])
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			geom.VoxToRAS[i*4+j] = float64(hdr.VoxToRAS[i][j])
		}
	}

	tracks := make([]streamline.Streamline, 0, hdr.NCount)
	for {
		var n int32
		if err := binary.Read(r, binary.LittleEndian, &n); err == io.EOF {
			break
		} else if err != nil {
			return nil, Geometry{}, fmt.Errorf("failed to read track length: %v", err)
		}
		if n < 0 {
			return nil, Geometry{}, fmt.Errorf("negative track length %d", n)
		}

		points := make([]float32, 3*n)
		if err := binary.Read(r, binary.LittleEndian, points); err != nil {
			return nil, Geometry{}, fmt.Errorf("failed to read track points: %v", err)
		}

		track := make(streamline.Streamline, n)
		for i := range track {
			track[i] = r3.Vector{
				X: float64(points[3*i]),
				Y: float64(points[3*i+1]),
				Z: float64(points[3*i+2]),
			}
		}
		tracks = append(tracks, track)
	}

	if hdr.NCount != 0 && int(hdr.NCount) != len(tracks) {
		return nil, Geometry{}, fmt.Errorf("header announces %d tracks but file holds %d", hdr.NCount, len(tracks))
	}

	return tracks, geom, nil
}
