package store

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// DescriptorSize is the wire size of a run descriptor. The descriptor is the
// only piece of store state that crosses process boundaries, so its layout is
// explicit and versioned rather than a copy of any in-memory representation:
//
//	offset  0: 4  magic "EVRD"
//	offset  4: 1  version
//	offset  5: 1  backend kind
//	offset  6: 2  reserved, zero
//	offset  8: 16 run UUID
//	offset 24: 8  run number, big endian
//	offset 32: 32 dataset name, NUL padded
const DescriptorSize = 64

const descriptorVersion = 1

var descriptorMagic = [4]byte{'E', 'V', 'R', 'D'}

// RunDescriptor is the fixed-size token identifying a run. Memory-comparable;
// identical descriptors resolve the identical logical run.
type RunDescriptor [DescriptorSize]byte

// BackendKind tags which backend family minted a descriptor.
type BackendKind byte

const (
	BackendMemory        BackendKind = 1
	BackendPostgres      BackendKind = 2
	BackendElasticsearch BackendKind = 3
)

// RunInfo is the decoded content of a descriptor.
type RunInfo struct {
	Backend BackendKind
	RunID   uuid.UUID
	Number  uint64
	DataSet string
}

// Encode packs the run info into its wire form.
func (ri RunInfo) Encode() (RunDescriptor, error) {
	var d RunDescriptor
	if len(ri.DataSet) > 32 {
		return d, fmt.Errorf("dataset name %q exceeds 32 bytes", ri.DataSet)
	}
	copy(d[0:4], descriptorMagic[:])
	d[4] = descriptorVersion
	d[5] = byte(ri.Backend)
	copy(d[8:24], ri.RunID[:])
	binary.BigEndian.PutUint64(d[24:32], ri.Number)
	copy(d[32:64], ri.DataSet)
	return d, nil
}

// DecodeDescriptor unpacks a descriptor, rejecting unknown magic or version.
func DecodeDescriptor(d RunDescriptor) (RunInfo, error) {
	if [4]byte(d[0:4]) != descriptorMagic {
		return RunInfo{}, fmt.Errorf("invalid run descriptor magic %q", d[0:4])
	}
	if d[4] != descriptorVersion {
		return RunInfo{}, fmt.Errorf("unsupported run descriptor version %d", d[4])
	}
	name := d[32:64]
	end := 0
	for end < len(name) && name[end] != 0 {
		end++
	}
	return RunInfo{
		Backend: BackendKind(d[5]),
		RunID:   uuid.UUID(d[8:24]),
		Number:  binary.BigEndian.Uint64(d[24:32]),
		DataSet: string(name[:end]),
	}, nil
}
