package roft

import (
	"math"

	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// BatchPlan protobuf field numbers:
//
//	message BatchPlan {
//	    repeated double positions          = 1 [packed = true]; // x, y, z per vertex
//	    repeated int32  ids1               = 2 [packed = true];
//	    repeated int32  ids2               = 3 [packed = true];
//	    repeated int32  color_batch_counts = 4 [packed = true];
//	    repeated int32  batch_sizes        = 5 [packed = true];
//	}
const (
	fieldPositions        = 1
	fieldIds1             = 2
	fieldIds2             = 3
	fieldColorBatchCounts = 4
	fieldBatchSizes       = 5

	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
	wireFixed32 = 5
)

// Marshal encodes this plan using the protobuf wire format.
func (plan *BatchPlan) Marshal() ([]byte, error) {
	buf := proto.NewBuffer(make([]byte, 0, 16+24*len(plan.Positions)+10*len(plan.Ids1)))
	packed := proto.NewBuffer(nil)

	if len(plan.Positions) > 0 {
		for _, p := range plan.Positions {
			packed.EncodeFixed64(math.Float64bits(p.X))
			packed.EncodeFixed64(math.Float64bits(p.Y))
			packed.EncodeFixed64(math.Float64bits(p.Z))
		}
		if err := writePacked(buf, fieldPositions, packed); err != nil {
			return nil, err
		}
	}

	for _, field := range [...]struct {
		num  uint64
		vals []int32
	}{
		{fieldIds1, plan.Ids1},
		{fieldIds2, plan.Ids2},
		{fieldColorBatchCounts, plan.ColorBatchCounts},
		{fieldBatchSizes, plan.BatchSizes},
	} {
		if len(field.vals) == 0 {
			continue
		}
		for _, v := range field.vals {
			packed.EncodeVarint(uint64(int64(v)))
		}
		if err := writePacked(buf, field.num, packed); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func writePacked(buf *proto.Buffer, fieldNum uint64, packed *proto.Buffer) error {
	if err := buf.EncodeVarint(fieldNum<<3 | wireBytes); err != nil {
		return err
	}
	err := buf.EncodeRawBytes(packed.Bytes())
	packed.Reset()
	return err
}

// Unmarshal decodes a plan previously encoded with Marshal(), replacing the contents of this plan.
func (plan *BatchPlan) Unmarshal(src []byte) error {
	*plan = BatchPlan{}

	for pos := 0; pos < len(src); {
		key, n := proto.DecodeVarint(src[pos:])
		if n == 0 {
			return errors.Wrap(ErrBadEncoding, "truncated field key")
		}
		pos += n
		fieldNum, wireType := key>>3, key&7

		switch wireType {
		case wireVarint:
			if _, n = proto.DecodeVarint(src[pos:]); n == 0 {
				return errors.Wrap(ErrBadEncoding, "truncated varint")
			}
			pos += n
			continue
		case wireFixed64, wireFixed32:
			width := 8
			if wireType == wireFixed32 {
				width = 4
			}
			if pos+width > len(src) {
				return errors.Wrap(ErrBadEncoding, "truncated fixed-width field")
			}
			pos += width
			continue
		case wireBytes:
		default:
			return errors.Wrapf(ErrBadEncoding, "unsupported wire type %d", wireType)
		}

		size, n := proto.DecodeVarint(src[pos:])
		if n == 0 || size > uint64(len(src)-pos-n) {
			return errors.Wrapf(ErrBadEncoding, "truncated field %d", fieldNum)
		}
		pos += n
		payload := src[pos : pos+int(size)]
		pos += int(size)

		var err error
		switch fieldNum {
		case fieldPositions:
			plan.Positions, err = decodeVecs(plan.Positions, payload)
		case fieldIds1:
			plan.Ids1, err = decodeInt32s(plan.Ids1, payload)
		case fieldIds2:
			plan.Ids2, err = decodeInt32s(plan.Ids2, payload)
		case fieldColorBatchCounts:
			plan.ColorBatchCounts, err = decodeInt32s(plan.ColorBatchCounts, payload)
		case fieldBatchSizes:
			plan.BatchSizes, err = decodeInt32s(plan.BatchSizes, payload)
		}
		if err != nil {
			return err
		}
	}

	if len(plan.Ids1) != len(plan.Ids2) {
		return errors.Wrap(ErrBadEncoding, "endpoint arrays differ in length")
	}
	return nil
}

func decodeVecs(dst []r3.Vec, payload []byte) ([]r3.Vec, error) {
	if len(payload)%24 != 0 {
		return nil, errors.Wrap(ErrBadEncoding, "positions not a multiple of 3 doubles")
	}
	pb := proto.NewBuffer(payload)
	var xyz [3]float64
	for i := 0; i < len(payload); i += 24 {
		for k := range xyz {
			bits, err := pb.DecodeFixed64()
			if err != nil {
				return nil, errors.Wrap(ErrBadEncoding, "truncated position")
			}
			xyz[k] = math.Float64frombits(bits)
		}
		dst = append(dst, r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	return dst, nil
}

func decodeInt32s(dst []int32, payload []byte) ([]int32, error) {
	for pos := 0; pos < len(payload); {
		v, n := proto.DecodeVarint(payload[pos:])
		if n == 0 {
			return nil, errors.Wrap(ErrBadEncoding, "truncated packed int32")
		}
		dst = append(dst, int32(v))
		pos += n
	}
	return dst, nil
}
