package posewatch

/*
#include "rknn_api.h"
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"strings"
	"unsafe"
)

// TensorFormat wraps C.rknn_tensor_format
type TensorFormat int

const (
	TensorNCHW      TensorFormat = C.RKNN_TENSOR_NCHW
	TensorNHWC      TensorFormat = C.RKNN_TENSOR_NHWC
	TensorNC1HWC2   TensorFormat = C.RKNN_TENSOR_NC1HWC2
	TensorUndefined TensorFormat = C.RKNN_TENSOR_UNDEFINED
)

// TensorType wraps C.rknn_tensor_type
type TensorType int

const (
	TensorFloat32 TensorType = C.RKNN_TENSOR_FLOAT32
	TensorFloat16 TensorType = C.RKNN_TENSOR_FLOAT16
	TensorInt8    TensorType = C.RKNN_TENSOR_INT8
	TensorUint8   TensorType = C.RKNN_TENSOR_UINT8
	TensorInt16   TensorType = C.RKNN_TENSOR_INT16
	TensorUint16  TensorType = C.RKNN_TENSOR_UINT16
	TensorInt32   TensorType = C.RKNN_TENSOR_INT32
	TensorUint32  TensorType = C.RKNN_TENSOR_UINT32
	TensorInt64   TensorType = C.RKNN_TENSOR_INT64
	TensorBool    TensorType = C.RKNN_TENSOR_BOOL
	TensorInt4    TensorType = C.RKNN_TENSOR_INT4
)

// TensorQntType wraps C.rknn_tensor_qnt_type
type TensorQntType int

const (
	TensorQntNone   TensorQntType = C.RKNN_TENSOR_QNT_NONE
	TensorQntDFP    TensorQntType = C.RKNN_TENSOR_QNT_DFP
	TensorQntAffine TensorQntType = C.RKNN_TENSOR_QNT_AFFINE_ASYMMETRIC
)

const (
	maxDims    = C.RKNN_MAX_DIMS
	maxNameLen = C.RKNN_MAX_NAME_LEN
)

// TensorAttr holds the parts of C.rknn_tensor_attr the pose and activity
// models are checked and decoded with
type TensorAttr struct {
	Index   uint32
	NDims   uint32
	Dims    [maxDims]uint32
	Name    string
	NElems  uint32
	Size    uint32
	Fmt     TensorFormat
	Type    TensorType
	QntType TensorQntType
	ZP      int32
	Scale   float32
}

func tensorAttrFromC(cAttr *C.rknn_tensor_attr) TensorAttr {

	name := C.GoStringN(&cAttr.name[0], C.int(maxNameLen))

	if i := strings.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}

	return TensorAttr{
		Index:   uint32(cAttr.index),
		NDims:   uint32(cAttr.n_dims),
		Dims:    *(*[maxDims]uint32)(unsafe.Pointer(&cAttr.dims)),
		Name:    name,
		NElems:  uint32(cAttr.n_elems),
		Size:    uint32(cAttr.size),
		Fmt:     TensorFormat(cAttr.fmt),
		Type:    TensorType(cAttr._type),
		QntType: TensorQntType(cAttr.qnt_type),
		ZP:      int32(cAttr.zp),
		Scale:   float32(cAttr.scale),
	}
}

// queryTensors reads the attributes of the n input or output tensors named
// by cmd
func (r *Runtime) queryTensors(cmd C.rknn_query_cmd, n uint32) ([]TensorAttr, error) {

	attrs := make([]TensorAttr, n)

	for i := uint32(0); i < n; i++ {
		var cAttr C.rknn_tensor_attr
		cAttr.index = C.uint32_t(i)

		ret := C.rknn_query(r.ctx, cmd, unsafe.Pointer(&cAttr), C.uint(unsafe.Sizeof(cAttr)))

		if ret != C.RKNN_SUCC {
			return nil, callError(fmt.Sprintf("rknn_query tensor %d attributes", i), ret)
		}

		attrs[i] = tensorAttrFromC(&cAttr)
	}

	return attrs, nil
}

// Shape returns the used dimensions of the tensor
func (a TensorAttr) Shape() []uint32 {

	n := int(a.NDims)

	if n > len(a.Dims) {
		n = len(a.Dims)
	}

	return append([]uint32(nil), a.Dims[:n]...)
}

// Elements returns the number of values the tensor holds, zero when it has
// no dimensions
func (a TensorAttr) Elements() int {

	shape := a.Shape()

	if len(shape) == 0 {
		return 0
	}

	n := 1

	for _, d := range shape {
		n *= int(d)
	}

	return n
}

// Squeeze returns the shape with leading dimensions of one removed while
// more than keep dimensions remain
func (a TensorAttr) Squeeze(keep int) []uint32 {

	shape := a.Shape()

	for len(shape) > keep && shape[0] == 1 {
		shape = shape[1:]
	}

	return shape
}

// String returns the attributes on one line for Query
func (a TensorAttr) String() string {
	return fmt.Sprintf("#%d %q %v %s %s/%s zp=%d scale=%g (%d values, %d bytes)",
		a.Index, a.Name, a.Shape(), a.Fmt, a.Type, a.QntType, a.ZP, a.Scale,
		a.NElems, a.Size)
}

var (
	tensorTypeNames = map[TensorType]string{
		TensorFloat32: "FP32",
		TensorFloat16: "FP16",
		TensorInt8:    "INT8",
		TensorUint8:   "UINT8",
		TensorInt16:   "INT16",
		TensorUint16:  "UINT16",
		TensorInt32:   "INT32",
		TensorUint32:  "UINT32",
		TensorInt64:   "INT64",
		TensorBool:    "BOOL",
		TensorInt4:    "INT4",
	}

	tensorQntNames = map[TensorQntType]string{
		TensorQntNone:   "NONE",
		TensorQntDFP:    "DFP",
		TensorQntAffine: "AFFINE",
	}

	tensorFormatNames = map[TensorFormat]string{
		TensorNCHW:      "NCHW",
		TensorNHWC:      "NHWC",
		TensorNC1HWC2:   "NC1HWC2",
		TensorUndefined: "UNDEFINED",
	}
)

func enumName[T ~int](names map[T]string, v T) string {

	if s, ok := names[v]; ok {
		return s
	}

	return fmt.Sprintf("UNKNOWN(%d)", int(v))
}

func (t TensorType) String() string    { return enumName(tensorTypeNames, t) }
func (t TensorQntType) String() string { return enumName(tensorQntNames, t) }
func (t TensorFormat) String() string  { return enumName(tensorFormatNames, t) }
