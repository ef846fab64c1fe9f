package posewatch

/*
#include "rknn_api.h"
#include <stdlib.h>
#include <string.h>
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"

	"gocv.io/x/gocv"
)

// Input represents the C.rknn_input struct
type Input struct {
	// Index is the input tensor index
	Index uint32
	// Buf points to the input data, it must be C memory or memory that
	// contains no Go pointers
	Buf unsafe.Pointer
	// Size is the number of bytes of Buf
	Size uint32
	// PassThrough sends Buf to the model input unmodified, when false the
	// runtime converts it according to Type and Fmt
	PassThrough bool
	// Type is the data type of Buf
	Type TensorType
	// Fmt is the data layout of Buf
	Fmt TensorFormat
}

// Inference runs the model on the given image inputs, one Mat per model input
func (r *Runtime) Inference(mats []gocv.Mat) (*Outputs, error) {

	inputs := make([]Input, len(mats))

	for idx, mat := range mats {

		if !mat.IsContinuous() {
			mat = mat.Clone()
			defer mat.Close()
		}

		in := Input{
			Index: uint32(idx),
			Fmt:   TensorNHWC,
		}

		if r.inputTypeFloat32 {
			data, err := mat.DataPtrFloat32()

			if err != nil {
				return &Outputs{}, fmt.Errorf("error getting data pointer to Mat: %w", err)
			}

			in.Type = TensorFloat32
			in.Size = uint32(len(data) * 4)
			in.Buf = unsafe.Pointer(&data[0])

		} else {
			data, err := mat.DataPtrUint8()

			if err != nil {
				return &Outputs{}, fmt.Errorf("error getting data pointer to Mat: %w", err)
			}

			in.Type = TensorUint8
			in.Size = uint32(len(data))
			in.Buf = unsafe.Pointer(&data[0])
		}

		inputs[idx] = in
	}

	return r.run(inputs)
}

// InferenceFloat32 runs the model on raw float32 tensors, one slice per model
// input.  It is used for non image models such as the activity sequence
// classifier.  The data is copied into C memory for the duration of the call.
func (r *Runtime) InferenceFloat32(tensors [][]float32) (*Outputs, error) {

	if len(tensors) != int(r.ioNum.NumberInput) {
		return &Outputs{}, fmt.Errorf("model expects %d inputs, got %d",
			r.ioNum.NumberInput, len(tensors))
	}

	inputs := make([]Input, len(tensors))

	for idx, data := range tensors {

		if len(data) == 0 {
			return &Outputs{}, fmt.Errorf("input %d is empty", idx)
		}

		size := len(data) * 4
		buf := C.malloc(C.size_t(size))

		if buf == nil {
			return &Outputs{}, fmt.Errorf("error allocating %d bytes for input %d", size, idx)
		}

		defer C.free(buf)

		C.memcpy(buf, unsafe.Pointer(&data[0]), C.size_t(size))

		inputs[idx] = Input{
			Index: uint32(idx),
			Type:  TensorFloat32,
			Size:  uint32(size),
			Fmt:   r.inputAttrs[idx].Fmt,
			Buf:   buf,
		}
	}

	return r.run(inputs)
}

// run sets the inputs, runs the model and fetches the outputs
func (r *Runtime) run(inputs []Input) (*Outputs, error) {

	err := r.SetInputs(inputs)

	if err != nil {
		return &Outputs{}, fmt.Errorf("error setting inputs: %w", err)
	}

	err = r.RunModel()

	if err != nil {
		return &Outputs{}, fmt.Errorf("error running model: %w", err)
	}

	return r.GetOutputs(r.ioNum.NumberOutput, r.wantFloat)
}

// SetInputs wraps C.rknn_inputs_set
func (r *Runtime) SetInputs(inputs []Input) error {

	if len(inputs) == 0 {
		return fmt.Errorf("no inputs given")
	}

	cInputs := make([]C.rknn_input, len(inputs))

	for i, input := range inputs {
		cInputs[i].index = C.uint32_t(input.Index)
		cInputs[i].buf = input.Buf
		cInputs[i].size = C.uint32_t(input.Size)
		cInputs[i].pass_through = C.uint8_t(0)

		if input.PassThrough {
			cInputs[i].pass_through = C.uint8_t(1)
		}

		cInputs[i]._type = C.rknn_tensor_type(input.Type)
		cInputs[i].fmt = C.rknn_tensor_format(input.Fmt)
	}

	ret := C.rknn_inputs_set(r.ctx, C.uint32_t(len(inputs)), &cInputs[0])

	if ret != 0 {
		return callError("rknn_inputs_set", ret)
	}

	return nil
}

// RunModel wraps C.rknn_run
func (r *Runtime) RunModel() error {

	ret := C.rknn_run(r.ctx, nil)

	if ret < 0 {
		return callError("rknn_run", ret)
	}

	return nil
}

// Output wraps C.rknn_output
type Output struct {
	WantFloat  uint8  // output dequantized to float by the NPU
	IsPrealloc uint8  // whether buf is pre-allocated
	Index      uint32 // the output index
	// BufFloat holds float32 output data.  When dequantized by the NPU this
	// slice points to C memory and is only valid until Outputs.Free()
	BufFloat []float32
	// BufInt holds int8 quantized output data pointing to C memory
	BufInt []int8
	Size   uint32 // the size of output buf in bytes
}

// Outputs holds the results of one inference along with the C memory
// backing them
type Outputs struct {
	Output   []Output
	cOutputs []C.rknn_output
	// freed flags the C outputs as already released
	freed bool
	sync.Mutex
	rt *Runtime
}

// GetOutputs wraps C.rknn_outputs_get
func (r *Runtime) GetOutputs(nOutputs uint32, wantFloat bool) (*Outputs, error) {

	outputs := &Outputs{
		Output:   make([]Output, nOutputs),
		cOutputs: make([]C.rknn_output, nOutputs),
		rt:       r,
	}

	useWantFloat := C.uint8_t(0)

	if wantFloat {
		useWantFloat = 1
	}

	for idx := range outputs.cOutputs {
		outputs.cOutputs[idx].index = C.uint32_t(idx)
		outputs.cOutputs[idx].want_float = useWantFloat
	}

	ret := C.rknn_outputs_get(r.ctx, C.uint32_t(nOutputs),
		(*C.rknn_output)(unsafe.Pointer(&outputs.cOutputs[0])), nil)

	if ret < 0 {
		return &Outputs{}, callError("rknn_outputs_get", ret)
	}

	for i, cOutput := range outputs.cOutputs {
		out := Output{
			WantFloat:  uint8(cOutput.want_float),
			IsPrealloc: uint8(cOutput.is_prealloc),
			Index:      uint32(cOutput.index),
			Size:       uint32(cOutput.size),
		}

		switch {
		case out.WantFloat == 1:
			out.BufFloat = unsafe.Slice((*float32)(cOutput.buf), cOutput.size/4)

		case r.outputAttrs[i].Type == TensorFloat16:
			// pose models mix int8 and fp16 output tensors
			out.BufFloat = float16ToFloat32(
				unsafe.Slice((*uint16)(cOutput.buf), cOutput.size/2))

		default:
			out.BufInt = unsafe.Slice((*int8)(cOutput.buf), cOutput.size)
		}

		outputs.Output[i] = out
	}

	return outputs, nil
}

// Free releases the C memory holding the inference outputs, it is safe to
// call more than once
func (o *Outputs) Free() error {
	o.Lock()
	defer o.Unlock()

	if o.freed || o.rt == nil {
		return nil
	}

	o.freed = true
	return o.rt.releaseOutputs(o.cOutputs)
}

// InputAttribute holds the image dimensions of the model input tensor
type InputAttribute struct {
	Width   uint32
	Height  uint32
	Channel uint32
}

// InputAttributes returns the image dimensions of the first model input
func (r *Runtime) InputAttributes() InputAttribute {

	attr := r.inputAttrs[0]

	// NCHW by default
	ia := InputAttribute{
		Channel: attr.Dims[1],
		Height:  attr.Dims[2],
		Width:   attr.Dims[3],
	}

	if attr.Fmt == TensorNHWC {
		ia = InputAttribute{
			Height:  attr.Dims[1],
			Width:   attr.Dims[2],
			Channel: attr.Dims[3],
		}
	}

	return ia
}

// InputAttributes returns the image dimensions of the first model input
func (o *Outputs) InputAttributes() InputAttribute {
	return o.rt.InputAttributes()
}

// OutputAttribute holds the quantization and grid sizes of the output
// tensors
type OutputAttribute struct {
	DimForDFL  uint32
	Scales     []float32
	ZPs        []int32
	DimHeights []uint32
	DimWidths  []uint32
	IONumber   uint32
}

// OutputAttributes returns the model output scales, zero points and grid
// dimensions
func (o *Outputs) OutputAttributes() OutputAttribute {

	n := int(o.rt.ioNum.NumberOutput)

	data := OutputAttribute{
		DimForDFL:  o.rt.outputAttrs[0].Dims[1],
		Scales:     make([]float32, n),
		ZPs:        make([]int32, n),
		DimHeights: make([]uint32, n),
		DimWidths:  make([]uint32, n),
		IONumber:   uint32(n),
	}

	for i, attr := range o.rt.outputAttrs[:n] {
		data.Scales[i] = attr.Scale
		data.ZPs[i] = attr.ZP
		data.DimHeights[i] = attr.Dims[2]
		data.DimWidths[i] = attr.Dims[3]
	}

	return data
}

// releaseOutputs wraps C.rknn_outputs_release
func (r *Runtime) releaseOutputs(cOutputs []C.rknn_output) error {

	if len(cOutputs) == 0 {
		return nil
	}

	ret := C.rknn_outputs_release(r.ctx, C.uint32_t(len(cOutputs)),
		(*C.rknn_output)(unsafe.Pointer(&cOutputs[0])))

	if ret != 0 {
		return callError("rknn_outputs_release", ret)
	}

	return nil
}
