package posewatch

/*
#include "rknn_api.h"
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"io"
	"unsafe"
)

// IONumber represents the C.rknn_input_output_num struct
type IONumber struct {
	NumberInput  uint32
	NumberOutput uint32
}

// QueryModelIONumber queries the number of input and output tensors of the
// model
func (r *Runtime) QueryModelIONumber() (IONumber, error) {

	var cIONum C.rknn_input_output_num

	ret := C.rknn_query(r.ctx, C.RKNN_QUERY_IN_OUT_NUM, unsafe.Pointer(&cIONum),
		C.uint(C.sizeof_rknn_input_output_num))

	if ret != C.RKNN_SUCC {
		return IONumber{}, callError("rknn_query RKNN_QUERY_IN_OUT_NUM", ret)
	}

	return IONumber{
		NumberInput:  uint32(cIONum.n_input),
		NumberOutput: uint32(cIONum.n_output),
	}, nil
}

// Query writes the SDK version and the model tensor information in human
// readable form
func (r *Runtime) Query(w io.Writer) error {

	ver, err := r.SDKVersion()

	if err != nil {
		return fmt.Errorf("error querying SDK version: %w", err)
	}

	fmt.Fprintf(w, "Model: %s\n", r.modelFile)
	fmt.Fprintf(w, "Driver Version: %s, API Version: %s\n", ver.DriverVersion, ver.APIVersion)
	fmt.Fprintf(w, "Model Input Number: %d, Output Number: %d\n",
		r.ioNum.NumberInput, r.ioNum.NumberOutput)

	fmt.Fprintf(w, "Input tensors:\n")

	for _, attr := range r.inputAttrs {
		fmt.Fprintf(w, "  %s\n", attr.String())
	}

	fmt.Fprintf(w, "Output tensors:\n")

	for _, attr := range r.outputAttrs {
		fmt.Fprintf(w, "  %s\n", attr.String())
	}

	return nil
}
