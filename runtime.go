package posewatch

/*
#include "rknn_api.h"
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"os"
	"strings"
	"unsafe"
)

// CoreMask wraps C.rknn_core_mask and selects which NPU cores a model runs on
type CoreMask int

// NPU core masks.  Auto lets the driver pick an idle core, the others pin the
// model to a specific core or combination of cores.  NPUSkipSetCore is used on
// platforms that do not support rknn_set_core_mask such as the RK3566.
const (
	NPUCoreAuto    CoreMask = C.RKNN_NPU_CORE_AUTO
	NPUCore0       CoreMask = C.RKNN_NPU_CORE_0
	NPUCore1       CoreMask = C.RKNN_NPU_CORE_1
	NPUCore2       CoreMask = C.RKNN_NPU_CORE_2
	NPUCore01      CoreMask = C.RKNN_NPU_CORE_0_1
	NPUCore012     CoreMask = C.RKNN_NPU_CORE_0_1_2
	NPUSkipSetCore CoreMask = 9999
)

var (
	// NPU cores available per Rockchip SoC, used by NewPoolByPlatform to pin
	// each pooled runtime to its own core
	RK3588 = []CoreMask{NPUCore0, NPUCore1, NPUCore2}
	RK3582 = []CoreMask{NPUCore0, NPUCore1, NPUCore2}
	RK3576 = []CoreMask{NPUCore0, NPUCore1}
	RK3568 = []CoreMask{NPUSkipSetCore}
	RK3566 = []CoreMask{NPUSkipSetCore}
	RK3562 = []CoreMask{NPUSkipSetCore}
)

// platformCores maps platform names as given on the command line or in the
// config file to their NPU core list
var platformCores = map[string][]CoreMask{
	"rk3562": RK3562,
	"rk3566": RK3566,
	"rk3568": RK3568,
	"rk3576": RK3576,
	"rk3582": RK3582,
	"rk3588": RK3588,
}

// PlatformCores returns the NPU cores of the named platform
func PlatformCores(platform string) ([]CoreMask, error) {

	cores, ok := platformCores[strings.ToLower(strings.TrimSpace(platform))]

	if !ok {
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}

	return cores, nil
}

// ErrorCodes are the return codes of the C API
type ErrorCodes int

const (
	Success                ErrorCodes = C.RKNN_SUCC
	ErrFail                ErrorCodes = C.RKNN_ERR_FAIL
	ErrTimeout             ErrorCodes = C.RKNN_ERR_TIMEOUT
	ErrDeviceUnavailable   ErrorCodes = C.RKNN_ERR_DEVICE_UNAVAILABLE
	ErrMallocFail          ErrorCodes = C.RKNN_ERR_MALLOC_FAIL
	ErrParamInvalid        ErrorCodes = C.RKNN_ERR_PARAM_INVALID
	ErrModelInvalid        ErrorCodes = C.RKNN_ERR_MODEL_INVALID
	ErrCtxInvalid          ErrorCodes = C.RKNN_ERR_CTX_INVALID
	ErrInputInvalid        ErrorCodes = C.RKNN_ERR_INPUT_INVALID
	ErrOutputInvalid       ErrorCodes = C.RKNN_ERR_OUTPUT_INVALID
	ErrDeviceMismatch      ErrorCodes = C.RKNN_ERR_DEVICE_UNMATCH
	ErrPreCompiledModel    ErrorCodes = C.RKNN_ERR_INCOMPATILE_PRE_COMPILE_MODEL
	ErrOptimizationVersion ErrorCodes = C.RKNN_ERR_INCOMPATILE_OPTIMIZATION_LEVEL_VERSION
	ErrPlatformMismatch    ErrorCodes = C.RKNN_ERR_TARGET_PLATFORM_UNMATCH
)

// errorText holds the readable description of each return code
var errorText = map[ErrorCodes]string{
	Success:                "execution successful",
	ErrFail:                "execution failed",
	ErrTimeout:             "execution timed out",
	ErrDeviceUnavailable:   "device is unavailable",
	ErrMallocFail:          "C memory allocation failed",
	ErrParamInvalid:        "parameter is invalid",
	ErrModelInvalid:        "model file is invalid",
	ErrCtxInvalid:          "context is invalid",
	ErrInputInvalid:        "input is invalid",
	ErrOutputInvalid:       "output is invalid",
	ErrDeviceMismatch:      "device mismatch, please update rknn sdk and npu driver/firmware",
	ErrPreCompiledModel:    "the RKNN model uses pre_compile mode, but is not compatible with current driver",
	ErrOptimizationVersion: "the RKNN model optimization level is not compatible with current driver",
	ErrPlatformMismatch:    "the RKNN model target platform is not compatible with the current platform",
}

// String returns a readable description of the error code
func (e ErrorCodes) String() string {

	if txt, ok := errorText[e]; ok {
		return txt
	}

	return fmt.Sprintf("unknown error code %d", e)
}

// callError formats a failed C call return code
func callError(call string, ret C.int) error {
	return fmt.Errorf("C.%s failed with code %d, error: %s",
		call, int(ret), ErrorCodes(ret).String())
}

// Runtime is one loaded RKNN model on the NPU.  A Runtime is not safe for
// concurrent inference, use a Pool to share a model across goroutines.
type Runtime struct {
	// ctx is the C runtime context
	ctx C.rknn_context
	// modelFile the runtime was loaded from
	modelFile string
	// ioNum caches the number of model input and output tensors
	ioNum IONumber
	// inputAttrs caches the input tensor attributes of the model
	inputAttrs []TensorAttr
	// outputAttrs caches the output tensor attributes of the model
	outputAttrs []TensorAttr
	// wantFloat has the NPU dequantize outputs to float32, when false int8
	// outputs are returned as is and fp16 outputs are converted in Go
	wantFloat bool
	// inputTypeFloat32 passes image Mat data to the NPU as float32 rather
	// than uint8
	inputTypeFloat32 bool
}

// NewRuntime loads the RKNN compiled model file onto the NPU cores given
func NewRuntime(modelFile string, core CoreMask) (*Runtime, error) {

	r := &Runtime{
		modelFile: modelFile,
		wantFloat: true,
	}

	err := r.init(modelFile)

	if err != nil {
		return nil, err
	}

	// core masks are only supported on multi core NPUs
	if core != NPUSkipSetCore {
		err = r.setCoreMask(core)

		if err != nil {
			r.Close()
			return nil, err
		}
	}

	err = r.cacheAttrs()

	if err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

// NewRuntimeByPlatform loads the model on the first NPU core of the named
// platform, eg: rk3588
func NewRuntimeByPlatform(platform string, modelFile string) (*Runtime, error) {

	cores, err := PlatformCores(platform)

	if err != nil {
		return nil, err
	}

	return NewRuntime(modelFile, cores[0])
}

// cacheAttrs queries and stores the model IO number and tensor attributes
func (r *Runtime) cacheAttrs() error {

	var err error

	r.ioNum, err = r.QueryModelIONumber()

	if err != nil {
		return err
	}

	r.inputAttrs, err = r.queryTensors(C.RKNN_QUERY_INPUT_ATTR, r.ioNum.NumberInput)

	if err != nil {
		return err
	}

	r.outputAttrs, err = r.queryTensors(C.RKNN_QUERY_OUTPUT_ATTR, r.ioNum.NumberOutput)

	return err
}

// init wraps C.rknn_init loading the model file into a new context
func (r *Runtime) init(modelFile string) error {

	// check file exists in Go, before passing to C
	info, err := os.Stat(modelFile)

	if err != nil {
		return fmt.Errorf("model file does not exist at %s, error: %w",
			modelFile, err)
	}

	if info.IsDir() {
		return fmt.Errorf("model file %s is a directory", modelFile)
	}

	cModelFile := C.CString(modelFile)
	defer C.free(unsafe.Pointer(cModelFile))

	ret := C.rknn_init(&r.ctx, unsafe.Pointer(cModelFile), 0, 0, nil)

	if ret != C.RKNN_SUCC {
		return callError("rknn_init", ret)
	}

	return nil
}

// setCoreMask wraps C.rknn_set_core_mask
func (r *Runtime) setCoreMask(mask CoreMask) error {

	ret := C.rknn_set_core_mask(r.ctx, C.rknn_core_mask(mask))

	if ret != C.RKNN_SUCC {
		return callError("rknn_set_core_mask", ret)
	}

	return nil
}

// Close wraps C.rknn_destroy which unloads the model and releases all C
// resources held by the context
func (r *Runtime) Close() error {

	ret := C.rknn_destroy(r.ctx)

	if ret != C.RKNN_SUCC {
		return callError("rknn_destroy", ret)
	}

	return nil
}

// ModelFile returns the path the model was loaded from
func (r *Runtime) ModelFile() string {
	return r.modelFile
}

// SetWantFloat sets if outputs are dequantized to float32 by the NPU
func (r *Runtime) SetWantFloat(val bool) {
	r.wantFloat = val
}

// SetInputTypeFloat32 sets if image inputs are passed to the NPU as float32
// instead of uint8
func (r *Runtime) SetInputTypeFloat32(val bool) {
	r.inputTypeFloat32 = val
}

// GetInputTypeFloat32 returns true if image inputs are passed as float32
func (r *Runtime) GetInputTypeFloat32() bool {
	return r.inputTypeFloat32
}

// SDKVersion represents the C.rknn_sdk_version struct
type SDKVersion struct {
	DriverVersion string
	APIVersion    string
}

// SDKVersion returns the RKNN API and driver versions
func (r *Runtime) SDKVersion() (SDKVersion, error) {

	var cSdkVer C.rknn_sdk_version

	ret := C.rknn_query(
		r.ctx,
		C.RKNN_QUERY_SDK_VERSION,
		unsafe.Pointer(&cSdkVer),
		C.uint(C.sizeof_rknn_sdk_version),
	)

	if ret != C.RKNN_SUCC {
		return SDKVersion{}, callError("rknn_query RKNN_QUERY_SDK_VERSION", ret)
	}

	return SDKVersion{
		DriverVersion: C.GoString(&(cSdkVer.drv_version[0])),
		APIVersion:    C.GoString(&(cSdkVer.api_version[0])),
	}, nil
}

// InputAttrs returns the loaded model's input tensor attributes
func (r *Runtime) InputAttrs() []TensorAttr {
	return r.inputAttrs
}

// OutputAttrs returns the loaded model's output tensor attributes
func (r *Runtime) OutputAttrs() []TensorAttr {
	return r.outputAttrs
}
