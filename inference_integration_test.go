//go:build integration
// +build integration

package posewatch

import (
	"image"
	"os"
	"testing"

	"gocv.io/x/gocv"
)

// TestPoseModelOutputs checks a YOLOv8-pose model given in RKNN_MODEL runs on
// the image given in RKNN_IMAGE and produces the mixed int8 and fp16 outputs
// the pose decoder expects
func TestPoseModelOutputs(t *testing.T) {

	modelFile := os.Getenv("RKNN_MODEL")

	if modelFile == "" {
		t.Fatalf("No Model file provided in RKNN_MODEL")
	}

	imgFile := os.Getenv("RKNN_IMAGE")

	if imgFile == "" {
		t.Fatalf("No Image file provided in RKNN_IMAGE")
	}

	rt, err := NewRuntime(modelFile, NPUCoreAuto)

	if err != nil {
		t.Fatalf("NewRuntime failed: %v", err)
	}

	defer rt.Close()

	rt.SetWantFloat(false)

	img := gocv.IMRead(imgFile, gocv.IMReadColor)

	if img.Empty() {
		t.Fatalf("Error reading image from: %s", imgFile)
	}

	defer img.Close()

	attr := rt.InputAttributes()

	rgbImg := gocv.NewMat()
	defer rgbImg.Close()

	gocv.CvtColor(img, &rgbImg, gocv.ColorBGRToRGB)
	gocv.Resize(rgbImg, &rgbImg, image.Pt(int(attr.Width), int(attr.Height)), 0, 0, gocv.InterpolationLinear)

	outputs, err := rt.Inference([]gocv.Mat{rgbImg})

	if err != nil {
		t.Fatalf("Inference error: %v", err)
	}

	defer func() {
		if err := outputs.Free(); err != nil {
			t.Errorf("Free Outputs: %v", err)
		}
	}()

	if len(outputs.Output) != 4 {
		t.Fatalf("expected 4 output tensors, got %d", len(outputs.Output))
	}

	// keypoint tensor is the last output and is fp16
	if len(outputs.Output[3].BufFloat) == 0 {
		t.Errorf("expected keypoint output converted to float32")
	}

	for i := 0; i < 3; i++ {
		if len(outputs.Output[i].BufInt) == 0 {
			t.Errorf("expected int8 box output %d", i)
		}
	}

	// second free is a no-op
	if err := outputs.Free(); err != nil {
		t.Errorf("double free: %v", err)
	}
}
