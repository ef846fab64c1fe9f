/*
Package posewatch watches a video feed for people and classifies what they are
doing as Falling, Sitting or Standing.

The root package provides the bindings to the RKNN Toolkit2 C API used to run
both the pose estimation model and the activity sequence classifier on the
Rockchip NPU.  The capture loop, landmark feature extraction, windowing and
classification live in the sub packages, the posewatch command in cmd/posewatch
wires them together.

Tested on the RK3588, other RK35xx SoC's supported by the RKNN Toolkit2 work
by passing their platform name.
*/
package posewatch
