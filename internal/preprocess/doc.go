// Package preprocess holds the OpenCV stages that turn a raw fragment photo
// into a clean paper mask and an edge image: smoothing, binarization, the
// largest-region filter and the Canny edge pass.
//
// Every stage takes a BGR gocv.Mat and returns a new Mat owned by the
// caller. Inputs are never modified.
package preprocess
