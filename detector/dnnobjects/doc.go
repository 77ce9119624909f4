// Package dnnobjects provides an object detector service on top of an
// OpenCV DNN (an SSD-style network, such as MobileNet-SSD).
//
// The implementation requires the "with_cv" build tag (and OpenCV installed).
package dnnobjects
