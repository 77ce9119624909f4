// Package haarcascade provides a face detector service on top of an OpenCV
// Haar cascade classifier.
//
// The implementation requires the "with_cv" build tag (and OpenCV installed).
package haarcascade
