package dnnobjects

import (
	"fmt"
)

// COCOLabels are the class names of the COCO-trained SSD models, indexed by
// class ID.
var COCOLabels = map[int]string{
	1:  "person",
	2:  "bicycle",
	3:  "car",
	4:  "motorcycle",
	5:  "airplane",
	6:  "bus",
	7:  "train",
	8:  "truck",
	9:  "boat",
	16: "bird",
	17: "cat",
	18: "dog",
	44: "bottle",
	47: "cup",
	62: "chair",
	63: "couch",
	64: "potted plant",
	67: "dining table",
	72: "tv",
	73: "laptop",
	76: "keyboard",
	77: "cell phone",
	84: "book",
}

func ClassLabel(labels map[int]string, classID int) string {
	if label, ok := labels[classID]; ok {
		return label
	}
	return fmt.Sprintf("unknown_%d", classID)
}
