package detection

// Class labels the pipeline treats specially.
const (
	ClassPerson    = "person"
	ClassCellPhone = "cell phone"
)

// COCOClasses contains the 80 COCO class names in model output order
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// ClassName returns the COCO label for a class id, or "" when out of range.
func ClassName(id int) string {
	if id < 0 || id >= len(COCOClasses) {
		return ""
	}
	return COCOClasses[id]
}

// IsPerson returns true if the class is a person
func IsPerson(className string) bool {
	return className == ClassPerson
}

// ClassSet is a set of class labels.
type ClassSet map[string]bool

// NewClassSet builds a set from labels.
func NewClassSet(labels ...string) ClassSet {
	s := make(ClassSet, len(labels))
	for _, l := range labels {
		s[l] = true
	}
	return s
}

// Has reports whether the label is in the set.
func (s ClassSet) Has(label string) bool {
	return s[label]
}
