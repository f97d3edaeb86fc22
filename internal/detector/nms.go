package detector

import "sort"

// nms performs Non-Maximum Suppression on detected face boxes.
func nms(boxes []faceBox, iouThreshold float32) []faceBox {
	if len(boxes) == 0 {
		return boxes
	}

	sort.Slice(boxes, func(i, j int) bool {
		return boxes[i].score > boxes[j].score
	})

	keep := make([]bool, len(boxes))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(boxes); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(boxes); j++ {
			if !keep[j] {
				continue
			}
			if iou(boxes[i], boxes[j]) > iouThreshold {
				keep[j] = false
			}
		}
	}

	result := make([]faceBox, 0, len(boxes))
	for i, box := range boxes {
		if keep[i] {
			result = append(result, box)
		}
	}

	return result
}

// iou calculates Intersection over Union of two boxes.
func iou(a, b faceBox) float32 {
	x1 := max32(a.x1, b.x1)
	y1 := max32(a.y1, b.y1)
	x2 := min32(a.x2, b.x2)
	y2 := min32(a.y2, b.y2)

	if x1 >= x2 || y1 >= y2 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.area() + b.area() - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
