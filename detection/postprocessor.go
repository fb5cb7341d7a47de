package detection

// NewAreaFilter returns a function that filters out detections below a
// certain pixel area.
func NewAreaFilter(area int) Postprocessor {
	return func(in []*Detection) []*Detection {
		out := make([]*Detection, 0, len(in))
		for _, d := range in {
			if d.Area() >= area {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewLargestFilter returns a function that keeps only the detection with the
// most pixels, the earlier one on ties.
func NewLargestFilter() Postprocessor {
	return func(in []*Detection) []*Detection {
		var best *Detection
		for _, d := range in {
			if best == nil || d.Area() > best.Area() {
				best = d
			}
		}
		if best == nil {
			return []*Detection{}
		}
		return []*Detection{best}
	}
}
