package fluid

var neighborOffsets = [4]Index2{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// ExtrapolateToRegion copies input to output and then grows the valid region
// one ring per iteration, up to depth rings: every invalid sample with at
// least one valid 4-neighbour takes the average of those neighbours.
// valid is left untouched.
func ExtrapolateToRegion(input *GridData[float64], valid *GridData[uint8], depth int, output *GridData[float64]) {
	if output != input {
		output.CopyFrom(input)
	}
	size := input.Size()
	cur := valid.Clone()
	next := valid.Clone()

	for iter := 0; iter < depth; iter++ {
		grew := false
		parallelRange(0, size[0], func(i int) {
			for j := 0; j < size[1]; j++ {
				if cur.At(i, j) != 0 {
					continue
				}
				var sum float64
				var count int
				for _, o := range neighborOffsets {
					ni, nj := i+o[0], j+o[1]
					if cur.Contains(ni, nj) && cur.At(ni, nj) != 0 {
						sum += output.At(ni, nj)
						count++
					}
				}
				if count > 0 {
					output.Set(i, j, sum/float64(count))
					next.Set(i, j, 1)
				}
			}
		})
		for n, v := range next.Data() {
			if v != cur.Data()[n] {
				grew = true
				break
			}
		}
		if !grew {
			return
		}
		cur.CopyFrom(next)
	}
}
