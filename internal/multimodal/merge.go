package multimodal

import "sort"

// overlapFraction 两候选重叠面积超过较小者面积的该比例时视为同一表格
const overlapFraction = 0.5

// MergeCandidates 合并同页重叠的表格候选
// 重叠面积超过较小候选面积一半时只保留置信度更高的一个，
// 结果按页号与区域排序，重复合并是幂等的
func MergeCandidates(candidates []TableCandidate) []TableCandidate {
	if len(candidates) <= 1 {
		return sortCandidates(candidates)
	}

	sorted := sortCandidates(candidates)

	// 置信度高的优先保留
	order := make([]int, len(sorted))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sorted[order[a]].Confidence > sorted[order[b]].Confidence
	})

	dropped := make([]bool, len(sorted))
	for oi, i := range order {
		if dropped[i] {
			continue
		}
		for _, j := range order[oi+1:] {
			if dropped[j] || sorted[i].Page != sorted[j].Page {
				continue
			}
			if overlaps(sorted[i].Region, sorted[j].Region) {
				dropped[j] = true
			}
		}
	}

	result := make([]TableCandidate, 0, len(sorted))
	for i, c := range sorted {
		if !dropped[i] {
			result = append(result, c)
		}
	}
	return result
}

// overlaps 判断重叠面积是否超过较小区域面积的一半
func overlaps(a, b Region) bool {
	smaller := min(a.Area(), b.Area())
	if smaller <= 0 {
		return false
	}
	return a.Intersect(b) > smaller*overlapFraction
}

// sortCandidates 按页号、纵坐标、横坐标排序
func sortCandidates(candidates []TableCandidate) []TableCandidate {
	sorted := make([]TableCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Page != sorted[j].Page {
			return sorted[i].Page < sorted[j].Page
		}
		if sorted[i].Region.Y0 != sorted[j].Region.Y0 {
			return sorted[i].Region.Y0 < sorted[j].Region.Y0
		}
		return sorted[i].Region.X0 < sorted[j].Region.X0
	})
	return sorted
}
