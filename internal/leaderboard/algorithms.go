package leaderboard

// AssignRanks 为已按尝试次数升序排列的条目分配名次。
// 尝试次数相同的条目共享名次，只有次数变化时名次才加一，例如 [3,3,5] => [1,1,2]。
func AssignRanks(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Score != entries[i-1].Score {
			rank++
		}
		entries[i].Rank = rank
	}
}
