package scoring

import (
	"fmt"

	"github.com/intermernet/scoreboard/internal/metrics"
)

// LeaderboardEntry is one cluster's standing.
type LeaderboardEntry struct {
	Rank        int
	ClusterID   int64
	ClusterName string
	LogoFile    string
	TotalPoints int64
}

// ComputeLeaderboard totals every participant's points per cluster across all
// events. Clusters without participants are included with zero. Entries are
// ordered by total descending; equal totals are ordered by cluster name.
func (s *Service) ComputeLeaderboard() ([]LeaderboardEntry, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.LeaderboardDuration)
	metrics.LeaderboardComputations.Inc()

	totals, err := s.store.ClusterTotals(s.store.DB())
	if err != nil {
		return nil, fmt.Errorf("compute leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, len(totals))
	for i, t := range totals {
		entries[i] = LeaderboardEntry{
			Rank:        i + 1,
			ClusterID:   t.ID,
			ClusterName: t.Name,
			LogoFile:    t.LogoFile(),
			TotalPoints: t.TotalPoints,
		}
	}
	return entries, nil
}
