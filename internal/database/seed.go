package database

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/intermernet/scoreboard/internal/auth"
	"github.com/intermernet/scoreboard/internal/log"
)

//go:embed seed/clusters.yaml
var defaultClustersYAML []byte

// ClusterSeed describes a cluster created on first start.
type ClusterSeed struct {
	Name string `yaml:"name"`
	Logo string `yaml:"logo"`
}

type clusterFile struct {
	Clusters []ClusterSeed `yaml:"clusters"`
}

// LoadClusterSeeds reads the cluster list from path, or the built-in list
// when path is empty.
func LoadClusterSeeds(path string) ([]ClusterSeed, error) {
	data := defaultClustersYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read clusters file: %w", err)
		}
	}
	return parseClusterSeeds(data)
}

func parseClusterSeeds(data []byte) ([]ClusterSeed, error) {
	var f clusterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse clusters file: %w", err)
	}

	seen := make(map[string]bool, len(f.Clusters))
	for i, c := range f.Clusters {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("clusters[%d]: name is required", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("clusters[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
		f.Clusters[i].Name = name
	}
	return f.Clusters, nil
}

// SeedOptions control first-start data.
type SeedOptions struct {
	Clusters      []ClusterSeed
	AdminUsername string
	AdminPassword string
	SampleEvent   bool
	Now           time.Time
}

// SeedReport says what Seed actually created.
type SeedReport struct {
	ClustersCreated int
	AdminCreated    bool
	SampleEventID   int64
}

// SampleEventName is the name of the demo event seeded into an empty
// database.
const SampleEventName = "Sample Competition - Opening Ceremony"

// Seed populates an empty database. Each step only runs when its table is
// empty, so calling it on every start is safe.
func (s *Service) Seed(opts SeedOptions) (SeedReport, error) {
	var report SeedReport
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	err := s.WriteTx(func(tx *sql.Tx) error {
		clusterIDs, err := s.seedClusters(tx, opts.Clusters, now, &report)
		if err != nil {
			return err
		}

		adminID, err := s.seedAdmin(tx, opts.AdminUsername, opts.AdminPassword, now, &report)
		if err != nil {
			return err
		}

		if opts.SampleEvent {
			return s.seedSampleEvent(tx, clusterIDs, adminID, now, &report)
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, err
	}

	logger := log.WithComponent("seed")
	if report.ClustersCreated > 0 {
		logger.Info().Int("count", report.ClustersCreated).Msg("created clusters")
	}
	if report.AdminCreated {
		logger.Warn().Str("username", opts.AdminUsername).Msg("created default admin account, change its password")
	}
	if report.SampleEventID != 0 {
		logger.Info().Int64("event_id", report.SampleEventID).Msg("created sample event")
	}
	return report, nil
}

func (s *Service) seedClusters(tx *sql.Tx, seeds []ClusterSeed, now time.Time, report *SeedReport) ([]int64, error) {
	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM clusters;`).Scan(&count); err != nil {
		return nil, err
	}
	if count == 0 {
		for _, c := range seeds {
			if _, err := s.CreateCluster(tx, c.Name, c.Logo, now); err != nil {
				return nil, fmt.Errorf("create cluster %q: %w", c.Name, err)
			}
			report.ClustersCreated++
		}
	}

	rows, err := tx.Query(`SELECT id FROM clusters ORDER BY id ASC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Service) seedAdmin(tx *sql.Tx, username, password string, now time.Time, report *SeedReport) (int64, error) {
	var adminID int64
	err := tx.QueryRow(`SELECT id FROM users WHERE role = ? ORDER BY id ASC LIMIT 1;`, string(auth.RoleAdmin)).Scan(&adminID)
	if err == nil {
		return adminID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	if username == "" || password == "" {
		return 0, errors.New("no admin account exists and no admin credentials were configured")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return 0, err
	}
	user, err := s.CreateUser(tx, username, hash, auth.RoleAdmin, now)
	if err != nil {
		return 0, fmt.Errorf("create admin: %w", err)
	}
	report.AdminCreated = true
	return user.ID, nil
}

func (s *Service) seedSampleEvent(tx *sql.Tx, clusterIDs []int64, adminID int64, now time.Time, report *SeedReport) error {
	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM events;`).Scan(&count); err != nil {
		return err
	}
	if count > 0 || len(clusterIDs) < 3 {
		return nil
	}

	eventID, err := s.CreateEvent(tx, SampleEventName, adminID, now)
	if err != nil {
		return err
	}
	sample := []Participant{
		{ClusterID: clusterIDs[0], Name: "Team Alpha", Position: 1, Points: 100},
		{ClusterID: clusterIDs[1], Name: "Team Beta", Position: 2, Points: 85},
		{ClusterID: clusterIDs[2], Name: "Team Gamma", Position: 3, Points: 70},
		{ClusterID: clusterIDs[0], Name: "Team Delta", Position: 4, Points: 60},
	}
	for i := range sample {
		sample[i].EventID = eventID
		if _, err := s.AddParticipant(tx, &sample[i], now); err != nil {
			return err
		}
	}
	report.SampleEventID = eventID
	return nil
}
