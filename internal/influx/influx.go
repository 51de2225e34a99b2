package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/monreader/extension/internal/config"
	"github.com/monreader/extension/pkg/core"
)

// PerformanceBucket holds the reader's own counters.
const PerformanceBucket = "reader_performance"

// Measurements written by the point builders.
const (
	MeasurementSlot        = "party_slot"
	MeasurementBattle      = "battle"
	MeasurementPlayer      = "player"
	MeasurementPerformance = "reader"
)

const pingTimeout = 5 * time.Second

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	cfg        config.InfluxConfig
	mu         sync.Mutex
	backupFile io.Closer
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: []string{cfg.Bucket, PerformanceBucket},
		Logger:      log,
		BackupPath:  cfg.BackupPath,
		cfg:         cfg,
	}
}

// Connect establishes a connection to InfluxDB. When the server cannot be
// reached, points go to a gzip line-protocol backup file instead.
func (m *Manager) Connect() error {
	if !m.cfg.Enabled {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	running, err := m.Client.Ping(ctx)
	cancel()

	if err != nil || !running {
		m.IsValid = false
		if err := m.openBackup(); err != nil {
			return err
		}
		m.Logger.Warn().Str("backupPath", m.BackupPath).
			Msg("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	m.IsValid = true
	if err := m.setupOrganizationAndBuckets(); err != nil {
		return err
	}
	m.CreateWriters()
	m.Logger.Info().Str("url", m.cfg.URL()).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	if m.BackupPath == "" {
		return errors.New("influx backup path not set")
	}
	if err := os.MkdirAll(filepath.Dir(m.BackupPath), 0o755); err != nil {
		return fmt.Errorf("error creating backup directory: %w", err)
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets() error {
	ctx := context.Background()
	orgName := m.cfg.Org

	// ensure org exists
	_, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		_, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Error().Err(err).Str("org", orgName).Msg("Error getting organization")
		return err
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		_, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket)
		if err != nil {
			m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

			rule := domain.RetentionRuleTypeExpire
			_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
				Type:         &rule,
				EverySeconds: 60 * 60 * 24 * 90, // 90 days
			})
			if err != nil {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
				return err
			}
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	for _, bucket := range m.BucketNames {
		m.Logger.Trace().Str("bucket", bucket).Msg("Creating InfluxDB writer")
		m.Writers[bucket] = m.Client.WriteAPI(m.cfg.Org, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// Bucket returns the snapshot bucket.
func (m *Manager) Bucket() string {
	return m.cfg.Bucket
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending writes and closes the client or backup file.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return nil
	}
	err := m.BackupWriter.Close()
	m.BackupWriter = nil
	if m.backupFile != nil {
		if cerr := m.backupFile.Close(); err == nil {
			err = cerr
		}
		m.backupFile = nil
	}
	return err
}

// SlotPoints builds one party_slot point per filled slot.
func SlotPoints(sessionID string, c *core.CollectionSnapshot) []*influxdb2_write.Point {
	ts := c.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	points := make([]*influxdb2_write.Point, 0, len(c.Slots))
	for _, s := range c.Slots {
		if s.Entry == nil {
			continue
		}
		e := s.Entry
		p := influxdb2_write.NewPointWithMeasurement(MeasurementSlot).
			AddTag("session", sessionID).
			AddTag("kind", c.Kind).
			AddTag("slot", strconv.Itoa(s.Index)).
			AddTag("species", e.SpeciesName).
			AddField("personality", int64(e.Personality)).
			AddField("level", e.Level).
			AddField("hp", e.CurrentHP).
			AddField("maxHp", e.Stats.HP).
			AddField("frame", int64(c.Frame)).
			SetTime(ts)
		if c.Kind == core.KindBox {
			p.AddTag("box", strconv.Itoa(c.Box))
		}
		points = append(points, p)
	}
	return points
}

// BattlePoint records a battle flag change.
func BattlePoint(sessionID string, b *core.BattleSnapshot) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementBattle).
		AddTag("session", sessionID).
		AddField("flags", int64(b.Flags)).
		AddField("inBattle", b.InBattle).
		AddField("trainer", b.Trainer).
		AddField("double", b.Double).
		AddField("frame", int64(b.Frame)).
		SetTime(orNow(b.Time))
}

// PlayerPoint records a trainer card read.
func PlayerPoint(sessionID string, p *core.PlayerSnapshot) *influxdb2_write.Point {
	playSeconds := int64(p.PlayHours)*3600 + int64(p.PlayMinutes)*60 + int64(p.PlaySeconds)
	return influxdb2_write.NewPointWithMeasurement(MeasurementPlayer).
		AddTag("session", sessionID).
		AddTag("name", p.Name).
		AddField("money", int64(p.Money)).
		AddField("playSeconds", playSeconds).
		SetTime(orNow(p.Time))
}

// PerformancePoint records the reader's counters.
func PerformancePoint(sessionID string, total, failed, fallback uint64, t time.Time) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementPerformance).
		AddField("readsTotal", int64(total)).
		AddField("readsFailed", int64(failed)).
		AddField("readsFallback", int64(fallback)).
		SetTime(orNow(t))
	if sessionID != "" {
		p.AddTag("session", sessionID)
	}
	return p
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
