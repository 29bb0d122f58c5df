package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pulsehq/pulse/internal/domain/model"
	"github.com/pulsehq/pulse/pkg/metrics"
)

const tsLayout = time.RFC3339Nano

// SQLiteStore implements Store on a local sqlite file.
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens (or creates) the database and initializes the
// schema. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{conn: conn}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS readings (
		id TEXT NOT NULL UNIQUE,
		venue_id TEXT NOT NULL,
		device_id TEXT NOT NULL,
		ts TEXT NOT NULL,
		decibels REAL,
		light REAL,
		indoor_temp REAL,
		outdoor_temp REAL,
		humidity REAL,
		pressure REAL,
		current_song TEXT,
		artist TEXT,
		occ_current INTEGER,
		occ_entries INTEGER,
		occ_exits INTEGER,
		occ_capacity INTEGER,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_readings_venue_ts ON readings(venue_id, ts);
	CREATE TABLE IF NOT EXISTS profiles (
		venue_id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// InsertReading inserts a reading, ignoring duplicates by ID.
func (s *SQLiteStore) InsertReading(ctx context.Context, r model.SensorReading) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryInsertLatency(float64(time.Since(start).Milliseconds()))
	}()

	query := `
	INSERT OR IGNORE INTO readings
		(id, venue_id, device_id, ts, decibels, light, indoor_temp, outdoor_temp,
		 humidity, pressure, current_song, artist,
		 occ_current, occ_entries, occ_exits, occ_capacity, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var occCurrent, occEntries, occExits, occCapacity sql.NullInt64
	if occ := r.Occupancy; occ != nil {
		occCurrent = sql.NullInt64{Int64: int64(occ.Current), Valid: true}
		occEntries = sql.NullInt64{Int64: int64(occ.Entries), Valid: true}
		occExits = sql.NullInt64{Int64: int64(occ.Exits), Valid: true}
		occCapacity = sql.NullInt64{Int64: int64(occ.Capacity), Valid: true}
	}

	res, err := s.conn.ExecContext(ctx, query,
		r.ID, r.VenueID, r.DeviceID, r.Timestamp.UTC().Format(tsLayout),
		nullFloat(r.Decibels), nullFloat(r.Light), nullFloat(r.IndoorTemp), nullFloat(r.OutdoorTemp),
		nullFloat(r.Humidity), nullFloat(r.Pressure), nullString(r.CurrentSong), nullString(r.Artist),
		occCurrent, occEntries, occExits, occCapacity,
		time.Now().UTC().Format(tsLayout),
	)
	if err != nil {
		metrics.RecordRepositoryError()
		return false, fmt.Errorf("inserting reading: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking insert result: %w", err)
	}
	return n > 0, nil
}

const readingColumns = `id, venue_id, device_id, ts, decibels, light, indoor_temp, outdoor_temp,
	humidity, pressure, current_song, artist, occ_current, occ_entries, occ_exits, occ_capacity`

// ListReadings returns a venue's readings with from <= ts < to, oldest first.
func (s *SQLiteStore) ListReadings(ctx context.Context, venueID string, from, to time.Time) ([]model.SensorReading, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	query := `SELECT ` + readingColumns + `
	FROM readings WHERE venue_id = ? AND ts >= ? AND ts < ? ORDER BY ts ASC`
	rows, err := s.conn.QueryContext(ctx, query, venueID,
		from.UTC().Format(tsLayout), to.UTC().Format(tsLayout))
	if err != nil {
		metrics.RecordRepositoryError()
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	var readings []model.SensorReading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return readings, nil
}

// LatestReading returns the venue's most recent reading.
func (s *SQLiteStore) LatestReading(ctx context.Context, venueID string) (model.SensorReading, error) {
	query := `SELECT ` + readingColumns + `
	FROM readings WHERE venue_id = ? ORDER BY ts DESC LIMIT 1`
	rows, err := s.conn.QueryContext(ctx, query, venueID)
	if err != nil {
		metrics.RecordRepositoryError()
		return model.SensorReading{}, fmt.Errorf("querying latest reading: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return model.SensorReading{}, fmt.Errorf("querying latest reading: %w", err)
		}
		return model.SensorReading{}, ErrNotFound
	}
	return scanReading(rows)
}

// ListVenues returns every venue with at least one reading.
func (s *SQLiteStore) ListVenues(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT DISTINCT venue_id FROM readings ORDER BY venue_id`)
	if err != nil {
		metrics.RecordRepositoryError()
		return nil, fmt.Errorf("querying venues: %w", err)
	}
	defer rows.Close()

	var venues []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning venue: %w", err)
		}
		venues = append(venues, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating venues: %w", err)
	}
	return venues, nil
}

// PruneBefore deletes readings older than cutoff.
func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM readings WHERE ts < ?`, cutoff.UTC().Format(tsLayout))
	if err != nil {
		metrics.RecordRepositoryError()
		return 0, fmt.Errorf("pruning readings: %w", err)
	}
	return res.RowsAffected()
}

// SaveProfile upserts the venue's learned profile as a JSON document.
func (s *SQLiteStore) SaveProfile(ctx context.Context, p model.VenueLearningProfile) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	query := `
	INSERT INTO profiles (venue_id, payload, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(venue_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`
	if _, err := s.conn.ExecContext(ctx, query, p.VenueID, string(payload), p.UpdatedAt.UTC().Format(tsLayout)); err != nil {
		metrics.RecordRepositoryError()
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// LatestProfile returns the venue's learned profile.
func (s *SQLiteStore) LatestProfile(ctx context.Context, venueID string) (model.VenueLearningProfile, error) {
	var payload string
	err := s.conn.QueryRowContext(ctx, `SELECT payload FROM profiles WHERE venue_id = ?`, venueID).Scan(&payload)
	if err == sql.ErrNoRows {
		return model.VenueLearningProfile{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordRepositoryError()
		return model.VenueLearningProfile{}, fmt.Errorf("querying profile: %w", err)
	}
	var p model.VenueLearningProfile
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return model.VenueLearningProfile{}, fmt.Errorf("decoding profile: %w", err)
	}
	return p, nil
}

func scanReading(rows *sql.Rows) (model.SensorReading, error) {
	var (
		r                               model.SensorReading
		ts                              string
		dec, light, inTemp, outTemp     sql.NullFloat64
		humidity, pressure              sql.NullFloat64
		song, artist                    sql.NullString
		occCur, occEnt, occExit, occCap sql.NullInt64
	)
	err := rows.Scan(&r.ID, &r.VenueID, &r.DeviceID, &ts, &dec, &light, &inTemp, &outTemp,
		&humidity, &pressure, &song, &artist, &occCur, &occEnt, &occExit, &occCap)
	if err != nil {
		return model.SensorReading{}, fmt.Errorf("scanning reading: %w", err)
	}
	r.Timestamp, err = time.Parse(tsLayout, ts)
	if err != nil {
		return model.SensorReading{}, fmt.Errorf("parsing reading timestamp: %w", err)
	}
	r.Decibels = floatPtr(dec)
	r.Light = floatPtr(light)
	r.IndoorTemp = floatPtr(inTemp)
	r.OutdoorTemp = floatPtr(outTemp)
	r.Humidity = floatPtr(humidity)
	r.Pressure = floatPtr(pressure)
	r.CurrentSong = song.String
	r.Artist = artist.String
	if occCur.Valid {
		r.Occupancy = &model.Occupancy{
			Current:  int(occCur.Int64),
			Entries:  int(occEnt.Int64),
			Exits:    int(occExit.Int64),
			Capacity: int(occCap.Int64),
		}
	}
	return r, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
