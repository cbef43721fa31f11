package store

import (
	"database/sql"
	"time"

	"github.com/frostline/roadwatch/internal/models"
)

// Store wraps the sqlite database. The location fixes the timezone used when
// interpreting date-only values.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

func New(db *sql.DB, loc *time.Location) *Store {
	return &Store{db: db, loc: loc}
}

func (s *Store) UpsertDistrict(d models.District) error {
	_, err := s.db.Exec(`
		INSERT INTO districts (district_id, name, region, latitude, longitude, snow_threshold_in, delay_threshold_in, cold_threshold_f, wind_threshold_mph, ice_threshold_in)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(district_id) DO UPDATE SET
			name = excluded.name,
			region = excluded.region,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			snow_threshold_in = excluded.snow_threshold_in,
			delay_threshold_in = excluded.delay_threshold_in,
			cold_threshold_f = excluded.cold_threshold_f,
			wind_threshold_mph = excluded.wind_threshold_mph,
			ice_threshold_in = excluded.ice_threshold_in
	`, d.ID, d.Name, d.Region, d.Latitude, d.Longitude, d.SnowThresholdIn, d.DelayThresholdIn, d.ColdThresholdF, d.WindThresholdMPH, d.IceThresholdIn)
	return err
}

func (s *Store) GetDistricts() ([]models.District, error) {
	rows, err := s.db.Query(`SELECT district_id, name, region, latitude, longitude, snow_threshold_in, delay_threshold_in, cold_threshold_f, wind_threshold_mph, ice_threshold_in FROM districts ORDER BY district_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var districts []models.District
	for rows.Next() {
		var d models.District
		if err := rows.Scan(&d.ID, &d.Name, &d.Region, &d.Latitude, &d.Longitude, &d.SnowThresholdIn, &d.DelayThresholdIn, &d.ColdThresholdF, &d.WindThresholdMPH, &d.IceThresholdIn); err != nil {
			return nil, err
		}
		districts = append(districts, d)
	}
	return districts, rows.Err()
}

func (s *Store) GetDistrict(id string) (*models.District, error) {
	row := s.db.QueryRow(`SELECT district_id, name, region, latitude, longitude, snow_threshold_in, delay_threshold_in, cold_threshold_f, wind_threshold_mph, ice_threshold_in FROM districts WHERE district_id = ?`, id)

	var d models.District
	err := row.Scan(&d.ID, &d.Name, &d.Region, &d.Latitude, &d.Longitude, &d.SnowThresholdIn, &d.DelayThresholdIn, &d.ColdThresholdF, &d.WindThresholdMPH, &d.IceThresholdIn)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) InsertObservation(obs models.Observation) error {
	_, err := s.db.Exec(`
		INSERT INTO observations (route, condition, temperature, warning, source, observed_at, latitude, longitude, severity, delay_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, route, observed_at) DO NOTHING
	`, obs.Route, string(obs.Condition), obs.Temperature, obs.Warning, obs.Source, obs.ObservedAt.UTC(), obs.Latitude, obs.Longitude, string(obs.Severity), obs.DelaySeconds)
	return err
}

// GetObservationsSince returns observations newer than the cutoff, oldest first.
func (s *Store) GetObservationsSince(since time.Time) ([]models.Observation, error) {
	rows, err := s.db.Query(`
		SELECT id, route, condition, temperature, warning, source, observed_at, latitude, longitude, severity, delay_seconds, created_at
		FROM observations
		WHERE observed_at >= ?
		ORDER BY observed_at ASC, id ASC
	`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Observation
	for rows.Next() {
		var o models.Observation
		var condition, severity string
		if err := rows.Scan(&o.ID, &o.Route, &condition, &o.Temperature, &o.Warning, &o.Source, &o.ObservedAt, &o.Latitude, &o.Longitude, &severity, &o.DelaySeconds, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Condition = models.Condition(condition)
		o.Severity = models.Severity(severity)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) InsertWeatherReading(r models.WeatherReading) error {
	_, err := s.db.Exec(`
		INSERT INTO weather_readings (provider, observed_at, latitude, longitude, temp_f, humidity_pct, wind_speed_mph, wind_gust_mph, conditions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider, observed_at) DO NOTHING
	`, r.Provider, r.ObservedAt.UTC(), r.Latitude, r.Longitude, r.TempF, r.HumidityPct, r.WindSpeedMPH, r.WindGustMPH, r.Conditions)
	return err
}

// GetLatestWeatherReading returns the newest stored reading, or nil when none exist.
func (s *Store) GetLatestWeatherReading() (*models.WeatherReading, error) {
	row := s.db.QueryRow(`
		SELECT provider, observed_at, latitude, longitude, temp_f, humidity_pct, wind_speed_mph, wind_gust_mph, conditions
		FROM weather_readings
		ORDER BY observed_at DESC
		LIMIT 1
	`)

	var r models.WeatherReading
	err := row.Scan(&r.Provider, &r.ObservedAt, &r.Latitude, &r.Longitude, &r.TempF, &r.HumidityPct, &r.WindSpeedMPH, &r.WindGustMPH, &r.Conditions)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) InsertClosureRecord(rec models.ClosureRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO closure_history (district_id, date, decision)
		VALUES (?, ?, ?)
		ON CONFLICT(district_id, date) DO UPDATE SET decision = excluded.decision
	`, rec.DistrictID, rec.Date.In(s.loc).Format("2006-01-02"), rec.Decision)
	return err
}

// RecentClosures returns closure decisions for a district on or after the
// cutoff. Satisfies the closure predictor's history interface.
func (s *Store) RecentClosures(districtID string, since time.Time) ([]models.ClosureRecord, error) {
	rows, err := s.db.Query(`
		SELECT district_id, date, decision
		FROM closure_history
		WHERE district_id = ? AND date >= ?
		ORDER BY date ASC
	`, districtID, since.In(s.loc).Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ClosureRecord
	for rows.Next() {
		var rec models.ClosureRecord
		var date string
		if err := rows.Scan(&rec.DistrictID, &date, &rec.Decision); err != nil {
			return nil, err
		}
		d, err := time.ParseInLocation("2006-01-02", date, s.loc)
		if err != nil {
			return nil, err
		}
		rec.Date = d
		out = append(out, rec)
	}
	return out, rows.Err()
}
