// Package sheets mirrors change records into the operations spreadsheet. The
// row is located by entity id in the matching tab, the changed cell is
// overwritten in place and a line is appended to the sync log tab.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/infra/logger"
)

// ErrNotFound marks a missing tab, row or column. It is not retried.
var ErrNotFound = errors.New("sheets: not found")

// Config locates the spreadsheet and its tabs.
type Config struct {
	SpreadsheetID   string `json:"spreadsheet_id"`
	CredentialsFile string `json:"credentials_file"`
	CredentialsJSON string `json:"credentials_json"`
	Endpoint        string `json:"endpoint"`
	PilotTab        string `json:"pilot_tab"`
	DroneTab        string `json:"drone_tab"`
	MissionTab      string `json:"mission_tab"`
	LogTab          string `json:"log_tab"`
	InitialRetryMS  int    `json:"initial_retry_ms"`
	MaxElapsedMS    int    `json:"max_elapsed_ms"`
}

// SetDefaults fills the tab names used by the operations spreadsheet.
func (c *Config) SetDefaults() {
	if c.PilotTab == "" {
		c.PilotTab = "Pilot Roster"
	}
	if c.DroneTab == "" {
		c.DroneTab = "Drone Fleet"
	}
	if c.MissionTab == "" {
		c.MissionTab = "Missions"
	}
	if c.LogTab == "" {
		c.LogTab = "Sync Log"
	}
	if c.InitialRetryMS <= 0 {
		c.InitialRetryMS = 500
	}
	if c.MaxElapsedMS <= 0 {
		c.MaxElapsedMS = 30000
	}
}

// Sink writes change records to Google Sheets. It implements syncqueue.Sink.
type Sink struct {
	svc *sheets.Service
	cfg Config
	log logger.Logger
}

// New authenticates with a service account and returns a sink. Endpoint,
// when set, replaces the API base URL and disables authentication.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	cfg.SetDefaults()
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("%w: sheets spreadsheet_id is required", model.ErrValidation)
	}
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication(),
			option.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}))
	} else {
		data := []byte(cfg.CredentialsJSON)
		if len(data) == 0 {
			b, err := os.ReadFile(cfg.CredentialsFile)
			if err != nil {
				return nil, fmt.Errorf("read sheets credentials: %w", err)
			}
			data = b
		}
		creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parse sheets credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(creds.TokenSource))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing client.
func NewWithService(svc *sheets.Service, cfg Config) *Sink {
	cfg.SetDefaults()
	return &Sink{svc: svc, cfg: cfg, log: logger.New("sheets_sink")}
}

func (s *Sink) Name() string { return "sheets" }

func (s *Sink) tab(et model.EntityType) (string, error) {
	switch et {
	case model.EntityPilot:
		return s.cfg.PilotTab, nil
	case model.EntityDrone:
		return s.cfg.DroneTab, nil
	case model.EntityMission:
		return s.cfg.MissionTab, nil
	}
	return "", fmt.Errorf("%w: no tab for entity %q", ErrNotFound, et)
}

// Apply overwrites the changed cell and appends a sync log line. Transient
// API failures are retried with exponential backoff.
func (s *Sink) Apply(ctx context.Context, rec model.ChangeRecord) error {
	tab, err := s.tab(rec.EntityType)
	if err != nil {
		return err
	}
	var id string
	err = s.retry(ctx, func() (err error) {
		id, err = s.updateCell(ctx, tab, rec)
		return err
	})
	if err != nil {
		return fmt.Errorf("sheets %s %s.%s: %w", tab, rec.EntityID, rec.Field, err)
	}
	if err := s.retry(ctx, func() error { return s.appendLog(ctx, rec, id) }); err != nil {
		return fmt.Errorf("sheets sync log: %w", err)
	}
	s.log.Debugf("synced %s %s.%s=%q", rec.EntityType, rec.EntityID, rec.Field, rec.NewValue)
	return nil
}

func (s *Sink) retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Duration(s.cfg.InitialRetryMS) * time.Millisecond
	bo.MaxElapsedTime = time.Duration(s.cfg.MaxElapsedMS) * time.Millisecond
	return backoff.Retry(func() error {
		err := op()
		if err == nil || retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}

func retryable(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
	}
	return false
}

// updateCell writes the new value and returns the id as spelled in the
// sheet row it matched.
func (s *Sink) updateCell(ctx context.Context, tab string, rec model.ChangeRecord) (string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, quote(tab)).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(resp.Values) == 0 {
		return "", fmt.Errorf("%w: tab %s is empty", ErrNotFound, tab)
	}
	headers := resp.Values[0]
	idCol := column(headers, idHeaders(rec.EntityType)...)
	if idCol < 0 {
		return "", fmt.Errorf("%w: id column in %s", ErrNotFound, tab)
	}
	col := column(headers, fieldHeaders(rec.Field)...)
	if col < 0 {
		return "", fmt.Errorf("%w: column %s in %s", ErrNotFound, rec.Field, tab)
	}
	row, id := -1, ""
	for i, r := range resp.Values[1:] {
		if idCol >= len(r) {
			continue
		}
		if v := strings.TrimSpace(fmt.Sprint(r[idCol])); strings.EqualFold(v, rec.EntityID) {
			row, id = i+2, v
			break
		}
	}
	if row < 0 {
		return "", fmt.Errorf("%w: %s %s in %s", ErrNotFound, rec.EntityType, rec.EntityID, tab)
	}
	cell := fmt.Sprintf("%s!%s%d", quote(tab), columnName(col), row)
	vr := &sheets.ValueRange{Values: [][]interface{}{{rec.NewValue}}}
	_, err = s.svc.Spreadsheets.Values.Update(s.cfg.SpreadsheetID, cell, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return id, err
}

func (s *Sink) appendLog(ctx context.Context, rec model.ChangeRecord, id string) error {
	row := []interface{}{
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.ID,
		string(rec.EntityType),
		id,
		rec.Field,
		rec.OldValue,
		rec.NewValue,
	}
	_, err := s.svc.Spreadsheets.Values.Append(s.cfg.SpreadsheetID, quote(s.cfg.LogTab)+"!A1",
		&sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func idHeaders(et model.EntityType) []string {
	names := []string{string(et) + "_id", string(et) + " id", "id"}
	if et == model.EntityMission {
		names = append(names, "project_id", "project id")
	}
	return names
}

// fieldHeaders lists the accepted header spellings of a change field.
func fieldHeaders(field string) []string {
	spaced := strings.ReplaceAll(field, "_", " ")
	names := []string{field, spaced}
	if field == model.FieldCurrentAssignment {
		names = append(names, "assignment")
	}
	return names
}

func column(headers []interface{}, names ...string) int {
	for i, h := range headers {
		v := strings.ToLower(strings.TrimSpace(fmt.Sprint(h)))
		for _, n := range names {
			if v == n {
				return i
			}
		}
	}
	return -1
}

// columnName converts a 0-based index to A1 letters.
func columnName(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}

func quote(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}
