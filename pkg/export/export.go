// Package export writes command results as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/droneops/core/audit"
	"github.com/kilianp07/droneops/core/matching"
	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/core/reassign"
	"github.com/kilianp07/droneops/core/syncqueue"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts text, json and csv.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// WriteCandidatesCSV writes a ranked match result, best first.
func WriteCandidatesCSV(w io.Writer, res matching.Result) error {
	rows := make([][]string, 0, len(res.Candidates))
	for i, c := range res.Candidates {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			c.ResourceID,
			c.Name,
			strconv.Itoa(c.Score.Total),
			ftoa(c.EstimatedCost),
			strconv.FormatBool(c.LocationMatch),
		})
	}
	return writeCSV(w, []string{"rank", "resource_id", "name", "score", "estimated_cost", "location_match"}, rows)
}

// WriteConflictsCSV writes conflicts in report order.
func WriteConflictsCSV(w io.Writer, cs []model.Conflict) error {
	rows := make([][]string, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, []string{
			c.Severity.String(),
			c.Type.String(),
			c.MissionID,
			strings.Join(c.RelatedMissionIDs, ";"),
			strings.Join(c.ResourceIDs, ";"),
			c.Description,
			c.SuggestedAction,
		})
	}
	return writeCSV(w, []string{"severity", "type", "mission_id", "related_missions", "resources", "description", "suggested_action"}, rows)
}

// WriteSuggestionsCSV writes reassignment suggestions.
func WriteSuggestionsCSV(w io.Writer, ss []reassign.Suggestion) error {
	rows := make([][]string, 0, len(ss))
	for _, s := range ss {
		rows = append(rows, []string{
			s.MissionID,
			s.Kind.String(),
			s.CurrentID,
			s.ResourceID,
			s.Name,
			strconv.Itoa(s.Score),
			ftoa(s.EstimatedCost),
			s.Urgency.String(),
			s.Reason,
		})
	}
	return writeCSV(w, []string{"mission_id", "kind", "current", "resource_id", "name", "score", "estimated_cost", "urgency", "reason"}, rows)
}

// WriteAuditCSV writes audit entries.
func WriteAuditCSV(w io.Writer, es []audit.Entry) error {
	rows := make([][]string, 0, len(es))
	for _, e := range es {
		rows = append(rows, []string{
			e.Timestamp.Format(time.RFC3339),
			e.Actor,
			e.Action,
			e.MissionID,
			string(e.EntityType),
			e.EntityID,
			e.Field,
			e.Old,
			e.New,
		})
	}
	return writeCSV(w, []string{"timestamp", "actor", "action", "mission_id", "entity_type", "entity_id", "field", "old", "new"}, rows)
}

// WriteFlushCSV writes the per-record outcome of a sync flush.
func WriteFlushCSV(w io.Writer, rep syncqueue.FlushReport) error {
	rows := make([][]string, 0, len(rep.Items))
	for _, it := range rep.Items {
		rows = append(rows, []string{
			it.RecordID,
			string(it.EntityType),
			it.EntityID,
			it.Field,
			strconv.FormatBool(it.OK),
			it.Error,
		})
	}
	return writeCSV(w, []string{"record_id", "entity_type", "entity_id", "field", "ok", "error"}, rows)
}
