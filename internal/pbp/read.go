// Package pbp reads play-by-play CSV logs and writes segmented output.
package pbp

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/pable/go-pbp-possessions/internal/model"
)

// Required columns, each with the header spellings accepted for it.
var required = []struct {
	name    string
	aliases []string
}{
	{"game_id", []string{"game_id", "gameid", "試合id"}},
	{"period", []string{"period", "ピリオド"}},
	{"sequence_no", []string{"sequence_no", "seq", "sequence", "履歴no"}},
	{"team_id", []string{"team_id", "teamid", "チームid"}},
	{"action1", []string{"action1", "action_1", "アクション1"}},
	{"action2", []string{"action2", "action_2", "アクション2"}},
	{"action3", []string{"action3", "action_3", "アクション3"}},
}

// SchemaError reports required columns absent from the input header.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// Encoding names the character encoding of an input file.
type Encoding string

const (
	UTF8     Encoding = "utf-8"
	ShiftJIS Encoding = "sjis"
)

// ParseEncoding accepts the usual spellings of the supported encodings.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf8", "utf-8":
		return UTF8, nil
	case "sjis", "shift_jis", "shift-jis", "cp932":
		return ShiftJIS, nil
	}
	return "", fmt.Errorf("unsupported encoding %q (want utf-8 or sjis)", s)
}

// Dataset is a loaded play-by-play file.
type Dataset struct {
	Hash      string   // sha256 of the file bytes
	Source    string
	Header    []string // input header as read
	Rows      []model.EventRow
	Malformed int // team or action cells that were present but not numeric
	Dropped   int // rows whose game id, period or sequence number was unusable
}

// ReadFile loads the play-by-play CSV at path.
func ReadFile(path string, enc Encoding) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open play-by-play: %w", err)
	}
	ds, err := Read(bytes.NewReader(data), enc)
	if err != nil {
		return nil, err
	}
	ds.Hash = fmt.Sprintf("%x", sha256.Sum256(data))
	ds.Source = path
	return ds, nil
}

// Read parses a play-by-play CSV. A missing required column is a
// *SchemaError; unusable cell values never are.
func Read(r io.Reader, enc Encoding) (*Dataset, error) {
	if enc == ShiftJIS {
		r = transform.NewReader(r, japanese.ShiftJIS.NewDecoder())
	}
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaError{Missing: requiredNames()}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := locate(header)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Header: header}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		row, ok := ds.decode(rec, idx)
		if !ok {
			ds.Dropped++
			continue
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func requiredNames() []string {
	out := make([]string, len(required))
	for i, c := range required {
		out[i] = c.name
	}
	return out
}

func normalize(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// locate maps each required column to its header index.
func locate(header []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := pos[normalize(h)]; !dup {
			pos[normalize(h)] = i
		}
	}
	idx := make([]int, len(required))
	var missing []string
	for k, c := range required {
		idx[k] = -1
		for _, a := range c.aliases {
			if i, ok := pos[a]; ok {
				idx[k] = i
				break
			}
		}
		if idx[k] < 0 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}
	return idx, nil
}

func (ds *Dataset) decode(rec []string, idx []int) (model.EventRow, bool) {
	cell := func(k int) string {
		if idx[k] >= len(rec) {
			return ""
		}
		return rec[idx[k]]
	}

	gameID, ok := parseInt(cell(0))
	if !ok {
		return model.EventRow{}, false
	}
	period, ok := parseInt(cell(1))
	if !ok {
		return model.EventRow{}, false
	}
	seq, ok := parseInt(cell(2))
	if !ok {
		return model.EventRow{}, false
	}

	row := model.EventRow{
		GameID:     gameID,
		Period:     int(period),
		SequenceNo: int(seq),
		Raw:        rec,
	}
	if team, ok := ds.optional(cell(3)); ok {
		row.Team = model.TeamID(team)
	}
	for slot := 0; slot < model.ActionSlots; slot++ {
		if code, ok := ds.optional(cell(4 + slot)); ok {
			row.Actions[slot] = int(code)
		}
	}
	return row, true
}

// optional parses a nullable cell, counting non-empty values it cannot use.
func (ds *Dataset) optional(s string) (int64, bool) {
	if strings.TrimSpace(s) == "" {
		return 0, false
	}
	v, ok := parseInt(s)
	if !ok || v <= 0 {
		ds.Malformed++
		return 0, false
	}
	return v, true
}

// parseInt accepts integers and integral floats such as "12.0".
func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}
