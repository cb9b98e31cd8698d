package edge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/fortuna/oddspipeline/internal/platform/logx"
	"github.com/fortuna/oddspipeline/pkg/models"
	"github.com/fortuna/oddspipeline/pkg/oddsmath"
)

const targetDecimals = 3

// DBListener listens on the odds_updates NOTIFY channel for rows
// written by anything other than the Engine's own Monaco/Pinnacle
// writers, and republishes each as a normalized update (§4.9 "database
// listener").
type DBListener struct {
	db  *sql.DB
	dsn string
	log *logx.Logger
}

// NewDBListener returns a listener that reads full rows from db and
// opens its own pq.Listener connection against dsn.
func NewDBListener(db *sql.DB, dsn string) *DBListener {
	return &DBListener{db: db, dsn: dsn, log: logx.New("db-listener")}
}

// Run listens on the odds_updates channel until ctx is cancelled,
// publishing one normalized update onto updates per notification.
func (d *DBListener) Run(ctx context.Context, updates chan<- *models.NormalizedUpdate) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			d.log.Warnf("listener event: %v", err)
		}
	}

	listener := pq.NewListener(d.dsn, 10*time.Second, time.Minute, reportProblem)
	defer listener.Close()

	if err := listener.Listen("odds_updates"); err != nil {
		return fmt.Errorf("listen odds_updates: %w", err)
	}
	d.log.Infof("listening on odds_updates")

	for {
		select {
		case <-ctx.Done():
			return nil

		case n := <-listener.Notify:
			if n == nil {
				continue // connection reset; pq.Listener reconnects internally
			}
			d.handleNotification(ctx, n.Extra, updates)

		case <-time.After(90 * time.Second):
			go listener.Ping()
		}
	}
}

func (d *DBListener) handleNotification(ctx context.Context, payload string, updates chan<- *models.NormalizedUpdate) {
	fixtureID, bookmaker, ok := splitPayload(payload)
	if !ok {
		d.log.Infof("malformed notification payload %q dropped", payload)
		return
	}

	update, err := d.readNormalized(ctx, fixtureID, bookmaker)
	if err != nil {
		d.log.Warnf("read row for %s: %v", payload, err)
		return
	}
	if update == nil {
		return // row disappeared between notify and read
	}

	select {
	case updates <- update:
	case <-ctx.Done():
	}
}

func splitPayload(payload string) (fixtureID int64, bookmaker string, ok bool) {
	idx := strings.IndexByte(payload, '|')
	if idx < 0 {
		return 0, "", false
	}
	id, err := strconv.ParseInt(payload[:idx], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, payload[idx+1:], true
}

// readNormalized reads the full current row and converts the latest
// entry of each time-series column into a single normalized update,
// re-scaling integer odds from the row's own decimals to targetDecimals.
func (d *DBListener) readNormalized(ctx context.Context, fixtureID int64, bookmaker string) (*models.NormalizedUpdate, error) {
	var bookieID int64
	var decimals int
	var x12JSON, ahJSON, ouJSON, linesJSON, idsJSON, stakesJSON, latestTJSON []byte
	var updatedAt time.Time

	err := d.db.QueryRowContext(ctx,
		`SELECT bookie_id, decimals, odds_x12, odds_ah, odds_ou, lines, ids, max_stakes, latest_t, updated_at
		 FROM canonical_odds WHERE fixture_id = $1 AND bookie = $2`,
		fixtureID, bookmaker,
	).Scan(&bookieID, &decimals, &x12JSON, &ahJSON, &ouJSON, &linesJSON, &idsJSON, &stakesJSON, &latestTJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query row: %w", err)
	}

	var x12 []models.X12Entry
	var ah []models.AHEntry
	var ou []models.OUEntry
	var lines []models.LinesEntry
	var ids []models.IDsEntry
	var stakes []models.MaxStakesEntry
	var latestT models.LatestT
	if err := unmarshalIfPresent(x12JSON, &x12); err != nil {
		return nil, fmt.Errorf("parse odds_x12: %w", err)
	}
	if err := unmarshalIfPresent(ahJSON, &ah); err != nil {
		return nil, fmt.Errorf("parse odds_ah: %w", err)
	}
	if err := unmarshalIfPresent(ouJSON, &ou); err != nil {
		return nil, fmt.Errorf("parse odds_ou: %w", err)
	}
	if err := unmarshalIfPresent(linesJSON, &lines); err != nil {
		return nil, fmt.Errorf("parse lines: %w", err)
	}
	if err := unmarshalIfPresent(idsJSON, &ids); err != nil {
		return nil, fmt.Errorf("parse ids: %w", err)
	}
	if err := unmarshalIfPresent(stakesJSON, &stakes); err != nil {
		return nil, fmt.Errorf("parse max_stakes: %w", err)
	}
	if err := unmarshalIfPresent(latestTJSON, &latestT); err != nil {
		return nil, fmt.Errorf("parse latest_t: %w", err)
	}

	update := &models.NormalizedUpdate{
		FixtureID: fixtureID,
		BookieID:  bookieID,
		Bookmaker: bookmaker,
		Timestamp: updatedAt.UnixMilli(),
		Decimals:  targetDecimals,
		IDs:       lastIDsEntry(ids),
		MaxStakes: lastStakesEntry(stakes),
		LatestT:   &latestT,
	}
	if len(lines) > 0 {
		update.AHLines = lines[len(lines)-1].AH
		update.OULines = lines[len(lines)-1].OU
	}
	if len(x12) > 0 && x12[len(x12)-1].X12 != nil {
		rescaled := rescaleTriple(*x12[len(x12)-1].X12, decimals, targetDecimals)
		update.X12 = &rescaled
	}
	if len(ah) > 0 {
		last := ah[len(ah)-1]
		update.AHH = rescaleSlice(last.AHH, decimals, targetDecimals)
		update.AHA = rescaleSlice(last.AHA, decimals, targetDecimals)
	}
	if len(ou) > 0 {
		last := ou[len(ou)-1]
		update.OUO = rescaleSlice(last.OUO, decimals, targetDecimals)
		update.OUU = rescaleSlice(last.OUU, decimals, targetDecimals)
	}
	return update, nil
}

func lastIDsEntry(ids []models.IDsEntry) *models.IDsEntry {
	if len(ids) == 0 {
		return nil
	}
	e := ids[len(ids)-1]
	return &e
}

func lastStakesEntry(stakes []models.MaxStakesEntry) *models.MaxStakesEntry {
	if len(stakes) == 0 {
		return nil
	}
	e := stakes[len(stakes)-1]
	return &e
}

func rescaleTriple(v [3]int32, from, to int) [3]int32 {
	return [3]int32{
		oddsmath.Rescale(v[0], from, to),
		oddsmath.Rescale(v[1], from, to),
		oddsmath.Rescale(v[2], from, to),
	}
}

func rescaleSlice(v []int32, from, to int) []int32 {
	if v == nil {
		return nil
	}
	out := make([]int32, len(v))
	for i, x := range v {
		out[i] = oddsmath.Rescale(x, from, to)
	}
	return out
}

func unmarshalIfPresent(raw []byte, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
