package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateRecord inserts an analysis record in the pending state. A missing
// identifier is assigned a fresh uuid.
func (s *Store) CreateRecord(ctx context.Context, record *AnalysisRecord) error {
	if record == nil {
		return errors.New("record is nil")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = RecordPending
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	historyJSON, err := marshalHistory(record.StatusHistory)
	if err != nil {
		return err
	}

	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO analysis_records (
            id, video_id, window_start, window_end, fused_confidence,
            product_json, sentiment_score, endorsement_score, source_trust_score,
            attractiveness, ppl_probability, ppl_class, monetizable, product_link,
            status, status_history, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.VideoID,
		record.WindowStart,
		record.WindowEnd,
		record.FusedConfidence,
		nullableString(record.ProductJSON),
		record.SentimentScore,
		record.EndorsementScore,
		record.SourceTrustScore,
		record.Attractiveness,
		record.PPLProbability,
		nullableString(record.PPLClass),
		boolToInt(record.Monetizable),
		nullableString(record.ProductLink),
		record.Status,
		nullableString(historyJSON),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// GetRecord fetches an analysis record by identifier.
func (s *Store) GetRecord(ctx context.Context, id string) (*AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM analysis_records WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// UpdateRecord persists scoring fields of an existing record. The workflow
// status is only changed through TransitionRecord.
func (s *Store) UpdateRecord(ctx context.Context, record *AnalysisRecord) error {
	if record == nil {
		return errors.New("record is nil")
	}
	record.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE analysis_records
         SET fused_confidence = ?, product_json = ?, sentiment_score = ?,
             endorsement_score = ?, source_trust_score = ?, attractiveness = ?,
             ppl_probability = ?, ppl_class = ?, monetizable = ?, product_link = ?,
             updated_at = ?
         WHERE id = ?`,
		record.FusedConfidence,
		nullableString(record.ProductJSON),
		record.SentimentScore,
		record.EndorsementScore,
		record.SourceTrustScore,
		record.Attractiveness,
		record.PPLProbability,
		nullableString(record.PPLClass),
		boolToInt(record.Monetizable),
		nullableString(record.ProductLink),
		record.UpdatedAt.Format(time.RFC3339Nano),
		record.ID,
	); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

// TransitionRecord moves a record along one edge of the review workflow
// graph, appending the change to the record's status history. Requests that
// do not match a legal edge return ErrIllegalTransition.
func (s *Store) TransitionRecord(ctx context.Context, id string, to RecordState, note string) (*AnalysisRecord, error) {
	ctx = ensureContext(ctx)
	if _, ok := recordStateSet[to]; !ok {
		return nil, fmt.Errorf("%w: unknown state %q", ErrIllegalTransition, to)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT status, status_history FROM analysis_records WHERE id = ?`, id)
	var (
		currentStr string
		historyRaw sql.NullString
	)
	if err := row.Scan(&currentStr, &historyRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load record status: %w", err)
	}

	from := RecordState(currentStr)
	if !CanTransitionRecord(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}

	history, err := unmarshalHistory(historyRaw.String)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	history = append(history, StatusChange{From: from, To: to, Note: note, At: now})
	historyJSON, err := marshalHistory(history)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE analysis_records SET status = ?, status_history = ?, updated_at = ? WHERE id = ?`,
		to,
		historyJSON,
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return nil, fmt.Errorf("apply transition: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	return s.GetRecord(ctx, id)
}

// RecordsForVideo returns all records belonging to a video ordered by window start.
func (s *Store) RecordsForVideo(ctx context.Context, videoID int64) ([]*AnalysisRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM analysis_records WHERE video_id = ? ORDER BY window_start`, videoID)
	if err != nil {
		return nil, fmt.Errorf("records for video: %w", err)
	}
	return collectRecords(rows)
}

// ListRecords returns records filtered by state set (or all when no state is provided).
func (s *Store) ListRecords(ctx context.Context, states ...RecordState) ([]*AnalysisRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + recordColumns + ` FROM analysis_records`
	orderClause := ` ORDER BY created_at`

	if len(states) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(states))
		args := make([]any, len(states))
		for i, state := range states {
			args[i] = state
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return collectRecords(rows)
}

// RecordStats returns a count of records grouped by workflow state.
func (s *Store) RecordStats(ctx context.Context) (map[RecordState]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM analysis_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("record stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[RecordState]int)
	for rows.Next() {
		var state RecordState
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[state] = count
	}
	return stats, rows.Err()
}

const recordColumns = "id, video_id, window_start, window_end, fused_confidence, product_json, sentiment_score, endorsement_score, source_trust_score, attractiveness, ppl_probability, ppl_class, monetizable, product_link, status, status_history, created_at, updated_at"

func collectRecords(rows *sql.Rows) ([]*AnalysisRecord, error) {
	defer rows.Close()
	var records []*AnalysisRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*AnalysisRecord, error) {
	var (
		id          string
		videoID     int64
		windowStart float64
		windowEnd   float64
		fused       sql.NullFloat64
		productJSON sql.NullString
		sentiment   sql.NullFloat64
		endorsement sql.NullFloat64
		sourceTrust sql.NullFloat64
		attract     sql.NullInt64
		pplProb     sql.NullFloat64
		pplClass    sql.NullString
		monetizable sql.NullInt64
		productLink sql.NullString
		statusStr   string
		historyRaw  sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&videoID,
		&windowStart,
		&windowEnd,
		&fused,
		&productJSON,
		&sentiment,
		&endorsement,
		&sourceTrust,
		&attract,
		&pplProb,
		&pplClass,
		&monetizable,
		&productLink,
		&statusStr,
		&historyRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &AnalysisRecord{
		ID:               id,
		VideoID:          videoID,
		WindowStart:      windowStart,
		WindowEnd:        windowEnd,
		FusedConfidence:  fused.Float64,
		ProductJSON:      productJSON.String,
		SentimentScore:   sentiment.Float64,
		EndorsementScore: endorsement.Float64,
		SourceTrustScore: sourceTrust.Float64,
		Attractiveness:   int(attract.Int64),
		PPLProbability:   pplProb.Float64,
		PPLClass:         pplClass.String,
		ProductLink:      productLink.String,
		Status:           RecordState(statusStr),
	}
	if monetizable.Valid {
		record.Monetizable = monetizable.Int64 != 0
	}

	history, err := unmarshalHistory(historyRaw.String)
	if err != nil {
		return nil, err
	}
	record.StatusHistory = history

	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}

func marshalHistory(history []StatusChange) (string, error) {
	if len(history) == 0 {
		return "", nil
	}
	data, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("marshal status history: %w", err)
	}
	return string(data), nil
}

func unmarshalHistory(raw string) ([]StatusChange, error) {
	if raw == "" {
		return nil, nil
	}
	var history []StatusChange
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("unmarshal status history: %w", err)
	}
	return history, nil
}
