package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/simulative/grade-ingestion-service/internal/models"
)

// CreatedAtLayout is the fixed format of created_at in API responses.
const CreatedAtLayout = "2006-01-02 15:04:05.000000"

// readSegments is the number of passback segments mapped onto columns.
const readSegments = 3

const (
	keyConsumer = "oauth_consumer_key"
	keySourceID = "lis_result_sourcedid"
	keyOutcome  = "lis_outcome_service_url"
)

// MalformedError reports an API record that cannot be normalized. It
// aborts the run.
type MalformedError struct {
	Index  int
	UserID string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed attempt %d (user %s): %s", e.Index, e.UserID, e.Reason)
}

type passbackParam struct {
	key   string
	value string
}

// Normalize reshapes API attempts into table rows. Attempts without a user
// id or passback parameters are dropped silently.
func Normalize(raw []models.RawAttempt) ([]models.AttemptRecord, error) {
	records := make([]models.AttemptRecord, 0, len(raw))

	for i, attempt := range raw {
		if attempt.LTIUserID == "" || attempt.PassbackParams == "" {
			continue
		}

		params, err := splitPassback(attempt.PassbackParams)
		if err != nil {
			return nil, &MalformedError{Index: i, UserID: attempt.LTIUserID, Reason: err.Error()}
		}

		createdAt, err := time.Parse(CreatedAtLayout, attempt.CreatedAt)
		if err != nil {
			return nil, &MalformedError{Index: i, UserID: attempt.LTIUserID, Reason: fmt.Sprintf("created_at: %v", err)}
		}

		rec := models.AttemptRecord{
			UserID:      attempt.LTIUserID,
			IsCorrect:   attempt.IsCorrect,
			AttemptType: attempt.AttemptType,
			CreatedAt:   createdAt,
		}
		if keyed(params) {
			assignByKey(&rec, params)
		} else {
			assignByPosition(&rec, params)
		}
		records = append(records, rec)
	}

	log.Info().Int("received", len(raw)).Int("kept", len(records)).Msg("attempts normalized")
	return records, nil
}

// splitPassback turns "{'k1': 'v1', 'k2': 'v2'}" into key/value pairs.
// Only the first readSegments segments must carry a value; later ones are
// never read.
func splitPassback(s string) ([]passbackParam, error) {
	segments := strings.Split(s, ",")
	if len(segments) < 2 {
		return nil, fmt.Errorf("passback_params has %d segment(s), want at least 2", len(segments))
	}

	params := make([]passbackParam, len(segments))
	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		seg = strings.ReplaceAll(seg, "'", "")
		seg = strings.ReplaceAll(seg, "}", "")
		key, value, ok := strings.Cut(seg, " ")
		if !ok && i < readSegments {
			return nil, fmt.Errorf("passback segment %d %q has no value", i, seg)
		}
		params[i] = passbackParam{
			key:   strings.Trim(key, `{:"`),
			value: strings.TrimSpace(value),
		}
	}
	return params, nil
}

// keyed reports whether every segment names a known LTI field and the
// source id is among them, in which case fields are matched by name rather
// than position.
func keyed(params []passbackParam) bool {
	hasSourceID := false
	for _, p := range params {
		switch p.key {
		case keySourceID:
			hasSourceID = true
		case keyConsumer, keyOutcome:
		default:
			return false
		}
	}
	return hasSourceID
}

// assignByKey maps named segments. The outcome URL is kept only when
// exactly three segments exist, as in the positional form.
func assignByKey(rec *models.AttemptRecord, params []passbackParam) {
	for _, p := range params {
		switch p.key {
		case keyConsumer:
			rec.OAuthConsumerKey = nonEmpty(p.value)
		case keySourceID:
			rec.LISResultSourcedID = models.Ptr(p.value)
		case keyOutcome:
			if len(params) == readSegments {
				rec.LISOutcomeServiceURL = models.Ptr(p.value)
			}
		}
	}
}

// assignByPosition reads consumer key, source id and, only when exactly
// three segments exist, the outcome URL.
func assignByPosition(rec *models.AttemptRecord, params []passbackParam) {
	rec.OAuthConsumerKey = nonEmpty(params[0].value)
	rec.LISResultSourcedID = models.Ptr(params[1].value)
	if len(params) == readSegments {
		rec.LISOutcomeServiceURL = models.Ptr(params[2].value)
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
