package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simulative/grade-ingestion-service/internal/models"
)

func TestNormalize_Example(t *testing.T) {
	raw := []models.RawAttempt{{
		LTIUserID:      "u1",
		PassbackParams: "{'key': 'oauth_abc'}, {'key': 'src_123'}",
		IsCorrect:      models.Ptr(1),
		AttemptType:    models.Ptr("submit"),
		CreatedAt:      "2023-04-05 10:00:00.000000",
	}}

	records, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, models.AttemptRecord{
		UserID:             "u1",
		OAuthConsumerKey:   models.Ptr("oauth_abc"),
		LISResultSourcedID: models.Ptr("src_123"),
		IsCorrect:          models.Ptr(1),
		AttemptType:        models.Ptr("submit"),
		CreatedAt:          time.Date(2023, 4, 5, 10, 0, 0, 0, time.UTC),
	}, records[0])
}

func TestNormalize_DropsRecordsWithoutMandatoryFields(t *testing.T) {
	raw := []models.RawAttempt{
		{LTIUserID: "", PassbackParams: "{'a': 'b'}, {'c': 'd'}", CreatedAt: "2023-04-05 10:00:00.000000"},
		{LTIUserID: "u2", PassbackParams: "", CreatedAt: "2023-04-05 10:00:00.000000"},
		{LTIUserID: "u3", PassbackParams: "{'a': 'b'}, {'c': 'd'}", CreatedAt: "2023-04-05 10:00:00.000000"},
		// Dropped records are not parsed, so a bad timestamp here is ignored.
		{LTIUserID: "", PassbackParams: "", CreatedAt: "garbage"},
	}

	records, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "u3", records[0].UserID)
}

func TestNormalize_OutcomeURLOnlyWithThreeSegments(t *testing.T) {
	tests := []struct {
		name     string
		passback string
		wantURL  *string
	}{
		{
			name:     "two segments",
			passback: "{'k': 'key1'}, {'k': 'src1'}",
			wantURL:  nil,
		},
		{
			name:     "three segments",
			passback: "{'k': 'key1'}, {'k': 'src1'}, {'k': 'https://lms.example.com/outcome'}",
			wantURL:  models.Ptr("https://lms.example.com/outcome"),
		},
		{
			name:     "four segments",
			passback: "{'k': 'key1'}, {'k': 'src1'}, {'k': 'https://lms.example.com'}, {'k': 'extra'}",
			wantURL:  nil,
		},
		{
			name:     "unread trailing segment without value",
			passback: "{'k': 'key1'}, {'k': 'src1'}, {'k': 'https://lms.example.com'}, {tail}",
			wantURL:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Normalize([]models.RawAttempt{{
				LTIUserID:      "u1",
				PassbackParams: tt.passback,
				CreatedAt:      "2023-04-05 10:00:00.000000",
			}})
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, tt.wantURL, records[0].LISOutcomeServiceURL)
			assert.Equal(t, "src1", *records[0].LISResultSourcedID)
		})
	}
}

func TestNormalize_KeyedParamsIgnoreOrder(t *testing.T) {
	tests := []struct {
		name     string
		passback string
		wantKey  *string
		wantSrc  *string
		wantURL  *string
	}{
		{
			name:     "three named segments in any order",
			passback: "{'lis_result_sourcedid': 'src_9', 'lis_outcome_service_url': 'https://lms.example.com/o', 'oauth_consumer_key': 'ck'}",
			wantKey:  models.Ptr("ck"),
			wantSrc:  models.Ptr("src_9"),
			wantURL:  models.Ptr("https://lms.example.com/o"),
		},
		{
			name:     "two named segments keep the url null",
			passback: "{'lis_outcome_service_url': 'https://lms.example.com/o', 'lis_result_sourcedid': 'src_9'}",
			wantSrc:  models.Ptr("src_9"),
		},
		{
			name:     "four named segments keep the url null",
			passback: "{'oauth_consumer_key': 'ck', 'lis_result_sourcedid': 'src_9', 'lis_outcome_service_url': 'u', 'lis_outcome_service_url': 'v'}",
			wantKey:  models.Ptr("ck"),
			wantSrc:  models.Ptr("src_9"),
		},
		{
			name:     "missing source id falls back to positions",
			passback: "{'oauth_consumer_key': 'ck', 'lis_outcome_service_url': 'https://x'}",
			wantKey:  models.Ptr("ck"),
			wantSrc:  models.Ptr("https://x"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Normalize([]models.RawAttempt{{
				LTIUserID:      "u1",
				PassbackParams: tt.passback,
				CreatedAt:      "2023-04-05 10:00:00.000000",
			}})
			require.NoError(t, err)
			require.Len(t, records, 1)

			assert.Equal(t, tt.wantKey, records[0].OAuthConsumerKey)
			assert.Equal(t, tt.wantSrc, records[0].LISResultSourcedID)
			assert.Equal(t, tt.wantURL, records[0].LISOutcomeServiceURL)
		})
	}
}

func TestNormalize_EmptyConsumerKeyIsNull(t *testing.T) {
	records, err := Normalize([]models.RawAttempt{{
		LTIUserID:      "u1",
		PassbackParams: "{'oauth_consumer_key': '', 'lis_result_sourcedid': 'src_1'}",
		CreatedAt:      "2023-04-05 10:00:00.000000",
	}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].OAuthConsumerKey)
	assert.Nil(t, records[0].LISOutcomeServiceURL)
}

func TestNormalize_MalformedInput(t *testing.T) {
	tests := []struct {
		name      string
		passback  string
		createdAt string
		reason    string
	}{
		{"single segment", "{'key': 'only'}", "2023-04-05 10:00:00.000000", "1 segment"},
		{"segment without value", "{'key': 'a'}, {broken}", "2023-04-05 10:00:00.000000", "has no value"},
		{"url segment without value", "{'key': 'a'}, {'key': 'b'}, {broken}", "2023-04-05 10:00:00.000000", "segment 2"},
		{"timestamp without fraction", "{'k': 'a'}, {'k': 'b'}", "2023-04-05 10:00:00", "created_at"},
		{"other timestamp format", "{'k': 'a'}, {'k': 'b'}", "2023-04-05T10:00:00Z", "created_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize([]models.RawAttempt{
				{LTIUserID: "u0", PassbackParams: "{'k': 'a'}, {'k': 'b'}", CreatedAt: "2023-04-05 09:00:00.000000"},
				{LTIUserID: "u1", PassbackParams: tt.passback, CreatedAt: tt.createdAt},
			})
			var malformed *MalformedError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, 1, malformed.Index)
			assert.Equal(t, "u1", malformed.UserID)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}
