package models

import "time"

// RawAttempt represents one attempt object returned by the statistics API
type RawAttempt struct {
	LTIUserID      string  `json:"lti_user_id" bson:"lti_user_id"`
	PassbackParams string  `json:"passback_params" bson:"passback_params"`
	IsCorrect      *int    `json:"is_correct" bson:"is_correct"`
	AttemptType    *string `json:"attempt_type" bson:"attempt_type"`
	CreatedAt      string  `json:"created_at" bson:"created_at"`
}

// AttemptRecord is one row of the students_grade table
type AttemptRecord struct {
	ID                   int64     `json:"id"`
	UserID               string    `json:"user_id"`
	OAuthConsumerKey     *string   `json:"oauth_consumer_key"`
	LISResultSourcedID   *string   `json:"lis_result_sourcedid"`
	LISOutcomeServiceURL *string   `json:"lis_outcome_service_url"`
	IsCorrect            *int      `json:"is_correct"`
	AttemptType          *string   `json:"attempt_type"`
	CreatedAt            time.Time `json:"created_at"`
}

// Summary holds the daily aggregate counts in report order
type Summary struct {
	Date        time.Time `json:"date"`
	UniqueUsers int64     `json:"unique_users"`
	Attempts    int64     `json:"attempts"`
	Submits     int64     `json:"submits"`
}

// RawBatch is one API response kept by the archive before normalization
type RawBatch struct {
	RunID     string       `json:"run_id" bson:"run_id" dynamodbav:"run_id"`
	Start     string       `json:"start" bson:"start" dynamodbav:"start"`
	End       string       `json:"end" bson:"end" dynamodbav:"end"`
	FetchedAt time.Time    `json:"fetched_at" bson:"fetched_at" dynamodbav:"fetched_at"`
	Attempts  []RawAttempt `json:"attempts" bson:"attempts" dynamodbav:"attempts"`
}

// IngestionStatus tracks the status of ingestion runs
type IngestionStatus struct {
	RunID             string    `json:"run_id" bson:"run_id" dynamodbav:"run_id"`
	LastSuccessfulRun time.Time `json:"last_successful_run" bson:"last_successful_run" dynamodbav:"last_successful_run"`
	LastAttempt       time.Time `json:"last_attempt" bson:"last_attempt" dynamodbav:"last_attempt"`
	Status            string    `json:"status" bson:"status" dynamodbav:"status"` // "success", "failure", "running", "never_run"
	ErrorMessage      string    `json:"error_message,omitempty" bson:"error_message,omitempty" dynamodbav:"error_message,omitempty"`
	RecordsFetched    int       `json:"records_fetched" bson:"records_fetched" dynamodbav:"records_fetched"`
	RecordsIngested   int       `json:"records_ingested" bson:"records_ingested" dynamodbav:"records_ingested"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
