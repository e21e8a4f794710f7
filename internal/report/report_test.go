package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/simulative/grade-ingestion-service/internal/config"
	"github.com/simulative/grade-ingestion-service/internal/models"
)

var testSummary = models.Summary{
	Date:        time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC),
	UniqueUsers: 2,
	Attempts:    3,
	Submits:     1,
}

func TestRows_StableOrder(t *testing.T) {
	rows := Rows(testSummary)
	require.Len(t, rows, 3)
	assert.Equal(t, []interface{}{"Unique users", int64(2)}, rows[0])
	assert.Equal(t, []interface{}{"Attempts made", int64(3)}, rows[1])
	assert.Equal(t, []interface{}{"Successful attempts", int64(1)}, rows[2])
}

func TestText(t *testing.T) {
	want := "Report for 2023-04-05\n" +
		"Unique users: 2\n" +
		"Attempts made: 3\n" +
		"Successful attempts: 1\n"
	assert.Equal(t, want, Text(testSummary))
}

func TestValidateAddress(t *testing.T) {
	valid := []string{"user@example.com", "first.last+tag@mail.example.ru"}
	for _, addr := range valid {
		assert.NoError(t, ValidateAddress(addr), addr)
	}

	invalid := []string{"", "user", "user@", "user@example", "user@example.c", "us er@example.com"}
	for _, addr := range invalid {
		assert.ErrorIs(t, ValidateAddress(addr), ErrInvalidAddress, addr)
	}
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("from@example.com", "to@example.com", Subject, "body text"))

	assert.True(t, strings.HasPrefix(msg, "From: from@example.com\r\nTo: to@example.com\r\n"))
	assert.Contains(t, msg, "Subject: Students grade report\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=\"utf-8\"\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nbody text"))
}

func TestSMTPMailer_RejectsInvalidRecipient(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{SMTPHost: "127.0.0.1", SMTPPort: 1, From: "from@example.com"})
	err := m.Send(context.Background(), "not-an-address", Subject, "body")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestNewMailer(t *testing.T) {
	_, err := NewMailer(config.MailConfig{Transport: "smtp"})
	assert.Error(t, err)

	m, err := NewMailer(config.MailConfig{Transport: "smtp", From: "from@example.com"})
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)

	_, err = NewMailer(config.MailConfig{Transport: "fax", From: "from@example.com"})
	assert.EqualError(t, err, "unsupported mail transport: fax")
}

func TestSESMailer_Send(t *testing.T) {
	var form map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(`<SendEmailResponse xmlns="http://ses.amazonaws.com/doc/2010-12-01/">
  <SendEmailResult><MessageId>msg-1</MessageId></SendEmailResult>
  <ResponseMetadata><RequestId>req-1</RequestId></ResponseMetadata>
</SendEmailResponse>`))
	}))
	defer server.Close()

	m, err := NewSESMailer(config.MailConfig{From: "from@example.com"}, &aws.Config{
		Region:      aws.String("us-west-2"),
		Endpoint:    aws.String(server.URL),
		Credentials: credentials.NewStaticCredentials("id", "secret", ""),
	})
	require.NoError(t, err)

	require.NoError(t, m.Send(context.Background(), "to@example.com", Subject, Text(testSummary)))
	assert.Equal(t, []string{"SendEmail"}, form["Action"])
	assert.Equal(t, []string{"from@example.com"}, form["Source"])
	assert.Equal(t, []string{"to@example.com"}, form["Destination.ToAddresses.member.1"])
	assert.Equal(t, []string{Subject}, form["Message.Subject.Data"])
}

func TestSheetWriter_Write(t *testing.T) {
	var (
		path    string
		query   map[string][]string
		payload struct {
			Values [][]interface{} `json:"values"`
		}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		query = r.URL.Query()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"spreadsheetId":"sheet-1","updatedRange":"Sheet1!A1:B3","updatedCells":6}`))
	}))
	defer server.Close()

	writer, err := NewSheetWriter(context.Background(),
		config.SheetsConfig{SpreadsheetID: "sheet-1", Range: "A1:B3"},
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	require.NoError(t, writer.Write(context.Background(), testSummary))
	assert.Equal(t, "/v4/spreadsheets/sheet-1/values/A1:B3", path)
	assert.Equal(t, []string{"RAW"}, query["valueInputOption"])
	require.Len(t, payload.Values, 3)
	assert.Equal(t, []interface{}{"Unique users", float64(2)}, payload.Values[0])
}

func TestNewSheetWriter_RequiresSpreadsheetID(t *testing.T) {
	_, err := NewSheetWriter(context.Background(), config.SheetsConfig{})
	assert.Error(t, err)
}
