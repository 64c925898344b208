package logging

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomFormatter_Format(t *testing.T) {
	f := &CustomFormatter{SystemName: "taskboard-service"}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "Event ID: REMINDER_SCAN, Description: scanned",
		Data:    logrus.Fields{"user": "u1", "count": 2},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)

	line := string(out)
	assert.Contains(t, line, "Date: 2024-03-09, Time: 14:05:07, ")
	assert.Contains(t, line, "Event Source: taskboard-service, ")
	assert.Contains(t, line, "Event Type: WARNING, ")
	assert.Regexp(t, `Event ID: [0-9a-f-]{36}, `, line)
	assert.Contains(t, line, "Message: Event ID: REMINDER_SCAN, Description: scanned, count=2, user=u1")
	assert.Equal(t, byte('\n'), out[len(out)-1])
}

func TestCustomFormatter_Location(t *testing.T) {
	f := &CustomFormatter{SystemName: "svc", Location: time.FixedZone("CEST", 2*60*60)}
	out, err := f.Format(&logrus.Entry{
		Logger: logrus.New(),
		Time:   time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC),
		Level:  logrus.InfoLevel,
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), "Date: 2024-03-10, Time: 01:30:00, ")
}

func TestConfigure(t *testing.T) {
	l := logrus.New()
	path := filepath.Join(t.TempDir(), "logs", "taskboard.log")

	configure(l, Options{SystemName: "svc", FilePath: path, Level: "debug"})
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &CustomFormatter{}, l.Formatter)
	assert.DirExists(t, filepath.Dir(path))

	configure(l, Options{SystemName: "svc", Level: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestCustomFormatter_ReusesEntryBuffer(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &CustomFormatter{SystemName: "svc"}
	out, err := f.Format(&logrus.Entry{Logger: logrus.New(), Buffer: buf, Level: logrus.ErrorLevel, Message: "x"})
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), out)
}
