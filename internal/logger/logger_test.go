package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "error", want: ERROR},
		{in: "WARN", want: WARN},
		{in: " info ", want: INFO},
		{in: "debug", want: DEBUG},
		{in: "verbose", want: INFO, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(WARN, &buf)

	l.Errorf("e %d", 1)
	l.Warnf("w %d", 2)
	l.Infof("i %d", 3)
	l.Debugf("d %d", 4)

	out := buf.String()
	assert.Contains(t, out, "e 1")
	assert.Contains(t, out, "w 2")
	assert.NotContains(t, out, "i 3")
	assert.NotContains(t, out, "d 4")
}

func TestNilLoggerIsSilent(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Infof("nothing") })
}
