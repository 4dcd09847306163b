package migrations

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbedded(t *testing.T) {
	all, err := Embedded()
	require.NoError(t, err)
	require.Equal(t, []Migration{{Version: 1, Name: "init"}}, all)
}

func TestPending(t *testing.T) {
	all := []Migration{{Version: 1, Name: "init"}, {Version: 2, Name: "delta_indexes"}, {Version: 5, Name: "retention"}}

	tests := []struct {
		name    string
		current uint
		want    []Migration
	}{
		{"fresh database", 0, all},
		{"behind", 1, all[1:]},
		{"between versions", 3, all[2:]},
		{"up to date", 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Pending(all, tt.current))
		})
	}
}

func TestSchema_Current(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
		want   bool
	}{
		{"latest", Schema{Version: 1, Latest: 1}, true},
		{"behind", Schema{Version: 0, Latest: 1}, false},
		{"dirty", Schema{Version: 1, Dirty: true, Latest: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.schema.Current())
		})
	}
}
