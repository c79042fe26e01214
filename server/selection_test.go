package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSelection(t *testing.T) {
	all := []string{"São Paulo", "Campinas", "Recife"}

	tests := []struct {
		name    string
		target  string
		want    []string
		showRaw bool
	}{
		{"first visit selects all", "/", all, false},
		{"applied with nothing selected", "/?apply=1", []string{}, false},
		{"explicit cities", "/?city=Recife&city=Campinas", []string{"Recife", "Campinas"}, false},
		{"duplicates and blanks dropped", "/?apply=1&city=Recife&city=&city=Recife", []string{"Recife"}, false},
		{"raw toggle", "/?city=Recife&raw=1", []string{"Recife"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := ParseSelection(httptest.NewRequest("GET", tt.target, nil), all)
			assert.Equal(t, tt.want, sel.Cities)
			assert.Equal(t, tt.showRaw, sel.ShowRaw)
		})
	}
}

func TestSelectionQueryRoundTrip(t *testing.T) {
	sel := Selection{Cities: []string{"São Paulo", "Campinas"}, ShowRaw: true}
	target := "/?" + sel.Query().Encode()

	got := ParseSelection(httptest.NewRequest("GET", target, nil), nil)
	assert.Equal(t, sel, got)
	assert.True(t, got.Has("Campinas"))
	assert.False(t, got.Has("Recife"))
}
