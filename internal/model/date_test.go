package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slok/projplan/internal/model"
)

func TestParseDate(t *testing.T) {
	exp := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		in  string
		exp *time.Time
	}{
		"ISO format":         {in: "2024-01-31", exp: &exp},
		"US slash format":    {in: "01/31/2024", exp: &exp},
		"US dash format":     {in: "01-31-2024", exp: &exp},
		"year first slashes": {in: "2024/01/31", exp: &exp},
		"surrounding spaces": {in: " 2024-01-31 ", exp: &exp},
		"empty is missing":   {in: "", exp: nil},
		"garbage is missing": {in: "next tuesday", exp: nil},
		"invalid day is nil": {in: "2024-02-31", exp: nil},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, model.ParseDate(test.in))
		})
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "", model.FormatDate(nil))
	assert.Equal(t, "2024-01-08", model.FormatDate(model.ParseDate("01/08/2024")))
}

func TestDateOf(t *testing.T) {
	in := time.Date(2024, 5, 6, 23, 59, 1, 5, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), model.DateOf(in))
}
