package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validRepeater() *Repeater {
	return &Repeater{
		Callsign:  "DB0ABC",
		Band:      "2m",
		FreqMHz:   145.725,
		ShiftMHz:  -0.6,
		Latitude:  48.1,
		Longitude: 11.5,
	}
}

func TestRepeaterValidate(t *testing.T) {
	assert.NoError(t, validRepeater().Validate())

	r := validRepeater()
	r.Callsign = "  "
	assert.Error(t, r.Validate())

	r = validRepeater()
	r.FreqMHz = 0
	assert.Error(t, r.Validate())

	r = validRepeater()
	r.Band = "13cm"
	assert.Error(t, r.Validate())

	r = validRepeater()
	r.Latitude = 91
	assert.Error(t, r.Validate())

	r = validRepeater()
	r.Longitude = -181
	assert.Error(t, r.Validate())
}
