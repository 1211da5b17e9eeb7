package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, 3, "Extrayendo")

	bar.Add(1)
	bar.Describe("raices.pdf")
	bar.Add(2)
	bar.Finish()

	assert.Contains(t, buf.String(), "3/3")
}

func TestSpinner(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "Expandiendo archivo")

	assert.NotPanics(t, func() {
		s.Start()
		s.UpdateMessage("Convirtiendo planillas")
		s.Stop()
	})
}
