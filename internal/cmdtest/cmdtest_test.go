package cmdtest

import (
	"testing"
)

func TestMain(m *testing.M) {
	Main(m)
}

func TestCapres(t *testing.T) {
	Run(t, "testdata/capres")
}
