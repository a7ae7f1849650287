package accel_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAccel(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Accel Suite")
}
