package coupling_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestCoupling(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Coupling Suite")
}
