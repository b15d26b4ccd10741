package versioncmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	versioncmder "github.com/papercomputeco/worldstate/cmd/version"
	"github.com/papercomputeco/worldstate/pkg/utils"
)

var _ = Describe("Version command", func() {
	It("prints the build metadata", func() {
		cmd := versioncmder.NewVersionCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetArgs([]string{})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring(utils.Version))
		Expect(out.String()).To(ContainSubstring(utils.Sha))
		Expect(out.String()).To(ContainSubstring("Built at:"))
	})

	It("takes no arguments", func() {
		cmd := versioncmder.NewVersionCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"extra"})
		Expect(cmd.Execute()).To(HaveOccurred())
	})
})
