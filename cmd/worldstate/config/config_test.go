package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/worldstate/cmd/worldstate/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := configcmder.NewConfigCmd()
		cmd.SetArgs(args)
		cmd.SetOut(out)
		cmd.SetErr(out)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "worldstate-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .worldstate dir so the manager picks it up
		err = os.MkdirAll(filepath.Join(tmpDir, ".worldstate"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			Expect(run("set", "storage.driver", "sqlite")).To(Succeed())

			data, err := os.ReadFile(filepath.Join(tmpDir, ".worldstate", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`driver = "sqlite"`))
			Expect(out.String()).To(ContainSubstring("storage.driver"))
		})

		It("rejects unknown keys", func() {
			err := run("set", "invalid_key", "value")
			Expect(err).To(MatchError(ContainSubstring("Valid keys:")))
		})

		It("requires exactly two arguments", func() {
			Expect(run("set", "storage.driver")).To(HaveOccurred())
		})

		It("rejects zero arguments", func() {
			Expect(run("set")).To(HaveOccurred())
		})

		It("rejects invalid uint values", func() {
			Expect(run("set", "interceptor.timeout_ms", "not-a-number")).To(HaveOccurred())
		})

		It("rejects values outside an enumeration", func() {
			Expect(run("set", "events.provider", "nats")).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(run("set", "api.listen", ":9001")).To(Succeed())

			out.Reset()
			Expect(run("get", "api.listen")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(":9001"))
		})

		It("shows <not set> for an unset key", func() {
			Expect(run("get", "storage.postgres_dsn")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("<not set>"))
		})

		It("rejects unknown keys", func() {
			Expect(run("get", "invalid_key")).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			Expect(run("get")).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists defaults when no config exists", func() {
			Expect(run("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(`settings.module_key    = "world_state"`))
			Expect(out.String()).To(ContainSubstring("storage.postgres_dsn   = <not set>"))
		})

		It("lists saved values", func() {
			Expect(run("set", "events.brokers", "a:9092,b:9092")).To(Succeed())

			out.Reset()
			Expect(run("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(`"a:9092,b:9092"`))
		})

		It("rejects any arguments", func() {
			Expect(run("list", "extra")).To(HaveOccurred())
		})
	})
})
