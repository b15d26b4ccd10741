package servecmder_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	servecmder "github.com/papercomputeco/worldstate/cmd/worldstate/serve"
	"github.com/papercomputeco/worldstate/pkg/config"
	"github.com/papercomputeco/worldstate/pkg/dotdir"
)

var _ = Describe("Serve command", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "worldstate-serve-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	newCmd := func(args ...string) (*bytes.Buffer, func(ctx context.Context) error) {
		cmd := servecmder.NewServeCmd()
		cmd.PersistentFlags().Bool("debug", false, "")
		cmd.PersistentFlags().String("config-dir", "", "")
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		return out, cmd.ExecuteContext
	}

	It("registers the service flags", func() {
		cmd := servecmder.NewServeCmd()
		for _, name := range []string{
			config.FlagListen,
			config.FlagStorageDriver,
			config.FlagSQLite,
			config.FlagPostgres,
			config.FlagModuleKey,
			config.FlagDebounce,
			config.FlagHookTimeout,
			config.FlagLorebookDir,
			config.FlagConnections,
			config.FlagEventsProvider,
			config.FlagEventsTopic,
		} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
		Expect(cmd.Flags().ShorthandLookup("l")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("log-file")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("log-source")).NotTo(BeNil())
	})

	It("rejects an unknown storage driver", func() {
		_, execute := newCmd("--storage", "etcd")
		Expect(execute(context.Background())).To(MatchError(ContainSubstring(`unknown storage driver "etcd"`)))
	})

	It("requires a DSN for postgres", func() {
		_, execute := newCmd("--storage", "postgres")
		Expect(execute(context.Background())).To(MatchError(ContainSubstring("postgres_dsn is required")))
	})

	It("rejects an unknown events provider", func() {
		_, execute := newCmd("--storage", "memory", "--events", "carrier-pigeon")
		Expect(execute(context.Background())).To(MatchError(ContainSubstring("unknown events provider")))
	})

	It("activates, persists the defaults and stops with its context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, execute := newCmd("--listen", "127.0.0.1:0")
		Expect(execute(ctx)).To(Succeed())

		data, err := os.ReadFile(filepath.Join(tmpDir, dotdir.SettingsFile))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("characterQuantity"))
	})

	It("writes JSON logs to --log-file alongside the terminal output", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		logPath := filepath.Join(tmpDir, "serve.log")
		out, execute := newCmd("--listen", "127.0.0.1:0", "--storage", "memory", "--log-file", logPath)
		Expect(execute(ctx)).To(Succeed())

		Expect(out.String()).To(ContainSubstring("world state activated"))

		f, err := os.Open(logPath)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		var messages []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var line map[string]any
			Expect(json.Unmarshal(scanner.Bytes(), &line)).To(Succeed())
			if msg, ok := line["msg"].(string); ok {
				messages = append(messages, msg)
			}
		}
		Expect(messages).To(ContainElement("world state activated"))
	})

	It("fails when the log file cannot be opened", func() {
		_, execute := newCmd("--storage", "memory", "--log-file", filepath.Join(tmpDir, "missing", "serve.log"))
		Expect(execute(context.Background())).To(MatchError(ContainSubstring("opening log file")))
	})
})
