package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/worldstate/pkg/dotdir"
)

var _ = Describe("Layout", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "layout-test-*")
		Expect(err).NotTo(HaveOccurred())
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("places every entry under the root", func() {
		l := dotdir.LayoutOf("/srv/ws")
		Expect(l.Root).To(Equal("/srv/ws"))
		Expect(l.Settings).To(Equal("/srv/ws/settings.toml"))
		Expect(l.SQLite).To(Equal("/srv/ws/worldstate.db"))
		Expect(l.Lorebooks).To(Equal("/srv/ws/lorebooks"))
		Expect(l.Connections).To(Equal("/srv/ws/connections.toml"))
	})

	It("creates the lorebook directory on Init", func() {
		root := filepath.Join(tmpDir, "ws")
		l, err := dotdir.NewManager().Init(root)
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Root).To(Equal(root))
		Expect(l.Lorebooks).To(BeADirectory())
	})

	It("leaves existing lorebooks in place", func() {
		books := filepath.Join(tmpDir, dotdir.LorebookDir)
		Expect(os.MkdirAll(books, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(books, "Aria.json"), []byte(`{"entries":{}}`), 0o600)).To(Succeed())

		_, err := dotdir.NewManager().Init(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Join(books, "Aria.json")).To(BeARegularFile())
	})
})
