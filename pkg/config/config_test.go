package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/quarrylabs/quarry/pkg/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).NotTo(BeNil())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Version).To(Equal(defaults.Version))
			Expect(cfg.Storage.Provider).To(Equal(defaults.Storage.Provider))
			Expect(cfg.Storage.Path).To(Equal(defaults.Storage.Path))
			Expect(cfg.API.Listen).To(Equal(defaults.API.Listen))
			Expect(cfg.VectorStore.Provider).To(Equal(defaults.VectorStore.Provider))
			Expect(cfg.VectorStore.Collection).To(Equal(defaults.VectorStore.Collection))
			Expect(cfg.Embedding.Provider).To(Equal(defaults.Embedding.Provider))
			Expect(cfg.Embedding.Target).To(Equal(defaults.Embedding.Target))
			Expect(cfg.Embedding.Model).To(Equal(defaults.Embedding.Model))
			Expect(cfg.Embedding.Dimensions).To(Equal(defaults.Embedding.Dimensions))
			Expect(cfg.EventStream.Provider).To(Equal("nop"))
			Expect(cfg.Ingest.Workers).To(Equal(uint(3)))
		})

		It("loads a valid config file", func() {
			data := `version = 0

[storage]
provider = "sqlite"
path = "chunks.db"

[embedding]
dimensions = 768
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).NotTo(BeNil())
			Expect(cfg.Version).To(Equal(0))
			Expect(cfg.Storage.Provider).To(Equal("sqlite"))
			Expect(cfg.Storage.Path).To(Equal("chunks.db"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
		})

		It("fills unset fields with defaults", func() {
			data := `[vector_store]
provider = "chroma"
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.VectorStore.Provider).To(Equal("chroma"))
			Expect(cfg.VectorStore.Target).To(Equal("http://localhost:8000"))
			Expect(cfg.Embedding.Model).To(Equal("all-minilm"))
			Expect(cfg.API.Listen).To(Equal(":8080"))
		})

		It("rejects unsupported config versions", func() {
			data := `version = 99`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unsupported config version"))
		})
	})

	Describe("SaveConfig", func() {
		It("round-trips a config through disk", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.VectorStore.Provider = "qdrant"
			cfg.VectorStore.Host = "localhost"
			cfg.VectorStore.Port = 6334
			cfg.EventStream.Provider = "kafka"
			cfg.EventStream.Brokers = []string{"localhost:9092"}

			Expect(c.SaveConfig(cfg)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.VectorStore.Provider).To(Equal("qdrant"))
			Expect(loaded.VectorStore.Host).To(Equal("localhost"))
			Expect(loaded.VectorStore.Port).To(Equal(6334))
			Expect(loaded.EventStream.Brokers).To(Equal([]string{"localhost:9092"}))
		})

		It("rejects a nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(HaveOccurred())
		})
	})

	Describe("config keys", func() {
		It("validates known keys", func() {
			Expect(config.IsValidConfigKey("embedding.model")).To(BeTrue())
			Expect(config.IsValidConfigKey("ingest.workers")).To(BeTrue())
			Expect(config.IsValidConfigKey("made.up.key")).To(BeFalse())
		})

		It("lists every key exactly once", func() {
			keys := config.ValidConfigKeys()
			seen := make(map[string]bool, len(keys))
			for _, k := range keys {
				Expect(seen[k]).To(BeFalse(), "duplicate key %s", k)
				seen[k] = true
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
			Expect(keys).To(ContainElement("vector_store.provider"))
			Expect(keys).To(ContainElement("eventstream.brokers"))
		})

		It("gets and sets values through the dotted key map", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("embedding.model", "nomic-embed-text")).To(Succeed())
			got, err := c.GetConfigValue("embedding.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("nomic-embed-text"))
		})

		It("parses list-valued keys", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("eventstream.brokers", "b1:9092, b2:9092")).To(Succeed())
			got, err := c.GetConfigValue("eventstream.brokers")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("b1:9092,b2:9092"))
		})

		It("rejects non-numeric dimensions", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SetConfigValue("embedding.dimensions", "not-a-number")).To(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SetConfigValue("nope", "x")).To(HaveOccurred())
			_, err = c.GetConfigValue("nope")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("Viper integration", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "viper-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("applies defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("embedding.provider")).To(Equal("ollama"))
		Expect(v.GetUint("embedding.dimensions")).To(Equal(uint(384)))
		Expect(v.GetString("api.listen")).To(Equal(":8080"))
	})

	It("prefers config file values over defaults", func() {
		data := `[api]
listen = ":9999"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("api.listen")).To(Equal(":9999"))
	})

	It("prefers environment variables over config file values", func() {
		Expect(os.Setenv("QUARRY_API_LISTEN", ":7777")).To(Succeed())
		DeferCleanup(func() { os.Unsetenv("QUARRY_API_LISTEN") })

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("api.listen")).To(Equal(":7777"))
	})

	It("binds registered flags above everything else", func() {
		cmd := &cobra.Command{Use: "test"}
		fs := config.FlagSet{
			config.FlagAPIListen: {
				Name:        "listen",
				ViperKey:    "api.listen",
				Description: "API listen address",
			},
		}

		var listen string
		config.AddStringFlag(cmd, fs, config.FlagAPIListen, &listen)
		Expect(cmd.Flags().Set("listen", ":5555")).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		config.BindRegisteredFlags(v, cmd, fs, []string{config.FlagAPIListen})
		Expect(v.GetString("api.listen")).To(Equal(":5555"))
	})
})

var _ = Describe("ResolveStorePaths", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-paths-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("anchors relative store paths in the quarry directory", func() {
		cfg := &config.Config{}
		cfg.Storage.Path = "chunks.json"
		cfg.VectorStore.Path = "vectors.db"

		Expect(config.ResolveStorePaths(cfg, tmpDir)).To(Succeed())
		Expect(cfg.Storage.Path).To(Equal(filepath.Join(tmpDir, "chunks.json")))
		Expect(cfg.VectorStore.Path).To(Equal(filepath.Join(tmpDir, "vectors.db")))
	})

	It("leaves absolute paths untouched", func() {
		abs := filepath.Join(tmpDir, "elsewhere", "chunks.json")
		cfg := &config.Config{}
		cfg.Storage.Path = abs

		Expect(config.ResolveStorePaths(cfg, tmpDir)).To(Succeed())
		Expect(cfg.Storage.Path).To(Equal(abs))
	})

	It("leaves empty paths empty", func() {
		cfg := &config.Config{}
		Expect(config.ResolveStorePaths(cfg, tmpDir)).To(Succeed())
		Expect(cfg.Storage.Path).To(BeEmpty())
		Expect(cfg.VectorStore.Path).To(BeEmpty())
	})
})
