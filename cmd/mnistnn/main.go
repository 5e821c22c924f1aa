// Command mnistnn trains a feed-forward digit classifier on IDX datasets,
// persists the learned weights, and evaluates saved models. The numeric
// engine lives in the library packages; this binary only wires configuration
// to them.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	gotoml "github.com/pelletier/go-toml"
	"go.dedis.ch/onet/v3/log"

	"github.com/ldsec/mnistnn/dataset"
	"github.com/ldsec/mnistnn/network"
)

// Config collects every knob of a training or evaluation run. Defaults
// reproduce the published 785-101-10 training setup.
type Config struct {
	Seed      int64 `toml:"seed"` // 0 picks a time-based seed
	Layers    []int `toml:"layers"`
	Epochs    int   `toml:"epochs"`
	BatchSize int   `toml:"batch_size"`

	LearnRate float64 `toml:"learn_rate"`
	Lambda    float64 `toml:"lambda"`

	Augment bool `toml:"augment"`
	Limit   int  `toml:"limit"` // cap on records per split; 0 = all

	TrainData   string `toml:"train_data"`
	TrainLabels string `toml:"train_labels"`
	TestData    string `toml:"test_data"`
	TestLabels  string `toml:"test_labels"`

	Model string `toml:"model"`
	CSV   string `toml:"csv"`  // optional accuracy-curve CSV
	Plot  string `toml:"plot"` // optional accuracy-curve PNG
}

func defaultConfig() Config {
	return Config{
		Layers:      []int{785, 101, 10},
		Epochs:      30,
		BatchSize:   10,
		LearnRate:   0.5,
		Lambda:      5.0,
		Augment:     true,
		TrainData:   "data/train-images-idx3-ubyte.gz",
		TrainLabels: "data/train-labels-idx1-ubyte.gz",
		TestData:    "data/t10k-images-idx3-ubyte.gz",
		TestLabels:  "data/t10k-labels-idx1-ubyte.gz",
		Model:       "network.bin",
	}
}

func main() {
	configPath := flag.String("config", "", "TOML config file")
	evalOnly := flag.Bool("eval", false, "evaluate the saved model instead of training")
	dump := flag.Bool("dump", false, "print the effective config as TOML and exit")
	debug := flag.Int("debug", 2, "log verbosity")
	flag.Parse()
	log.SetDebugVisible(*debug)

	cfg := defaultConfig()
	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, &cfg); err != nil {
			log.Fatal("reading config:", err)
		}
	}

	if *dump {
		out, err := gotoml.Marshal(cfg)
		if err != nil {
			log.Fatal("encoding config:", err)
		}
		os.Stdout.Write(out)
		return
	}

	if *evalOnly {
		evaluate(cfg)
		return
	}
	train(cfg)
}

func train(cfg Config) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Lvl1("seed:", seed)

	training, err := dataset.Load(cfg.TrainData, cfg.TrainLabels, cfg.Augment, cfg.Limit)
	if err != nil {
		log.Fatal(err)
	}
	test, err := dataset.Load(cfg.TestData, cfg.TestLabels, cfg.Augment, cfg.Limit)
	if err != nil {
		log.Fatal(err)
	}
	log.Lvl1("loaded", len(training), "training and", len(test), "test examples")

	net := network.New(rand.New(rand.NewSource(seed)), cfg.Layers...)
	hist := net.Train(training, test, cfg.Epochs, cfg.BatchSize, cfg.LearnRate, cfg.Lambda)

	if err := net.SaveFile(cfg.Model); err != nil {
		log.Fatal(err)
	}
	log.Lvl1("saved weights to", cfg.Model)

	if cfg.CSV != "" {
		f, err := os.Create(cfg.CSV)
		if err != nil {
			log.Fatal(err)
		}
		if err := hist.WriteCSV(f); err != nil {
			log.Fatal(err)
		}
		if err := f.Close(); err != nil {
			log.Fatal(err)
		}
	}
	if cfg.Plot != "" {
		if err := hist.PlotPNG(cfg.Plot); err != nil {
			log.Fatal(err)
		}
	}
}

func evaluate(cfg Config) {
	net, err := network.LoadFile(cfg.Model)
	if err != nil {
		log.Fatal(err)
	}
	test, err := dataset.Load(cfg.TestData, cfg.TestLabels, cfg.Augment, cfg.Limit)
	if err != nil {
		log.Fatal(err)
	}

	res := net.Evaluate(test)
	log.Lvl1(res)
	mean, stddev, min, max := res.Summary()
	log.Lvl1(fmt.Sprintf("per-class accuracy: mean %.2f%%, stddev %.2f, min %.2f%%, max %.2f%%",
		mean, stddev, min, max))
}
