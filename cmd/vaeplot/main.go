// vaeplot: diagnostic plots for trained VAE and SS-VAE models
//
// Usage:
//
//	vaeplot [flags] tsne      latent t-SNE of a labelled MNIST CSV
//	vaeplot [flags] elbo      train/test ELBO curve from a JSON history
//	vaeplot [flags] samples   grids of images sampled from the model
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"

	"vaeplot/dataset"
	"vaeplot/nn"
	"vaeplot/plots"
	"vaeplot/tsne"
	"vaeplot/utils"
)

var (
	configFile = flag.String("config", "", "YAML run configuration")
	verbose    = flag.Bool("verbose", true, "Verbose output")
	outputDir  = flag.String("out", "", "Output directory (overrides config)")
	dataFile   = flag.String("data", "", "MNIST CSV file (overrides config)")
	weights    = flag.String("weights", "", "Model weights JSON (overrides config)")
	history    = flag.String("history", "elbo.json", "ELBO history JSON for the elbo command")
	openGrids  = flag.Bool("open", false, "Open sample grids in the image viewer")
	normalize  = flag.Bool("normalize", false, "Standardise pixels with the test set mean and std before encoding")
)

// lossBatch is the number of test rows scored per loss evaluation.
const lossBatch = 256

// model is the part of a VAE or SS-VAE the commands need.
type model struct {
	vae   *nn.VAE
	ssvae *nn.SSVAE
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] tsne|elbo|samples\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	utils.Verbose = *verbose
	log := utils.Logger()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	switch cmd := flag.Arg(0); cmd {
	case "tsne":
		err = runTSNE(cfg, log)
	case "elbo":
		err = runELBO(cfg, log)
	case "samples":
		err = runSamples(cfg, log)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		log.Error("vaeplot failed", "command", flag.Arg(0), "err", err)
		os.Exit(1)
	}
}

func loadConfig() (*utils.Config, error) {
	cfg := utils.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = utils.LoadConfig(*configFile); err != nil {
			return nil, err
		}
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *dataFile != "" {
		cfg.Data = *dataFile
	}
	if *weights != "" {
		cfg.Weights = *weights
	}
	if *normalize {
		cfg.Normalize = true
	}
	if err := utils.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildModel(cfg *utils.Config, log *slog.Logger) (*model, error) {
	seed := uint64(cfg.Seed)
	if cfg.Weights != "" {
		w, err := utils.LoadWeights(cfg.Weights)
		if err != nil {
			return nil, err
		}
		log.Info("loaded weights", "file", cfg.Weights, "version", w.Version, "layers", len(w.Layers))
		if cfg.Model == "ssvae" {
			m, err := nn.LoadSSVAE(w, seed)
			return &model{ssvae: m}, err
		}
		m, err := nn.LoadVAE(w, seed)
		return &model{vae: m}, err
	}

	sizes, err := utils.ParseArchitecture(cfg.Architecture)
	if err != nil {
		return nil, err
	}
	arch, err := nn.ArchFromSizes(sizes, cfg.Classes)
	if err != nil {
		return nil, err
	}
	m := &model{}
	var mw *utils.ModelWeights
	if cfg.Model == "ssvae" {
		if m.ssvae, err = nn.NewSSVAE(arch, seed); err != nil {
			return nil, err
		}
		mw = m.ssvae.Weights()
	} else {
		m.vae = nn.NewVAE(arch, seed)
		mw = m.vae.Weights()
	}

	path := filepath.Join(cfg.OutputDir, cfg.Model+"_init_weights.json")
	if err := utils.SaveWeights(path, mw); err != nil {
		return nil, err
	}
	log.Warn("no weights given, using a randomly initialised model", "arch", cfg.Architecture, "seed", cfg.Seed, "saved", path)
	return m, nil
}

func newVisualizer(cfg *utils.Config, log *slog.Logger) (*plots.EmbeddingVisualizer, error) {
	v := plots.NewEmbeddingVisualizer()
	v.OutputDir = cfg.OutputDir
	v.Classes = cfg.Classes
	v.Snapshots = !cfg.SkipSnapshots
	v.Logger = log
	if len(cfg.Palette) > 0 {
		p, err := plots.ParsePalette(cfg.Palette)
		if err != nil {
			return nil, err
		}
		v.Palette = p
	}
	if err := v.Palette.Validate(cfg.Classes); err != nil {
		return nil, err
	}

	mode, err := tsne.ParseInit(cfg.Init)
	if err != nil {
		return nil, err
	}
	v.TSNE.Init = mode
	v.TSNE.Perplexity = cfg.Perplexity
	v.TSNE.Iterations = cfg.Iterations
	v.TSNE.Seed = cfg.Seed
	v.TSNE.Progress = func(iter int, kl float64) {
		log.Info("t-SNE progress", "iter", iter, "kl", kl)
	}
	return v, nil
}

func runTSNE(cfg *utils.Config, log *slog.Logger) error {
	if cfg.Data == "" {
		return errors.New("tsne needs an MNIST CSV (-data or data:)")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	v, err := newVisualizer(cfg, log)
	if err != nil {
		return err
	}
	m, err := buildModel(cfg, log)
	if err != nil {
		return err
	}

	stats := &utils.TimingStats{}
	totalStart := time.Now()

	start := time.Now()
	ds, err := dataset.LoadMNIST(cfg.Data, cfg.Limit)
	if err != nil {
		return err
	}
	if cfg.Normalize {
		mean, std := ds.MeanStd()
		if ds, err = ds.Normalize(mean, std); err != nil {
			return err
		}
	}
	stats.LoadTime = time.Since(start)
	log.Info("loaded test set", "file", cfg.Data, "rows", ds.Len(), "normalized", cfg.Normalize)

	var res *plots.EmbeddingResult
	if m.ssvae != nil {
		res, err = plots.EmbedTestSetSSVAE(cfg.Name, m.ssvae, ds, v)
	} else {
		res, err = plots.EmbedTestSet(m.vae, ds, v)
	}
	if err != nil {
		return err
	}
	stats.EncodeTime = res.Timings.Encode
	stats.EmbedTime = res.Timings.Embed
	stats.RenderTime = res.Timings.Render
	stats.TotalTime = time.Since(totalStart)

	if within, between, err := tsne.Separation(res.Embedding, ds.Digits); err == nil {
		log.Info("class separation", "within", within, "between", between)
	}
	if loss, err := testLoss(m, ds); err == nil {
		log.Info("test set loss", "neg_elbo", loss)
	} else {
		log.Warn("test set loss unavailable", "err", err)
	}
	if m.ssvae != nil {
		if acc, err := classifierAccuracy(m.ssvae, ds); err == nil {
			log.Info("classifier accuracy", "accuracy", acc)
		}
	}

	for _, f := range res.Files {
		log.Info("wrote", "file", f)
	}
	utils.PrintTimingStats(stats, len(res.Files))
	return nil
}

// testLoss averages the negative ELBO over the test set in batches.
func testLoss(m *model, ds *dataset.Set) (float64, error) {
	var total float64
	var rows int
	for it := 0; ; it++ {
		b := ds.Batch(lossBatch, it)
		if b == nil {
			break
		}
		var loss float64
		var err error
		if m.ssvae != nil {
			loss, err = m.ssvae.Loss(b.Features(), b.Labels())
		} else {
			loss, err = m.vae.Loss(b.Features())
		}
		if err != nil {
			return 0, err
		}
		total += loss * float64(b.Len())
		rows += b.Len()
	}
	if rows == 0 {
		return 0, errors.New("empty test set")
	}
	return total / float64(rows), nil
}

// classifierAccuracy is the share of rows whose most probable class is the
// labelled digit.
func classifierAccuracy(m *nn.SSVAE, ds *dataset.Set) (float64, error) {
	probs, err := m.Classify(ds.Features())
	if err != nil {
		return 0, err
	}
	correct := 0
	for i, d := range ds.Digits {
		if floats.MaxIdx(probs.RawRowView(i)) == d {
			correct++
		}
	}
	return float64(correct) / float64(len(ds.Digits)), nil
}

func runELBO(cfg *utils.Config, log *slog.Logger) error {
	train, test, err := plots.LoadELBOHistory(*history)
	if err != nil {
		return err
	}
	path, err := plots.PlotELBO(train, test, cfg.OutputDir)
	if err != nil {
		return err
	}
	log.Info("wrote", "file", path, "train_epochs", len(train), "test_epochs", len(test))
	return nil
}

func runSamples(cfg *utils.Config, log *slog.Logger) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	m, err := buildModel(cfg, log)
	if err != nil {
		return err
	}

	start := time.Now()
	var d *plots.GridDisplay
	if m.ssvae != nil {
		d = plots.NewGridDisplay(cfg.OutputDir, "ssvae_samples")
		d.Open = *openGrids
		err = plots.PlotConditionalSamples(m.ssvae, d)
	} else {
		d = plots.NewGridDisplay(cfg.OutputDir, "vae_samples")
		d.Open = *openGrids
		err = plots.PlotVAESamples(m.vae, d)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	log.Info("sample grids written", "files", len(d.Files), "dir", cfg.OutputDir,
		"elapsed", elapsed, "per_grid_us", utils.DurationUS(elapsed/time.Duration(max(len(d.Files), 1))))
	return nil
}
