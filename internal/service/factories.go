package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/davidleathers/contact-guardian/internal/domain/errors"
	"github.com/davidleathers/contact-guardian/internal/domain/threat"
	"github.com/davidleathers/contact-guardian/internal/domain/values"
	"github.com/davidleathers/contact-guardian/internal/infrastructure/config"
	"github.com/davidleathers/contact-guardian/internal/infrastructure/corpus"
	"github.com/davidleathers/contact-guardian/internal/metrics"
	"github.com/davidleathers/contact-guardian/internal/service/analyzer"
	"github.com/davidleathers/contact-guardian/internal/service/relevance"
	"github.com/davidleathers/contact-guardian/internal/service/verification"
)

// Options are the optional collaborators of the services
type Options struct {
	// Cache stores verification results. Nil disables caching.
	Cache verification.ResultCache
	// Recorder receives reload, verification and analysis metrics
	Recorder *metrics.Recorder
	// Generator writes assistant answers. Nil uses the fallback text.
	Generator relevance.Generator
}

// Services is the assembled engine
type Services struct {
	Signatures *threat.Holder
	Loader     *corpus.Loader
	Store      *corpus.Store
	Engine     *verification.Engine
	Verifier   *verification.Service
	Analyzer   *analyzer.Service
	Assistant  *relevance.Assistant

	signaturesPath string
	logger         *zap.Logger
}

// ReloadSignatures re-reads the configured signature file and swaps it in.
// Without a configured file the defaults are reinstalled. A failed reload
// keeps the active set.
func (s *Services) ReloadSignatures(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	gen, err := s.Signatures.ReloadFile(s.signaturesPath)
	if err != nil {
		s.logger.Warn("signature reload failed, keeping active set",
			zap.String("path", s.signaturesPath), zap.Error(err))
		return 0, err
	}
	s.logger.Info("threat signatures reloaded",
		zap.String("path", s.signaturesPath), zap.Uint64("generation", gen))
	return gen, nil
}

// ServiceFactories builds services from configuration
type ServiceFactories struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewServiceFactories creates a new service factory collection
func NewServiceFactories(cfg *config.Config, logger *zap.Logger) *ServiceFactories {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceFactories{cfg: cfg, logger: logger}
}

// Normalizer returns the normalizer for the configured phone region
func (f *ServiceFactories) Normalizer() values.Normalizer {
	region := f.cfg.Region
	if region.CountryCode == "" && region.TrunkPrefix == "" {
		return values.DefaultNormalizer
	}
	return values.Normalizer{Region: values.PhoneRegion{
		CountryCode: region.CountryCode,
		TrunkPrefix: region.TrunkPrefix,
	}}
}

// CreateSignatureHolder loads the configured signature file, or the
// built-in set when none is configured
func (f *ServiceFactories) CreateSignatureHolder() (*threat.Holder, error) {
	if f.cfg.Signatures.Path == "" {
		return threat.NewHolder(threat.Default()), nil
	}
	set, err := threat.LoadFile(f.cfg.Signatures.Path)
	if err != nil {
		return nil, err
	}
	f.logger.Info("threat signatures loaded", zap.String("path", f.cfg.Signatures.Path))
	return threat.NewHolder(set), nil
}

// CreateLoader returns a corpus loader for the configured format
func (f *ServiceFactories) CreateLoader() *corpus.Loader {
	return corpus.NewLoader(corpus.LoaderConfig{
		Delimiter:    f.cfg.DelimiterRune(),
		MaxRowErrors: f.cfg.Corpus.MaxRowErrors,
		Normalizer:   f.Normalizer(),
	}, f.logger.Named("corpus"))
}

// CreateCorpusStore returns an empty store over the configured path
func (f *ServiceFactories) CreateCorpusStore(loader *corpus.Loader, observer corpus.ReloadObserver) *corpus.Store {
	var opts []corpus.StoreOption
	if observer != nil {
		opts = append(opts, corpus.WithReloadObserver(observer))
	}
	return corpus.NewStore(loader, f.cfg.Corpus.Path, f.logger.Named("corpus"), opts...)
}

// Build assembles every service. The store is returned empty; callers
// decide when to load it.
func (f *ServiceFactories) Build(opts Options) (*Services, error) {
	if f.cfg == nil {
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "config cannot be nil")
	}

	holder, err := f.CreateSignatureHolder()
	if err != nil {
		return nil, err
	}

	loader := f.CreateLoader()
	var reloadObserver corpus.ReloadObserver
	if opts.Recorder != nil {
		reloadObserver = opts.Recorder
	}
	store := f.CreateCorpusStore(loader, reloadObserver)
	engine := verification.NewEngine(f.Normalizer(), holder)

	vopts := []verification.Option{}
	if opts.Cache != nil {
		vopts = append(vopts, verification.WithCache(opts.Cache))
	}
	if opts.Recorder != nil {
		vopts = append(vopts, verification.WithObserver(opts.Recorder))
	}
	verifier, err := verification.NewService(engine, store, f.logger.Named("verification"), vopts...)
	if err != nil {
		return nil, err
	}

	var analysisObserver analyzer.Observer
	if opts.Recorder != nil {
		analysisObserver = opts.Recorder
	}
	analysis, err := analyzer.NewService(analyzer.New(engine), store, analysisObserver, f.logger.Named("analyzer"))
	if err != nil {
		return nil, err
	}

	assistant, err := relevance.NewAssistant(store, opts.Generator, f.cfg.Assistant.ContextLimit, f.logger.Named("relevance"))
	if err != nil {
		return nil, err
	}

	return &Services{
		Signatures: holder,
		Loader:     loader,
		Store:      store,
		Engine:     engine,
		Verifier:   verifier,
		Analyzer:   analysis,
		Assistant:  assistant,

		signaturesPath: f.cfg.Signatures.Path,
		logger:         f.logger.Named("signatures"),
	}, nil
}
